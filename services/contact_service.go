package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/email"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/ws"
)

// ContactService stores contact form messages and forwards them to the
// artist.
type ContactService interface {
	// Submit stores and forwards the message. Spam caught by the honeypot is
	// accepted and dropped, so bots cannot tell.
	Submit(ctx context.Context, req *models.ContactRequest) error
	List(ctx context.Context, limit int) ([]models.ContactMessage, error)
	MarkRead(ctx context.Context, id string, read bool) error
	Delete(ctx context.Context, id string) error
}

type contactService struct {
	repo   repository.ContactRepository
	mailer email.Sender
	hub    ws.Broadcaster
	log    *zap.Logger
}

func NewContactService(repo repository.ContactRepository, mailer email.Sender, hub ws.Broadcaster) ContactService {
	return &contactService{
		repo:   repo,
		mailer: mailer,
		hub:    hub,
		log:    zap.L().Named("contact"),
	}
}

func (s *contactService) Submit(ctx context.Context, req *models.ContactRequest) error {
	if req.IsSpam() {
		s.log.Info("honeypot triggered", zap.String("ip", req.IP))
		return nil
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	msg := &models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		Locale:  i18n.Normalize(req.Locale),
		IP:      req.IP,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return err
	}

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()
	if err := s.mailer.SendContactMessage(mailCtx, email.ContactMail{
		FromName:  msg.Name,
		FromEmail: msg.Email,
		Message:   msg.Message,
	}); err != nil {
		s.log.Error("failed to forward contact message", zap.String("id", msg.ID), zap.Error(err))
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpContactCreate, Data: msg})
	return nil
}

func (s *contactService) List(ctx context.Context, limit int) ([]models.ContactMessage, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, limit)
}

func (s *contactService) MarkRead(ctx context.Context, id string, read bool) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id, read)
}

func (s *contactService) Delete(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
