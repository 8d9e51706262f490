package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/ws"
)

// UserService is the admin side of account management.
type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, targetID string, req *models.UpdateRoleRequest) (*models.User, error)
	Delete(ctx context.Context, targetID string) error
	// MarkSeen records that the user connected to the live feed.
	MarkSeen(ctx context.Context, userID string) error
}

type userService struct {
	userRepo repository.UserRepository
	hub      ws.Broadcaster
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository, hub ws.Broadcaster) UserService {
	return &userService{userRepo: userRepo, hub: hub, now: time.Now}
}

func (s *userService) List(ctx context.Context) ([]models.User, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.userRepo.GetAll(ctx)
}

// UpdateRole changes a user's role. Admins cannot demote themselves and the
// last admin always stays admin.
//
// The last-admin rule is enforced by the repository's conditional UPDATE,
// not by counting here: two admins demoting each other at the same moment
// would both pass a separate count. A demoted user's feed connections are
// closed, since the feed carries order details.
func (s *userService) UpdateRole(ctx context.Context, targetID string, req *models.UpdateRoleRequest) (*models.User, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == req.Role {
		return target, nil
	}
	if target.Role == models.RoleAdmin && target.ID == actor.ID {
		return nil, fmt.Errorf("%w: you cannot remove your own admin role", pkg.ErrBadRequest)
	}

	if err := s.userRepo.UpdateRole(ctx, target.ID, req.Role); err != nil {
		return nil, err
	}
	target.Role = req.Role

	zap.L().Named("users").Info("role changed",
		zap.String("actor", actor.ID), zap.String("user_id", target.ID), zap.String("role", string(req.Role)))
	if !target.IsAdmin() {
		s.hub.DisconnectUser(target.ID)
	}
	s.hub.BroadcastToAll(ws.Event{Op: ws.OpUserUpdate, Data: target})

	return target, nil
}

// Delete removes an account. Like UpdateRole, the last admin survives.
func (s *userService) Delete(ctx context.Context, targetID string) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if targetID == actor.ID {
		return fmt.Errorf("%w: you cannot delete your own account", pkg.ErrBadRequest)
	}

	if err := s.userRepo.Delete(ctx, targetID); err != nil {
		return err
	}

	zap.L().Named("users").Info("user deleted", zap.String("actor", actor.ID), zap.String("user_id", targetID))
	s.hub.DisconnectUser(targetID)
	s.hub.BroadcastToAll(ws.Event{Op: ws.OpUserDelete, Data: ws.DeletedData{ID: targetID}})
	return nil
}

func (s *userService) MarkSeen(ctx context.Context, userID string) error {
	return s.userRepo.TouchLastSeen(ctx, userID, s.now())
}
