package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/crypto"
	"github.com/akinalp/atelier/pkg/email"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/ws"
)

const (
	// referenceAttempts retries the rare 8-hex reference collision.
	referenceAttempts = 3
	mailTimeout       = 15 * time.Second
)

// ErrArtworkUnavailable is returned when an order loses the race for an
// artwork, or the artwork is not for sale.
var ErrArtworkUnavailable = fmt.Errorf("%w: artwork is no longer available", pkg.ErrConflict)

// StoreService places and settles orders. An order reserves its artwork
// until it is paid, cancelled or expires.
//
//	pending -> paid -> shipped
//	pending -> cancelled | expired   (artwork back to available)
type StoreService interface {
	PlaceOrder(ctx context.Context, req *models.PlaceOrderRequest) (*models.Order, error)
	MarkPaid(ctx context.Context, id string) (*models.Order, error)
	MarkShipped(ctx context.Context, id string) (*models.Order, error)
	Cancel(ctx context.Context, id string) (*models.Order, error)
	// ExpireStale expires every pending order whose hold ended before now.
	ExpireStale(ctx context.Context, now time.Time) (int, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	// StartSweeper runs ExpireStale every interval until Close.
	StartSweeper(interval time.Duration)
	Close()
}

// StoreOptions configures the store service.
type StoreOptions struct {
	HoldDuration time.Duration
	// EncryptionKey encrypts shipping addresses and phones at rest; nil
	// stores them as plain text.
	EncryptionKey []byte
	// AdminURL is linked from the artist's order notification.
	AdminURL string
}

type storeService struct {
	db          *sql.DB
	artworkRepo repository.ArtworkRepository
	orderRepo   repository.OrderRepository
	mailer      email.Sender
	hub         ws.Broadcaster
	opts        StoreOptions
	now         func() time.Time

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	log      *zap.Logger
}

func NewStoreService(
	db *sql.DB,
	artworkRepo repository.ArtworkRepository,
	orderRepo repository.OrderRepository,
	mailer email.Sender,
	hub ws.Broadcaster,
	opts StoreOptions,
) StoreService {
	return &storeService{
		db:          db,
		artworkRepo: artworkRepo,
		orderRepo:   orderRepo,
		mailer:      mailer,
		hub:         hub,
		opts:        opts,
		now:         time.Now,
		stop:        make(chan struct{}),
		log:         zap.L().Named("store"),
	}
}

// PlaceOrder reserves the artwork and records the order in one transaction.
//
// The reservation is a compare-and-set:
//
//	UPDATE artworks SET status = 'reserved'
//	WHERE id = ? AND status = 'available' AND published = 1
//
// The status check and the write are one statement, and SQLite runs one
// writer at a time, so of two concurrent buyers exactly one matches a row.
// The other sees zero rows affected and gets ErrArtworkUnavailable. Reading
// the status first and writing afterwards would let both buyers see
// "available".
//
// The first GetBySlug runs outside the transaction and is only a fast
// rejection; price and title are read again after the reservation, inside
// the transaction, so the order records what the buyer actually reserved.
//
// Other writers respect the reservation: artwork edits never write status
// directly (ArtworkService.Update), and deletes refuse reserved artworks.
func (s *storeService) PlaceOrder(ctx context.Context, req *models.PlaceOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}
	req.Locale = i18n.Normalize(req.Locale)

	artwork, err := s.artworkRepo.GetBySlug(ctx, req.ArtworkSlug)
	if err != nil {
		return nil, err
	}
	if !artwork.ForSale() {
		if !artwork.Published {
			return nil, pkg.ErrNotFound
		}
		return nil, ErrArtworkUnavailable
	}

	address, err := s.seal(req.ShippingAddress)
	if err != nil {
		return nil, err
	}
	phone, err := s.seal(req.Phone)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stored := &models.Order{
		ID:              uuid.NewString(),
		ArtworkID:       artwork.ID,
		BuyerName:       req.BuyerName,
		BuyerEmail:      req.BuyerEmail,
		ShippingAddress: address,
		Phone:           phone,
		Note:            req.Note,
		Status:          models.OrderPending,
		Locale:          req.Locale,
		ExpiresAt:       now.Add(s.opts.HoldDuration),
	}

	for attempt := 1; ; attempt++ {
		stored.Reference = newReference()
		err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			artworks := repository.NewSQLiteArtworkRepo(tx)
			reserved, err := artworks.CompareAndSetStatus(ctx, artwork.ID, models.ArtworkAvailable, models.ArtworkReserved, true)
			if err != nil {
				return err
			}
			if !reserved {
				return ErrArtworkUnavailable
			}

			// Price and title as of the reservation.
			current, err := artworks.GetByID(ctx, artwork.ID)
			if err != nil {
				return err
			}
			if current.PriceCents == nil {
				return ErrArtworkUnavailable
			}
			stored.ArtworkTitle = current.Title
			stored.AmountCents = *current.PriceCents
			stored.Currency = current.Currency

			return repository.NewSQLiteOrderRepo(tx).Create(ctx, stored)
		})
		if !errors.Is(err, pkg.ErrAlreadyExists) || attempt == referenceAttempts {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	order := *stored
	order.ShippingAddress = req.ShippingAddress
	order.Phone = req.Phone

	s.log.Info("order placed",
		zap.String("reference", order.Reference), zap.String("artwork_id", order.ArtworkID))

	s.sendOrderMails(ctx, &order)
	s.hub.BroadcastToAll(ws.Event{Op: ws.OpOrderCreate, Data: &order})
	s.hub.BroadcastToAll(ws.Event{Op: ws.OpArtworkUpdate, Data: map[string]string{
		"id":     order.ArtworkID,
		"status": string(models.ArtworkReserved),
	}})

	return &order, nil
}

// artworkMove is the artwork side of an order transition.
type artworkMove struct {
	from, to models.ArtworkStatus
}

func (s *storeService) MarkPaid(ctx context.Context, id string) (*models.Order, error) {
	return s.adminTransition(ctx, id, models.OrderPaid, &artworkMove{models.ArtworkReserved, models.ArtworkSold})
}

func (s *storeService) MarkShipped(ctx context.Context, id string) (*models.Order, error) {
	return s.adminTransition(ctx, id, models.OrderShipped, nil)
}

func (s *storeService) Cancel(ctx context.Context, id string) (*models.Order, error) {
	return s.adminTransition(ctx, id, models.OrderCancelled, &artworkMove{models.ArtworkReserved, models.ArtworkAvailable})
}

func (s *storeService) adminTransition(ctx context.Context, id string, to models.OrderStatus, move *artworkMove) (*models.Order, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, order, to, move); err != nil {
		return nil, err
	}

	s.open(order)
	s.hub.BroadcastToAll(ws.Event{Op: ws.OpOrderUpdate, Data: order})
	return order, nil
}

// transition moves order to the new status and its artwork along with it.
// Both compare-and-set, so a concurrent change surfaces as ErrConflict.
func (s *storeService) transition(ctx context.Context, order *models.Order, to models.OrderStatus, move *artworkMove) error {
	if !order.Status.CanTransition(to) {
		return fmt.Errorf("%w: cannot move order from %s to %s", pkg.ErrConflict, order.Status, to)
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		changed, err := repository.NewSQLiteOrderRepo(tx).CompareAndSetStatus(ctx, order.ID, order.Status, to)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: order was changed concurrently", pkg.ErrConflict)
		}

		if move == nil || order.ArtworkID == "" {
			return nil
		}
		moved, err := repository.NewSQLiteArtworkRepo(tx).CompareAndSetStatus(ctx, order.ArtworkID, move.from, move.to, false)
		if err != nil {
			return err
		}
		if !moved {
			s.log.Warn("artwork not in expected status",
				zap.String("reference", order.Reference), zap.String("artwork_id", order.ArtworkID),
				zap.String("expected", string(move.from)))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("order status changed",
		zap.String("reference", order.Reference), zap.String("from", string(order.Status)), zap.String("to", string(to)))
	order.Status = to
	order.UpdatedAt = s.now().UTC()
	return nil
}

func (s *storeService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	orders, err := s.orderRepo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range orders {
		order := &orders[i]
		err := s.transition(ctx, order, models.OrderExpired, &artworkMove{models.ArtworkReserved, models.ArtworkAvailable})
		if err != nil {
			// Paid or cancelled in the meantime.
			if errors.Is(err, pkg.ErrConflict) {
				continue
			}
			s.log.Error("failed to expire order", zap.String("reference", order.Reference), zap.Error(err))
			continue
		}
		expired++
		s.open(order)
		s.hub.BroadcastToAll(ws.Event{Op: ws.OpOrderUpdate, Data: order})
	}

	return expired, nil
}

func (s *storeService) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", pkg.ErrBadRequest, filter.Status)
	}

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		s.open(&orders[i])
	}
	return orders, nil
}

func (s *storeService) Get(ctx context.Context, id string) (*models.Order, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.open(order)
	return order, nil
}

func (s *storeService) StartSweeper(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n, err := s.ExpireStale(context.Background(), s.now())
				if err != nil {
					s.log.Error("reservation sweep failed", zap.Error(err))
				} else if n > 0 {
					s.log.Info("expired stale reservations", zap.Int("count", n))
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the sweeper and waits for a running sweep to finish.
func (s *storeService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// ─── Private Helpers ───

// seal encrypts a buyer field when a key is configured.
func (s *storeService) seal(plain string) (string, error) {
	if s.opts.EncryptionKey == nil || plain == "" {
		return plain, nil
	}
	sealed, err := crypto.Encrypt(plain, s.opts.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt order field: %w", err)
	}
	return sealed, nil
}

// open decrypts the buyer fields in place. Values stored before a key was
// configured do not decrypt and are left as they are.
func (s *storeService) open(order *models.Order) {
	if s.opts.EncryptionKey == nil {
		return
	}
	for _, field := range []*string{&order.ShippingAddress, &order.Phone} {
		if *field == "" {
			continue
		}
		if plain, err := crypto.Decrypt(*field, s.opts.EncryptionKey); err == nil {
			*field = plain
		}
	}
}

func (s *storeService) sendOrderMails(ctx context.Context, order *models.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()

	loc := i18n.NewLocalizer(order.Locale)
	mail := email.OrderMail{
		To:           order.BuyerEmail,
		BuyerName:    order.BuyerName,
		Reference:    order.Reference,
		ArtworkTitle: order.ArtworkTitle,
		Amount:       loc.FormatPrice(order.AmountCents, order.Currency),
		ExpiresAt:    loc.FormatDate(order.ExpiresAt),
		AdminURL:     s.opts.AdminURL,
		Locale:       order.Locale,
	}

	if err := s.mailer.SendOrderConfirmation(ctx, mail); err != nil {
		s.log.Error("failed to send order confirmation", zap.String("reference", order.Reference), zap.Error(err))
	}
	if err := s.mailer.SendOrderNotification(ctx, mail); err != nil {
		s.log.Error("failed to send order notification", zap.String("reference", order.Reference), zap.Error(err))
	}
}

// newReference is the short code buyers quote: 8 upper-case hex digits.
func newReference() string {
	id := uuid.New()
	return strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}
