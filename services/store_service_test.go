package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/crypto"
	"github.com/akinalp/atelier/repository"
)

type storeFixture struct {
	store    StoreService
	artworks repository.ArtworkRepository
	orders   repository.OrderRepository
	mailer   *recordingMailer
	hub      *recordingHub
}

func newStoreFixture(t *testing.T, key []byte) *storeFixture {
	t.Helper()
	db := newTestDB(t)
	f := &storeFixture{
		artworks: repository.NewSQLiteArtworkRepo(db.Conn),
		orders:   repository.NewSQLiteOrderRepo(db.Conn),
		mailer:   &recordingMailer{},
		hub:      &recordingHub{},
	}
	f.store = NewStoreService(db.Conn, f.artworks, f.orders, f.mailer, f.hub, StoreOptions{
		HoldDuration:  48 * time.Hour,
		EncryptionKey: key,
		AdminURL:      "https://atelier.example/en/admin",
	})
	t.Cleanup(f.store.Close)
	return f
}

func (f *storeFixture) artwork(t *testing.T, slug string, status models.ArtworkStatus, published bool) *models.Artwork {
	t.Helper()
	a := &models.Artwork{
		Slug: slug, Title: "Title " + slug, Currency: "EUR", Status: status,
		PriceCents: price(120000), Published: published,
	}
	require.NoError(t, f.artworks.Create(context.Background(), a))
	return a
}

func orderReq(slug string) *models.PlaceOrderRequest {
	return &models.PlaceOrderRequest{
		ArtworkSlug:     slug,
		BuyerName:       "Camille",
		BuyerEmail:      "Camille@Example.com",
		ShippingAddress: "12 rue des Lilas, Paris",
		Phone:           "+33 6 12 34 56 78",
		Locale:          "fr",
	}
}

func (f *storeFixture) status(t *testing.T, artworkID string) models.ArtworkStatus {
	t.Helper()
	a, err := f.artworks.GetByID(context.Background(), artworkID)
	require.NoError(t, err)
	return a.Status
}

func TestPlaceOrderReservesArtwork(t *testing.T) {
	f := newStoreFixture(t, nil)
	a := f.artwork(t, "blue-hour", models.ArtworkAvailable, true)

	order, err := f.store.PlaceOrder(context.Background(), orderReq("blue-hour"))
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Regexp(t, `^[0-9A-F]{8}$`, order.Reference)
	assert.Equal(t, int64(120000), order.AmountCents)
	assert.Equal(t, "EUR", order.Currency)
	assert.Equal(t, "Title blue-hour", order.ArtworkTitle)
	assert.Equal(t, "camille@example.com", order.BuyerEmail)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), order.ExpiresAt, time.Minute)
	assert.Equal(t, models.ArtworkReserved, f.status(t, a.ID))

	require.Len(t, f.mailer.confirms, 1)
	require.Len(t, f.mailer.notifies, 1)
	assert.Equal(t, order.Reference, f.mailer.confirms[0].Reference)
	assert.Equal(t, "fr", f.mailer.confirms[0].Locale)
	assert.NotEmpty(t, f.mailer.confirms[0].Amount)
	assert.Contains(t, f.hub.ops(), "order_create")

	_, err = f.store.PlaceOrder(context.Background(), orderReq("blue-hour"))
	assert.ErrorIs(t, err, ErrArtworkUnavailable)
	assert.ErrorIs(t, err, pkg.ErrConflict)
}

func TestPlaceOrderRejectsUnsaleable(t *testing.T) {
	f := newStoreFixture(t, nil)
	f.artwork(t, "draft", models.ArtworkAvailable, false)
	f.artwork(t, "sold", models.ArtworkSold, true)
	ctx := context.Background()

	_, err := f.store.PlaceOrder(ctx, orderReq("draft"))
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = f.store.PlaceOrder(ctx, orderReq("sold"))
	assert.ErrorIs(t, err, pkg.ErrConflict)

	_, err = f.store.PlaceOrder(ctx, orderReq("missing"))
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	bad := orderReq("sold")
	bad.BuyerEmail = "nope"
	_, err = f.store.PlaceOrder(ctx, bad)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestPlaceOrderConcurrentBuyers(t *testing.T) {
	f := newStoreFixture(t, nil)
	a := f.artwork(t, "only-one", models.ArtworkAvailable, true)

	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.store.PlaceOrder(context.Background(), orderReq("only-one"))
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, pkg.ErrConflict)
	}
	assert.Equal(t, 1, won)

	open, err := f.orders.HasOpenForArtwork(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestOrderLifecycle(t *testing.T) {
	f := newStoreFixture(t, nil)
	a := f.artwork(t, "nocturne", models.ArtworkAvailable, true)
	b := f.artwork(t, "aube", models.ArtworkAvailable, true)

	order, err := f.store.PlaceOrder(context.Background(), orderReq("nocturne"))
	require.NoError(t, err)

	_, err = f.store.MarkPaid(memberCtx(), order.ID)
	assert.ErrorIs(t, err, pkg.ErrForbidden)
	_, err = f.store.MarkShipped(adminCtx(), order.ID)
	assert.ErrorIs(t, err, pkg.ErrConflict)

	paid, err := f.store.MarkPaid(adminCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, paid.Status)
	assert.Equal(t, models.ArtworkSold, f.status(t, a.ID))

	_, err = f.store.Cancel(adminCtx(), order.ID)
	assert.ErrorIs(t, err, pkg.ErrConflict)

	shipped, err := f.store.MarkShipped(adminCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, shipped.Status)

	other, err := f.store.PlaceOrder(context.Background(), orderReq("aube"))
	require.NoError(t, err)
	cancelled, err := f.store.Cancel(adminCtx(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Equal(t, models.ArtworkAvailable, f.status(t, b.ID))

	list, err := f.store.List(adminCtx(), models.OrderFilter{Status: models.OrderShipped})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, order.ID, list[0].ID)

	_, err = f.store.List(adminCtx(), models.OrderFilter{Status: "lost"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestExpireStale(t *testing.T) {
	f := newStoreFixture(t, nil)
	a := f.artwork(t, "tide", models.ArtworkAvailable, true)
	b := f.artwork(t, "reef", models.ArtworkAvailable, true)
	ctx := context.Background()

	stale, err := f.store.PlaceOrder(ctx, orderReq("tide"))
	require.NoError(t, err)
	paid, err := f.store.PlaceOrder(ctx, orderReq("reef"))
	require.NoError(t, err)
	_, err = f.store.MarkPaid(adminCtx(), paid.ID)
	require.NoError(t, err)

	n, err := f.store.ExpireStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.store.ExpireStale(ctx, time.Now().Add(49*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.store.Get(adminCtx(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderExpired, got.Status)
	assert.Equal(t, models.ArtworkAvailable, f.status(t, a.ID))
	assert.Equal(t, models.ArtworkSold, f.status(t, b.ID))

	// The artwork can be ordered again.
	_, err = f.store.PlaceOrder(ctx, orderReq("tide"))
	assert.NoError(t, err)
}

func TestSweeperExpiresAndStops(t *testing.T) {
	f := newStoreFixture(t, nil)
	a := f.artwork(t, "drift", models.ArtworkAvailable, true)

	_, err := f.store.PlaceOrder(context.Background(), orderReq("drift"))
	require.NoError(t, err)

	f.store.(*storeService).now = func() time.Time { return time.Now().Add(72 * time.Hour) }
	f.store.StartSweeper(10 * time.Millisecond)

	assert.Eventually(t, func() bool {
		got, err := f.artworks.GetByID(context.Background(), a.ID)
		return err == nil && got.Status == models.ArtworkAvailable
	}, 2*time.Second, 20*time.Millisecond)

	f.store.Close()
	f.store.Close()
}

func TestOrderFieldsEncryptedAtRest(t *testing.T) {
	key, err := crypto.DeriveKey(strings.Repeat("ab", 32))
	require.NoError(t, err)
	f := newStoreFixture(t, key)
	f.artwork(t, "veil", models.ArtworkAvailable, true)

	order, err := f.store.PlaceOrder(context.Background(), orderReq("veil"))
	require.NoError(t, err)
	assert.Equal(t, "12 rue des Lilas, Paris", order.ShippingAddress)

	raw, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "12 rue des Lilas, Paris", raw.ShippingAddress)
	assert.NotEqual(t, "+33 6 12 34 56 78", raw.Phone)

	got, err := f.store.Get(adminCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "12 rue des Lilas, Paris", got.ShippingAddress)
	assert.Equal(t, "+33 6 12 34 56 78", got.Phone)

	_, err = f.store.Get(memberCtx(), order.ID)
	assert.ErrorIs(t, err, pkg.ErrForbidden)
}
