package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestRegisterRequestValidate(t *testing.T) {
	r := RegisterRequest{Email: "  Ada@Example.ART ", Password: "longenough", Name: " Ada "}
	require.NoError(t, r.Validate())
	assert.Equal(t, "ada@example.art", r.Email)
	assert.Equal(t, "Ada", r.Name)

	bad := []RegisterRequest{
		{Email: "nope", Password: "longenough"},
		{Email: "a@b.co", Password: "short"},
		{Email: "a@b.co", Password: "longenough", Name: strings.Repeat("x", 65)},
	}
	for _, r := range bad {
		assert.Error(t, r.Validate())
	}
}

func TestChangePasswordRequestValidate(t *testing.T) {
	assert.Error(t, (&ChangePasswordRequest{CurrentPassword: "samesame1", NewPassword: "samesame1"}).Validate())
	assert.Error(t, (&ChangePasswordRequest{NewPassword: "newpassword"}).Validate())
	assert.NoError(t, (&ChangePasswordRequest{CurrentPassword: "old-password", NewPassword: "new-password"}).Validate())
}

func TestCreateArtworkRequestValidate(t *testing.T) {
	r := CreateArtworkRequest{Title: "  Blue Harbour ", Year: 2024}
	require.NoError(t, r.Validate())
	assert.Equal(t, "Blue Harbour", r.Title)
	assert.Equal(t, ArtworkNotForSale, r.Status)

	r = CreateArtworkRequest{Title: "X", Slug: "Été Bleu", Status: ArtworkAvailable, PriceCents: ptr(int64(5000))}
	require.NoError(t, r.Validate())
	assert.Equal(t, "ete-bleu", r.Slug)

	cases := map[string]CreateArtworkRequest{
		"empty title":      {Title: " "},
		"old year":         {Title: "X", Year: 1850},
		"future year":      {Title: "X", Year: time.Now().Year() + 2},
		"negative width":   {Title: "X", WidthCM: -1},
		"reserved":         {Title: "X", Status: ArtworkReserved, PriceCents: ptr(int64(1))},
		"no price":         {Title: "X", Status: ArtworkAvailable},
		"negative price":   {Title: "X", Status: ArtworkSold, PriceCents: ptr(int64(-5))},
		"punctuation slug": {Title: "X", Slug: "!!!"},
	}
	for name, r := range cases {
		assert.Error(t, r.Validate(), name)
	}
}

func TestUpdateArtworkRequestApply(t *testing.T) {
	a := &Artwork{Title: "Old", Status: ArtworkAvailable, PriceCents: ptr(int64(100))}

	r := UpdateArtworkRequest{Title: ptr(" New "), ClearPrice: true, Status: ptr(ArtworkNotForSale)}
	require.NoError(t, r.Validate())
	r.Apply(a)

	assert.Equal(t, "New", a.Title)
	assert.Nil(t, a.PriceCents)
	assert.Equal(t, ArtworkNotForSale, a.Status)
	assert.NoError(t, a.Check())

	a.Status = ArtworkAvailable
	assert.Error(t, a.Check(), "available without price")

	assert.Error(t, (&UpdateArtworkRequest{PriceCents: ptr(int64(1)), ClearPrice: true}).Validate())
}

func TestArtworkHelpers(t *testing.T) {
	a := Artwork{WidthCM: 80, HeightCM: 60.5, Published: true, Status: ArtworkAvailable, PriceCents: ptr(int64(1))}
	assert.Equal(t, "80 × 60.5 cm", a.Dimensions())
	assert.True(t, a.ForSale())

	a.DepthCM = 4
	assert.Equal(t, "80 × 60.5 × 4 cm", a.Dimensions())

	a.Published = false
	assert.False(t, a.ForSale())
}

func TestReorderRequestRejectsDuplicates(t *testing.T) {
	r := ReorderRequest{Items: []PositionUpdate{{ID: "a", Position: 0}, {ID: "a", Position: 1}}}
	assert.ErrorContains(t, r.Validate(), "duplicate")
	assert.Error(t, (&ReorderRequest{}).Validate())
	assert.NoError(t, (&ReorderRequest{Items: []PositionUpdate{{ID: "a"}, {ID: "b", Position: 1}}}).Validate())
}

func TestOrderTransitions(t *testing.T) {
	assert.True(t, OrderPending.CanTransition(OrderPaid))
	assert.True(t, OrderPending.CanTransition(OrderCancelled))
	assert.True(t, OrderPending.CanTransition(OrderExpired))
	assert.True(t, OrderPaid.CanTransition(OrderShipped))

	assert.False(t, OrderPaid.CanTransition(OrderCancelled))
	assert.False(t, OrderShipped.CanTransition(OrderPaid))
	assert.False(t, OrderExpired.CanTransition(OrderPaid))
	assert.False(t, OrderCancelled.CanTransition(OrderPending))

	assert.True(t, OrderPaid.Open())
	assert.False(t, OrderShipped.Open())
}

func TestPlaceOrderRequestValidate(t *testing.T) {
	r := PlaceOrderRequest{
		ArtworkSlug:     "blue",
		BuyerName:       " Grace ",
		BuyerEmail:      "GRACE@example.com",
		ShippingAddress: "1 Main Street, Springfield",
	}
	require.NoError(t, r.Validate())
	assert.Equal(t, "grace@example.com", r.BuyerEmail)

	r.ShippingAddress = "x"
	assert.Error(t, r.Validate())
}

func TestContactRequest(t *testing.T) {
	r := ContactRequest{Name: " Bo  Jo ", Email: "bo@example.com", Message: " hi "}
	require.NoError(t, r.Validate())
	assert.Equal(t, "Bo Jo", r.Name)
	assert.Equal(t, "hi", r.Message)
	assert.False(t, r.IsSpam())

	r.Website = "http://spam.example"
	assert.True(t, r.IsSpam())

	assert.Error(t, (&ContactRequest{Name: "a", Email: "a@b.co", Message: strings.Repeat("x", 5001)}).Validate())
}

func TestPressRequests(t *testing.T) {
	r := CreatePressRequest{URL: " https://news.example/a ", PublishedAt: "2025-03-01"}
	require.NoError(t, r.Validate())
	assert.Equal(t, PressKindPress, r.Kind)
	require.NotNil(t, r.PublishedDay)
	assert.Equal(t, 2025, r.PublishedDay.Year())

	assert.Error(t, (&CreatePressRequest{URL: "ftp://x"}).Validate())
	assert.Error(t, (&CreatePressRequest{URL: "https://x.example", PublishedAt: "March"}).Validate())

	item := &PressItem{Title: "T", PublishedAt: r.PublishedDay}
	u := UpdatePressRequest{Title: ptr(" New "), PublishedAt: ptr("")}
	require.NoError(t, u.Validate())
	u.Apply(item)
	assert.Equal(t, "New", item.Title)
	assert.Nil(t, item.PublishedAt)

	item.SiteName = "news.example"
	assert.Equal(t, "news.example", item.Source())
	item.Outlet = "The Daily"
	assert.Equal(t, "The Daily", item.Source())
}
