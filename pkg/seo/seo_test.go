package seo

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var builder = Builder{
	SiteName:      "Ada Studio",
	BaseURL:       "https://ada.example",
	Locales:       []string{"en", "fr"},
	DefaultLocale: "en",
}

func TestPage(t *testing.T) {
	m := builder.Page("fr", "/portfolio", "Portfolio", "  Toutes   les œuvres ")

	assert.Equal(t, "Portfolio · Ada Studio", m.Title)
	assert.Equal(t, "Toutes les œuvres", m.Description)
	assert.Equal(t, "https://ada.example/fr/portfolio", m.Canonical)
	assert.Equal(t, "fr_FR", m.Locale)
	assert.Equal(t, "website", m.OGType)
	assert.Equal(t, []Alternate{
		{Lang: "en", URL: "https://ada.example/en/portfolio"},
		{Lang: "fr", URL: "https://ada.example/fr/portfolio"},
		{Lang: "x-default", URL: "https://ada.example/en/portfolio"},
	}, m.Alternates)
}

func TestPageHome(t *testing.T) {
	m := builder.Page("en", "/", "", "")
	assert.Equal(t, "Ada Studio", m.Title)
	assert.Equal(t, "https://ada.example/en/", m.Canonical)
}

func TestArtworkJSONLD(t *testing.T) {
	price := int64(125050)
	m := builder.Artwork("en", Artwork{
		Slug:       "blue-harbour",
		Title:      "Blue Harbour",
		Medium:     "Oil on canvas",
		Year:       2024,
		WidthCM:    80,
		HeightCM:   60.5,
		ImageURL:   "/uploads/abc-blue.jpg",
		PriceCents: &price,
		Currency:   "EUR",
		Status:     "available",
	})

	assert.Equal(t, "article", m.OGType)
	assert.Equal(t, "https://ada.example/uploads/abc-blue.jpg", m.Image)
	require.NotNil(t, m.JSONLD)
	assert.Equal(t, "VisualArtwork", m.JSONLD["@type"])
	assert.Equal(t, "Oil on canvas", m.JSONLD["artMedium"])
	assert.Equal(t, "2024", m.JSONLD["dateCreated"])
	assert.Equal(t, "80 cm", m.JSONLD["width"].(map[string]any)["name"])
	assert.Equal(t, "60.5 cm", m.JSONLD["height"].(map[string]any)["name"])

	big := builder.Artwork("en", Artwork{Slug: "c", Title: "C", WidthCM: 100})
	assert.Equal(t, "100 cm", big.JSONLD["width"].(map[string]any)["name"])

	offer := m.JSONLD["offers"].(map[string]any)
	assert.Equal(t, "1250.50", offer["price"])
	assert.Equal(t, "EUR", offer["priceCurrency"])
	assert.Equal(t, "https://schema.org/InStock", offer["availability"])
}

func TestArtworkOffers(t *testing.T) {
	price := int64(1000)

	sold := builder.Artwork("en", Artwork{Slug: "a", Title: "A", PriceCents: &price, Status: "sold"})
	assert.Equal(t, "https://schema.org/SoldOut", sold.JSONLD["offers"].(map[string]any)["availability"])

	nfs := builder.Artwork("en", Artwork{Slug: "b", Title: "B", PriceCents: &price, Status: "not_for_sale"})
	assert.NotContains(t, nfs.JSONLD, "offers")
}

func TestClipDescription(t *testing.T) {
	long := strings.Repeat("painting ", 40)
	got := ClipDescription(long)

	assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxDescription)
	assert.True(t, strings.HasSuffix(got, "painting…"), got)

	assert.Equal(t, "short", ClipDescription("short"))
}

func TestAbsolute(t *testing.T) {
	assert.Equal(t, "", builder.Absolute(""))
	assert.Equal(t, "https://cdn.example/x.jpg", builder.Absolute("https://cdn.example/x.jpg"))
	assert.Equal(t, "https://ada.example/uploads/x.jpg", builder.Absolute("uploads/x.jpg"))
}
