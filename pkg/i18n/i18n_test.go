package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := LoadEmbedded(); err != nil {
		panic(err)
	}
	m.Run()
}

func TestLocalizerTranslates(t *testing.T) {
	assert.Equal(t, "Store", NewLocalizer("en").T("nav.store"))
	assert.Equal(t, "Boutique", NewLocalizer("fr").T("nav.store"))
	assert.Equal(t, "Réservée", NewLocalizer("fr").T("artwork.status.reserved"))
}

func TestLocalizerFallbacks(t *testing.T) {
	// unsupported language
	loc := NewLocalizer("de")
	assert.Equal(t, "en", loc.Lang())
	assert.Equal(t, "Store", loc.T("nav.store"))

	// key missing in fr falls back to en
	assert.Equal(t,
		NewLocalizer("en").T("email.reset_body"),
		NewLocalizer("fr").T("email.reset_body"))

	// unknown key
	assert.Equal(t, "no.such.key", loc.T("no.such.key"))
}

func TestTWithParams(t *testing.T) {
	got := NewLocalizer("en").TWithParams("home.description", map[string]string{"artist": "Ada"})
	assert.Equal(t, "Paintings, drawings and prints by Ada.", got)
}

func TestMatch(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"fr-CA,fr;q=0.9,en;q=0.5", "fr"},
		{"en-GB,en;q=0.9", "en"},
		{"de-DE,de;q=0.9", "en"},
		{"not a header;;;", "en"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Match(tc.header, "en"), tc.header)
	}
	assert.Equal(t, "fr", Match("de", "fr"))
}

func TestResolveRequestOrder(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?lang=fr", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "en"})
	assert.Equal(t, "fr", ResolveRequest(r, "en"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "fr"})
	r.Header.Set("Accept-Language", "en")
	assert.Equal(t, "fr", ResolveRequest(r, "en"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept-Language", "fr-FR")
	assert.Equal(t, "fr", ResolveRequest(r, "en"))
}

func TestSetCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "fr", true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "fr", cookies[0].Value)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
}

func TestFormatting(t *testing.T) {
	en := NewLocalizer("en")
	assert.Contains(t, en.FormatPrice(125000, "EUR"), "€")
	assert.Contains(t, en.FormatPrice(125000, "XXXX"), "1250.00")

	d := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "March 4, 2026", en.FormatDate(d))
	assert.Equal(t, "4 mars 2026", NewLocalizer("fr").FormatDate(d))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "fr", Normalize(" FR "))
	assert.Equal(t, DefaultLanguage, Normalize("de"))
	assert.Equal(t, DefaultLanguage, Normalize(""))
}

func TestLangContext(t *testing.T) {
	assert.Equal(t, DefaultLanguage, LangFromContext(context.Background()))
	assert.Equal(t, "fr", LangFromContext(WithLang(context.Background(), "fr")))
}
