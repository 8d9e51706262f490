package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/middleware"
	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/email"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/pkg/linkpreview"
	"github.com/akinalp/atelier/pkg/ratelimit"
	"github.com/akinalp/atelier/pkg/seo"
	"github.com/akinalp/atelier/render"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/services"
	"github.com/akinalp/atelier/ws"
)

func TestMain(m *testing.M) {
	if err := i18n.LoadEmbedded(); err != nil {
		panic(err)
	}
	goleak.VerifyTestMain(m)
}

type fixture struct {
	mux      *http.ServeMux
	auth     services.AuthService
	artworks services.ArtworkService
	contact  services.ContactService
	admin    *models.AuthTokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	renderer, err := render.New()
	require.NoError(t, err)

	hub := ws.NopBroadcaster{}
	mailer := email.NopSender{}
	users := repository.NewSQLiteUserRepo(db.Conn)
	artworkRepo := repository.NewSQLiteArtworkRepo(db.Conn)
	orderRepo := repository.NewSQLiteOrderRepo(db.Conn)
	builder := seo.Builder{
		SiteName:      "Atelier",
		BaseURL:       "https://atelier.example",
		Locales:       i18n.SupportedLanguages,
		DefaultLocale: "en",
	}

	fetcher := linkpreview.NewFetcher(time.Second, time.Minute)
	t.Cleanup(fetcher.Close)
	loginLimiter := ratelimit.New(3, time.Minute)
	t.Cleanup(loginLimiter.Close)

	f := &fixture{
		auth: services.NewAuthService(users,
			repository.NewSQLiteSessionRepo(db.Conn),
			repository.NewSQLiteResetTokenRepo(db.Conn),
			mailer,
			services.AuthOptions{
				JWTSecret:         "test-secret-with-enough-length-0123456789",
				AccessExpiry:      15 * time.Minute,
				RefreshExpiry:     24 * time.Hour,
				AllowRegistration: true,
				BaseURL:           builder.BaseURL,
			}),
		artworks: services.NewArtworkService(db.Conn, artworkRepo, hub, "EUR"),
		contact:  services.NewContactService(repository.NewSQLiteContactRepo(db.Conn), mailer, hub),
	}
	store := services.NewStoreService(db.Conn, artworkRepo, orderRepo, mailer, hub, services.StoreOptions{HoldDuration: 48 * time.Hour})
	t.Cleanup(store.Close)
	sections := services.NewSectionService(repository.NewSQLiteSectionRepo(db.Conn), hub, "en")

	cookies := SessionCookies{RefreshMaxAge: 24 * time.Hour}
	pages := NewPageHandler(renderer, builder,
		SiteInfo{Name: "Atelier", ArtistName: "Ada", DefaultLocale: "en", Currency: "EUR"},
		cookies,
		PageServices{
			Auth:     f.auth,
			Sections: sections,
			Artworks: f.artworks,
			Store:    store,
			Press:    services.NewPressService(repository.NewSQLitePressRepo(db.Conn), fetcher, hub, 2),
			Contact:  f.contact,
			Stats:    services.NewStatsService(repository.NewSQLiteStatsRepo(db.Conn), hub),
		},
		PageLimiters{Login: loginLimiter},
	)
	authHandler := NewAuthHandler(f.auth, nil, cookies)
	statsHandler := NewStatsHandler(services.NewStatsService(repository.NewSQLiteStatsRepo(db.Conn), hub))
	seoHandler := NewSEOHandler(services.NewSitemapService(artworkRepo, builder))
	uploads, err := services.NewUploadService(t.TempDir(), 1<<20)
	require.NoError(t, err)
	sectionHandler := NewSectionHandler(sections)
	artworkHandler := NewArtworkHandler(f.artworks, uploads, 1<<20)

	localeMw := middleware.NewLocaleMiddleware("en", false, http.HandlerFunc(pages.NotFound))
	authMw := middleware.NewAuthMiddleware(f.auth, users)
	adminMw := middleware.NewAdminMiddleware(pages.ErrorPage)
	page := func(h http.HandlerFunc) http.Handler { return localeMw.Path(authMw.Optional(h)) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", pages.Root)
	mux.HandleFunc("GET /sitemap.xml", seoHandler.Sitemap)
	mux.HandleFunc("GET /robots.txt", seoHandler.Robots)
	mux.Handle("GET /{lang}/{$}", page(pages.Home))
	mux.Handle("GET /{lang}/portfolio", page(pages.Portfolio))
	mux.Handle("GET /{lang}/artworks/{slug}", page(pages.Artwork))
	mux.Handle("GET /{lang}/store", page(pages.Store))
	mux.Handle("POST /{lang}/store/{slug}/order", page(pages.PlaceOrder))
	mux.Handle("GET /{lang}/workshop", page(pages.Workshop))
	mux.Handle("GET /{lang}/press", page(pages.Press))
	mux.Handle("GET /{lang}/about", page(pages.About))
	mux.Handle("GET /{lang}/contact", page(pages.Contact))
	mux.Handle("POST /{lang}/contact", page(pages.SubmitContact))
	mux.Handle("GET /{lang}/login", page(pages.LoginForm))
	mux.Handle("POST /{lang}/login", page(pages.Login))
	mux.Handle("GET /{lang}/admin", localeMw.Path(authMw.RequirePage(adminMw.RequirePage(http.HandlerFunc(pages.Admin)))))
	mux.Handle("GET /{lang}/{rest...}", localeMw.Path(http.HandlerFunc(pages.NotFound)))
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.Handle("GET /api/admin/stats", authMw.Require(adminMw.Require(http.HandlerFunc(statsHandler.Dashboard))))
	mux.Handle("PUT /api/admin/sections/{key}/{locale}", authMw.Require(adminMw.Require(http.HandlerFunc(sectionHandler.Upsert))))
	mux.Handle("POST /api/admin/uploads", authMw.Require(adminMw.Require(http.HandlerFunc(artworkHandler.Upload))))
	f.mux = mux

	f.admin, err = f.auth.Register(context.Background(), &models.RegisterRequest{
		Email: "ada@example.art", Password: "correct horse", Name: "Ada",
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	return w
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (f *fixture) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(r)
}

func (f *fixture) createArtwork(t *testing.T, req models.CreateArtworkRequest) *models.Artwork {
	t.Helper()
	a, err := f.artworks.Create(services.SystemContext(context.Background()), &req)
	require.NoError(t, err)
	return a
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRootRedirectsToPreferredLanguage(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	w := f.do(r)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/fr/", w.Header().Get("Location"))

	w = f.get("/")
	assert.Equal(t, "/en/", w.Header().Get("Location"))
}

func TestPublicPagesRender(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{
		"/en/", "/fr/", "/en/portfolio", "/fr/store", "/en/workshop",
		"/en/press", "/fr/about", "/en/contact", "/en/login",
	} {
		t.Run(path, func(t *testing.T) {
			w := f.get(path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, w.Body.String(), "<html")
		})
	}
}

func TestUnknownPathsAre404(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/en/nope", "/xx/portfolio", "/en/artworks/missing"} {
		w := f.get(path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "This page could not be found.", path)
	}
}

func TestArtworkPageHidesDrafts(t *testing.T) {
	f := newFixture(t)
	f.createArtwork(t, models.CreateArtworkRequest{Slug: "blue-hour", Title: "Blue Hour", Published: true})
	f.createArtwork(t, models.CreateArtworkRequest{Slug: "draft", Title: "Draft"})

	w := f.get("/en/artworks/blue-hour")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Blue Hour")
	assert.Contains(t, w.Body.String(), `hreflang="fr"`)

	assert.Equal(t, http.StatusNotFound, f.get("/en/artworks/draft").Code)
}

func TestPlaceOrderReservesOnce(t *testing.T) {
	f := newFixture(t)
	price := int64(120000)
	f.createArtwork(t, models.CreateArtworkRequest{
		Slug: "tide", Title: "Tide", PriceCents: &price,
		Status: models.ArtworkAvailable, Published: true,
	})

	form := url.Values{
		"buyer_name":       {"Grace"},
		"buyer_email":      {"grace@example.com"},
		"shipping_address": {"1 Harbour Road, Brest"},
	}

	w := f.postForm("/en/store/tide/order", form)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you!")

	w = f.postForm("/en/store/tide/order", form)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Sorry, this work is no longer available.")
}

func TestPlaceOrderShowsValidationErrors(t *testing.T) {
	f := newFixture(t)
	price := int64(5000)
	f.createArtwork(t, models.CreateArtworkRequest{
		Slug: "study", Title: "Study", PriceCents: &price,
		Status: models.ArtworkAvailable, Published: true,
	})

	w := f.postForm("/en/store/study/order", url.Values{"buyer_name": {"Grace"}, "buyer_email": {"nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email format")
	assert.Contains(t, w.Body.String(), `value="Grace"`)
}

func TestContactHoneypotLooksSuccessful(t *testing.T) {
	f := newFixture(t)
	adminCtx := services.SystemContext(context.Background())

	w := f.postForm("/en/contact", url.Values{
		"name": {"Bot"}, "email": {"bot@example.com"}, "message": {"buy now"}, "website": {"http://spam.example"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you, your message has been sent.")

	msgs, err := f.contact.List(adminCtx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	w = f.postForm("/fr/contact", url.Values{
		"name": {"Grace"}, "email": {"grace@example.com"}, "message": {"Is the Tide still available?"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	msgs, err = f.contact.List(adminCtx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "fr", msgs[0].Locale)
}

func TestLoginPage(t *testing.T) {
	f := newFixture(t)

	w := f.postForm("/en/login", url.Values{"email": {"ada@example.art"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password.")

	w = f.postForm("/en/login", url.Values{
		"email": {"ada@example.art"}, "password": {"correct horse"}, "next": {"//evil.example"},
	})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/en/admin", w.Header().Get("Location"))

	access := cookieNamed(w, pkg.AccessCookieName)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	require.NotNil(t, cookieNamed(w, pkg.RefreshCookieName))

	r := httptest.NewRequest(http.MethodGet, "/en/admin", nil)
	r.AddCookie(access)
	assert.Equal(t, http.StatusOK, f.do(r).Code)
}

func TestLoginPageRateLimited(t *testing.T) {
	f := newFixture(t)

	bad := url.Values{"email": {"ada@example.art"}, "password": {"wrong"}}
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, f.postForm("/en/login", bad).Code)
	}

	w := f.postForm("/en/login", bad)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestAdminPageRedirectsAnonymous(t *testing.T) {
	f := newFixture(t)

	w := f.get("/fr/admin")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/fr/login?next=%2Ffr%2Fadmin", w.Header().Get("Location"))
}

func TestAdminAPIAccess(t *testing.T) {
	f := newFixture(t)

	member, err := f.auth.Register(context.Background(), &models.RegisterRequest{
		Email: "bob@example.art", Password: "correct horse", Name: "Bob",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleMember, member.User.Role)

	call := func(token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		return f.do(r)
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusForbidden, call(member.AccessToken).Code)

	w := call(f.admin.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp pkg.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestAPILoginAndCookieRefresh(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"ada@example.art","password":"correct horse"}`))
	w := f.do(r)
	require.Equal(t, http.StatusOK, w.Code)
	refresh := cookieNamed(w, pkg.RefreshCookieName)
	require.NotNil(t, refresh)

	// Empty body: the refresh token comes from the cookie.
	r = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	r.AddCookie(refresh)
	w = f.do(r)
	assert.Equal(t, http.StatusOK, w.Code)
	rotated := cookieNamed(w, pkg.RefreshCookieName)
	require.NotNil(t, rotated)
	assert.NotEqual(t, refresh.Value, rotated.Value)

	r = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	assert.Equal(t, http.StatusBadRequest, f.do(r).Code)
}

func TestSitemapAndRobots(t *testing.T) {
	f := newFixture(t)
	f.createArtwork(t, models.CreateArtworkRequest{Slug: "blue-hour", Title: "Blue Hour", Published: true})

	w := f.get("/sitemap.xml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "https://atelier.example/fr/artworks/blue-hour")

	w = f.get("/robots.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sitemap: https://atelier.example/sitemap.xml")
}

func TestSafeNext(t *testing.T) {
	assert.True(t, safeNext("/fr/admin"))
	assert.False(t, safeNext(""))
	assert.False(t, safeNext("//evil.example"))
	assert.False(t, safeNext("/\\evil.example"))
	assert.False(t, safeNext("https://evil.example"))
}

func TestPathWithoutLang(t *testing.T) {
	mux := http.NewServeMux()
	var got string
	mux.HandleFunc("/{lang}/{rest...}", func(w http.ResponseWriter, r *http.Request) {
		got = pathWithoutLang(r)
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fr/press", nil))
	assert.Equal(t, "/press", got)
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fr/", nil))
	assert.Equal(t, "/", got)
}
