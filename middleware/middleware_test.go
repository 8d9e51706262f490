package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/services"
)

// fakeAuth accepts "good-<userID>" tokens.
type fakeAuth struct {
	services.AuthService
}

func (fakeAuth) ValidateAccessToken(token string) (*models.TokenClaims, error) {
	var id string
	if _, err := fmt.Sscanf(token, "good-%s", &id); err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}
	return &models.TokenClaims{UserID: id}, nil
}

type fakeUsers struct {
	repository.UserRepository
	users map[string]*models.User
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func newAuthMw() *AuthMiddleware {
	return NewAuthMiddleware(fakeAuth{}, fakeUsers{users: map[string]*models.User{
		"ada": {ID: "ada", Role: models.RoleAdmin, PasswordHash: "hash"},
		"bob": {ID: "bob", Role: models.RoleMember},
	}})
}

// whoami answers with the user id from the context, or "anonymous". A leaked
// password hash would show up appended to the id.
var whoami = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if u := services.UserFromContext(r.Context()); u != nil {
		fmt.Fprint(w, u.ID+u.PasswordHash)
		return
	}
	fmt.Fprint(w, "anonymous")
})

func TestMain(m *testing.M) {
	if err := i18n.LoadEmbedded(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestAuthRequire(t *testing.T) {
	h := newAuthMw().Require(whoami)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized, ""},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
		{"deleted user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good-ghost") }, http.StatusUnauthorized, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good-ada") }, http.StatusOK, "ada"},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: pkg.AccessCookieName, Value: "good-bob"})
		}, http.StatusOK, "bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			tt.setup(r)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestAuthOptionalNeverRejects(t *testing.T) {
	h := newAuthMw().Optional(whoami)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/en/", nil))
	assert.Equal(t, "anonymous", w.Body.String())

	r := httptest.NewRequest(http.MethodGet, "/en/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())
}

func TestAuthRequirePageRedirectsToLogin(t *testing.T) {
	h := newAuthMw().RequirePage(whoami)

	r := httptest.NewRequest(http.MethodGet, "/fr/admin?tab=orders", nil)
	r = r.WithContext(i18n.WithLang(r.Context(), "fr"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/fr/login?next=%2Ffr%2Fadmin%3Ftab%3Dorders", w.Header().Get("Location"))
}

func TestAdminRequire(t *testing.T) {
	var pageErr error
	adminMw := NewAdminMiddleware(func(w http.ResponseWriter, r *http.Request, err error) {
		pageErr = err
		w.WriteHeader(pkg.StatusFor(err))
	})
	api := newAuthMw().Require(adminMw.Require(whoami))
	page := newAuthMw().RequirePage(adminMw.RequirePage(whoami))

	call := func(h http.Handler, token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusForbidden, call(api, "good-bob").Code)
	assert.Equal(t, "ada", call(api, "good-ada").Body.String())

	w := call(page, "good-bob")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.ErrorIs(t, pageErr, pkg.ErrForbidden)

	// Without AuthMiddleware in front there is no user at all.
	w = httptest.NewRecorder()
	adminMw.Require(whoami).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLocalePath(t *testing.T) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mw := NewLocaleMiddleware("en", true, notFound)

	mux := http.NewServeMux()
	mux.Handle("GET /{lang}/about", mw.Path(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, i18n.LangFromContext(r.Context()))
	})))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fr/about", nil))
	assert.Equal(t, "fr", w.Body.String())
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, i18n.CookieName, cookies[0].Name)
	assert.Equal(t, "fr", cookies[0].Value)
	assert.True(t, cookies[0].Secure)

	// The cookie already matches, nothing to set.
	r := httptest.NewRequest(http.MethodGet, "/fr/about", nil)
	r.AddCookie(&http.Cookie{Name: i18n.CookieName, Value: "fr"})
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	assert.Empty(t, w.Result().Cookies())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/xx/about", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLocaleDetect(t *testing.T) {
	h := NewLocaleMiddleware("en", false, nil).Detect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, i18n.LangFromContext(r.Context()))
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/auth/forgot-password", nil)
	r.Header.Set("Accept-Language", "fr-CA,fr;q=0.9,en;q=0.5")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "fr", w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "en", w.Body.String())
}

func TestRecoverAnswers500(t *testing.T) {
	h := Recover(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAccessLogKeepsStatus(t *testing.T) {
	h := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, "short and stout")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}
