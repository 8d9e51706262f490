// Package middleware holds the layers every request passes through before it
// reaches a handler.
//
// A middleware is a func(next http.Handler) http.Handler: it does its work
// (resolve the language, check the session, log the request) and either
// calls next or answers the request itself.
//
//	LocaleMiddleware -> AuthMiddleware -> AdminMiddleware -> handler
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/services"
)

// AuthMiddleware resolves the session of a request. The access token comes
// from the Authorization header (API clients) or the access cookie (the
// server-rendered site), see pkg.AccessToken.
type AuthMiddleware struct {
	authService services.AuthService
	userRepo    repository.UserRepository
}

func NewAuthMiddleware(authService services.AuthService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		userRepo:    userRepo,
	}
}

// Require rejects requests without a valid session with 401 JSON.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		if err != nil {
			pkg.Error(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(services.WithUser(r.Context(), user)))
	})
}

// Optional loads the user when there is a valid session and never rejects.
// Public pages use it to show the admin link.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := m.authenticate(r); err == nil {
			r = r.WithContext(services.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePage sends visitors without a session to the login page of their
// language, remembering where they were going.
func (m *AuthMiddleware) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		if err != nil {
			lang := i18n.LangFromContext(r.Context())
			target := fmt.Sprintf("/%s/login?next=%s", lang, url.QueryEscape(r.URL.RequestURI()))
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(services.WithUser(r.Context(), user)))
	})
}

// authenticate validates the token and loads the user. A valid token of a
// deleted user is rejected.
func (m *AuthMiddleware) authenticate(r *http.Request) (*models.User, error) {
	token := pkg.AccessToken(r)
	if token == "" {
		return nil, fmt.Errorf("%w: authentication required", pkg.ErrUnauthorized)
	}

	claims, err := m.authService.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	user, err := m.userRepo.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}
