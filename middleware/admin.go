package middleware

import (
	"fmt"
	"net/http"

	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/services"
)

// ErrorPageFunc renders an error as an HTML page.
type ErrorPageFunc func(w http.ResponseWriter, r *http.Request, err error)

// AdminMiddleware runs after AuthMiddleware and lets admins through.
//
//	authMw.Require(adminMw.Require(http.HandlerFunc(h.ListOrders)))
type AdminMiddleware struct {
	errorPage ErrorPageFunc
}

func NewAdminMiddleware(errorPage ErrorPageFunc) *AdminMiddleware {
	return &AdminMiddleware{errorPage: errorPage}
}

// Require answers 401/403 JSON for API routes.
func (m *AdminMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := checkAdmin(r); err != nil {
			pkg.Error(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePage renders the error page instead.
func (m *AdminMiddleware) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := checkAdmin(r); err != nil {
			m.errorPage(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func checkAdmin(r *http.Request) error {
	user := services.UserFromContext(r.Context())
	if user == nil {
		return fmt.Errorf("%w: authentication required", pkg.ErrUnauthorized)
	}
	if !user.IsAdmin() {
		return fmt.Errorf("%w: admin access required", pkg.ErrForbidden)
	}
	return nil
}
