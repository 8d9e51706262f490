package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/akinalp/atelier/config"
	"github.com/akinalp/atelier/middleware"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/services"
	"github.com/akinalp/atelier/static"
)

// initRoutes builds the full HTTP handler.
//
// Three muxes keep the patterns apart: the root mux owns the fixed paths
// (/static/, /uploads/, /api/, sitemap, robots) and hands everything else to
// the page mux, whose /{lang}/... patterns would otherwise overlap with
// /static/ and /uploads/.
func initRoutes(cfg *config.Config, h *Handlers, authService services.AuthService, userRepo repository.UserRepository) http.Handler {
	secure := cfg.Site.SecureCookies()

	detectMw := middleware.NewLocaleMiddleware(cfg.Site.DefaultLocale, secure, nil)
	notFound := detectMw.Detect(http.HandlerFunc(h.Pages.NotFound))
	localeMw := middleware.NewLocaleMiddleware(cfg.Site.DefaultLocale, secure, notFound)
	authMw := middleware.NewAuthMiddleware(authService, userRepo)
	adminMw := middleware.NewAdminMiddleware(h.Pages.ErrorPage)

	// ─── Chain helpers ───
	page := func(handler http.HandlerFunc) http.Handler {
		return localeMw.Path(authMw.Optional(handler))
	}
	adminPage := func(handler http.HandlerFunc) http.Handler {
		return localeMw.Path(authMw.RequirePage(adminMw.RequirePage(handler)))
	}
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	admin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(adminMw.Require(handler))
	}

	// ─── Pages ───
	pages := http.NewServeMux()
	pages.Handle("GET /{lang}/{$}", page(h.Pages.Home))
	pages.Handle("GET /{lang}/portfolio", page(h.Pages.Portfolio))
	pages.Handle("GET /{lang}/artworks/{slug}", page(h.Pages.Artwork))
	pages.Handle("GET /{lang}/store", page(h.Pages.Store))
	pages.Handle("GET /{lang}/store/{slug}/order", page(h.Pages.OrderForm))
	pages.Handle("POST /{lang}/store/{slug}/order", page(h.Pages.PlaceOrder))
	pages.Handle("GET /{lang}/workshop", page(h.Pages.Workshop))
	pages.Handle("GET /{lang}/press", page(h.Pages.Press))
	pages.Handle("GET /{lang}/about", page(h.Pages.About))
	pages.Handle("GET /{lang}/contact", page(h.Pages.Contact))
	pages.Handle("POST /{lang}/contact", page(h.Pages.SubmitContact))
	pages.Handle("GET /{lang}/login", page(h.Pages.LoginForm))
	pages.Handle("POST /{lang}/login", page(h.Pages.Login))
	pages.Handle("POST /{lang}/logout", page(h.Pages.Logout))
	pages.Handle("GET /{lang}/reset-password", page(h.Pages.ResetPasswordForm))
	pages.Handle("POST /{lang}/reset-password", page(h.Pages.ResetPassword))
	pages.Handle("POST /{lang}/forgot-password", page(h.Pages.ForgotPassword))
	pages.Handle("GET /{lang}/admin", adminPage(h.Pages.Admin))
	pages.Handle("/", notFound)

	// ─── API ───
	api := http.NewServeMux()

	api.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"atelier"}`)
	})

	// Auth
	api.HandleFunc("POST /api/auth/register", h.Auth.Register)
	api.HandleFunc("POST /api/auth/login", h.Auth.Login)
	api.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	api.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	api.HandleFunc("POST /api/auth/forgot-password", h.Auth.ForgotPassword)
	api.HandleFunc("POST /api/auth/reset-password", h.Auth.ResetPassword)
	api.Handle("GET /api/auth/me", auth(h.Auth.Me))
	api.Handle("POST /api/auth/password", auth(h.Auth.ChangePassword))
	api.Handle("PATCH /api/auth/language", auth(h.Auth.SetLanguage))

	// Users
	api.Handle("GET /api/admin/users", admin(h.User.List))
	api.Handle("PATCH /api/admin/users/{id}/role", admin(h.User.UpdateRole))
	api.Handle("DELETE /api/admin/users/{id}", admin(h.User.Delete))

	// Sections
	api.Handle("GET /api/admin/sections", admin(h.Section.List))
	api.Handle("GET /api/admin/sections/schema", admin(h.Section.Schema))
	api.Handle("GET /api/admin/sections/{key}/{locale}", admin(h.Section.Get))
	api.Handle("PUT /api/admin/sections/{key}/{locale}", admin(h.Section.Upsert))
	api.Handle("DELETE /api/admin/sections/{key}/{locale}", admin(h.Section.Delete))

	// Artworks (literal reorder before {id})
	api.Handle("GET /api/admin/artworks", admin(h.Artwork.List))
	api.Handle("POST /api/admin/artworks", admin(h.Artwork.Create))
	api.Handle("PATCH /api/admin/artworks/reorder", admin(h.Artwork.Reorder))
	api.Handle("GET /api/admin/artworks/{id}", admin(h.Artwork.Get))
	api.Handle("PATCH /api/admin/artworks/{id}", admin(h.Artwork.Update))
	api.Handle("DELETE /api/admin/artworks/{id}", admin(h.Artwork.Delete))
	api.Handle("POST /api/admin/uploads", admin(h.Artwork.Upload))

	// Orders
	api.Handle("GET /api/admin/orders", admin(h.Order.List))
	api.Handle("GET /api/admin/orders/{id}", admin(h.Order.Get))
	api.Handle("POST /api/admin/orders/{id}/paid", admin(h.Order.MarkPaid))
	api.Handle("POST /api/admin/orders/{id}/shipped", admin(h.Order.MarkShipped))
	api.Handle("POST /api/admin/orders/{id}/cancel", admin(h.Order.Cancel))

	// Press
	api.Handle("GET /api/admin/press", admin(h.Press.List))
	api.Handle("POST /api/admin/press", admin(h.Press.Create))
	api.Handle("POST /api/admin/press/preview", admin(h.Press.Preview))
	api.Handle("POST /api/admin/press/refresh", admin(h.Press.RefreshAll))
	api.Handle("PATCH /api/admin/press/{id}", admin(h.Press.Update))
	api.Handle("DELETE /api/admin/press/{id}", admin(h.Press.Delete))
	api.Handle("POST /api/admin/press/{id}/refresh", admin(h.Press.Refresh))

	// Contact messages
	api.Handle("GET /api/admin/messages", admin(h.Contact.List))
	api.Handle("PATCH /api/admin/messages/{id}", admin(h.Contact.MarkRead))
	api.Handle("DELETE /api/admin/messages/{id}", admin(h.Contact.Delete))

	api.Handle("GET /api/admin/stats", admin(h.Stats.Dashboard))

	// Browsers cannot send headers on the handshake; the handler reads the
	// token from ?token= or the access cookie itself.
	api.HandleFunc("GET /api/admin/ws", h.WS.HandleConnection)

	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		pkg.ErrorWithMessage(w, http.StatusNotFound, "endpoint not found")
	})

	// ─── Root ───
	root := http.NewServeMux()
	root.Handle("/api/", middleware.CORS(cfg.Server.AllowedOrigins)(localeMw.Detect(api)))
	root.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static.FS)))
	root.Handle("GET /uploads/", http.StripPrefix("/uploads/", uploadsHandler(cfg.Upload.Dir)))
	root.HandleFunc("GET /sitemap.xml", h.SEO.Sitemap)
	root.HandleFunc("GET /robots.txt", h.SEO.Robots)
	root.HandleFunc("GET /{$}", h.Pages.Root)
	root.Handle("/", pages)

	return middleware.Recover(middleware.AccessLog(root))
}

// uploadsHandler serves stored images. Only plain file names are accepted;
// subdirectories and directory listings are not.
func uploadsHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.Contains(r.URL.Path, "/") || strings.Contains(r.URL.Path, "\\") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}
