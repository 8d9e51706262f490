// Package handlers turns HTTP requests into service calls.
//
// Handlers stay thin: decode the request, call a service, write the result.
// Business rules live in services; handlers never touch the database.
// JSON handlers answer with the pkg.JSON envelope, page handlers render
// templ components from the render package.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/pkg/ratelimit"
	"github.com/akinalp/atelier/services"
)

// SessionCookies writes and clears the cookies that carry the tokens for the
// server-rendered site. API clients may ignore them and use the JSON body.
type SessionCookies struct {
	Secure        bool
	RefreshMaxAge time.Duration
}

// Set stores both tokens as HttpOnly cookies.
func (c SessionCookies) Set(w http.ResponseWriter, tokens *models.AuthTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     pkg.AccessCookieName,
		Value:    tokens.AccessToken,
		Path:     "/",
		MaxAge:   tokens.ExpiresIn,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     pkg.RefreshCookieName,
		Value:    tokens.RefreshToken,
		Path:     "/",
		MaxAge:   int(c.RefreshMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires both cookies.
func (c SessionCookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{pkg.AccessCookieName, pkg.RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// refreshToken takes the refresh token from the body, falling back to the
// refresh cookie.
func refreshToken(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if c, err := r.Cookie(pkg.RefreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

// AuthHandler serves /api/auth/*.
type AuthHandler struct {
	authService  services.AuthService
	loginLimiter *ratelimit.Limiter
	cookies      SessionCookies
}

// NewAuthHandler creates the handler. A nil loginLimiter disables rate
// limiting.
func NewAuthHandler(authService services.AuthService, loginLimiter *ratelimit.Limiter, cookies SessionCookies) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginLimiter: loginLimiter,
		cookies:      cookies,
	}
}

// Register godoc
// POST /api/auth/register
// The first account becomes admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Language == "" {
		req.Language = i18n.LangFromContext(r.Context())
	}

	tokens, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	h.cookies.Set(w, tokens)
	pkg.JSON(w, http.StatusCreated, tokens)
}

// Login godoc
// POST /api/auth/login
// IP rate limited. A successful login resets the counter.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter != nil && !h.loginLimiter.Allow(ip) {
		retryAfter := h.loginLimiter.RetryAfterSeconds(ip)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			fmt.Sprintf("too many login attempts, please try again in %s",
				ratelimit.FormatRetryMessage(retryAfter)))
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.Reset(ip)
	}

	h.cookies.Set(w, tokens)
	pkg.JSON(w, http.StatusOK, tokens)
}

// Refresh godoc
// POST /api/auth/refresh
// Body: { "refresh_token": "..." }, or the refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token := refreshToken(r, req.RefreshToken)
	if token == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	tokens, err := h.authService.RefreshToken(r.Context(), token)
	if err != nil {
		h.cookies.Clear(w)
		pkg.Error(w, err)
		return
	}

	h.cookies.Set(w, tokens)
	pkg.JSON(w, http.StatusOK, tokens)
}

// Logout godoc
// POST /api/auth/logout
// Body: { "refresh_token": "..." }, or the refresh cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.Logout(r.Context(), refreshToken(r, req.RefreshToken)); err != nil {
		pkg.Error(w, err)
		return
	}

	h.cookies.Clear(w)
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me godoc
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := services.UserFromContext(r.Context())
	if user == nil {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	pkg.JSON(w, http.StatusOK, user)
}

// ChangePassword godoc
// POST /api/auth/password
// Body: { "current_password": "...", "new_password": "..." }
// Every session is revoked, so the cookies go too.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := services.UserFromContext(r.Context())
	if user == nil {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), user.ID, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	h.cookies.Clear(w)
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// SetLanguage godoc
// PATCH /api/auth/language
// Body: { "language": "fr" }
func (h *AuthHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	user := services.UserFromContext(r.Context())
	if user == nil {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.SetLanguage(r.Context(), user.ID, req.Language); err != nil {
		pkg.Error(w, err)
		return
	}

	i18n.SetCookie(w, req.Language, h.cookies.Secure)
	pkg.JSON(w, http.StatusOK, map[string]string{"language": req.Language})
}

// ForgotPassword godoc
// POST /api/auth/forgot-password
// Body: { "email": "..." }
//
// The answer is the same whether the address exists or not. While the
// cooldown runs the remaining seconds are returned.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	cooldown, err := h.authService.ForgotPassword(r.Context(), req.Email, i18n.LangFromContext(r.Context()))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if cooldown > 0 {
		pkg.JSON(w, http.StatusOK, map[string]any{
			"message":  "cooldown active",
			"cooldown": cooldown,
		})
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{
		"message": "if the email exists, a reset link has been sent",
	})
}

// ResetPassword godoc
// POST /api/auth/reset-password
// Body: { "token": "...", "new_password": "..." }
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{
		"message": "password has been reset successfully",
	})
}
