package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/pkg/ratelimit"
	"github.com/akinalp/atelier/services"
)

// parseForm reads a urlencoded body of at most maxFormBody bytes.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		return pkg.ErrBadRequest
	}
	return nil
}

// limited counts one attempt and, when the limit is hit, returns the
// localized message and sets Retry-After.
func limited(w http.ResponseWriter, r *http.Request, limiter *ratelimit.Limiter, loc *i18n.Localizer, key string) (string, bool) {
	if limiter == nil {
		return "", false
	}
	ip := ratelimit.ExtractIP(r)
	if limiter.Allow(ip) {
		return "", false
	}
	retryAfter := limiter.RetryAfterSeconds(ip)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	return loc.TWithParams(key, map[string]string{"retry": ratelimit.FormatRetryMessage(retryAfter)}), true
}

// formError turns a service error into the message shown above a form and
// the status of the response. Validation details are shown as is.
func (h *PageHandler) formError(loc *i18n.Localizer, err error) (string, int) {
	status := pkg.StatusFor(err)
	switch status {
	case http.StatusBadRequest:
		return strings.TrimPrefix(err.Error(), pkg.ErrBadRequest.Error()+": "), status
	case http.StatusInternalServerError:
		h.log.Error("form submission failed", zap.Error(err))
		return loc.T("errors.internal"), status
	}
	if key, ok := errorMessageKeys[status]; ok {
		return loc.T(key), status
	}
	return loc.T("errors.internal"), status
}

// OrderForm godoc
// GET /{lang}/store/{slug}/order
func (h *PageHandler) OrderForm(w http.ResponseWriter, r *http.Request) {
	artwork, err := h.svc.Artworks.GetPublishedBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	h.renderOrder(w, r, http.StatusOK, artwork, &models.PlaceOrderRequest{}, "")
}

// PlaceOrder godoc
// POST /{lang}/store/{slug}/order
// Reserves the artwork and shows the confirmation. When another buyer was
// faster the form comes back with "no longer available".
func (h *PageHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := i18n.LangFromContext(ctx)
	loc := i18n.NewLocalizer(lang)

	artwork, err := h.svc.Artworks.GetPublishedBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	req := &models.PlaceOrderRequest{
		ArtworkSlug:     artwork.Slug,
		BuyerName:       r.PostForm.Get("buyer_name"),
		BuyerEmail:      r.PostForm.Get("buyer_email"),
		ShippingAddress: r.PostForm.Get("shipping_address"),
		Phone:           r.PostForm.Get("phone"),
		Note:            r.PostForm.Get("note"),
		Locale:          lang,
	}

	if msg, ok := limited(w, r, h.limiters.Order, loc, "errors.too_many_requests"); ok {
		h.renderOrder(w, r, http.StatusTooManyRequests, artwork, req, msg)
		return
	}

	order, err := h.svc.Store.PlaceOrder(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrArtworkUnavailable) {
			artwork.Status = models.ArtworkReserved
			h.renderOrder(w, r, http.StatusConflict, artwork, req, loc.T("store.order.unavailable"))
			return
		}
		msg, status := h.formError(loc, err)
		h.renderOrder(w, r, status, artwork, req, msg)
		return
	}

	h.render(w, r, http.StatusCreated, "order_done", h.privatePage(r, "store", "/store/"+artwork.Slug+"/order", map[string]any{
		"Order": order,
	}))
}

func (h *PageHandler) renderOrder(w http.ResponseWriter, r *http.Request, status int, artwork *models.Artwork, form *models.PlaceOrderRequest, errMsg string) {
	p := h.page(r, "/store/"+artwork.Slug+"/order", artwork.Title, artwork.Description, map[string]any{
		"Artwork": artwork,
		"Form":    form,
		"Error":   errMsg,
	})
	p.Meta.NoIndex = true
	h.render(w, r, status, "order", p)
}

// Contact godoc
// GET /{lang}/contact
func (h *PageHandler) Contact(w http.ResponseWriter, r *http.Request) {
	h.renderContact(w, r, http.StatusOK, &models.ContactRequest{}, "", false)
}

// SubmitContact godoc
// POST /{lang}/contact
// The hidden "website" field is the honeypot.
func (h *PageHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := i18n.LangFromContext(ctx)
	loc := i18n.NewLocalizer(lang)

	if err := parseForm(w, r); err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	req := &models.ContactRequest{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Message: r.PostForm.Get("message"),
		Website: r.PostForm.Get("website"),
		Locale:  lang,
		IP:      ratelimit.ExtractIP(r),
	}

	if msg, ok := limited(w, r, h.limiters.Contact, loc, "errors.too_many_requests"); ok {
		h.renderContact(w, r, http.StatusTooManyRequests, req, msg, false)
		return
	}

	if err := h.svc.Contact.Submit(ctx, req); err != nil {
		msg, status := h.formError(loc, err)
		h.renderContact(w, r, status, req, msg, false)
		return
	}

	h.renderContact(w, r, http.StatusOK, &models.ContactRequest{}, "", true)
}

func (h *PageHandler) renderContact(w http.ResponseWriter, r *http.Request, status int, form *models.ContactRequest, errMsg string, sent bool) {
	section, err := sectionContent[*models.ContactSection](r.Context(), h.svc.Sections, models.SectionContact)
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	h.render(w, r, status, "contact", h.staticPage(r, "contact", "/contact", map[string]any{
		"Section": section,
		"Form":    form,
		"Error":   errMsg,
		"Sent":    sent,
	}))
}

// LoginForm godoc
// GET /{lang}/login?next=/fr/admin
func (h *PageHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, "", r.URL.Query().Get("next"), "")
}

// Login godoc
// POST /{lang}/login
// Sets the session cookies and redirects to next, or to the dashboard for
// admins.
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := i18n.LangFromContext(ctx)
	loc := i18n.NewLocalizer(lang)

	if err := parseForm(w, r); err != nil {
		h.ErrorPage(w, r, err)
		return
	}
	email := r.PostForm.Get("email")
	next := r.PostForm.Get("next")

	if msg, ok := limited(w, r, h.limiters.Login, loc, "login.rate_limited"); ok {
		h.renderLogin(w, r, http.StatusTooManyRequests, email, next, msg)
		return
	}

	tokens, err := h.svc.Auth.Login(ctx, &models.LoginRequest{Email: email, Password: r.PostForm.Get("password")})
	if err != nil {
		if errors.Is(err, pkg.ErrUnauthorized) || errors.Is(err, pkg.ErrBadRequest) {
			h.renderLogin(w, r, http.StatusUnauthorized, email, next, loc.T("login.invalid"))
			return
		}
		h.ErrorPage(w, r, err)
		return
	}

	if h.limiters.Login != nil {
		h.limiters.Login.Reset(ratelimit.ExtractIP(r))
	}
	h.cookies.Set(w, tokens)

	target := langPath(lang, "/")
	if tokens.User.IsAdmin() {
		target = langPath(lang, "/admin")
	}
	if safeNext(next) {
		target = next
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeNext accepts local paths only, so the login form cannot be used as an
// open redirect.
func safeNext(next string) bool {
	return strings.HasPrefix(next, "/") &&
		!strings.HasPrefix(next, "//") &&
		!strings.HasPrefix(next, "/\\")
}

func (h *PageHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, email, next, errMsg string) {
	h.render(w, r, status, "login", h.privatePage(r, "login", "/login", map[string]any{
		"Email": email,
		"Next":  next,
		"Error": errMsg,
	}))
}

// Logout godoc
// POST /{lang}/logout
func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(pkg.RefreshCookieName); err == nil {
		if err := h.svc.Auth.Logout(r.Context(), c.Value); err != nil {
			h.log.Warn("failed to end session", zap.Error(err))
		}
	}
	h.cookies.Clear(w)
	http.Redirect(w, r, langPath(i18n.LangFromContext(r.Context()), "/"), http.StatusSeeOther)
}

type resetView struct {
	Token  string
	Email  string
	Error  string
	Notice string
	Done   bool
}

// ResetPasswordForm godoc
// GET /{lang}/reset-password[?token=...]
// Without a token it asks for the email address, with one for the new
// password.
func (h *PageHandler) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.renderReset(w, r, http.StatusOK, resetView{Token: r.URL.Query().Get("token")})
}

// ForgotPassword godoc
// POST /{lang}/forgot-password
func (h *PageHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := i18n.LangFromContext(ctx)
	loc := i18n.NewLocalizer(lang)

	if err := parseForm(w, r); err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	req := models.ForgotPasswordRequest{Email: r.PostForm.Get("email")}
	if err := req.Validate(); err != nil {
		h.renderReset(w, r, http.StatusBadRequest, resetView{Email: req.Email, Error: err.Error()})
		return
	}

	cooldown, err := h.svc.Auth.ForgotPassword(ctx, req.Email, lang)
	if err != nil {
		msg, status := h.formError(loc, err)
		h.renderReset(w, r, status, resetView{Email: req.Email, Error: msg})
		return
	}

	if cooldown > 0 {
		h.renderReset(w, r, http.StatusOK, resetView{
			Email:  req.Email,
			Notice: loc.TWithParams("reset.cooldown", map[string]string{"seconds": strconv.Itoa(cooldown)}),
		})
		return
	}

	h.renderReset(w, r, http.StatusOK, resetView{Notice: loc.T("reset.sent")})
}

// ResetPassword godoc
// POST /{lang}/reset-password
func (h *PageHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := i18n.NewLocalizer(i18n.LangFromContext(ctx))

	if err := parseForm(w, r); err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	req := &models.ResetPasswordRequest{
		Token:       r.PostForm.Get("token"),
		NewPassword: r.PostForm.Get("new_password"),
	}
	if err := h.svc.Auth.ResetPassword(ctx, req); err != nil {
		msg, status := h.formError(loc, err)
		h.renderReset(w, r, status, resetView{Token: req.Token, Error: msg})
		return
	}

	h.renderReset(w, r, http.StatusOK, resetView{Done: true, Notice: loc.T("reset.done")})
}

func (h *PageHandler) renderReset(w http.ResponseWriter, r *http.Request, status int, view resetView) {
	h.render(w, r, status, "reset_password", h.privatePage(r, "reset", "/reset-password", view))
}
