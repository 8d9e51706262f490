package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/pkg/ratelimit"
	"github.com/akinalp/atelier/pkg/seo"
	"github.com/akinalp/atelier/render"
	"github.com/akinalp/atelier/services"
)

const (
	featuredLimit      = 6
	dashboardListLimit = 10
	maxFormBody        = 64 << 10
)

// SiteInfo is the site-wide data every page needs.
type SiteInfo struct {
	Name          string
	ArtistName    string
	DefaultLocale string
	Currency      string
}

// PageServices are the services the public site and the dashboard read.
type PageServices struct {
	Auth     services.AuthService
	Sections services.SectionService
	Artworks services.ArtworkService
	Store    services.StoreService
	Press    services.PressService
	Contact  services.ContactService
	Stats    services.StatsService
}

// PageLimiters guard the public forms. Nil disables a limit.
type PageLimiters struct {
	Login   *ratelimit.Limiter
	Order   *ratelimit.Limiter
	Contact *ratelimit.Limiter
}

// PageHandler serves the server-rendered site under /{lang}/.
type PageHandler struct {
	renderer *render.Renderer
	seo      seo.Builder
	site     SiteInfo
	cookies  SessionCookies
	svc      PageServices
	limiters PageLimiters
	now      func() time.Time
	log      *zap.Logger
}

func NewPageHandler(
	renderer *render.Renderer,
	seoBuilder seo.Builder,
	site SiteInfo,
	cookies SessionCookies,
	svc PageServices,
	limiters PageLimiters,
) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		seo:      seoBuilder,
		site:     site,
		cookies:  cookies,
		svc:      svc,
		limiters: limiters,
		now:      time.Now,
		log:      zap.L().Named("pages"),
	}
}

// page builds the common page data for path (without the language prefix).
func (h *PageHandler) page(r *http.Request, path, title, description string, data any) *render.Page {
	lang := i18n.LangFromContext(r.Context())

	links := make([]render.LangLink, 0, len(i18n.SupportedLanguages))
	for _, l := range i18n.SupportedLanguages {
		links = append(links, render.LangLink{Lang: l, URL: langPath(l, path), Current: l == lang})
	}

	return &render.Page{
		Meta:       h.seo.Page(lang, path, title, description),
		Lang:       lang,
		Loc:        i18n.NewLocalizer(lang),
		User:       services.UserFromContext(r.Context()),
		LangLinks:  links,
		SiteName:   h.site.Name,
		ArtistName: h.site.ArtistName,
		Path:       path,
		Data:       data,
	}
}

// staticPage is page with the title and description taken from the
// translation keys "<key>.title" and "<key>.description".
func (h *PageHandler) staticPage(r *http.Request, key, path string, data any) *render.Page {
	loc := i18n.NewLocalizer(i18n.LangFromContext(r.Context()))
	return h.page(r, path,
		loc.T(key+".title"),
		loc.TWithParams(key+".description", map[string]string{"artist": h.site.ArtistName}),
		data)
}

// privatePage is for pages search engines must skip.
func (h *PageHandler) privatePage(r *http.Request, key, path string, data any) *render.Page {
	p := h.staticPage(r, key, path, data)
	p.Meta.NoIndex = true
	return p
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, p *render.Page) {
	c, err := h.renderer.Component(name, p)
	if err != nil {
		h.log.Error("unknown page", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	templ.Handler(c,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			h.log.Error("failed to render page", zap.String("page", name), zap.Error(err))
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "internal error", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}

func langPath(lang, path string) string {
	if path == "" || path == "/" {
		return "/" + lang + "/"
	}
	return "/" + lang + path
}

// pathWithoutLang strips the /{lang} prefix so the language switcher of an
// error page points at the same path in the other languages.
func pathWithoutLang(r *http.Request) string {
	lang := r.PathValue("lang")
	if lang == "" {
		return r.URL.Path
	}
	path := strings.TrimPrefix(r.URL.Path, "/"+lang)
	if path == "" {
		return "/"
	}
	return path
}

// errorMessageKeys maps a status code to its translation key.
var errorMessageKeys = map[int]string{
	http.StatusBadRequest:      "errors.bad_request",
	http.StatusUnauthorized:    "errors.unauthorized",
	http.StatusForbidden:       "errors.forbidden",
	http.StatusNotFound:        "errors.not_found",
	http.StatusConflict:        "errors.conflict",
	http.StatusTooManyRequests: "errors.too_many_requests",
}

// ErrorPage renders err as a localized error page with the mapped status.
func (h *PageHandler) ErrorPage(w http.ResponseWriter, r *http.Request, err error) {
	status := pkg.StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("page error", zap.String("path", r.URL.Path), zap.Error(err))
	}

	loc := i18n.NewLocalizer(i18n.LangFromContext(r.Context()))
	key, ok := errorMessageKeys[status]
	if !ok {
		key = "errors.internal"
	}

	p := h.page(r, pathWithoutLang(r), loc.T("errors.title"), "", map[string]any{
		"Status":  status,
		"Message": loc.TWithParams(key, map[string]string{"retry": ""}),
	})
	p.Meta.NoIndex = true
	h.render(w, r, status, "error", p)
}

// NotFound answers unknown paths and unsupported languages.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.ErrorPage(w, r, pkg.ErrNotFound)
}

// Root godoc
// GET /
// Redirects to the visitor's language: cookie, then Accept-Language.
func (h *PageHandler) Root(w http.ResponseWriter, r *http.Request) {
	lang := i18n.ResolveRequest(r, h.site.DefaultLocale)
	http.Redirect(w, r, langPath(lang, "/"), http.StatusFound)
}

// sectionContent loads a section decoded into T. A section that was never
// written yields the zero T, so pages render without that block.
func sectionContent[T models.SectionContent](ctx context.Context, svc services.SectionService, key models.SectionKey) (T, error) {
	var zero T
	content, err := svc.Content(ctx, key, i18n.LangFromContext(ctx))
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return zero, nil
		}
		return zero, err
	}
	typed, ok := content.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

// Home godoc
// GET /{lang}/
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hero, err := sectionContent[*models.HeroSection](ctx, h.svc.Sections, models.SectionHero)
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}
	testimonials, err := sectionContent[*models.TestimonialsSection](ctx, h.svc.Sections, models.SectionTestimonials)
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}
	featured, err := h.svc.Artworks.ListPublished(ctx, models.ArtworkFilter{FeaturedOnly: true, Limit: featuredLimit})
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	p := h.staticPage(r, "home", "/", map[string]any{
		"Hero":         hero,
		"Featured":     featured,
		"Testimonials": testimonials,
	})
	if hero != nil {
		p.Meta.Image = h.seo.Absolute(hero.ImageURL)
	}
	h.render(w, r, http.StatusOK, "home", p)
}

// Portfolio godoc
// GET /{lang}/portfolio
func (h *PageHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	artworks, err := h.svc.Artworks.ListPublished(r.Context(), models.ArtworkFilter{})
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "portfolio", h.staticPage(r, "portfolio", "/portfolio", map[string]any{
		"Artworks": artworks,
	}))
}

// Artwork godoc
// GET /{lang}/artworks/{slug}
func (h *PageHandler) Artwork(w http.ResponseWriter, r *http.Request) {
	artwork, err := h.svc.Artworks.GetPublishedBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	p := h.page(r, "/artworks/"+artwork.Slug, artwork.Title, artwork.Description, map[string]any{
		"Artwork": artwork,
	})
	p.Meta = h.seo.Artwork(p.Lang, seoArtwork(artwork))
	h.render(w, r, http.StatusOK, "artwork", p)
}

func seoArtwork(a *models.Artwork) seo.Artwork {
	return seo.Artwork{
		Slug:        a.Slug,
		Title:       a.Title,
		Description: a.Description,
		Medium:      a.Medium,
		Year:        a.Year,
		WidthCM:     a.WidthCM,
		HeightCM:    a.HeightCM,
		ImageURL:    a.ImageURL,
		PriceCents:  a.PriceCents,
		Currency:    a.Currency,
		Status:      string(a.Status),
	}
}

// Store godoc
// GET /{lang}/store
func (h *PageHandler) Store(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	section, err := sectionContent[*models.StoreSection](ctx, h.svc.Sections, models.SectionStore)
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}
	artworks, err := h.svc.Artworks.ListPublished(ctx, models.ArtworkFilter{ForSaleOnly: true})
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "store", h.staticPage(r, "store", "/store", map[string]any{
		"Section":  section,
		"Artworks": artworks,
	}))
}

// Workshop godoc
// GET /{lang}/workshop
// Past sessions are hidden.
func (h *PageHandler) Workshop(w http.ResponseWriter, r *http.Request) {
	section, err := sectionContent[*models.WorkshopSection](r.Context(), h.svc.Sections, models.SectionWorkshop)
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	var sessions []models.WorkshopSession
	if section != nil {
		sessions = section.Upcoming(h.now())
	}

	h.render(w, r, http.StatusOK, "workshop", h.staticPage(r, "workshop", "/workshop", map[string]any{
		"Section":  section,
		"Sessions": sessions,
		"Currency": h.site.Currency,
	}))
}

// Press godoc
// GET /{lang}/press?kind=news
func (h *PageHandler) Press(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Press.ListPublished(r.Context(), models.PressKind(r.URL.Query().Get("kind")))
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "press", h.staticPage(r, "press", "/press", map[string]any{
		"Items": items,
	}))
}

// About godoc
// GET /{lang}/about
func (h *PageHandler) About(w http.ResponseWriter, r *http.Request) {
	section, err := sectionContent[*models.AboutSection](r.Context(), h.svc.Sections, models.SectionAbout)
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	p := h.staticPage(r, "about", "/about", map[string]any{"Section": section})
	if section != nil {
		p.Meta.Image = h.seo.Absolute(section.PortraitURL)
		if len(section.Paragraphs) > 0 {
			p.Meta.Description = seo.ClipDescription(section.Paragraphs[0])
		}
	}
	h.render(w, r, http.StatusOK, "about", p)
}

// Admin godoc
// GET /{lang}/admin
// Dashboard with counters, recent orders and messages, and the live feed.
func (h *PageHandler) Admin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.svc.Stats.Dashboard(ctx)
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}
	orders, err := h.svc.Store.List(ctx, models.OrderFilter{Limit: dashboardListLimit})
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}
	messages, err := h.svc.Contact.List(ctx, dashboardListLimit)
	if err != nil {
		h.ErrorPage(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "admin", h.privatePage(r, "admin", "/admin", map[string]any{
		"Stats":    stats,
		"Orders":   orders,
		"Messages": messages,
	}))
}
