package handlers

import (
	"io"
	"net/http"

	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/services"
)

// SEOHandler serves /sitemap.xml and /robots.txt.
type SEOHandler struct {
	sitemapService services.SitemapService
}

func NewSEOHandler(sitemapService services.SitemapService) *SEOHandler {
	return &SEOHandler{sitemapService: sitemapService}
}

// Sitemap godoc
// GET /sitemap.xml
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	body, err := h.sitemapService.Sitemap(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
}

// Robots godoc
// GET /robots.txt
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, h.sitemapService.Robots())
}
