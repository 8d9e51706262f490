// Package render turns the embedded html/template pages into templ
// components.
//
// Every page template defines "content" (and optionally "head") and is
// parsed together with layout.html and partials.html, so each page is its
// own template set:
//
//	r, _ := render.New()
//	c, _ := r.Component("portfolio", page)
//	templ.Handler(c).ServeHTTP(w, req)
package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/pkg/seo"
)

//go:embed templates/*.html
var templatesFS embed.FS

// shared is parsed into every page set.
var shared = []string{"templates/layout.html", "templates/partials.html"}

// LangLink is one entry of the language switcher.
type LangLink struct {
	Lang    string
	URL     string
	Current bool
}

// Page is the data every template receives. Data holds the page-specific
// view model.
type Page struct {
	Meta       seo.Meta
	Lang       string
	Loc        *i18n.Localizer
	User       *models.User
	LangLinks  []LangLink
	SiteName   string
	ArtistName string
	// Path is the current path without the language prefix, e.g. "/store".
	Path string
	Data any

	// JSONLD is filled from Meta.JSONLD while rendering.
	JSONLD template.HTML
}

// IsAdmin reports whether the visitor is a signed-in admin.
func (p *Page) IsAdmin() bool {
	return p.User != nil && p.User.IsAdmin()
}

// Year is used by the footer.
func (p *Page) Year() int {
	return time.Now().Year()
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page under templates/.
func New() (*Renderer, error) {
	entries, err := fs.ReadDir(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, e := range entries {
		file := "templates/" + e.Name()
		if e.IsDir() || isShared(file) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".html")

		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, append(shared, file)...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func isShared(file string) bool {
	for _, s := range shared {
		if s == file {
			return true
		}
	}
	return false
}

// Component returns the page as a templ component.
func (r *Renderer) Component(name string, p *Page) (templ.Component, error) {
	t, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if p.Meta.JSONLD != nil {
			ld, err := templ.ToGoHTML(ctx, templ.JSONScript("structured-data", p.Meta.JSONLD).WithType("application/ld+json"))
			if err != nil {
				return fmt.Errorf("failed to render json-ld: %w", err)
			}
			p.JSONLD = ld
		}
		return templ.FromGoHTML(t, p).Render(ctx, w)
	}), nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
