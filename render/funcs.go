package render

import (
	"html/template"
	"strings"
	"time"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg/i18n"
)

var funcs = template.FuncMap{
	// href prefixes a site path with the language: href "fr" "/store" -> /fr/store
	"href": func(lang, path string) string {
		if path == "" || path == "/" {
			return "/" + lang + "/"
		}
		return "/" + lang + path
	},
	"price": func(loc *i18n.Localizer, cents *int64, currency string) string {
		if cents == nil {
			return ""
		}
		return loc.FormatPrice(*cents, currency)
	},
	"amount": func(loc *i18n.Localizer, cents int64, currency string) string {
		return loc.FormatPrice(cents, currency)
	},
	"date": func(loc *i18n.Localizer, t time.Time) string {
		return loc.FormatDate(t)
	},
	"tp": func(loc *i18n.Localizer, key string, kv ...string) string {
		params := make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			params[kv[i]] = kv[i+1]
		}
		return loc.TWithParams(key, params)
	},
	// paragraphs splits text on blank lines.
	"paragraphs": func(s string) []string {
		var out []string
		for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	},
	"upper": strings.ToUpper,
	"card": func(p *Page, a models.Artwork) artworkCard {
		return artworkCard{Lang: p.Lang, Loc: p.Loc, Artwork: &a}
	},
	"grid": func(p *Page, artworks []models.Artwork) artworkGrid {
		return artworkGrid{Page: p, Artworks: artworks}
	},
}

type artworkCard struct {
	Lang    string
	Loc     *i18n.Localizer
	Artwork *models.Artwork
}

type artworkGrid struct {
	Page     *Page
	Artworks []models.Artwork
}
