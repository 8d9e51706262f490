// Package sitemap writes sitemap.xml (with hreflang alternates) and robots.txt.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/akinalp/atelier/pkg/seo"
)

// Entry is one <url> of the sitemap.
type Entry struct {
	Loc        string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
	Alternates []seo.Alternate
}

type urlSet struct {
	XMLName xml.Name  `xml:"urlset"`
	XMLNS   string    `xml:"xmlns,attr"`
	XHTML   string    `xml:"xmlns:xhtml,attr"`
	URLs    []urlNode `xml:"url"`
}

type urlNode struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq string     `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
	Links      []linkNode `xml:"xhtml:link"`
}

type linkNode struct {
	Rel      string `xml:"rel,attr"`
	Hreflang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

// Write encodes entries as a sitemap document.
func Write(w io.Writer, entries []Entry) error {
	set := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		XHTML: "http://www.w3.org/1999/xhtml",
		URLs:  make([]urlNode, 0, len(entries)),
	}

	for _, e := range entries {
		n := urlNode{Loc: e.Loc, ChangeFreq: e.ChangeFreq}
		if !e.LastMod.IsZero() {
			n.LastMod = e.LastMod.UTC().Format("2006-01-02")
		}
		if e.Priority > 0 {
			n.Priority = fmt.Sprintf("%.1f", e.Priority)
		}
		for _, a := range e.Alternates {
			n.Links = append(n.Links, linkNode{Rel: "alternate", Hreflang: a.Lang, Href: a.URL})
		}
		set.URLs = append(set.URLs, n)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("failed to encode sitemap: %w", err)
	}
	return enc.Flush()
}

// Robots returns robots.txt for the site at baseURL. The admin and login
// pages of every locale are disallowed.
func Robots(baseURL string, locales []string) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin\n")
	b.WriteString("Disallow: /api/\n")
	for _, l := range locales {
		fmt.Fprintf(&b, "Disallow: /%s/admin\n", l)
		fmt.Fprintf(&b, "Disallow: /%s/login\n", l)
	}
	fmt.Fprintf(&b, "\nSitemap: %s/sitemap.xml\n", baseURL)
	return b.String()
}
