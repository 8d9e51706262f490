// Package seo builds the head metadata of public pages: title, canonical URL,
// hreflang alternates, Open Graph tags and JSON-LD.
package seo

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxDescription is the rune length descriptions are clipped to.
const MaxDescription = 160

// Alternate is one <link rel="alternate" hreflang> entry.
type Alternate struct {
	Lang string
	URL  string
}

// Meta is everything the layout writes into <head>.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	Locale      string
	OGType      string
	Image       string
	SiteName    string
	Alternates  []Alternate
	// JSONLD is marshalled into a <script type="application/ld+json">.
	JSONLD map[string]any
	// NoIndex marks private pages (login, admin).
	NoIndex bool
}

// Builder holds the site-wide values every Meta needs.
type Builder struct {
	SiteName      string
	BaseURL       string
	Locales       []string
	DefaultLocale string
}

// Page builds the metadata of the page at path (e.g. "/portfolio") in locale.
// An empty title yields the site name alone.
func (b Builder) Page(locale, path, title, description string) Meta {
	full := b.SiteName
	if title != "" && title != b.SiteName {
		full = title + " · " + b.SiteName
	}

	return Meta{
		Title:       full,
		Description: ClipDescription(description),
		Canonical:   b.URL(locale, path),
		Locale:      ogLocale(locale),
		OGType:      "website",
		SiteName:    b.SiteName,
		Alternates:  b.alternates(path),
	}
}

// URL returns the absolute URL of path in locale.
func (b Builder) URL(locale, path string) string {
	if path == "" || path == "/" {
		return fmt.Sprintf("%s/%s/", b.BaseURL, locale)
	}
	return fmt.Sprintf("%s/%s%s", b.BaseURL, locale, path)
}

// Absolute turns a site-relative path such as /uploads/x.jpg into a full URL.
func (b Builder) Absolute(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return b.BaseURL + ref
}

func (b Builder) alternates(path string) []Alternate {
	alts := make([]Alternate, 0, len(b.Locales)+1)
	for _, l := range b.Locales {
		alts = append(alts, Alternate{Lang: l, URL: b.URL(l, path)})
	}
	alts = append(alts, Alternate{Lang: "x-default", URL: b.URL(b.DefaultLocale, path)})
	return alts
}

// Artwork is the subset of an artwork the metadata needs.
type Artwork struct {
	Slug        string
	Title       string
	Description string
	Medium      string
	Year        int
	WidthCM     float64
	HeightCM    float64
	ImageURL    string
	PriceCents  *int64
	Currency    string
	// Status is one of available, reserved, sold, not_for_sale.
	Status string
}

// Artwork builds the metadata of an artwork detail page, including a
// schema.org VisualArtwork with an Offer when the work is for sale.
func (b Builder) Artwork(locale string, a Artwork) Meta {
	path := "/artworks/" + a.Slug
	m := b.Page(locale, path, a.Title, a.Description)
	m.OGType = "article"
	m.Image = b.Absolute(a.ImageURL)

	ld := map[string]any{
		"@context": "https://schema.org",
		"@type":    "VisualArtwork",
		"name":     a.Title,
		"url":      m.Canonical,
		"creator":  map[string]any{"@type": "Person", "name": b.SiteName},
	}
	if m.Description != "" {
		ld["description"] = m.Description
	}
	if m.Image != "" {
		ld["image"] = m.Image
	}
	if a.Medium != "" {
		ld["artMedium"] = a.Medium
	}
	if a.Year > 0 {
		ld["dateCreated"] = fmt.Sprintf("%d", a.Year)
	}
	if a.WidthCM > 0 {
		ld["width"] = distance(a.WidthCM)
	}
	if a.HeightCM > 0 {
		ld["height"] = distance(a.HeightCM)
	}

	if a.PriceCents != nil && a.Status != "not_for_sale" {
		availability := "https://schema.org/SoldOut"
		if a.Status == "available" {
			availability = "https://schema.org/InStock"
		}
		ld["offers"] = map[string]any{
			"@type":         "Offer",
			"price":         fmt.Sprintf("%d.%02d", *a.PriceCents/100, *a.PriceCents%100),
			"priceCurrency": a.Currency,
			"availability":  availability,
			"url":           m.Canonical,
		}
	}

	m.JSONLD = ld
	return m
}

func distance(cm float64) map[string]any {
	return map[string]any{
		"@type": "Distance",
		"name":  strconv.FormatFloat(cm, 'f', -1, 64) + " cm",
	}
}

// ClipDescription collapses whitespace and cuts s to MaxDescription runes,
// on a word boundary when possible, appending an ellipsis.
func ClipDescription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= MaxDescription {
		return s
	}

	runes := []rune(s)
	cut := runes[:MaxDescription-1]
	if i := lastSpace(cut); i > MaxDescription/2 {
		cut = cut[:i]
	}
	return strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "…"
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

func ogLocale(lang string) string {
	switch lang {
	case "fr":
		return "fr_FR"
	default:
		return "en_US"
	}
}
