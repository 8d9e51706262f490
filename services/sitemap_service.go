package services

import (
	"bytes"
	"context"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/pkg/seo"
	"github.com/akinalp/atelier/pkg/sitemap"
	"github.com/akinalp/atelier/repository"
)

// staticPage is a fixed page listed in the sitemap.
type staticPage struct {
	path       string
	changeFreq string
	priority   float64
}

var staticPages = []staticPage{
	{"/", "weekly", 1.0},
	{"/portfolio", "weekly", 0.9},
	{"/store", "daily", 0.9},
	{"/workshop", "weekly", 0.7},
	{"/press", "monthly", 0.6},
	{"/about", "monthly", 0.6},
	{"/contact", "yearly", 0.5},
}

// SitemapService builds sitemap.xml and robots.txt.
type SitemapService interface {
	Sitemap(ctx context.Context) ([]byte, error)
	Robots() string
}

type sitemapService struct {
	artworkRepo repository.ArtworkRepository
	seo         seo.Builder
}

func NewSitemapService(artworkRepo repository.ArtworkRepository, builder seo.Builder) SitemapService {
	return &sitemapService{artworkRepo: artworkRepo, seo: builder}
}

// Sitemap lists every static page and every published artwork in every
// locale, each with its hreflang alternates.
func (s *sitemapService) Sitemap(ctx context.Context) ([]byte, error) {
	artworks, err := s.artworkRepo.ListPublished(ctx, models.ArtworkFilter{})
	if err != nil {
		return nil, err
	}

	locales := i18n.SupportedLanguages
	entries := make([]sitemap.Entry, 0, (len(staticPages)+len(artworks))*len(locales))

	for _, p := range staticPages {
		alts := s.seo.Page(s.seo.DefaultLocale, p.path, "", "").Alternates
		for _, l := range locales {
			entries = append(entries, sitemap.Entry{
				Loc:        s.seo.URL(l, p.path),
				ChangeFreq: p.changeFreq,
				Priority:   p.priority,
				Alternates: alts,
			})
		}
	}

	for _, a := range artworks {
		path := "/artworks/" + a.Slug
		alts := s.seo.Page(s.seo.DefaultLocale, path, "", "").Alternates
		for _, l := range locales {
			entries = append(entries, sitemap.Entry{
				Loc:        s.seo.URL(l, path),
				LastMod:    a.UpdatedAt,
				ChangeFreq: "monthly",
				Priority:   0.8,
				Alternates: alts,
			})
		}
	}

	var buf bytes.Buffer
	if err := sitemap.Write(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *sitemapService) Robots() string {
	return sitemap.Robots(s.seo.BaseURL, i18n.SupportedLanguages)
}
