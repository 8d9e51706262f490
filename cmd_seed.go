package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/services"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sections, artworks and press items from a YAML file",
	Long: `Loads content from a YAML file. Sections are upserted. Artworks whose
slug already exists and press items whose URL already exists are skipped,
so the same file can be applied more than once.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "content.yaml", "YAML content file")
}

// seedContent is the layout of the seed file.
type seedContent struct {
	Sections []seedSection `yaml:"sections"`
	Artworks []seedArtwork `yaml:"artworks"`
	Press    []seedPress   `yaml:"press"`
}

type seedSection struct {
	Key    models.SectionKey `yaml:"key"`
	Locale string            `yaml:"locale"`
	Data   map[string]any    `yaml:"data"`
}

type seedArtwork struct {
	Slug        string               `yaml:"slug"`
	Title       string               `yaml:"title"`
	Description string               `yaml:"description"`
	Medium      string               `yaml:"medium"`
	Year        int                  `yaml:"year"`
	WidthCM     float64              `yaml:"width_cm"`
	HeightCM    float64              `yaml:"height_cm"`
	DepthCM     float64              `yaml:"depth_cm"`
	PriceCents  *int64               `yaml:"price_cents"`
	Status      models.ArtworkStatus `yaml:"status"`
	ImageURL    string               `yaml:"image_url"`
	Featured    bool                 `yaml:"featured"`
	Published   bool                 `yaml:"published"`
}

type seedPress struct {
	Kind        models.PressKind `yaml:"kind"`
	URL         string           `yaml:"url"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	ImageURL    string           `yaml:"image_url"`
	Outlet      string           `yaml:"outlet"`
	PublishedAt string           `yaml:"published_at"`
	Published   *bool            `yaml:"published"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var content seedContent
	if err := yaml.Unmarshal(raw, &content); err != nil {
		return fmt.Errorf("failed to parse %s: %w", seedFile, err)
	}

	db, svcs, err := openServices()
	if err != nil {
		return err
	}
	defer db.Close()
	defer svcs.Close()

	ctx := services.SystemContext(cmd.Context())
	log := zap.L().Named("seed")

	sections, err := seedSections(ctx, svcs.Section, content.Sections)
	if err != nil {
		return err
	}
	artworks, err := seedArtworks(ctx, svcs.Artwork, content.Artworks)
	if err != nil {
		return err
	}
	press, err := seedPressItems(ctx, svcs.Press, content.Press)
	if err != nil {
		return err
	}

	log.Info("seed applied",
		zap.String("file", seedFile),
		zap.Int("sections", sections),
		zap.Int("artworks", artworks),
		zap.Int("press", press))
	return nil
}

func seedSections(ctx context.Context, svc services.SectionService, items []seedSection) (int, error) {
	for _, s := range items {
		data, err := json.Marshal(s.Data)
		if err != nil {
			return 0, fmt.Errorf("section %s/%s: %w", s.Key, s.Locale, err)
		}
		if _, err := svc.Upsert(ctx, s.Key, s.Locale, data); err != nil {
			return 0, fmt.Errorf("section %s/%s: %w", s.Key, s.Locale, err)
		}
	}
	return len(items), nil
}

func seedArtworks(ctx context.Context, svc services.ArtworkService, items []seedArtwork) (int, error) {
	existing, err := svc.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	slugs := make(map[string]bool, len(existing))
	for _, a := range existing {
		slugs[a.Slug] = true
	}

	created := 0
	for _, a := range items {
		if a.Slug != "" && slugs[a.Slug] {
			continue
		}
		req := models.CreateArtworkRequest{
			Slug:        a.Slug,
			Title:       a.Title,
			Description: a.Description,
			Medium:      a.Medium,
			Year:        a.Year,
			WidthCM:     a.WidthCM,
			HeightCM:    a.HeightCM,
			DepthCM:     a.DepthCM,
			PriceCents:  a.PriceCents,
			Status:      a.Status,
			ImageURL:    a.ImageURL,
			Featured:    a.Featured,
			Published:   a.Published,
		}
		artwork, err := svc.Create(ctx, &req)
		if err != nil {
			return created, fmt.Errorf("artwork %q: %w", a.Title, err)
		}
		slugs[artwork.Slug] = true
		created++
	}
	return created, nil
}

func seedPressItems(ctx context.Context, svc services.PressService, items []seedPress) (int, error) {
	existing, err := svc.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	urls := make(map[string]bool, len(existing))
	for _, p := range existing {
		urls[p.URL] = true
	}

	created := 0
	for _, p := range items {
		if urls[p.URL] {
			continue
		}
		req := models.CreatePressRequest{
			Kind:        p.Kind,
			URL:         p.URL,
			Title:       p.Title,
			Description: p.Description,
			ImageURL:    p.ImageURL,
			Outlet:      p.Outlet,
			PublishedAt: p.PublishedAt,
			Published:   p.Published,
		}
		if _, err := svc.Create(ctx, &req); err != nil {
			return created, fmt.Errorf("press %q: %w", p.URL, err)
		}
		urls[p.URL] = true
		created++
	}
	return created, nil
}
