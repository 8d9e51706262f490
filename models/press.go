package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// PressKind separates articles about the artist from the artist's own news.
type PressKind string

const (
	PressKindPress PressKind = "press"
	PressKindNews  PressKind = "news"
)

func (k PressKind) Valid() bool {
	return k == PressKindPress || k == PressKindNews
}

// PressItem is an external link shown as a card on the press page. Empty
// text fields are filled from the page's link preview.
type PressItem struct {
	ID          string     `json:"id"`
	Kind        PressKind  `json:"kind"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	SiteName    string     `json:"site_name"`
	Outlet      string     `json:"outlet"`
	PublishedAt *time.Time `json:"published_at"`
	Published   bool       `json:"published"`
	Position    int        `json:"position"`
	FetchedAt   *time.Time `json:"fetched_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Source is the outlet name, falling back to the site name of the page.
func (p *PressItem) Source() string {
	if p.Outlet != "" {
		return p.Outlet
	}
	return p.SiteName
}

func parseDay(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}

// CreatePressRequest is the body of POST /api/admin/press.
type CreatePressRequest struct {
	Kind        PressKind `json:"kind"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Outlet      string    `json:"outlet"`
	PublishedAt string    `json:"published_at"` // YYYY-MM-DD, optional
	Published   *bool     `json:"published"`

	// PublishedDay is PublishedAt parsed by Validate.
	PublishedDay *time.Time `json:"-"`
}

func (r *CreatePressRequest) Validate() error {
	if r.Kind == "" {
		r.Kind = PressKindPress
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("kind must be press or news")
	}

	r.URL = strings.TrimSpace(r.URL)
	if !isHTTPURL(r.URL) {
		return fmt.Errorf("url must be an http or https url")
	}

	r.Title = collapseSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	r.Outlet = collapseSpace(r.Outlet)
	if err := firstErr(
		checkLen("title", r.Title, 0, 300),
		checkLen("description", r.Description, 0, 2000),
		checkLen("outlet", r.Outlet, 0, 120),
		checkImageURL("image_url", r.ImageURL),
	); err != nil {
		return err
	}

	day, err := parseDay("published_at", r.PublishedAt)
	if err != nil {
		return err
	}
	r.PublishedDay = day
	return nil
}

// UpdatePressRequest is the body of PATCH /api/admin/press/{id}.
type UpdatePressRequest struct {
	Kind        *PressKind `json:"kind"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ImageURL    *string    `json:"image_url"`
	Outlet      *string    `json:"outlet"`
	PublishedAt *string    `json:"published_at"` // "" clears the date
	Published   *bool      `json:"published"`
	Position    *int       `json:"position"`
}

func (r *UpdatePressRequest) Validate() error {
	if r.Kind != nil && !r.Kind.Valid() {
		return fmt.Errorf("kind must be press or news")
	}
	if r.Title != nil {
		*r.Title = collapseSpace(*r.Title)
		if utf8.RuneCountInString(*r.Title) > 300 {
			return fmt.Errorf("title must be at most 300 characters")
		}
	}
	if r.Description != nil {
		*r.Description = strings.TrimSpace(*r.Description)
		if utf8.RuneCountInString(*r.Description) > 2000 {
			return fmt.Errorf("description must be at most 2000 characters")
		}
	}
	if r.ImageURL != nil {
		*r.ImageURL = strings.TrimSpace(*r.ImageURL)
		if err := checkImageURL("image_url", *r.ImageURL); err != nil {
			return err
		}
	}
	if r.Outlet != nil {
		*r.Outlet = collapseSpace(*r.Outlet)
		if utf8.RuneCountInString(*r.Outlet) > 120 {
			return fmt.Errorf("outlet must be at most 120 characters")
		}
	}
	if r.PublishedAt != nil {
		if _, err := parseDay("published_at", *r.PublishedAt); err != nil {
			return err
		}
	}
	if r.Position != nil && *r.Position < 0 {
		return fmt.Errorf("position must not be negative")
	}
	return nil
}

// Apply copies the set fields of r onto p. Validate must have succeeded.
func (r *UpdatePressRequest) Apply(p *PressItem) {
	if r.Kind != nil {
		p.Kind = *r.Kind
	}
	if r.Title != nil {
		p.Title = *r.Title
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.ImageURL != nil {
		p.ImageURL = *r.ImageURL
	}
	if r.Outlet != nil {
		p.Outlet = *r.Outlet
	}
	if r.PublishedAt != nil {
		p.PublishedAt, _ = parseDay("published_at", *r.PublishedAt)
	}
	if r.Published != nil {
		p.Published = *r.Published
	}
	if r.Position != nil {
		p.Position = *r.Position
	}
}

// PreviewRequest is the body of POST /api/admin/press/preview.
type PreviewRequest struct {
	URL string `json:"url"`
}

// RefreshResult reports a bulk preview refresh.
type RefreshResult struct {
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}
