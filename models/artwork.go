package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akinalp/atelier/pkg/slug"
)

// ArtworkStatus is the sale state of an artwork.
//
//	available -> reserved (order placed) -> sold (order paid)
//	reserved  -> available (order cancelled or expired)
type ArtworkStatus string

const (
	ArtworkAvailable  ArtworkStatus = "available"
	ArtworkReserved   ArtworkStatus = "reserved"
	ArtworkSold       ArtworkStatus = "sold"
	ArtworkNotForSale ArtworkStatus = "not_for_sale"
)

// Valid reports whether s is a known status.
func (s ArtworkStatus) Valid() bool {
	switch s {
	case ArtworkAvailable, ArtworkReserved, ArtworkSold, ArtworkNotForSale:
		return true
	}
	return false
}

// Artwork is a work shown in the portfolio and possibly sold in the store.
type Artwork struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Medium      string        `json:"medium"`
	Year        int           `json:"year"`
	WidthCM     float64       `json:"width_cm"`
	HeightCM    float64       `json:"height_cm"`
	DepthCM     float64       `json:"depth_cm"`
	PriceCents  *int64        `json:"price_cents"`
	Currency    string        `json:"currency"`
	Status      ArtworkStatus `json:"status"`
	ImageURL    string        `json:"image_url"`
	Featured    bool          `json:"featured"`
	Published   bool          `json:"published"`
	Position    int           `json:"position"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ForSale reports whether the work can be ordered right now.
func (a *Artwork) ForSale() bool {
	return a.Published && a.Status == ArtworkAvailable && a.PriceCents != nil
}

// Dimensions formats the size as "80 × 60 cm" (depth added when set).
func (a *Artwork) Dimensions() string {
	if a.WidthCM <= 0 || a.HeightCM <= 0 {
		return ""
	}
	if a.DepthCM > 0 {
		return fmt.Sprintf("%g × %g × %g cm", a.WidthCM, a.HeightCM, a.DepthCM)
	}
	return fmt.Sprintf("%g × %g cm", a.WidthCM, a.HeightCM)
}

// checkSaleable enforces that anything that can be sold has a price.
func checkSaleable(status ArtworkStatus, price *int64) error {
	if price != nil && *price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if status == ArtworkAvailable && price == nil {
		return fmt.Errorf("price is required for an available artwork")
	}
	return nil
}

// Check validates a fully merged artwork before it is stored.
func (a *Artwork) Check() error {
	if !a.Status.Valid() {
		return fmt.Errorf("invalid status %q", a.Status)
	}
	return checkSaleable(a.Status, a.PriceCents)
}

func validateYear(year int) error {
	if year == 0 {
		return nil
	}
	if latest := time.Now().Year() + 1; year < 1900 || year > latest {
		return fmt.Errorf("year must be between 1900 and %d", latest)
	}
	return nil
}

func validateDimension(name string, v float64) error {
	if v < 0 || v > 10000 {
		return fmt.Errorf("%s must be between 0 and 10000 cm", name)
	}
	return nil
}

// CreateArtworkRequest is the body of POST /api/admin/artworks.
type CreateArtworkRequest struct {
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Medium      string        `json:"medium"`
	Year        int           `json:"year"`
	WidthCM     float64       `json:"width_cm"`
	HeightCM    float64       `json:"height_cm"`
	DepthCM     float64       `json:"depth_cm"`
	PriceCents  *int64        `json:"price_cents"`
	Status      ArtworkStatus `json:"status"`
	ImageURL    string        `json:"image_url"`
	Featured    bool          `json:"featured"`
	Published   bool          `json:"published"`
}

// Validate normalizes and checks the request.
//   - Title: 1-200 characters
//   - Slug: optional, generated from the title when empty
//   - Year: 0 (unknown) or 1900..next year
//   - Status: defaults to not_for_sale; reserved is set by orders only
//   - PriceCents: required when available
func (r *CreateArtworkRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if n := utf8.RuneCountInString(r.Title); n < 1 || n > 200 {
		return fmt.Errorf("title must be between 1 and 200 characters")
	}

	r.Slug = strings.TrimSpace(r.Slug)
	if r.Slug != "" {
		r.Slug = slug.Make(r.Slug)
		if r.Slug == "" {
			return fmt.Errorf("slug must contain letters or digits")
		}
	}

	r.Description = strings.TrimSpace(r.Description)
	if utf8.RuneCountInString(r.Description) > 5000 {
		return fmt.Errorf("description must be at most 5000 characters")
	}

	r.Medium = strings.TrimSpace(r.Medium)
	if utf8.RuneCountInString(r.Medium) > 120 {
		return fmt.Errorf("medium must be at most 120 characters")
	}

	if err := validateYear(r.Year); err != nil {
		return err
	}
	for name, v := range map[string]float64{"width": r.WidthCM, "height": r.HeightCM, "depth": r.DepthCM} {
		if err := validateDimension(name, v); err != nil {
			return err
		}
	}

	if r.Status == "" {
		r.Status = ArtworkNotForSale
	}
	if !r.Status.Valid() || r.Status == ArtworkReserved {
		return fmt.Errorf("status must be available, sold or not_for_sale")
	}

	r.ImageURL = strings.TrimSpace(r.ImageURL)

	return checkSaleable(r.Status, r.PriceCents)
}

// UpdateArtworkRequest is the body of PATCH /api/admin/artworks/{id}.
// Nil fields are left unchanged. ClearPrice removes the price.
type UpdateArtworkRequest struct {
	Slug        *string        `json:"slug"`
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Medium      *string        `json:"medium"`
	Year        *int           `json:"year"`
	WidthCM     *float64       `json:"width_cm"`
	HeightCM    *float64       `json:"height_cm"`
	DepthCM     *float64       `json:"depth_cm"`
	PriceCents  *int64         `json:"price_cents"`
	ClearPrice  bool           `json:"clear_price"`
	Status      *ArtworkStatus `json:"status"`
	ImageURL    *string        `json:"image_url"`
	Featured    *bool          `json:"featured"`
	Published   *bool          `json:"published"`
}

func (r *UpdateArtworkRequest) Validate() error {
	if r.Title != nil {
		*r.Title = strings.TrimSpace(*r.Title)
		if n := utf8.RuneCountInString(*r.Title); n < 1 || n > 200 {
			return fmt.Errorf("title must be between 1 and 200 characters")
		}
	}
	if r.Slug != nil {
		*r.Slug = slug.Make(*r.Slug)
		if *r.Slug == "" {
			return fmt.Errorf("slug must contain letters or digits")
		}
	}
	if r.Description != nil {
		*r.Description = strings.TrimSpace(*r.Description)
		if utf8.RuneCountInString(*r.Description) > 5000 {
			return fmt.Errorf("description must be at most 5000 characters")
		}
	}
	if r.Medium != nil {
		*r.Medium = strings.TrimSpace(*r.Medium)
		if utf8.RuneCountInString(*r.Medium) > 120 {
			return fmt.Errorf("medium must be at most 120 characters")
		}
	}
	if r.Year != nil {
		if err := validateYear(*r.Year); err != nil {
			return err
		}
	}
	for name, v := range map[string]*float64{"width": r.WidthCM, "height": r.HeightCM, "depth": r.DepthCM} {
		if v != nil {
			if err := validateDimension(name, *v); err != nil {
				return err
			}
		}
	}
	if r.ClearPrice && r.PriceCents != nil {
		return fmt.Errorf("price_cents and clear_price are mutually exclusive")
	}
	if r.Status != nil && (!r.Status.Valid() || *r.Status == ArtworkReserved) {
		return fmt.Errorf("status must be available, sold or not_for_sale")
	}
	if r.ImageURL != nil {
		*r.ImageURL = strings.TrimSpace(*r.ImageURL)
	}
	return nil
}

// Apply copies the set fields of r onto a.
func (r *UpdateArtworkRequest) Apply(a *Artwork) {
	if r.Slug != nil {
		a.Slug = *r.Slug
	}
	if r.Title != nil {
		a.Title = *r.Title
	}
	if r.Description != nil {
		a.Description = *r.Description
	}
	if r.Medium != nil {
		a.Medium = *r.Medium
	}
	if r.Year != nil {
		a.Year = *r.Year
	}
	if r.WidthCM != nil {
		a.WidthCM = *r.WidthCM
	}
	if r.HeightCM != nil {
		a.HeightCM = *r.HeightCM
	}
	if r.DepthCM != nil {
		a.DepthCM = *r.DepthCM
	}
	if r.PriceCents != nil {
		price := *r.PriceCents
		a.PriceCents = &price
	}
	if r.ClearPrice {
		a.PriceCents = nil
	}
	if r.Status != nil {
		a.Status = *r.Status
	}
	if r.ImageURL != nil {
		a.ImageURL = *r.ImageURL
	}
	if r.Featured != nil {
		a.Featured = *r.Featured
	}
	if r.Published != nil {
		a.Published = *r.Published
	}
}

// PositionUpdate sets the display position of one artwork.
type PositionUpdate struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// ReorderRequest is the body of PATCH /api/admin/artworks/reorder.
type ReorderRequest struct {
	Items []PositionUpdate `json:"items"`
}

func (r *ReorderRequest) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("items must not be empty")
	}
	seen := make(map[string]bool, len(r.Items))
	for _, item := range r.Items {
		if item.ID == "" {
			return fmt.Errorf("item id is required")
		}
		if item.Position < 0 {
			return fmt.Errorf("position must not be negative")
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate artwork id %s", item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}

// ArtworkFilter narrows public artwork listings.
type ArtworkFilter struct {
	FeaturedOnly bool
	ForSaleOnly  bool
	Limit        int
}
