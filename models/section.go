package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// SectionKey names a CMS section.
type SectionKey string

const (
	SectionHero         SectionKey = "hero"
	SectionAbout        SectionKey = "about"
	SectionStore        SectionKey = "store"
	SectionWorkshop     SectionKey = "workshop"
	SectionTestimonials SectionKey = "testimonials"
	SectionContact      SectionKey = "contact"
)

// Section is one stored content block: the JSON of a SectionContent for a
// (key, locale) pair.
type Section struct {
	Key       SectionKey      `json:"key"`
	Locale    string          `json:"locale"`
	Data      json.RawMessage `json:"data"`
	UpdatedBy *string         `json:"updated_by"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SectionContent is implemented by every section payload. Normalize trims
// and canonicalizes fields in place; Validate then checks them.
type SectionContent interface {
	Normalize()
	Validate() error
}

// FieldDoc describes one field for the admin editor.
type FieldDoc struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Rules string `json:"rules"`
}

// SectionSchema describes a section key and builds its empty payload.
type SectionSchema struct {
	Key         SectionKey            `json:"key"`
	Description string                `json:"description"`
	Fields      []FieldDoc            `json:"fields"`
	New         func() SectionContent `json:"-"`
}

var sectionSchemas = []SectionSchema{
	{
		Key:         SectionHero,
		Description: "Home page banner",
		Fields: []FieldDoc{
			{"title", "string", "1-120 characters"},
			{"subtitle", "string", "at most 240 characters"},
			{"image_url", "url", "http(s) url or site path, optional"},
		},
		New: func() SectionContent { return &HeroSection{} },
	},
	{
		Key:         SectionAbout,
		Description: "Biography on the about page",
		Fields: []FieldDoc{
			{"heading", "string", "1-120 characters"},
			{"paragraphs", "string[]", "1-20 items of 1-2000 characters"},
			{"portrait_url", "url", "http(s) url or site path, optional"},
		},
		New: func() SectionContent { return &AboutSection{} },
	},
	{
		Key:         SectionStore,
		Description: "Introduction of the store page",
		Fields: []FieldDoc{
			{"heading", "string", "1-120 characters"},
			{"intro", "string", "at most 2000 characters"},
			{"shipping_note", "string", "at most 500 characters"},
		},
		New: func() SectionContent { return &StoreSection{} },
	},
	{
		Key:         SectionWorkshop,
		Description: "Workshops and classes",
		Fields: []FieldDoc{
			{"heading", "string", "1-120 characters"},
			{"intro", "string", "at most 2000 characters"},
			{"sessions", "session[]", "0-20 items: title 1-120, date YYYY-MM-DD, location at most 200, price_cents >= 0, seats 1-100, booking_url http(s) optional"},
		},
		New: func() SectionContent { return &WorkshopSection{} },
	},
	{
		Key:         SectionTestimonials,
		Description: "Collector and student quotes",
		Fields: []FieldDoc{
			{"heading", "string", "at most 120 characters"},
			{"items", "testimonial[]", "1-30 items: quote 1-1000, author 1-120, role at most 120"},
		},
		New: func() SectionContent { return &TestimonialsSection{} },
	},
	{
		Key:         SectionContact,
		Description: "Contact page text and public channels",
		Fields: []FieldDoc{
			{"heading", "string", "1-120 characters"},
			{"intro", "string", "at most 2000 characters"},
			{"email", "email", "optional"},
			{"instagram", "string", "handle (@name) or instagram.com url, optional"},
		},
		New: func() SectionContent { return &ContactSection{} },
	},
}

// SectionSchemas returns every known section schema in editor order.
func SectionSchemas() []SectionSchema {
	out := make([]SectionSchema, len(sectionSchemas))
	copy(out, sectionSchemas)
	return out
}

// LookupSectionSchema finds the schema of key.
func LookupSectionSchema(key SectionKey) (SectionSchema, bool) {
	for _, s := range sectionSchemas {
		if s.Key == key {
			return s, true
		}
	}
	return SectionSchema{}, false
}

// ErrUnknownSection is returned by DecodeSection for an unregistered key.
var ErrUnknownSection = errors.New("unknown section")

// DecodeSection parses raw as the payload of key. Unknown fields and trailing
// data are rejected; the result is normalized and validated.
func DecodeSection(key SectionKey, raw []byte) (SectionContent, error) {
	schema, ok := LookupSectionSchema(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}

	content := schema.New()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(content); err != nil {
		return nil, fmt.Errorf("invalid %s section: %w", key, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid %s section: unexpected data after object", key)
	}

	content.Normalize()
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s section: %w", key, err)
	}
	return content, nil
}

// ─── Section payloads ───

type HeroSection struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"image_url"`
}

func (s *HeroSection) Normalize() {
	s.Title = collapseSpace(s.Title)
	s.Subtitle = collapseSpace(s.Subtitle)
	s.ImageURL = strings.TrimSpace(s.ImageURL)
}

func (s *HeroSection) Validate() error {
	return firstErr(
		checkLen("title", s.Title, 1, 120),
		checkLen("subtitle", s.Subtitle, 0, 240),
		checkImageURL("image_url", s.ImageURL),
	)
}

type AboutSection struct {
	Heading     string   `json:"heading"`
	Paragraphs  []string `json:"paragraphs"`
	PortraitURL string   `json:"portrait_url"`
}

// Normalize trims every paragraph and drops empty ones.
func (s *AboutSection) Normalize() {
	s.Heading = collapseSpace(s.Heading)
	kept := s.Paragraphs[:0]
	for _, p := range s.Paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	s.Paragraphs = kept
	s.PortraitURL = strings.TrimSpace(s.PortraitURL)
}

func (s *AboutSection) Validate() error {
	if err := checkLen("heading", s.Heading, 1, 120); err != nil {
		return err
	}
	if n := len(s.Paragraphs); n < 1 || n > 20 {
		return fmt.Errorf("paragraphs must have between 1 and 20 items")
	}
	for i, p := range s.Paragraphs {
		if err := checkLen(fmt.Sprintf("paragraphs[%d]", i), p, 1, 2000); err != nil {
			return err
		}
	}
	return checkImageURL("portrait_url", s.PortraitURL)
}

type StoreSection struct {
	Heading      string `json:"heading"`
	Intro        string `json:"intro"`
	ShippingNote string `json:"shipping_note"`
}

func (s *StoreSection) Normalize() {
	s.Heading = collapseSpace(s.Heading)
	s.Intro = strings.TrimSpace(s.Intro)
	s.ShippingNote = strings.TrimSpace(s.ShippingNote)
}

func (s *StoreSection) Validate() error {
	return firstErr(
		checkLen("heading", s.Heading, 1, 120),
		checkLen("intro", s.Intro, 0, 2000),
		checkLen("shipping_note", s.ShippingNote, 0, 500),
	)
}

type WorkshopSession struct {
	Title      string `json:"title"`
	Date       string `json:"date"` // YYYY-MM-DD
	Location   string `json:"location"`
	PriceCents int64  `json:"price_cents"`
	Seats      int    `json:"seats"`
	BookingURL string `json:"booking_url"`
}

type WorkshopSection struct {
	Heading  string            `json:"heading"`
	Intro    string            `json:"intro"`
	Sessions []WorkshopSession `json:"sessions"`
}

func (s *WorkshopSection) Normalize() {
	s.Heading = collapseSpace(s.Heading)
	s.Intro = strings.TrimSpace(s.Intro)
	if s.Sessions == nil {
		s.Sessions = []WorkshopSession{}
	}
	for i := range s.Sessions {
		ws := &s.Sessions[i]
		ws.Title = collapseSpace(ws.Title)
		ws.Date = strings.TrimSpace(ws.Date)
		ws.Location = collapseSpace(ws.Location)
		ws.BookingURL = strings.TrimSpace(ws.BookingURL)
	}
}

func (s *WorkshopSection) Validate() error {
	if err := firstErr(
		checkLen("heading", s.Heading, 1, 120),
		checkLen("intro", s.Intro, 0, 2000),
	); err != nil {
		return err
	}
	if len(s.Sessions) > 20 {
		return fmt.Errorf("sessions must have at most 20 items")
	}
	for i, ws := range s.Sessions {
		field := fmt.Sprintf("sessions[%d]", i)
		if err := checkLen(field+".title", ws.Title, 1, 120); err != nil {
			return err
		}
		if _, err := time.Parse("2006-01-02", ws.Date); err != nil {
			return fmt.Errorf("%s.date must be YYYY-MM-DD", field)
		}
		if err := checkLen(field+".location", ws.Location, 0, 200); err != nil {
			return err
		}
		if ws.PriceCents < 0 {
			return fmt.Errorf("%s.price_cents must not be negative", field)
		}
		if ws.Seats < 1 || ws.Seats > 100 {
			return fmt.Errorf("%s.seats must be between 1 and 100", field)
		}
		if ws.BookingURL != "" && !isHTTPURL(ws.BookingURL) {
			return fmt.Errorf("%s.booking_url must be an http or https url", field)
		}
	}
	return nil
}

// Upcoming returns the sessions dated on or after day, in date order.
func (s *WorkshopSection) Upcoming(day time.Time) []WorkshopSession {
	today := day.Format("2006-01-02")
	var out []WorkshopSession
	for _, ws := range s.Sessions {
		// YYYY-MM-DD strings sort chronologically.
		if ws.Date >= today {
			out = append(out, ws)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

type Testimonial struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
	Role   string `json:"role"`
}

type TestimonialsSection struct {
	Heading string        `json:"heading"`
	Items   []Testimonial `json:"items"`
}

func (s *TestimonialsSection) Normalize() {
	s.Heading = collapseSpace(s.Heading)
	for i := range s.Items {
		s.Items[i].Quote = strings.TrimSpace(s.Items[i].Quote)
		s.Items[i].Author = collapseSpace(s.Items[i].Author)
		s.Items[i].Role = collapseSpace(s.Items[i].Role)
	}
}

func (s *TestimonialsSection) Validate() error {
	if err := checkLen("heading", s.Heading, 0, 120); err != nil {
		return err
	}
	if n := len(s.Items); n < 1 || n > 30 {
		return fmt.Errorf("items must have between 1 and 30 entries")
	}
	for i, t := range s.Items {
		field := fmt.Sprintf("items[%d]", i)
		if err := firstErr(
			checkLen(field+".quote", t.Quote, 1, 1000),
			checkLen(field+".author", t.Author, 1, 120),
			checkLen(field+".role", t.Role, 0, 120),
		); err != nil {
			return err
		}
	}
	return nil
}

type ContactSection struct {
	Heading   string `json:"heading"`
	Intro     string `json:"intro"`
	Email     string `json:"email"`
	Instagram string `json:"instagram"`
}

var instagramHandle = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

// Normalize stores Instagram as a bare handle whether an @handle or a
// profile url was entered.
func (s *ContactSection) Normalize() {
	s.Heading = collapseSpace(s.Heading)
	s.Intro = strings.TrimSpace(s.Intro)
	s.Email = NormalizeEmail(s.Email)

	ig := strings.TrimSpace(s.Instagram)
	if u, err := url.Parse(ig); err == nil && u.Host != "" &&
		(u.Host == "instagram.com" || u.Host == "www.instagram.com") {
		ig = strings.Trim(u.Path, "/")
	}
	s.Instagram = strings.TrimPrefix(ig, "@")
}

func (s *ContactSection) Validate() error {
	if err := firstErr(
		checkLen("heading", s.Heading, 1, 120),
		checkLen("intro", s.Intro, 0, 2000),
	); err != nil {
		return err
	}
	if s.Email != "" && !ValidEmail(s.Email) {
		return fmt.Errorf("email has an invalid format")
	}
	if s.Instagram != "" && !instagramHandle.MatchString(s.Instagram) {
		return fmt.Errorf("instagram must be a handle or an instagram.com url")
	}
	return nil
}

// InstagramURL returns the profile url, or "" when no handle is set.
func (s *ContactSection) InstagramURL() string {
	if s.Instagram == "" {
		return ""
	}
	return "https://www.instagram.com/" + s.Instagram + "/"
}

// ─── Helpers ───

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func checkLen(field, v string, lo, hi int) error {
	n := utf8.RuneCountInString(v)
	if n < lo || n > hi {
		if lo == 0 {
			return fmt.Errorf("%s must be at most %d characters", field, hi)
		}
		return fmt.Errorf("%s must be between %d and %d characters", field, lo, hi)
	}
	return nil
}

func checkImageURL(field, v string) error {
	if v == "" || (strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "//")) || isHTTPURL(v) {
		return nil
	}
	return fmt.Errorf("%s must be an http(s) url or a site path", field)
}

func isHTTPURL(v string) bool {
	u, err := url.Parse(v)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
