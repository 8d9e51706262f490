// Package i18n provides the translations of the public site and the helpers
// that pick a visitor's language.
//
// The language of a request is resolved in this order:
//  1. the {lang} segment of the URL
//  2. the lang cookie set by the language switcher
//  3. the Accept-Language header, matched with golang.org/x/text/language
//  4. the site default
//
// Usage:
//
//	loc := i18n.NewLocalizer("fr")
//	loc.T("nav.store") // "Boutique"
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SupportedLanguages lists the site locales, default first.
var SupportedLanguages = []string{"en", "fr"}

// DefaultLanguage is used when nothing else matches and as the translation
// fallback for missing keys.
const DefaultLanguage = "en"

// CookieName is the cookie storing the visitor's explicit language choice.
const CookieName = "lang"

var (
	supportedTags = []language.Tag{language.English, language.French}
	matcher       = language.NewMatcher(supportedTags)
)

var (
	translations map[string]map[string]string
	loadOnce     sync.Once
	loadErr      error
)

// Load reads one <lang>.json per supported language from localesFS.
// Nested objects are flattened to dotted keys. Only the first call does work.
func Load(localesFS fs.FS) error {
	loadOnce.Do(func() {
		loaded := make(map[string]map[string]string)

		for _, lang := range SupportedLanguages {
			fileName := lang + ".json"

			data, err := fs.ReadFile(localesFS, fileName)
			if err != nil {
				loadErr = fmt.Errorf("failed to read translation file %s: %w", fileName, err)
				return
			}

			var nested map[string]any
			if err := json.Unmarshal(data, &nested); err != nil {
				loadErr = fmt.Errorf("failed to parse translation file %s: %w", fileName, err)
				return
			}

			flat := make(map[string]string)
			flattenMap("", nested, flat)
			loaded[lang] = flat

			zap.L().Named("i18n").Debug("translations loaded", zap.String("lang", lang), zap.Int("keys", len(flat)))
		}

		translations = loaded
	})

	return loadErr
}

// LoadEmbedded loads the translations compiled into the binary.
func LoadEmbedded() error {
	sub, err := fs.Sub(EmbeddedLocales, "locales")
	if err != nil {
		return err
	}
	return Load(sub)
}

// Localizer translates keys for one language.
type Localizer struct {
	lang string
	tag  language.Tag
}

// NewLocalizer returns a Localizer for lang, or for DefaultLanguage when lang
// is not supported.
func NewLocalizer(lang string) *Localizer {
	if !IsSupported(lang) {
		lang = DefaultLanguage
	}
	return &Localizer{lang: lang, tag: language.Make(lang)}
}

// Lang returns the language code of the localizer.
func (l *Localizer) Lang() string {
	return l.lang
}

// T returns the translation of key. Missing keys fall back to the default
// language, then to the key itself.
func (l *Localizer) T(key string) string {
	if msg, ok := translations[l.lang][key]; ok {
		return msg
	}
	if msg, ok := translations[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// TWithParams translates key and replaces every {{name}} placeholder.
func (l *Localizer) TWithParams(key string, params map[string]string) string {
	msg := l.T(key)
	for k, v := range params {
		msg = strings.ReplaceAll(msg, "{{"+k+"}}", v)
	}
	return msg
}

// FormatPrice renders an amount in minor units with the locale's number
// format, e.g. 125000 EUR -> "€ 1,250.00" in English.
func (l *Localizer) FormatPrice(cents int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%.2f %s", float64(cents)/100, code)
	}
	p := message.NewPrinter(l.tag)
	return p.Sprint(currency.Symbol(unit.Amount(float64(cents) / 100)))
}

// FormatDate renders a date the way the locale writes it.
func (l *Localizer) FormatDate(t time.Time) string {
	if l.lang == "fr" {
		return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
	}
	return t.Format("January 2, 2006")
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// IsSupported reports whether lang is one of SupportedLanguages.
func IsSupported(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// Normalize lower-cases lang and maps anything unsupported to
// DefaultLanguage.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if IsSupported(lang) {
		return lang
	}
	return DefaultLanguage
}

// Match picks the best supported language for an Accept-Language header.
// fallback is returned when nothing matches.
func Match(acceptLanguage, fallback string) string {
	if acceptLanguage == "" {
		return fallback
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return SupportedLanguages[index]
}

// ResolveRequest returns the language for r ignoring the URL path:
// ?lang query, then cookie, then Accept-Language, then fallback.
func ResolveRequest(r *http.Request, fallback string) string {
	if lang := strings.ToLower(r.URL.Query().Get("lang")); IsSupported(lang) {
		return lang
	}
	if c, err := r.Cookie(CookieName); err == nil && IsSupported(c.Value) {
		return c.Value
	}
	return Match(r.Header.Get("Accept-Language"), fallback)
}

// SetCookie remembers lang for a year.
func SetCookie(w http.ResponseWriter, lang string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type langKey struct{}

// WithLang returns a context carrying the resolved request language.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the language stored by WithLang, or
// DefaultLanguage.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok {
		return lang
	}
	return DefaultLanguage
}

// flattenMap turns {"nav": {"home": "Home"}} into {"nav.home": "Home"}.
func flattenMap(prefix string, src map[string]any, dst map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			dst[key] = val
		case map[string]any:
			flattenMap(key, val, dst)
		}
	}
}
