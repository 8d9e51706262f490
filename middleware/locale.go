package middleware

import (
	"net/http"

	"github.com/akinalp/atelier/pkg/i18n"
)

// LocaleMiddleware puts the request language into the context.
type LocaleMiddleware struct {
	fallback      string
	secureCookies bool
	notFound      http.Handler
}

// NewLocaleMiddleware returns a LocaleMiddleware. notFound answers paths
// whose {lang} segment is not a supported language.
func NewLocaleMiddleware(fallback string, secureCookies bool, notFound http.Handler) *LocaleMiddleware {
	return &LocaleMiddleware{fallback: fallback, secureCookies: secureCookies, notFound: notFound}
}

// Path takes the language from the {lang} path segment and remembers it in
// the lang cookie.
func (m *LocaleMiddleware) Path(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := r.PathValue("lang")
		if !i18n.IsSupported(lang) {
			m.notFound.ServeHTTP(w, r)
			return
		}

		if c, err := r.Cookie(i18n.CookieName); err != nil || c.Value != lang {
			i18n.SetCookie(w, lang, m.secureCookies)
		}

		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}

// Detect resolves the language of routes without a {lang} segment from the
// cookie and Accept-Language.
func (m *LocaleMiddleware) Detect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.ResolveRequest(r, m.fallback)
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}
