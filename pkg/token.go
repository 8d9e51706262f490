package pkg

import (
	"net/http"
	"strings"
)

// Cookie names shared by the page handlers, the auth middleware and the
// WebSocket handler.
const (
	AccessCookieName  = "atelier_access"
	RefreshCookieName = "atelier_refresh"
)

// AccessToken returns the access token of a request: the Authorization
// bearer header first, then the access cookie. Empty when neither is set.
func AccessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(AccessCookieName); err == nil {
		return c.Value
	}
	return ""
}
