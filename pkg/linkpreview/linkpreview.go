// Package linkpreview fetches a web page and extracts the data needed to show
// it as a card: title, description, image and site name.
//
// Open Graph tags win, then Twitter card tags, then <title> and
// <meta name="description">.
package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/akinalp/atelier/pkg/cache"
)

// MaxBodySize is the number of bytes read from a response body.
const MaxBodySize = 2 << 20

const userAgent = "Mozilla/5.0 (compatible; AtelierLinkPreview/1.0)"

var (
	// ErrUnsupportedURL is returned for anything but absolute http(s) URLs.
	ErrUnsupportedURL = errors.New("url must be an absolute http or https url")
	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("response is not html")
)

// Preview is what a page says about itself.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	SiteName    string `json:"site_name"`
}

// Fetcher downloads and parses pages. Successful results are cached by URL.
type Fetcher struct {
	client *http.Client
	cache  *cache.TTLCache[string, Preview]
}

// NewFetcher returns a Fetcher whose requests time out after timeout and whose
// results stay cached for cacheTTL. Close releases the cache goroutine.
func NewFetcher(timeout, cacheTTL time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		cache:  cache.New[string, Preview](cacheTTL, cacheTTL/2+time.Minute),
	}
}

// Close stops the cache cleanup goroutine.
func (f *Fetcher) Close() {
	f.cache.Close()
}

// Forget drops rawURL from the cache so the next Fetch goes to the network.
// The URL is normalized the way Fetch keys the cache.
func (f *Fetcher) Forget(rawURL string) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return
	}
	f.cache.Delete(u.String())
}

// Fetch returns the preview of rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Preview, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return Preview{}, err
	}
	key := u.String()

	if p, ok := f.cache.Get(key); ok {
		return p, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Preview{}, fmt.Errorf("fetch %s: unexpected status %d", key, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "text/html" && mediaType != "application/xhtml+xml") {
			return Preview{}, fmt.Errorf("%w: %s", ErrNotHTML, ct)
		}
	}

	// Redirects change the base for relative image URLs.
	final := resp.Request.URL

	p, err := Parse(io.LimitReader(resp.Body, MaxBodySize), final)
	if err != nil {
		return Preview{}, err
	}

	f.cache.Set(key, p)
	return p, nil
}

// ValidateURL parses rawURL and accepts only absolute http(s) URLs.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrUnsupportedURL
	}
	u.Fragment = ""
	return u, nil
}

// Parse reads an HTML document and extracts its preview. base resolves
// relative image URLs and is reported as Preview.URL unless the page
// declares og:url.
func Parse(r io.Reader, base *url.URL) (Preview, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to parse html: %w", err)
	}

	meta := make(map[string]string)
	var title string
	walk(doc, meta, &title)

	p := Preview{
		URL:         first(meta["og:url"], base.String()),
		Title:       first(meta["og:title"], meta["twitter:title"], title),
		Description: first(meta["og:description"], meta["twitter:description"], meta["description"]),
		ImageURL:    first(meta["og:image"], meta["og:image:url"], meta["twitter:image"], meta["twitter:image:src"]),
		SiteName:    first(meta["og:site_name"], meta["application-name"]),
	}

	if p.ImageURL != "" {
		if ref, err := url.Parse(p.ImageURL); err == nil {
			p.ImageURL = base.ResolveReference(ref).String()
		}
	}
	if p.SiteName == "" {
		p.SiteName = strings.TrimPrefix(base.Hostname(), "www.")
	}

	return p, nil
}

// walk collects <meta> tags keyed by property or name, and the first <title>.
func walk(n *html.Node, meta map[string]string, title *string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			key := strings.ToLower(getAttr(n, "property"))
			if key == "" {
				key = strings.ToLower(getAttr(n, "name"))
			}
			content := collapse(getAttr(n, "content"))
			if key != "" && content != "" {
				if _, seen := meta[key]; !seen {
					meta[key] = content
				}
			}
		case "title":
			if *title == "" && n.FirstChild != nil {
				*title = collapse(n.FirstChild.Data)
			}
		case "script", "style", "noscript":
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, meta, title)
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
