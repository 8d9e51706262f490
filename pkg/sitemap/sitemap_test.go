package sitemap

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/atelier/pkg/seo"
)

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []Entry{
		{
			Loc:        "https://ada.example/en/",
			ChangeFreq: "weekly",
			Priority:   1,
			Alternates: []seo.Alternate{
				{Lang: "en", URL: "https://ada.example/en/"},
				{Lang: "fr", URL: "https://ada.example/fr/"},
			},
		},
		{
			Loc:     "https://ada.example/en/artworks/blue",
			LastMod: time.Date(2026, 5, 1, 23, 0, 0, 0, time.FixedZone("x", -2*3600)),
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`)
	assert.Contains(t, out, `xmlns:xhtml="http://www.w3.org/1999/xhtml"`)
	assert.Contains(t, out, `<xhtml:link rel="alternate" hreflang="fr" href="https://ada.example/fr/"></xhtml:link>`)
	assert.Contains(t, out, "<priority>1.0</priority>")
	assert.Contains(t, out, "<lastmod>2026-05-02</lastmod>", "lastmod is UTC")

	var parsed struct {
		URLs []struct {
			Loc string `xml:"loc"`
		} `xml:"url"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &parsed))
	assert.Len(t, parsed.URLs, 2)
}

func TestRobots(t *testing.T) {
	got := Robots("https://ada.example", []string{"en", "fr"})

	assert.Contains(t, got, "User-agent: *\n")
	assert.Contains(t, got, "Disallow: /admin\n")
	assert.Contains(t, got, "Disallow: /api/\n")
	assert.Contains(t, got, "Disallow: /fr/admin\n")
	assert.True(t, strings.HasSuffix(got, "Sitemap: https://ada.example/sitemap.xml\n"))
}
