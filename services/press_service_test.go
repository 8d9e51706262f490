package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/pkg/linkpreview"
	"github.com/akinalp/atelier/pkg/seo"
	"github.com/akinalp/atelier/repository"
)

// pressSite serves articles whose title carries a version counter.
func pressSite(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var version atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><head>
<meta property="og:title" content="Interview v%d">
<meta property="og:description" content="A studio visit">
<meta property="og:image" content="/cover.jpg">
<meta property="og:site_name" content="Arts Daily">
</head></html>`, version.Load())
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &version
}

func TestPressService(t *testing.T) {
	srv, version := pressSite(t)
	db := newTestDB(t)
	hub := &recordingHub{}
	fetcher := linkpreview.NewFetcher(2*time.Second, time.Hour)
	t.Cleanup(fetcher.Close)
	svc := NewPressService(repository.NewSQLitePressRepo(db.Conn), fetcher, hub, 2)
	ctx := adminCtx()

	_, err := svc.Create(memberCtx(), &models.CreatePressRequest{URL: srv.URL + "/article"})
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	item, err := svc.Create(ctx, &models.CreatePressRequest{URL: srv.URL + "/article", Outlet: "Arts Daily Mag"})
	require.NoError(t, err)
	assert.Equal(t, "Interview v0", item.Title)
	assert.Equal(t, "A studio visit", item.Description)
	assert.Equal(t, srv.URL+"/cover.jpg", item.ImageURL)
	assert.Equal(t, "Arts Daily Mag", item.Source())
	assert.True(t, item.Published)
	assert.NotNil(t, item.FetchedAt)

	_, err = svc.Create(ctx, &models.CreatePressRequest{URL: srv.URL + "/article"})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)

	// A dead link is still saved.
	hidden := false
	broken, err := svc.Create(ctx, &models.CreatePressRequest{
		URL: srv.URL + "/broken", Kind: models.PressKindNews, Title: "Kept title", Published: &hidden,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kept title", broken.Title)
	assert.Nil(t, broken.FetchedAt)

	version.Store(1)
	refreshed, err := svc.Refresh(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Interview v1", refreshed.Title)

	_, err = svc.Refresh(ctx, broken.ID)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	version.Store(2)
	result, err := svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Refreshed)
	assert.Equal(t, 1, result.Failed)

	published, err := svc.ListPublished(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "Interview v2", published[0].Title)

	news, err := svc.ListPublished(context.Background(), models.PressKindNews)
	require.NoError(t, err)
	assert.Empty(t, news)

	visible := true
	_, err = svc.Update(ctx, broken.ID, &models.UpdatePressRequest{Published: &visible})
	require.NoError(t, err)
	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	preview, err := svc.Preview(ctx, srv.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, "Arts Daily", preview.SiteName)
	_, err = svc.Preview(ctx, "ftp://example.com/file")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	require.NoError(t, svc.Delete(ctx, broken.ID))
	assert.ErrorIs(t, svc.Delete(ctx, broken.ID), pkg.ErrNotFound)
	assert.Contains(t, hub.ops(), "press_delete")
}

func TestContactService(t *testing.T) {
	db := newTestDB(t)
	hub := &recordingHub{}
	mailer := &recordingMailer{}
	svc := NewContactService(repository.NewSQLiteContactRepo(db.Conn), mailer, hub)
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, &models.ContactRequest{
		Name: "Bot", Email: "bot@spam.example", Message: "buy now", Website: "http://spam.example",
	}))
	assert.Empty(t, mailer.contacts)

	err := svc.Submit(ctx, &models.ContactRequest{Name: "Camille", Email: "bad", Message: "Hello"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	require.NoError(t, svc.Submit(ctx, &models.ContactRequest{
		Name: "Camille", Email: "camille@example.com", Message: "Is the blue painting still available?",
		Locale: "xx", IP: "203.0.113.9",
	}))
	require.Len(t, mailer.contacts, 1)
	assert.Equal(t, "camille@example.com", mailer.contacts[0].FromEmail)
	assert.Equal(t, []string{"contact_create"}, hub.ops())

	_, err = svc.List(memberCtx(), 0)
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	msgs, err := svc.List(adminCtx(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, i18n.DefaultLanguage, msgs[0].Locale)
	assert.False(t, msgs[0].IsRead)

	require.NoError(t, svc.MarkRead(adminCtx(), msgs[0].ID, true))
	require.NoError(t, svc.Delete(adminCtx(), msgs[0].ID))
	assert.ErrorIs(t, svc.Delete(adminCtx(), msgs[0].ID), pkg.ErrNotFound)
}

func TestSitemapAndStats(t *testing.T) {
	db := newTestDB(t)
	artworks := repository.NewSQLiteArtworkRepo(db.Conn)
	ctx := context.Background()

	for _, a := range []*models.Artwork{
		{Slug: "visible", Title: "Visible", Currency: "EUR", Status: models.ArtworkNotForSale, Published: true},
		{Slug: "draft", Title: "Draft", Currency: "EUR", Status: models.ArtworkNotForSale},
	} {
		require.NoError(t, artworks.Create(ctx, a))
	}

	builder := seo.Builder{
		SiteName: "Atelier", BaseURL: "https://atelier.example",
		Locales: i18n.SupportedLanguages, DefaultLocale: "en",
	}
	svc := NewSitemapService(artworks, builder)

	xml, err := svc.Sitemap(ctx)
	require.NoError(t, err)
	doc := string(xml)
	assert.Contains(t, doc, "<loc>https://atelier.example/fr/artworks/visible</loc>")
	assert.Contains(t, doc, "<loc>https://atelier.example/en/</loc>")
	assert.Contains(t, doc, `hreflang="x-default"`)
	assert.NotContains(t, doc, "draft")
	assert.Equal(t, (len(staticPages)+1)*len(i18n.SupportedLanguages), strings.Count(doc, "<url>"))

	robots := svc.Robots()
	assert.Contains(t, robots, "Disallow: /api/")
	assert.Contains(t, robots, "Sitemap: https://atelier.example/sitemap.xml")

	hub := &recordingHub{online: []string{"admin-1"}}
	stats := NewStatsService(repository.NewSQLiteStatsRepo(db.Conn), hub)
	_, err = stats.Dashboard(memberCtx())
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	view, err := stats.Dashboard(adminCtx())
	require.NoError(t, err)
	assert.Equal(t, 2, view.Artworks)
	assert.Equal(t, 1, view.Published)
	assert.Equal(t, 1, view.OnlineAdmins)
}
