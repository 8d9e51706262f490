package main

import (
	"time"

	"github.com/akinalp/atelier/config"
	"github.com/akinalp/atelier/handlers"
	"github.com/akinalp/atelier/render"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/ws"
)

// Handlers holds every HTTP handler.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Pages   *handlers.PageHandler
	SEO     *handlers.SEOHandler
	User    *handlers.UserHandler
	Section *handlers.SectionHandler
	Artwork *handlers.ArtworkHandler
	Order   *handlers.OrderHandler
	Press   *handlers.PressHandler
	Contact *handlers.ContactHandler
	Stats   *handlers.StatsHandler
	WS      *ws.Handler
}

func initHandlers(cfg *config.Config, svcs *Services, limiters *RateLimiters, renderer *render.Renderer, hub *ws.Hub, userRepo repository.UserRepository) *Handlers {
	cookies := handlers.SessionCookies{
		Secure:        cfg.Site.SecureCookies(),
		RefreshMaxAge: time.Duration(cfg.JWT.RefreshTokenExpiry) * 24 * time.Hour,
	}

	pages := handlers.NewPageHandler(renderer, svcs.SEO,
		handlers.SiteInfo{
			Name:          cfg.Site.Name,
			ArtistName:    cfg.Site.ArtistName,
			DefaultLocale: cfg.Site.DefaultLocale,
			Currency:      cfg.Store.Currency,
		},
		cookies,
		handlers.PageServices{
			Auth:     svcs.Auth,
			Sections: svcs.Section,
			Artworks: svcs.Artwork,
			Store:    svcs.Store,
			Press:    svcs.Press,
			Contact:  svcs.Contact,
			Stats:    svcs.Stats,
		},
		handlers.PageLimiters{
			Login:   limiters.Login,
			Order:   limiters.Order,
			Contact: limiters.Contact,
		},
	)

	return &Handlers{
		Auth:    handlers.NewAuthHandler(svcs.Auth, limiters.Login, cookies),
		Pages:   pages,
		SEO:     handlers.NewSEOHandler(svcs.Sitemap),
		User:    handlers.NewUserHandler(svcs.User),
		Section: handlers.NewSectionHandler(svcs.Section),
		Artwork: handlers.NewArtworkHandler(svcs.Artwork, svcs.Upload, cfg.Upload.MaxSize),
		Order:   handlers.NewOrderHandler(svcs.Store),
		Press:   handlers.NewPressHandler(svcs.Press),
		Contact: handlers.NewContactHandler(svcs.Contact),
		Stats:   handlers.NewStatsHandler(svcs.Stats),
		WS:      ws.NewHandler(hub, svcs.Auth, userRepo, cfg.Server.AllowedOrigins),
	}
}
