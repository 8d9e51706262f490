package main

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/atelier/config"
	"github.com/akinalp/atelier/pkg/crypto"
	"github.com/akinalp/atelier/pkg/email"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/pkg/linkpreview"
	"github.com/akinalp/atelier/pkg/ratelimit"
	"github.com/akinalp/atelier/pkg/seo"
	"github.com/akinalp/atelier/services"
	"github.com/akinalp/atelier/ws"
)

// Services holds every service instance plus the resources they own.
type Services struct {
	Auth     services.AuthService
	User     services.UserService
	Section  services.SectionService
	Artwork  services.ArtworkService
	Upload   services.UploadService
	Store    services.StoreService
	Press    services.PressService
	Contact  services.ContactService
	Stats    services.StatsService
	Sitemap  services.SitemapService
	SEO      seo.Builder
	fetcher  *linkpreview.Fetcher
	limiters *RateLimiters
}

// RateLimiters guard the abuse-prone endpoints.
type RateLimiters struct {
	Login   *ratelimit.Limiter
	Order   *ratelimit.Limiter
	Contact *ratelimit.Limiter
}

// Close stops every background goroutine the services started.
func (s *Services) Close() {
	s.Store.Close()
	s.fetcher.Close()
	if s.limiters != nil {
		s.limiters.Login.Close()
		s.limiters.Order.Close()
		s.limiters.Contact.Close()
	}
}

// newMailer returns the Resend sender, or a NopSender that only logs when
// email is not configured.
func newMailer(cfg *config.Config) email.Sender {
	log := zap.L().Named("main")
	if !cfg.Email.Enabled() {
		log.Info("email disabled (RESEND_API_KEY, EMAIL_FROM or EMAIL_ARTIST_INBOX not set)")
		return email.NopSender{}
	}
	log.Info("email enabled", zap.String("from", cfg.Email.FromEmail))
	return email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Site.Name, cfg.Email.ArtistInbox)
}

// initServices builds the service layer. hub may be a ws.NopBroadcaster for
// CLI commands that do not serve HTTP.
func initServices(cfg *config.Config, db *sql.DB, repos *Repositories, hub ws.Broadcaster) (*Services, error) {
	mailer := newMailer(cfg)

	var storeKey []byte
	if cfg.Store.EncryptionKey != "" {
		key, err := crypto.DeriveKey(cfg.Store.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid STORE_ENCRYPTION_KEY: %w", err)
		}
		storeKey = key
	} else {
		zap.L().Named("main").Warn("STORE_ENCRYPTION_KEY not set, buyer addresses are stored in plain text")
	}

	uploadService, err := services.NewUploadService(cfg.Upload.Dir, cfg.Upload.MaxSize)
	if err != nil {
		return nil, err
	}

	seoBuilder := seo.Builder{
		SiteName:      cfg.Site.Name,
		BaseURL:       cfg.Site.BaseURL,
		Locales:       i18n.SupportedLanguages,
		DefaultLocale: cfg.Site.DefaultLocale,
	}

	fetcher := linkpreview.NewFetcher(cfg.Press.FetchTimeout, cfg.Press.CacheTTL)

	authService := services.NewAuthService(repos.User, repos.Session, repos.ResetToken, mailer, services.AuthOptions{
		JWTSecret:         cfg.JWT.Secret,
		AccessExpiry:      time.Duration(cfg.JWT.AccessTokenExpiry) * time.Minute,
		RefreshExpiry:     time.Duration(cfg.JWT.RefreshTokenExpiry) * 24 * time.Hour,
		AllowRegistration: cfg.Auth.AllowRegistration,
		BaseURL:           cfg.Site.BaseURL,
	})

	storeService := services.NewStoreService(db, repos.Artwork, repos.Order, mailer, hub, services.StoreOptions{
		HoldDuration:  cfg.Store.HoldDuration,
		EncryptionKey: storeKey,
		AdminURL:      seoBuilder.URL(cfg.Site.DefaultLocale, "/admin"),
	})

	return &Services{
		Auth:    authService,
		User:    services.NewUserService(repos.User, hub),
		Section: services.NewSectionService(repos.Section, hub, cfg.Site.DefaultLocale),
		Artwork: services.NewArtworkService(db, repos.Artwork, hub, cfg.Store.Currency),
		Upload:  uploadService,
		Store:   storeService,
		Press:   services.NewPressService(repos.Press, fetcher, hub, cfg.Press.RefreshConcurrency),
		Contact: services.NewContactService(repos.Contact, mailer, hub),
		Stats:   services.NewStatsService(repos.Stats, hub),
		Sitemap: services.NewSitemapService(repos.Artwork, seoBuilder),
		SEO:     seoBuilder,
		fetcher: fetcher,
	}, nil
}

// initRateLimiters creates the limiters used by serve.
func initRateLimiters() *RateLimiters {
	return &RateLimiters{
		Login:   ratelimit.New(5, 2*time.Minute),
		Order:   ratelimit.New(5, 10*time.Minute),
		Contact: ratelimit.New(3, 10*time.Minute),
	}
}
