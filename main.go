// atelier serves an artist's portfolio: the public site in every supported
// language, the store, and the admin JSON API with its live feed.
//
// Startup order for serve:
//  1. Config and logger (PersistentPreRunE)
//  2. Database and migrations
//  3. Repositories, then services (the hub is passed as ws.Broadcaster)
//  4. Handlers and routes
//  5. HTTP server with graceful shutdown
//
// The other commands reuse steps 1-3 without the hub.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/akinalp/atelier/config"
	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/ws"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "Portfolio, store and CMS for a single artist",
	Long: `atelier serves a multilingual portfolio site with a small store,
a press page and an admin area.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(logger)

		if err := i18n.LoadEmbedded(); err != nil {
			return fmt.Errorf("failed to load translations: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// openServices opens the database and builds the service layer for commands
// that do not serve HTTP. The caller closes both.
func openServices() (*database.DB, *Services, error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	svcs, err := initServices(cfg, db.Conn, initRepositories(db.Conn), ws.NopBroadcaster{})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, svcs, nil
}

func main() {
	rootCmd.AddCommand(serveCmd, adminCmd, seedCmd, sitemapCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
