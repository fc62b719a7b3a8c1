// Package cmd defines and implements the CLI commands for the pricewatch
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aromano/pricewatch/internal/alert"
	"github.com/aromano/pricewatch/internal/archive"
	"github.com/aromano/pricewatch/internal/config"
	"github.com/aromano/pricewatch/internal/diff"
	"github.com/aromano/pricewatch/internal/fetch"
	"github.com/aromano/pricewatch/internal/logging"
	"github.com/aromano/pricewatch/internal/metrics"
	"github.com/aromano/pricewatch/internal/parse"
	"github.com/aromano/pricewatch/internal/store"
	"github.com/aromano/pricewatch/internal/store/memory"
	"github.com/aromano/pricewatch/internal/store/postgres"
	"github.com/aromano/pricewatch/internal/track"
	"github.com/aromano/pricewatch/internal/tracker"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App bundles the services commands depend on. Commands retrieve it from
// the command context, which lets tests inject fakes through newApp.
type App struct {
	Cfg      config.Config
	Logger   *zap.Logger
	Store    tracker.SnapshotStore
	Logs     tracker.LogStore
	Notifier tracker.Notifier
	Archiver tracker.Archiver

	closers []func()
}

// Close releases held resources in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp is the application factory. It's a variable so tests can replace
// it with a mock factory.
var newApp = buildApp

func buildApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	app := &App{Cfg: cfg, Logger: logger}
	app.closers = append(app.closers, func() {
		_ = logger.Sync()
	})

	if err := buildStore(ctx, app); err != nil {
		app.Close()
		return nil, err
	}
	if err := buildNotifier(ctx, app); err != nil {
		app.Close()
		return nil, err
	}
	if err := buildArchiver(ctx, app); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func buildStore(ctx context.Context, app *App) error {
	if app.Cfg.DB.DSN == "" {
		mem := memory.New()
		app.Store = mem
		app.Logs = mem
		return nil
	}
	pg, err := postgres.New(ctx, postgres.Config{
		DSN:             app.Cfg.DB.DSN,
		MaxConns:        app.Cfg.DB.MaxConns,
		MinConns:        app.Cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(app.Cfg.DB.MaxConnLifetimeMin) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	app.closers = append(app.closers, pg.Close)
	app.Logs = pg

	if app.Cfg.DB.SnapshotCache > 0 {
		cached, err := store.NewCached(pg, app.Cfg.DB.SnapshotCache)
		if err != nil {
			return fmt.Errorf("init snapshot cache: %w", err)
		}
		app.Store = cached
		return nil
	}
	app.Store = pg
	return nil
}

func buildNotifier(ctx context.Context, app *App) error {
	var notifiers []tracker.Notifier
	if app.Cfg.Telegram.Token != "" && app.Cfg.Telegram.ChatID != "" {
		tg, err := alert.NewTelegram(alert.TelegramConfig{
			Token:  app.Cfg.Telegram.Token,
			ChatID: app.Cfg.Telegram.ChatID,
		}, nil)
		if err != nil {
			return fmt.Errorf("init telegram: %w", err)
		}
		notifiers = append(notifiers, tg)
	}
	if app.Cfg.PubSub.ProjectID != "" && app.Cfg.PubSub.TopicName != "" {
		ps, err := alert.NewPubSub(ctx, app.Cfg.PubSub.ProjectID, app.Cfg.PubSub.TopicName)
		if err != nil {
			return fmt.Errorf("init pubsub: %w", err)
		}
		app.closers = append(app.closers, ps.Stop)
		notifiers = append(notifiers, ps)
	}
	if len(notifiers) > 0 {
		app.Notifier = alert.NewMux(app.Logger.Named("alert"), notifiers...)
	}
	return nil
}

func buildArchiver(ctx context.Context, app *App) error {
	switch {
	case app.Cfg.Archive.GCSBucket != "":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		app.closers = append(app.closers, func() {
			_ = client.Close()
		})
		gcs, err := archive.NewGCS(client, app.Cfg.Archive.GCSBucket)
		if err != nil {
			return fmt.Errorf("init gcs archive: %w", err)
		}
		app.Archiver = gcs
	case app.Cfg.Archive.Dir != "":
		fs, err := archive.NewFS(app.Cfg.Archive.Dir)
		if err != nil {
			return fmt.Errorf("init archive dir: %w", err)
		}
		app.Archiver = fs
	}
	return nil
}

// buildRunner assembles a cycle runner from the app services.
func buildRunner(app *App, opts track.Options) *track.Runner {
	opts.Diff = diff.Options{
		PriceThresholdPct:   app.Cfg.Diff.PriceThresholdPct,
		AlertOnAvailability: app.Cfg.Diff.AlertOnAvailability,
	}
	fetcher := fetch.New(fetch.Config{
		Timeout:          app.Cfg.FetchTimeout(),
		RetryCount:       app.Cfg.HTTP.RetryCount,
		BackoffBase:      app.Cfg.BackoffBase(),
		DefaultUserAgent: app.Cfg.Fetch.DefaultUserAgent,
		RotateUserAgents: app.Cfg.Fetch.RotateUserAgents,
		Proxy:            app.Cfg.Fetch.Proxy,
	}, app.Logger.Named("fetch"))

	runner := track.NewRunner(fetcher, parse.New(), app.Store, app.Logger.Named("track"), opts)
	if app.Logs != nil {
		runner = runner.WithLogStore(app.Logs)
	}
	if app.Notifier != nil {
		runner = runner.WithNotifier(app.Notifier)
	}
	if app.Archiver != nil {
		runner = runner.WithArchiver(app.Archiver)
	}
	return runner
}

func resolveApp(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey).(*App)
	if !ok || app == nil {
		return nil, errors.New("application services not initialized")
	}
	return app, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricewatch",
		Short: "Tracks product pages for price and availability changes.",
		Long: `pricewatch periodically fetches configured product pages, extracts
price and availability fields, compares them against the last stored
observation and raises alerts on significant changes.`,

		// Runs AFTER flags are parsed but BEFORE the subcommand's RunE.
		// Builds and injects the application services.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app, ok := cmd.Context().Value(appKey).(*App); ok && app != nil {
				app.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/pricewatch, $HOME/.pricewatch)")

	cmd.AddCommand(newTrackCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newDigestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pricewatch: %v\n", err)
		os.Exit(1)
	}
}
