package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aromano/pricewatch/internal/api"
	"github.com/aromano/pricewatch/internal/schedule"
	"github.com/aromano/pricewatch/internal/track"
)

// newDaemonCmd creates the 'daemon' subcommand: scheduled tracking plus
// the HTTP API.
func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Runs the tracker on a schedule with the HTTP API",
		Long: `Starts the recurring tracker. Each scheduled run covers the whole
target list with persistence and alerting enabled. An HTTP server exposes
health, metrics and latest-snapshot endpoints. The process drains cleanly
on SIGINT/SIGTERM.`,
		RunE: runDaemonCommand,
	}
	return cmd
}

func runDaemonCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if len(app.Cfg.Targets) == 0 {
		return errors.New("no targets configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := buildRunner(app, track.Options{
		Persist:     true,
		Notify:      true,
		TargetDelay: 2 * time.Second,
	})

	sched := schedule.New(app.Logger.Named("schedule"))
	job := schedule.Job{
		ID: "track-targets",
		// Runs under the signal context so an in-flight pass stops at the
		// next target boundary on shutdown.
		Run: func(context.Context) error {
			runner.RunList(ctx, app.Cfg.Targets)
			return nil
		},
	}
	if err := addScheduledJob(sched, job, app); err != nil {
		return err
	}

	apiServer := api.NewServer(app.Store, app.Cfg.Targets, app.Logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		app.Logger.Info("http server started", zap.Int("port", app.Cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	app.Logger.Info("scheduler started", zap.Int("targets", len(app.Cfg.Targets)))
	sched.Run(ctx)

	app.Logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("server shutdown error", zap.Error(err))
	}
	app.Logger.Info("shutdown complete")
	return nil
}

// addScheduledJob registers the tracking job under whichever recurrence
// form the configuration selects.
func addScheduledJob(sched *schedule.Scheduler, job schedule.Job, app *App) error {
	sc := app.Cfg.Schedule
	switch {
	case strings.TrimSpace(sc.Cron) != "":
		return sched.AddCronJob(job, sc.Cron)
	case strings.TrimSpace(sc.DailyAt) != "":
		return sched.AddDailyAt(job, sc.DailyAt)
	default:
		return sched.AddIntervalJob(job, sc.EveryMinutes, sc.JitterSeconds)
	}
}
