package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/aromano/pricewatch/internal/track"
)

// newWatchCmd creates the 'watch' subcommand: one pass over all targets.
func newWatchCmd() *cobra.Command {
	var (
		persist     bool
		notify      bool
		delaySecond int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Runs one tracking pass over the configured target list",
		Long: `Runs a tracking cycle for every URL in the targets list. A failing
target is logged and skipped; the pass always covers the whole list.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if len(app.Cfg.Targets) == 0 {
				return errors.New("no targets configured")
			}
			runner := buildRunner(app, track.Options{
				Persist:     persist,
				Notify:      notify,
				TargetDelay: time.Duration(delaySecond) * time.Second,
			})

			reports := runner.RunList(cmd.Context(), app.Cfg.Targets)
			changed := 0
			for _, report := range reports {
				if report.Diff.Changed {
					changed++
				}
			}
			cmd.Printf("tracked %d targets, %d changed\n", len(reports), changed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&persist, "persist", true, "append new snapshots to the store")
	cmd.Flags().BoolVar(&notify, "notify", true, "send alerts on detected changes")
	cmd.Flags().IntVar(&delaySecond, "delay-seconds", 2, "pause between consecutive targets")

	return cmd
}
