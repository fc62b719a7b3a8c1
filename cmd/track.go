package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aromano/pricewatch/internal/track"
)

// newTrackCmd creates the 'track' subcommand: one cycle for one URL.
func newTrackCmd() *cobra.Command {
	var (
		url          string
		persist      bool
		notify       bool
		notifyAlways bool
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Runs a single tracking cycle for one URL",
		Long: `Fetches the given product page once, diffs it against the last
stored observation and prints the resulting report as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			runner := buildRunner(app, track.Options{
				Persist:      persist,
				Notify:       notify,
				NotifyAlways: notifyAlways,
			})

			report, err := runner.RunCycle(cmd.Context(), url)
			if err != nil {
				return fmt.Errorf("run cycle: %w", err)
			}

			out, err := json.MarshalIndent(map[string]any{
				"cycle_id": report.CycleID,
				"snapshot": report.Snapshot,
				"changed":  report.Diff.Changed,
				"summary":  report.Diff.Summary,
				"alerted":  report.Alerted,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "product page URL to track")
	cmd.Flags().BoolVar(&persist, "persist", false, "append the new snapshot to the store")
	cmd.Flags().BoolVar(&notify, "notify", false, "send an alert when a change is detected")
	cmd.Flags().BoolVar(&notifyAlways, "notify-always", false, "send an alert even when nothing changed")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
