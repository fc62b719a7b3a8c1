package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aromano/pricewatch/internal/track"
)

// newDigestCmd creates the 'digest' subcommand: summarize stored state.
func newDigestCmd() *cobra.Command {
	var send bool

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Prints a summary of the latest stored snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if len(app.Cfg.Targets) == 0 {
				return errors.New("no targets configured")
			}
			runner := buildRunner(app, track.Options{})

			digest, err := runner.Digest(cmd.Context(), app.Cfg.Targets)
			if err != nil {
				return fmt.Errorf("build digest: %w", err)
			}
			cmd.Print(digest)

			if send {
				if app.Notifier == nil {
					return errors.New("no alert transport configured")
				}
				if err := app.Notifier.Send(cmd.Context(), digest); err != nil {
					return fmt.Errorf("send digest: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&send, "send", false, "also deliver the digest through the alert transports")

	return cmd
}
