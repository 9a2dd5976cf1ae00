package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/event-mirror-service/internal/app"
)

// NewClearCommand creates the clear command.
func NewClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored events and reset the watermark",
		Long: `Delete every mirrored event and reset the watermark so the next sync
starts from the beginning of the export window.

Example:
  event-mirror clear`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), opts.Config, opts.Logger)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d events\n", n)
			return nil
		},
	}
}
