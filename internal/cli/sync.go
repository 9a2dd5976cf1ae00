package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/event-mirror-service/internal/app"
	"github.com/PratikDhanave/event-mirror-service/internal/ingest"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Latest bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and exit",
		Long: `Fetch tracked events newer than the stored watermark, insert them and
advance the watermark, exactly once.

Example:
  event-mirror sync
  event-mirror sync --latest`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Config.SyncEnabled() {
				return fmt.Errorf("sync: MIXPANEL_API_SECRET not set")
			}
			a, err := app.New(cmd.Context(), opts.Config, opts.Logger)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Pipeline.SyncOnce(cmd.Context(), opts.Latest)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "process only the newest record of the response")

	return cmd
}

func printReport(w io.Writer, rep ingest.Report) {
	fmt.Fprintf(w, "watermark %d -> %d\n", rep.Previous, rep.Next)
	fmt.Fprintf(w, "records %d: inserted %d, skipped %d, failed %d\n",
		rep.Lines, rep.Inserted, rep.Skipped, rep.Failed)
}
