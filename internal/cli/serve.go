package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/event-mirror-service/internal/app"
	"github.com/PratikDhanave/event-mirror-service/internal/device"
	"github.com/PratikDhanave/event-mirror-service/internal/handlers"
	"github.com/PratikDhanave/event-mirror-service/internal/httpserver"
	"github.com/PratikDhanave/event-mirror-service/internal/ingest"
)

// stopDelay lets the /stop response reach the client before shutdown.
const stopDelay = time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync scheduler and the REST API",
		Long: `Run the periodic sync against the remote export API and serve the
mirrored events over HTTP until interrupted or GET /stop is called.

Sync is disabled when no API secret is configured; the REST API still
serves whatever is already stored.

Example:
  event-mirror serve
  DB_URL=postgres://localhost/events event-mirror serve --log-format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *RootOptions) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, opts.Config, opts.Logger)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.Log

	var wg sync.WaitGroup
	defer wg.Wait()

	if a.Config.Mixpanel.Token != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.TrackStart(ctx, time.Now()); err != nil {
				log.Warn("start event not tracked", "error", err)
				return
			}
			log.Info("start event tracked")
		}()
	}

	if a.Config.SyncEnabled() {
		sched := ingest.NewScheduler(a.Pipeline, a.Config.SyncInterval)
		display := device.LogDisplay{Logger: log}
		sched.AfterCycle = func(ctx context.Context, _ ingest.Report) {
			if err := a.RefreshDisplay(ctx, display); err != nil {
				log.Error("display refresh failed", "error", err)
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	} else {
		log.Warn("MIXPANEL_API_SECRET not set, remote sync disabled")
	}

	router := httpserver.NewRouter(httpserver.Deps{
		Store:    a.Store,
		Events:   a.Engine,
		Frames:   a.Formatter,
		Location: a.Config.DisplayLocation,
		Admin: handlers.Admin{
			Clear:     a.Clear,
			Stop:      stop,
			StopDelay: stopDelay,
		},
		Log: log,
	})

	err = httpserver.Serve(ctx, ":"+a.Config.Port, router, log, nil)
	// Release the scheduler when the server exits on its own.
	stop()
	return err
}
