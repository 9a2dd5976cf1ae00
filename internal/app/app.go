// Package app owns the process-wide dependencies: the event store, the
// watermark store and the components built on them. One App lives from
// process start to stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PratikDhanave/event-mirror-service/internal/config"
	"github.com/PratikDhanave/event-mirror-service/internal/device"
	"github.com/PratikDhanave/event-mirror-service/internal/ingest"
	"github.com/PratikDhanave/event-mirror-service/internal/mixpanel"
	"github.com/PratikDhanave/event-mirror-service/internal/query"
	"github.com/PratikDhanave/event-mirror-service/internal/store"
	"github.com/PratikDhanave/event-mirror-service/internal/watermark"
)

type App struct {
	Config    config.Config
	Log       *slog.Logger
	Store     store.EventStore
	Marks     watermark.Store
	Remote    *mixpanel.Client
	Pipeline  *ingest.Pipeline
	Engine    *query.Engine
	Formatter *device.Formatter
}

// New opens storage and wires every component.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	st, err := store.Open(ctx, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	marks, err := watermark.Open(cfg.WatermarkPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open watermark store: %w", err)
	}
	return Wire(cfg, log, st, marks), nil
}

// Wire builds an App around already opened stores.
func Wire(cfg config.Config, log *slog.Logger, st store.EventStore, marks watermark.Store) *App {
	if log == nil {
		log = slog.Default()
	}
	remote := mixpanel.NewClient(mixpanel.Options{
		APISecret:         cfg.Mixpanel.APISecret,
		Token:             cfg.Mixpanel.Token,
		ExportURL:         cfg.Mixpanel.ExportURL,
		TrackURL:          cfg.Mixpanel.TrackURL,
		Location:          cfg.RemoteLocation,
		TimestampProperty: cfg.TimestampProperty,
	})
	engine := query.NewEngine(st)

	return &App{
		Config: cfg,
		Log:    log,
		Store:  st,
		Marks:  marks,
		Remote: remote,
		Pipeline: ingest.NewPipeline(remote, st, marks, ingest.Options{
			TrackedEvents:     cfg.TrackedEvents,
			TimestampProperty: cfg.TimestampProperty,
			Logger:            log,
		}),
		Engine:    engine,
		Formatter: device.NewFormatter(engine, cfg.TrackedEvents, cfg.DisplayLocation),
	}
}

// DisplayLayout maps the configured LCD size to a time layout.
func (a *App) DisplayLayout() string {
	if a.Config.DisplayLayout == config.Layout20x4 {
		return device.LayoutWide
	}
	return device.LayoutCompact
}

// Clear deletes every stored event and resets the watermark, so the next
// cycle starts without a floor. It waits for a running cycle to finish.
func (a *App) Clear(ctx context.Context) (int64, error) {
	return a.Pipeline.Reset(ctx, a.Store.Clear)
}

// TrackStart sends one tracked event announcing that the server started.
func (a *App) TrackStart(ctx context.Context, now time.Time) error {
	if a.Config.Mixpanel.Token == "" {
		return nil
	}
	return a.Remote.Track(ctx, a.Config.TrackedEvents[0], map[string]any{
		"city":      "Mangalore",
		"country":   "India",
		"date":      now.Format(time.RFC3339),
		"timestamp": now.UnixMilli(),
	})
}

// RefreshDisplay renders the newest tracked event on d. Having nothing to
// show is not an error.
func (a *App) RefreshDisplay(ctx context.Context, d device.Display) error {
	err := a.Formatter.Refresh(ctx, d, a.DisplayLayout())
	if errors.Is(err, device.ErrNoData) {
		return nil
	}
	return err
}

func (a *App) Close() error {
	return errors.Join(a.Marks.Close(), a.Store.Close())
}
