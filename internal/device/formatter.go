package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PratikDhanave/event-mirror-service/internal/models"
)

// ErrNoData means no tracked event is stored yet.
var ErrNoData = errors.New("no data")

// LatestFinder is implemented by query.Engine.
type LatestFinder interface {
	Latest(ctx context.Context, names []string) (models.Event, bool, error)
}

// Formatter selects the newest tracked event and renders it.
type Formatter struct {
	finder  LatestFinder
	tracked []string
	loc     *time.Location
}

func NewFormatter(f LatestFinder, tracked []string, loc *time.Location) *Formatter {
	return &Formatter{finder: f, tracked: tracked, loc: loc}
}

// Latest renders the most recent tracked event with layout, or returns
// ErrNoData.
func (f *Formatter) Latest(ctx context.Context, layout string) (Frame, error) {
	ev, ok, err := f.finder.Latest(ctx, f.tracked)
	if err != nil {
		return Frame{}, fmt.Errorf("latest event: %w", err)
	}
	if !ok {
		return Frame{}, ErrNoData
	}
	return Render(ev, layout, f.loc), nil
}

// Display shows a frame on some output.
type Display interface {
	Show(ctx context.Context, f Frame) error
}

// LogDisplay writes frames to the log in place of a physical LCD.
type LogDisplay struct {
	Logger *slog.Logger
}

func (d LogDisplay) Show(_ context.Context, f Frame) error {
	l := d.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("display data", "line0", f.Line1, "line1", f.Line2)
	return nil
}

// Refresh renders the latest event with layout and shows it on d.
// ErrNoData leaves the display untouched.
func (f *Formatter) Refresh(ctx context.Context, d Display, layout string) error {
	frame, err := f.Latest(ctx, layout)
	if err != nil {
		return err
	}
	return d.Show(ctx, frame)
}
