package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/event-mirror-service/internal/config"
	"github.com/PratikDhanave/event-mirror-service/internal/device"
	"github.com/PratikDhanave/event-mirror-service/internal/models"
	"github.com/PratikDhanave/event-mirror-service/internal/query"
	"github.com/PratikDhanave/event-mirror-service/internal/watermark"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.DBURL = "sqlite://" + filepath.Join(dir, "events.db")
	cfg.WatermarkPath = filepath.Join(dir, "watermark.db")
	cfg.RemoteLocation = time.UTC
	cfg.DisplayLocation = time.UTC
	return cfg
}

func newApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_OpensStores(t *testing.T) {
	a := newApp(t, testConfig(t))
	require.NoError(t, a.Store.Ping(context.Background()))
	assert.Equal(t, watermark.Absent, a.Marks.Read(context.Background()))
}

func TestNew_BadWatermarkPath(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.WatermarkPath = filepath.Join(blocker, "watermark.db")
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestDisplayLayout(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, device.LayoutCompact, (&App{Config: cfg}).DisplayLayout())

	cfg.DisplayLayout = config.Layout20x4
	assert.Equal(t, device.LayoutWide, (&App{Config: cfg}).DisplayLayout())
}

func TestClear_ResetsEventsAndWatermark(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(t))

	require.NoError(t, a.Store.Insert(ctx, models.Event{Name: "Reply", City: "a", Country: "b", Date: "d", Timestamp: 5}))
	a.Marks.Write(ctx, 1451606400000)

	n, err := a.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, watermark.Absent, a.Marks.Read(ctx))

	evs, err := a.Engine.QueryEvents(ctx, queryAll)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

type lines struct{ frames []device.Frame }

func (l *lines) Show(_ context.Context, f device.Frame) error {
	l.frames = append(l.frames, f)
	return nil
}

func TestRefreshDisplay(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(t))
	d := &lines{}

	// Nothing stored yet is not an error and shows nothing.
	require.NoError(t, a.RefreshDisplay(ctx, d))
	assert.Empty(t, d.frames)

	require.NoError(t, a.Store.Insert(ctx, models.Event{
		Name: "Reply", City: "Mangalore", Country: "India", Date: "x", Timestamp: 1451606400000,
	}))
	require.NoError(t, a.RefreshDisplay(ctx, d))
	require.Len(t, d.frames, 1)
	assert.Equal(t, device.Frame{Line1: "Reply, 00:00", Line2: "Mangalore, India"}, d.frames[0])
}

func TestTrackStart(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := base64.StdEncoding.DecodeString(r.URL.Query().Get("data"))
		if err == nil {
			_ = json.Unmarshal(raw, &got)
		}
		io.WriteString(w, "1")
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	cfg.Mixpanel.Token = "tok"
	cfg.Mixpanel.TrackURL = srv.URL
	a := newApp(t, cfg)

	now := time.UnixMilli(1451606400000).UTC()
	require.NoError(t, a.TrackStart(context.Background(), now))

	require.NotNil(t, got)
	assert.Equal(t, "Reply", got["event"])
	props := got["properties"].(map[string]any)
	assert.Equal(t, "Mangalore", props["city"])
	assert.Equal(t, "tok", props["token"])
	assert.Equal(t, float64(1451606400000), props["timestamp"])
	assert.NotEmpty(t, props["$insert_id"])
}

func TestTrackStart_NoToken(t *testing.T) {
	a := newApp(t, testConfig(t))
	assert.NoError(t, a.TrackStart(context.Background(), time.Now()))
}

var queryAll = query.Filter{}
