// Package ingest mirrors remote export data into the event store.
//
// One sync cycle reads the watermark, fetches every tracked event newer than
// it (less a one second overlap), inserts each well-formed record and
// finally writes the largest timestamp seen back as the new watermark.
// Cycles never overlap: a cycle started while another runs is skipped.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/PratikDhanave/event-mirror-service/internal/mixpanel"
	"github.com/PratikDhanave/event-mirror-service/internal/models"
	"github.com/PratikDhanave/event-mirror-service/internal/watermark"
)

// ErrSyncInProgress is returned when a cycle is requested while one runs.
var ErrSyncInProgress = errors.New("sync already in progress")

const (
	// overlap is subtracted from the watermark so events stamped exactly at
	// the previous maximum are fetched again rather than lost.
	overlap = int64(time.Second / time.Millisecond)
	// maxFutureSkew bounds how far ahead of the clock a watermark may be
	// before it is distrusted.
	maxFutureSkew = 24 * time.Hour
)

// Remote is the export API as seen by the pipeline.
type Remote interface {
	BuildRequestURL(events []string, since int64) (string, error)
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Inserter is the write side of store.EventStore.
type Inserter interface {
	Insert(ctx context.Context, ev models.Event) error
}

type Options struct {
	TrackedEvents     []string
	TimestampProperty string
	Now               func() time.Time
	Logger            *slog.Logger
}

// Report summarizes one cycle.
type Report struct {
	// Previous is the watermark read at the start of the cycle.
	Previous int64
	// Since is the floor sent to the remote; 0 means none.
	Since int64
	// Next is the watermark written at the end of the cycle.
	Next int64
	// Lines counts non-empty records in the response.
	Lines    int
	Inserted int
	Skipped  int
	Failed   int
}

// Pipeline is the sole writer of both the watermark and the event store.
type Pipeline struct {
	remote Remote
	events Inserter
	marks  watermark.Store
	opts   Options
	log    *slog.Logger

	mu sync.Mutex
}

func NewPipeline(remote Remote, events Inserter, marks watermark.Store, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TimestampProperty == "" {
		opts.TimestampProperty = "timestamp"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		remote: remote,
		events: events,
		marks:  marks,
		opts:   opts,
		log:    opts.Logger.With("component", "ingest"),
	}
}

// SyncOnce runs one cycle. With onlyLatest only the last record of the
// response is processed.
//
// A fetch failure aborts the cycle and leaves the watermark untouched.
// Malformed records and failed inserts are counted in the Report and never
// abort the cycle.
func (p *Pipeline) SyncOnce(ctx context.Context, onlyLatest bool) (Report, error) {
	if !p.mu.TryLock() {
		return Report{}, ErrSyncInProgress
	}
	defer p.mu.Unlock()

	now := p.opts.Now()
	p.log.Info("sync started", "only_latest", onlyLatest)

	var rep Report
	rep.Previous = p.marks.Read(ctx)
	rep.Since = floor(rep.Previous, now)

	reqURL, err := p.remote.BuildRequestURL(p.opts.TrackedEvents, rep.Since)
	if err != nil {
		return rep, fmt.Errorf("build export url: %w", err)
	}

	body, err := p.remote.Fetch(ctx, reqURL)
	if err != nil {
		attrs := []any{"error", err}
		var se *mixpanel.StatusError
		if errors.As(err, &se) {
			attrs = append(attrs, "status", se.Status, "body", se.Body)
		}
		p.log.Error("export fetch failed", attrs...)
		return rep, fmt.Errorf("fetch export: %w", err)
	}

	lines := splitRecords(body)
	rep.Lines = len(lines)
	if onlyLatest && len(lines) > 0 {
		lines = lines[len(lines)-1:]
	}

	// Seeded with now so an empty response still advances the watermark.
	maxSeen := now.UnixMilli()
	for _, line := range lines {
		ev, err := models.ParseRecord(line, p.opts.TimestampProperty)
		if err != nil {
			rep.Skipped++
			p.log.Debug("record skipped", "error", err)
			continue
		}
		if !slices.Contains(p.opts.TrackedEvents, ev.Name) {
			rep.Skipped++
			p.log.Debug("record skipped", "error", "untracked event", "name", ev.Name)
			continue
		}

		if err := p.events.Insert(ctx, ev); err != nil {
			rep.Failed++
			p.log.Error("event insert failed", "name", ev.Name, "timestamp", ev.Timestamp, "error", err)
		} else {
			rep.Inserted++
		}
		if ev.Timestamp > maxSeen {
			maxSeen = ev.Timestamp
		}
	}

	// Never move a trusted watermark backwards.
	if rep.Since > 0 && rep.Previous > maxSeen {
		maxSeen = rep.Previous
	}
	p.marks.Write(ctx, maxSeen)
	rep.Next = maxSeen

	p.log.Info("sync finished",
		"previous", rep.Previous,
		"next", rep.Next,
		"rows", rep.Lines,
		"inserted", rep.Inserted,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
	)
	return rep, nil
}

// Reset clears the watermark, and the events through clearEvents when it is
// non-nil, once any running cycle has finished. Holding the cycle lock keeps
// an in-flight cycle from writing its watermark over the reset.
func (p *Pipeline) Reset(ctx context.Context, clearEvents func(context.Context) (int64, error)) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var n int64
	if clearEvents != nil {
		var err error
		if n, err = clearEvents(ctx); err != nil {
			return 0, fmt.Errorf("clear events: %w", err)
		}
	}
	if err := p.marks.Clear(ctx); err != nil {
		return n, fmt.Errorf("clear watermark: %w", err)
	}
	p.log.Info("sync state reset", "events", n)
	return n, nil
}

// floor turns a stored watermark into the remote filter value. Sentinels
// and implausible future values give 0 (no filter); otherwise one second of
// overlap is subtracted.
func floor(mark int64, now time.Time) int64 {
	if watermark.IsSentinel(mark) {
		return 0
	}
	if mark > now.Add(maxFutureSkew).UnixMilli() {
		return 0
	}
	if mark <= overlap {
		return 0
	}
	return mark - overlap
}

// splitRecords returns the non-empty lines of a newline-delimited body.
// The trailing empty line of the export format is not a record.
func splitRecords(body []byte) [][]byte {
	var out [][]byte
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out
}
