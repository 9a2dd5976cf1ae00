package query

import (
	"context"
	"fmt"

	"github.com/PratikDhanave/event-mirror-service/internal/models"
	"github.com/PratikDhanave/event-mirror-service/internal/store"
)

// Finder is the read side of store.EventStore.
type Finder interface {
	Find(ctx context.Context, q store.Query) ([]models.Event, error)
}

// Filter is a REST-style event query. Zero values mean "no filter".
type Filter struct {
	Names   []string
	From    *int64
	To      *int64
	Columns []string
	// LatestOnly asks for the single most recent matching event.
	LatestOnly bool
}

// Engine answers event queries from storage. It only reads and never waits
// on a running sync cycle.
type Engine struct {
	store Finder
}

func NewEngine(s Finder) *Engine {
	return &Engine{store: s}
}

// QueryEvents returns matching events ordered by timestamp ascending, or,
// with LatestOnly, a slice holding exactly the newest match. A LatestOnly
// query that does not yield exactly one row returns an empty slice.
func (e *Engine) QueryEvents(ctx context.Context, f Filter) ([]models.Event, error) {
	q := store.Query{
		Names:   f.Names,
		From:    f.From,
		To:      f.To,
		Columns: f.Columns,
	}
	if len(q.Columns) == 0 {
		q.Columns = models.DefaultColumns
	}
	if f.LatestOnly {
		q.Descending = true
		q.Limit = 1
	}

	evs, err := e.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	if evs == nil || (f.LatestOnly && len(evs) != 1) {
		return []models.Event{}, nil
	}
	return evs, nil
}

// Latest returns the newest event among names, or ok=false when there is none.
func (e *Engine) Latest(ctx context.Context, names []string) (models.Event, bool, error) {
	evs, err := e.QueryEvents(ctx, Filter{Names: names, LatestOnly: true})
	if err != nil {
		return models.Event{}, false, err
	}
	if len(evs) != 1 {
		return models.Event{}, false, nil
	}
	return evs[0], true, nil
}
