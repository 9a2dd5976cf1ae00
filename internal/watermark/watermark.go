// Package watermark persists the single "last observed event time" of the
// ingestion pipeline across restarts.
//
// Reads never fail: an unset watermark reads as Absent and a storage error
// reads as ReadFailed. Both mean "no reliable floor". Writes never fail
// either; errors are logged so a sync cycle is never aborted by them.
package watermark

import (
	"context"
	"path/filepath"
	"strings"
)

const (
	// Absent is returned when no watermark has been stored yet.
	Absent int64 = 1
	// ReadFailed is returned when the backing storage could not be read.
	ReadFailed int64 = 2
)

// key under which the watermark is stored.
const key = "update"

// Store is the watermark storage contract. There is no cross-process
// locking; a single ingestion process is assumed.
type Store interface {
	Read(ctx context.Context) int64
	Write(ctx context.Context, ms int64)
	Clear(ctx context.Context) error
	Close() error
}

// IsSentinel reports whether v is one of the "no reliable floor" values.
func IsSentinel(v int64) bool {
	return v <= ReadFailed
}

// Open picks the backend from the path: a ".json" suffix selects the file
// store, anything else a SQLite database.
func Open(path string) (Store, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewFileStore(path)
	}
	return NewSQLiteStore(path)
}

// valid reports whether ms may be stored. Only positive values are.
func valid(ms int64) bool {
	return ms > 0
}
