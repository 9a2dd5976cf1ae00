package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrSkip matches every *SkipError via errors.Is.
var ErrSkip = errors.New("record skipped")

// SkipError explains why a remote record was dropped.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "record skipped: " + e.Reason }

func (e *SkipError) Is(target error) bool { return target == ErrSkip }

func skip(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// RemoteRecord is one line of the export response:
// {"event": "...", "properties": {...}}.
type RemoteRecord struct {
	Event      string                     `json:"event"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// ParseRecord strictly decodes one export line into an Event.
//
// tsProp names the property holding the millisecond timestamp. Any missing
// or empty required field yields a *SkipError; the caller never sees a
// partially populated Event.
func ParseRecord(line []byte, tsProp string) (Event, error) {
	var rec RemoteRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return Event{}, skip("invalid json: %v", err)
	}
	if strings.TrimSpace(rec.Event) == "" {
		return Event{}, skip("missing event name")
	}

	ts, err := propInt(rec.Properties, tsProp)
	if err != nil {
		return Event{}, err
	}
	city, err := propString(rec.Properties, "city")
	if err != nil {
		return Event{}, err
	}
	country, err := propString(rec.Properties, "country")
	if err != nil {
		return Event{}, err
	}
	date, err := propString(rec.Properties, "date")
	if err != nil {
		return Event{}, err
	}

	return Event{
		Name:      rec.Event,
		City:      city,
		Country:   country,
		Date:      date,
		Timestamp: ts,
	}, nil
}

func propString(props map[string]json.RawMessage, key string) (string, error) {
	raw, ok := props[key]
	if !ok {
		return "", skip("missing %s", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", skip("%s is not a string", key)
	}
	if strings.TrimSpace(s) == "" {
		return "", skip("empty %s", key)
	}
	return s, nil
}

// propInt accepts a JSON number or a numeric string. Zero counts as absent.
func propInt(props map[string]json.RawMessage, key string) (int64, error) {
	raw, ok := props[key]
	if !ok {
		return 0, skip("missing %s", key)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return 0, skip("%s is not a number", key)
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, skip("%s is not a number", key)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, skip("%s out of range", key)
		}
		v = int64(f)
	}
	if v == 0 {
		return 0, skip("empty %s", key)
	}
	return v, nil
}
