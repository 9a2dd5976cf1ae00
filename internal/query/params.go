package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ParseList splits a single token or a comma separated list. Surrounding
// whitespace is trimmed and empty items are dropped, so "a" and "a,b"
// are both well-formed lists.
func ParseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// timeLayouts are tried in order for from/to values that are not plain
// millisecond numbers. Layouts without an offset are read in the caller's
// location.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTime converts a from/to parameter to epoch milliseconds. A bare
// integer is taken as milliseconds. ok is false for anything unparseable.
func ParseTime(s string, loc *time.Location) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, true
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// ParseFilter reads name, cols, from, to and last from REST query values.
// Unparseable from/to values are ignored rather than rejected. last is
// honoured when present with a non-empty value.
func ParseFilter(v url.Values, loc *time.Location) Filter {
	var f Filter
	if s := v.Get("name"); s != "" {
		f.Names = ParseList(s)
	}
	if s := v.Get("cols"); s != "" {
		f.Columns = ParseList(s)
	}
	if ms, ok := ParseTime(v.Get("from"), loc); ok {
		f.From = &ms
	}
	if ms, ok := ParseTime(v.Get("to"), loc); ok {
		f.To = &ms
	}
	f.LatestOnly = v.Get("last") != ""
	return f
}
