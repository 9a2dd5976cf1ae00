package models

// Column names accepted by the REST projection (cols=...).
const (
	ColName      = "name"
	ColCity      = "city"
	ColCountry   = "country"
	ColDate      = "date"
	ColTimestamp = "timestamp"
)

// DefaultColumns is the projection used when a query names none.
var DefaultColumns = []string{ColName, ColCity, ColCountry, ColDate, ColTimestamp}

// Event is a mirrored remote event. It is never updated once stored.
//
// Timestamp (ms since epoch) is the ordering key. Date is the remote's
// human-readable rendering and is display-only: it may carry a timezone
// offset that disagrees with Timestamp.
type Event struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	Date      string `json:"date,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// IsColumn reports whether c is a projectable Event column.
func IsColumn(c string) bool {
	switch c {
	case ColName, ColCity, ColCountry, ColDate, ColTimestamp:
		return true
	}
	return false
}
