// Package device renders events for a character-LCD client that cannot
// parse JSON.
//
// The wire format is fixed and independent of any serializer:
//
//	0x1E '\n' <line 1> '\n' <line 2> '\n' 0x1F
//
// Line 1 is "<name>, <time>" and line 2 is "<city>, <country>".
package device

import (
	"bytes"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/PratikDhanave/event-mirror-service/internal/models"
)

const (
	// StartMarker is the ASCII record separator.
	StartMarker byte = 0x1E
	// EndMarker is the ASCII unit separator.
	EndMarker byte = 0x1F
)

// Time layouts per display size.
const (
	LayoutCompact = "15:04"       // 16x2
	LayoutWide    = "02/01 15:04" // 20x4
)

// Frame is the two display lines of one event.
type Frame struct {
	Line1 string
	Line2 string
}

// Encode returns the framed payload.
func (f Frame) Encode() []byte {
	var b bytes.Buffer
	b.Grow(len(f.Line1) + len(f.Line2) + 5)
	b.WriteByte(StartMarker)
	b.WriteByte('\n')
	b.WriteString(f.Line1)
	b.WriteByte('\n')
	b.WriteString(f.Line2)
	b.WriteByte('\n')
	b.WriteByte(EndMarker)
	return b.Bytes()
}

// Render builds the frame for ev. The time is ev.Timestamp formatted with
// layout in loc, or empty when the event carries no timestamp.
func Render(ev models.Event, layout string, loc *time.Location) Frame {
	if loc == nil {
		loc = time.Local
	}
	var at string
	if ev.Timestamp > 0 {
		at = time.UnixMilli(ev.Timestamp).In(loc).Format(layout)
	}
	return Frame{
		Line1: fold(ev.Name) + ", " + at,
		Line2: fold(ev.City) + ", " + fold(ev.Country),
	}
}

// asciiFold strips combining marks after canonical decomposition. A chain
// holds state, so each call builds its own.
func asciiFold() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// fold maps s onto what an HD44780 character ROM can show: accents are
// dropped, other non-ASCII runes become '?', and control characters
// (including the frame markers) become spaces.
func fold(s string) string {
	folded, _, err := transform.String(asciiFold(), s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7F:
			return ' '
		case r > unicode.MaxASCII:
			return '?'
		}
		return r
	}, folded)
}
