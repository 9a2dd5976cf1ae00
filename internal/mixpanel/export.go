// Package mixpanel talks to the remote analytics project: it pulls raw
// export data for the ingestion pipeline and can track a single event.
package mixpanel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// dateLayout is the export API's from_date/to_date format.
const dateLayout = "2006-01-02"

// defaultMaxBodyBytes caps a single export response.
const defaultMaxBodyBytes = 64 << 20

// ErrBodyTooLarge is returned by Fetch when the export exceeds the cap. The
// body is discarded rather than truncated so no partial batch is ingested.
var ErrBodyTooLarge = errors.New("export body exceeds size limit")

// StatusError is returned by Fetch for a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("export returned status %d", e.Status)
}

// Options configures a Client.
type Options struct {
	// APISecret is embedded in the export URL as its credential.
	APISecret string
	// Token identifies the project for Track.
	Token     string
	ExportURL string
	TrackURL  string
	// Location is the project timezone used for the date window.
	Location *time.Location
	// TimestampProperty names the property compared against the watermark.
	TimestampProperty string
	HTTPClient        *http.Client
	Now               func() time.Time
	// MaxBodyBytes caps an export response; 0 means 64 MiB.
	MaxBodyBytes int64
}

// Client builds export requests and performs them.
type Client struct {
	opts Options
}

func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TimestampProperty == "" {
		opts.TimestampProperty = "timestamp"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Client{opts: opts}
}

// BuildRequestURL returns the export URL for yesterday through today in the
// project timezone. A non-empty events list adds the event filter; a
// positive since adds properties["<ts prop>"] > since.
func (c *Client) BuildRequestURL(events []string, since int64) (string, error) {
	u, err := url.Parse(c.opts.ExportURL)
	if err != nil {
		return "", fmt.Errorf("parse export url: %w", err)
	}
	if c.opts.APISecret != "" {
		u.User = url.User(c.opts.APISecret)
	}

	today := c.opts.Now().In(c.opts.Location)
	yesterday := today.AddDate(0, 0, -1)

	q := u.Query()
	q.Set("from_date", yesterday.Format(dateLayout))
	q.Set("to_date", today.Format(dateLayout))

	if len(events) > 0 {
		sel, err := json.Marshal(events)
		if err != nil {
			return "", fmt.Errorf("encode event filter: %w", err)
		}
		q.Set("event", string(sel))
	}
	if since > 0 {
		q.Set("where", fmt.Sprintf(`properties[%s]>%s`,
			strconv.Quote(c.opts.TimestampProperty), strconv.FormatInt(since, 10)))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch performs the GET and returns the body. Transport errors are
// returned as is; non-2xx responses as *StatusError carrying the body.
// There is no retry: the next sync cycle is the retry.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create export request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export request: %w", err)
	}
	defer resp.Body.Close()

	limit := c.opts.MaxBodyBytes
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read export body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if int64(len(body)) > limit {
			body = body[:limit]
		}
		return nil, &StatusError{Status: resp.StatusCode, Body: string(body)}
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, limit)
	}
	return body, nil
}
