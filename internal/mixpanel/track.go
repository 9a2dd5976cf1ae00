package mixpanel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Track sends one event to the tracking endpoint. props are merged with the
// project token and a fresh $insert_id so a retried send is deduplicated
// remotely.
func (c *Client) Track(ctx context.Context, event string, props map[string]any) error {
	if c.opts.Token == "" {
		return errors.New("track: project token not configured")
	}

	p := make(map[string]any, len(props)+2)
	for k, v := range props {
		p[k] = v
	}
	p["token"] = c.opts.Token
	p["$insert_id"] = uuid.NewString()

	payload, err := json.Marshal(map[string]any{"event": event, "properties": p})
	if err != nil {
		return fmt.Errorf("track: encode: %w", err)
	}

	u, err := url.Parse(c.opts.TrackURL)
	if err != nil {
		return fmt.Errorf("track: parse url: %w", err)
	}
	q := u.Query()
	q.Set("data", base64.StdEncoding.EncodeToString(payload))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("track: create request: %w", err)
	}
	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: string(body)}
	}
	// The legacy endpoint answers 200 with "0" when it rejects the payload.
	if strings.TrimSpace(string(body)) == "0" {
		return errors.New("track: event rejected")
	}
	return nil
}
