// Package report sends readings to the remote collector. Delivery is
// best-effort: one attempt per cycle, no retry queue, no backoff.
package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// Ack is the literal body the collector returns on success.
const Ack = "Ok"

// Failure classes surfaced to the operator.
var (
	ErrConnect = errors.New("connect failed")
	ErrPublish = errors.New("publish failed")
)

// Fetcher performs a GET and returns the raw response body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Publisher sends one report.
type Publisher interface {
	Publish(ctx context.Context, readings sensor.Snapshot) error
}

// Query parameter per channel.
var fields = map[sensor.Channel]string{
	sensor.Ambient:  "ambient",
	sensor.Water:    "water",
	sensor.Humidity: "humidity",
	sensor.FlowRate: "flow",
	sensor.PH:       "ph",
	sensor.DO:       "do",
}

// Client checks connectivity against <base>/ping and then sends the
// readings to <base>/report. Both must answer exactly "Ok".
type Client struct {
	base  *url.URL
	fetch Fetcher
}

// NewClient creates a client for the collector at baseURL.
func NewClient(baseURL string, fetch Fetcher) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse report url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("report url %q: scheme must be http or https", baseURL)
	}
	return &Client{base: u, fetch: fetch}, nil
}

// Publish implements Publisher. A failed connectivity check returns an
// error wrapping ErrConnect and the report request is never sent.
func (c *Client) Publish(ctx context.Context, readings sensor.Snapshot) error {
	body, err := c.fetch.Fetch(ctx, c.PingURL())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if body != Ack {
		return fmt.Errorf("%w: unexpected reply %q", ErrConnect, truncate(body))
	}

	body, err = c.fetch.Fetch(ctx, c.ReportURL(readings))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	if body != Ack {
		return fmt.Errorf("%w: unexpected reply %q", ErrPublish, truncate(body))
	}
	return nil
}

// PingURL is the connectivity check endpoint.
func (c *Client) PingURL() string {
	return c.base.JoinPath("ping").String()
}

// ReportURL encodes the last good value of every channel that has one.
func (c *Client) ReportURL(readings sensor.Snapshot) string {
	u := c.base.JoinPath("report")
	q := url.Values{}
	for _, ch := range sensor.Channels {
		e := readings.Get(ch)
		if !e.HasValue() {
			continue
		}
		q.Set(fields[ch], strconv.FormatFloat(e.Reading.Value, 'f', 2, 64))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Outcome classifies a Publish result as "ok", "connect_error" or
// "publish_error".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConnect):
		return "connect_error"
	default:
		return "publish_error"
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
