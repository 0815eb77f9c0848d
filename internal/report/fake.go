package report

import (
	"context"
	"strings"
	"sync"

	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// FakeFetcher answers GETs from a table keyed by path ("/ping", "/report").
type FakeFetcher struct {
	mu sync.Mutex

	// Bodies maps a URL path to the body returned for it.
	Bodies map[string]string

	// Errs maps a URL path to an error returned instead of a body.
	Errs map[string]error

	// URLs records every requested URL in order.
	URLs []string
}

// NewFakeFetcher returns a fetcher where both endpoints answer "Ok".
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		Bodies: map[string]string{"/ping": Ack, "/report": Ack},
		Errs:   map[string]error{},
	}
}

// Fetch implements Fetcher.
func (f *FakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.URLs = append(f.URLs, url)

	for path, err := range f.Errs {
		if hasPath(url, path) {
			return "", err
		}
	}
	for path, body := range f.Bodies {
		if hasPath(url, path) {
			return body, nil
		}
	}
	return "", nil
}

// Requests returns a copy of the recorded URLs.
func (f *FakeFetcher) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.URLs...)
}

func hasPath(url, path string) bool {
	base, _, _ := strings.Cut(url, "?")
	return strings.HasSuffix(base, path)
}

// FakePublisher records snapshots handed to Publish.
type FakePublisher struct {
	mu sync.Mutex

	// Err, if set, is returned by Publish.
	Err error

	// Block, if set, is waited on before Publish returns.
	Block chan struct{}

	Published []sensor.Snapshot
}

// Publish implements Publisher.
func (f *FakePublisher) Publish(ctx context.Context, readings sensor.Snapshot) error {
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = append(f.Published, readings)
	return f.Err
}

// Count returns how many reports were published.
func (f *FakePublisher) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Published)
}
