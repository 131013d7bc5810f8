// Package conversion sends documents to a pool of external PDF conversion
// backends, balancing by usage and retrying failed deliveries.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Lllllllleong/docassembly/internal/models"
)

const (
	// attemptsPerBackend bounds the delivery loop against one selected backend.
	attemptsPerBackend = 10
	// maxDepth is the number of times a new backend is selected after a
	// failed round.
	maxDepth = 5
)

// Backend is one conversion service base URL and the number of times it
// has been selected.
type Backend struct {
	URL   string
	usage int
}

// Gateway converts documents to PDF through the least used backend.
type Gateway struct {
	mu        sync.Mutex
	backends  []*Backend
	transport Transport
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(t Transport) Option {
	return func(g *Gateway) { g.transport = t }
}

// WithHTTPClient sets the client used by the default transport.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.transport = &HTTPTransport{Client: c} }
}

// NewGateway creates a gateway over the given backend base URLs.
func NewGateway(urls []string, opts ...Option) (*Gateway, error) {
	g := &Gateway{transport: &HTTPTransport{Client: http.DefaultClient}}
	for _, u := range urls {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u == "" {
			continue
		}
		g.backends = append(g.backends, &Backend{URL: u})
	}
	if len(g.backends) == 0 {
		return nil, fmt.Errorf("at least one conversion backend is required")
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// acquire selects the backend with the smallest usage, first found on ties,
// and counts the selection.
func (g *Gateway) acquire() *Backend {
	g.mu.Lock()
	defer g.mu.Unlock()
	selected := g.backends[0]
	for _, b := range g.backends[1:] {
		if b.usage < selected.usage {
			selected = b
		}
	}
	selected.usage++
	return selected
}

// Usage returns a snapshot of the selection counters keyed by backend URL.
func (g *Gateway) Usage() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.backends))
	for _, b := range g.backends {
		out[b.URL] += b.usage
	}
	return out
}

// Convert returns the PDF rendition of data.
//
// Each round selects a backend and delivers up to attemptsPerBackend times.
// Transport failures are retried within the round; a non-success status
// ends the round at once. A failed round selects a backend again, up to
// maxDepth times, after which ConversionExhaustedError wrapping the last
// failure is returned.
func (g *Gateway) Convert(ctx context.Context, data []byte) ([]byte, error) {
	attempts := 0
	for depth := 0; ; depth++ {
		backend := g.acquire()
		out, n, err := g.round(ctx, backend, data, depth)
		attempts += n
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if depth == maxDepth {
			return nil, models.NewConversionExhaustedError(attempts, err)
		}
	}
}

func (g *Gateway) round(ctx context.Context, backend *Backend, data []byte, depth int) ([]byte, int, error) {
	var lastErr error
	attempts := 0
	for i := 0; i < attemptsPerBackend; i++ {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}
		attempts++
		out, err := g.transport.Convert(ctx, backend.URL, data)
		if err == nil {
			return out, attempts, nil
		}
		lastErr = err
		slog.Warn("Conversion attempt failed.",
			"backend", backend.URL,
			"attempt", attempts,
			"depth", depth,
			"error", err,
		)

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			break
		}
	}
	return nil, attempts, lastErr
}
