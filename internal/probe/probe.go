// Package probe checks whether a URL is reachable with a single HEAD request.
package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const DefaultTimeout = 5 * time.Second

// Prober issues HEAD requests. Redirects are followed and the final status decides.
type Prober struct {
	httpClient *http.Client
}

type Option func(*Prober)

// WithTimeout bounds every probe.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Prober) {
		p.httpClient = hc
	}
}

func New(opts ...Option) *Prober {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = DefaultTimeout

	p := &Prober{httpClient: hc}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Exists reports whether rawURL answers a HEAD request with a 2xx status.
// Every failure, including a malformed URL, counts as not existing.
func (p *Prober) Exists(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
