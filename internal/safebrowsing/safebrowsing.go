// Package safebrowsing checks URLs against the Google Safe Browsing v4 Lookup API.
//
// The client never returns an error to its caller. Infrastructure failures are
// folded into the Verdict so the caller can apply a fail-closed policy while
// still logging the cause.
package safebrowsing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	DefaultEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"
	DefaultTimeout  = 5 * time.Second

	defaultClientID      = "qr-service"
	defaultClientVersion = "1.0.0"
)

// Threat types and platform the lookup is scoped to.
var (
	threatTypes      = []string{"MALWARE", "SOCIAL_ENGINEERING"}
	platformTypes    = []string{"ANY_PLATFORM"}
	threatEntryTypes = []string{"URL"}
)

// ThreatEntry identifies the URL a match was reported for.
type ThreatEntry struct {
	URL string `json:"url"`
}

// ThreatMatch is a single match reported by the API.
type ThreatMatch struct {
	ThreatType      string      `json:"threatType"`
	PlatformType    string      `json:"platformType"`
	ThreatEntryType string      `json:"threatEntryType"`
	Threat          ThreatEntry `json:"threat"`
	CacheDuration   string      `json:"cacheDuration,omitempty"`
}

// Verdict is the outcome of a single lookup.
type Verdict struct {
	Safe    bool
	Matches []ThreatMatch
	// Err is set when the lookup itself failed. Safe is always false in that case.
	Err error
}

// Failed reports whether the verdict stems from a failed lookup rather than from matches.
func (v Verdict) Failed() bool {
	return v.Err != nil
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []ThreatEntry `json:"threatEntries"`
}

type findRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type findResponse struct {
	Matches []ThreatMatch `json:"matches"`
}

// Client calls the threatMatches:find endpoint.
type Client struct {
	apiKey        string
	endpoint      string
	clientID      string
	clientVersion string
	httpClient    *http.Client
}

type Option func(*Client)

// WithEndpoint overrides the lookup endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithTimeout bounds every lookup, including reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithClientInfo sets the client id and version reported to the API.
func WithClientInfo(id, version string) Option {
	return func(c *Client) {
		c.clientID = id
		c.clientVersion = version
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = DefaultTimeout

	c := &Client{
		apiKey:        apiKey,
		endpoint:      DefaultEndpoint,
		clientID:      defaultClientID,
		clientVersion: defaultClientVersion,
		httpClient:    hc,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check looks rawURL up. A lookup that fails for any reason yields an unsafe verdict.
func (c *Client) Check(ctx context.Context, rawURL string) Verdict {
	matches, err := c.find(ctx, rawURL)
	if err != nil {
		return Verdict{Safe: false, Err: err}
	}

	if len(matches) > 0 {
		return Verdict{Safe: false, Matches: matches}
	}

	return Verdict{Safe: true}
}

func (c *Client) find(ctx context.Context, rawURL string) ([]ThreatMatch, error) {
	const op = "safebrowsing.Client.find"

	body, err := json.Marshal(findRequest{
		Client: clientInfo{
			ClientID:      c.clientID,
			ClientVersion: c.clientVersion,
		},
		ThreatInfo: threatInfo{
			ThreatTypes:      threatTypes,
			PlatformTypes:    platformTypes,
			ThreatEntryTypes: threatEntryTypes,
			ThreatEntries:    []ThreatEntry{{URL: rawURL}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var res findResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	return res.Matches, nil
}
