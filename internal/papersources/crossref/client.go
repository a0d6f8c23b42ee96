package crossref

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

const (
	// DefaultBaseURL is the Crossref REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit stays inside the polite pool allowance.
	DefaultRateLimit = 10.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the Crossref client.
type Config struct {
	BaseURL string

	// Email is sent as mailto to join the polite pool.
	Email string

	// APIKey is sent as the Crossref-Plus-API-Token header for Plus members.
	APIKey string

	Timeout   time.Duration
	RateLimit float64
	Enabled   bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
}

// Client fetches work records from Crossref.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.MetadataSource = (*Client)(nil)

// New creates a new Crossref client.
func New(cfg Config, opts ...papersources.Option) *Client {
	cfg.applyDefaults()
	httpCfg := papersources.HTTPClientConfig{
		Name:         domain.ProviderCrossref,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		APIKey:       cfg.APIKey,
		APIKeyHeader: "Crossref-Plus-API-Token",
	}
	if cfg.Email != "" {
		httpCfg.UserAgent = "bibliographic-ingest/1.0 (mailto:" + cfg.Email + ")"
	}
	for _, opt := range opts {
		opt(&httpCfg)
	}
	return &Client{config: cfg, httpClient: papersources.NewHTTPClient(httpCfg)}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return domain.ProviderCrossref
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// FetchMetadata fetches the work registered for the candidate's DOI.
// Crossref only knows DOIs; candidates without one yield domain.ErrNoIdentifier.
func (c *Client) FetchMetadata(ctx context.Context, ids domain.CandidateIDs) (*papersources.RawRecord, error) {
	if !c.config.Enabled {
		return nil, errors.New("crossref source is disabled")
	}
	doi := domain.NormalizeDOI(ids.DOI)
	if doi == "" {
		return nil, domain.ErrNoIdentifier
	}

	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/works/" + doi
	if c.config.Email != "" {
		u.RawQuery = url.Values{"mailto": {c.config.Email}}.Encode()
	}

	body, err := c.httpClient.GetBody(ctx, u.String(), "application/json")
	if err != nil {
		return nil, err
	}
	return &papersources.RawRecord{
		Provider: domain.ProviderCrossref,
		Payload:  body,
		IDs:      ids,
	}, nil
}
