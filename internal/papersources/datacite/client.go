package datacite

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
	// DefaultBaseURL is the DataCite REST API base URL.
	DefaultBaseURL = "https://api.datacite.org"

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 5.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the DataCite client.
type Config struct {
	BaseURL   string
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

// Client fetches DOI records from DataCite.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.MetadataSource = (*Client)(nil)

// New creates a new DataCite client.
func New(cfg Config, opts ...papersources.Option) *Client {
	cfg.applyDefaults()
	httpCfg := papersources.HTTPClientConfig{
		Name:      domain.ProviderDataCite,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
	}
	for _, opt := range opts {
		opt(&httpCfg)
	}
	return &Client{config: cfg, httpClient: papersources.NewHTTPClient(httpCfg)}
}

// NewWithHTTPClient creates a new DataCite client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return domain.ProviderDataCite
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// FetchMetadata fetches the DataCite record of the candidate's DOI.
func (c *Client) FetchMetadata(ctx context.Context, ids domain.CandidateIDs) (*papersources.RawRecord, error) {
	if !c.config.Enabled {
		return nil, errors.New("datacite source is disabled")
	}
	doi := domain.NormalizeDOI(ids.DOI)
	if doi == "" {
		return nil, domain.ErrNoIdentifier
	}

	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/dois/" + doi
	u.RawQuery = url.Values{"affiliation": {"true"}}.Encode()

	body, err := c.httpClient.GetBody(ctx, u.String(), "application/vnd.api+json")
	if err != nil {
		return nil, err
	}
	return &papersources.RawRecord{
		Provider: domain.ProviderDataCite,
		Payload:  body,
		IDs:      ids,
	}, nil
}
