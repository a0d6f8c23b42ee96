package openalex

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
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// OpenAlex polite pool (with email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	doiPrefix = "https://doi.org/"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	BaseURL string

	// Email is the contact email for the polite pool.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// APIKey is sent as the api_key parameter when set.
	APIKey string

	Timeout   time.Duration
	RateLimit float64
	BurstSize int

	// Enabled indicates whether this source is enabled.
	Enabled bool
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
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client fetches work records from OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.MetadataSource = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config, opts ...papersources.Option) *Client {
	cfg.applyDefaults()

	httpCfg := papersources.HTTPClientConfig{
		Name:      domain.ProviderOpenAlex,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	}
	if cfg.Email != "" {
		httpCfg.UserAgent = "bibliographic-ingest/1.0 (mailto:" + cfg.Email + ")"
	}
	for _, opt := range opts {
		opt(&httpCfg)
	}

	return &Client{
		config:     cfg,
		httpClient: papersources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return domain.ProviderOpenAlex
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// FetchMetadata fetches the work record by DOI, falling back to PMID and
// then PMCID. A 404 on one identifier moves on to the next.
func (c *Client) FetchMetadata(ctx context.Context, ids domain.CandidateIDs) (*papersources.RawRecord, error) {
	if !c.config.Enabled {
		return nil, errors.New("openalex source is disabled")
	}

	lookups := workIDs(ids)
	if len(lookups) == 0 {
		return nil, domain.ErrNoIdentifier
	}

	for _, workID := range lookups {
		fetchURL, err := c.buildGetByIDURL(workID)
		if err != nil {
			return nil, fmt.Errorf("building fetch URL: %w", err)
		}

		body, err := c.httpClient.GetBody(ctx, fetchURL, "application/json")
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &papersources.RawRecord{
			Provider: domain.ProviderOpenAlex,
			Payload:  body,
			IDs:      ids,
		}, nil
	}
	return nil, domain.NewNotFoundError("openalex work", ids.String())
}

// workIDs lists the external-id path segments OpenAlex accepts, in lookup order.
func workIDs(ids domain.CandidateIDs) []string {
	n := ids.Normalize()
	var out []string
	if n.DOI != "" {
		out = append(out, doiPrefix+n.DOI)
	}
	if n.PrimaryID != "" {
		out = append(out, "pmid:"+n.PrimaryID)
	}
	if n.SecondaryID != "" {
		out = append(out, "pmcid:"+n.SecondaryID)
	}
	return out
}

func (c *Client) buildGetByIDURL(workID string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	// OpenAlex expects external ids as-is in the path.
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/works/" + workID

	query := url.Values{}
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	if c.config.APIKey != "" {
		query.Set("api_key", c.config.APIKey)
	}
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}
