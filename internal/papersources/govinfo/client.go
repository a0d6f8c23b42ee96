package govinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

const (
	// DefaultBaseURL is the GovInfo API base URL.
	DefaultBaseURL = "https://api.govinfo.gov"

	// DefaultRateLimit keeps well under the api.data.gov hourly quota.
	DefaultRateLimit = 1.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 60 * time.Second

	// MaxPageSize is the largest collection page the API returns.
	MaxPageSize = 1000
)

// Config holds configuration for the GovInfo client.
type Config struct {
	BaseURL   string
	APIKey    string
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

// Client lists collection packages and fetches package summaries.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var (
	_ papersources.IDSearcher      = (*Client)(nil)
	_ papersources.MetadataSource  = (*Client)(nil)
	_ papersources.FullTextLocator = (*Client)(nil)
)

// New creates a new GovInfo client. The API key is sent in the X-Api-Key header.
func New(cfg Config, opts ...papersources.Option) *Client {
	cfg.applyDefaults()
	httpCfg := papersources.HTTPClientConfig{
		Name:         domain.ProviderGovInfo,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		APIKey:       cfg.APIKey,
		APIKeyHeader: "X-Api-Key",
	}
	for _, opt := range opts {
		opt(&httpCfg)
	}
	return &Client{config: cfg, httpClient: papersources.NewHTTPClient(httpCfg)}
}

// NewWithHTTPClient creates a new GovInfo client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return domain.ProviderGovInfo
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchIDs lists package ids of the collection named by params.Term that
// were modified within the date range.
func (c *Client) SearchIDs(ctx context.Context, params papersources.SearchParams) (*papersources.SearchPage, error) {
	if !c.config.Enabled {
		return nil, errors.New("govinfo source is disabled")
	}
	collection := strings.TrimSpace(params.Term)
	if collection == "" {
		return nil, domain.NewValidationError("term", "collection code is required")
	}
	if params.DateFrom == nil {
		return nil, domain.NewValidationError("date_from", "start date is required")
	}

	path := "/collections/" + url.PathEscape(collection) + "/" + params.DateFrom.UTC().Format("2006-01-02T15:04:05Z")
	if params.DateTo != nil {
		path += "/" + params.DateTo.UTC().Format("2006-01-02T15:04:05Z")
	}

	limit := params.Limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	q := url.Values{}
	q.Set("offset", strconv.Itoa(params.Offset))
	q.Set("pageSize", strconv.Itoa(limit))

	body, err := c.httpClient.GetBody(ctx, c.config.BaseURL+path+"?"+q.Encode(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("collection listing: %w", err)
	}

	var resp CollectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode collection listing: %w", err)
	}

	ids := make([]string, 0, len(resp.Packages))
	for _, p := range resp.Packages {
		if p.PackageID != "" {
			ids = append(ids, p.PackageID)
		}
	}
	return &papersources.SearchPage{IDs: ids, Total: resp.Count}, nil
}

// FetchMetadata fetches the package summary. The package id travels in the
// candidate's PrimaryID.
func (c *Client) FetchMetadata(ctx context.Context, ids domain.CandidateIDs) (*papersources.RawRecord, error) {
	if !c.config.Enabled {
		return nil, errors.New("govinfo source is disabled")
	}
	packageID := strings.TrimSpace(ids.PrimaryID)
	if packageID == "" {
		return nil, domain.ErrNoIdentifier
	}

	body, err := c.httpClient.GetBody(ctx, c.summaryURL(packageID), "application/json")
	if err != nil {
		return nil, err
	}
	return &papersources.RawRecord{
		Provider: domain.ProviderGovInfo,
		Payload:  body,
		IDs:      ids,
	}, nil
}

// LocateFullText returns the PDF rendition of the package.
func (c *Client) LocateFullText(ctx context.Context, ids domain.CandidateIDs) (*papersources.FullTextLink, error) {
	raw, err := c.FetchMetadata(ctx, ids)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNoIdentifier) {
		return nil, fmt.Errorf("%w: %v", domain.ErrLinkNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	var summary Summary
	if err := json.Unmarshal(raw.Payload, &summary); err != nil {
		return nil, fmt.Errorf("decode package summary: %w", err)
	}
	if summary.Download.PDFLink == "" {
		return nil, fmt.Errorf("%w: package %s has no PDF rendition", domain.ErrLinkNotFound, ids.PrimaryID)
	}
	return &papersources.FullTextLink{URL: summary.Download.PDFLink, Format: "pdf"}, nil
}

func (c *Client) summaryURL(packageID string) string {
	return c.config.BaseURL + "/packages/" + url.PathEscape(packageID) + "/summary"
}
