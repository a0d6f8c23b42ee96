package pmc

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

const (
	// DefaultBaseURL is the ID Converter endpoint.
	DefaultBaseURL = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0"

	// DefaultOABaseURL is the OA web service endpoint.
	DefaultOABaseURL = "https://www.ncbi.nlm.nih.gov/pmc/utils/oa/oa.fcgi"

	// MaxBatchSize is the largest id list the converter accepts per request.
	MaxBatchSize = 200

	// DefaultRateLimit matches the NCBI limit without an API key.
	DefaultRateLimit = 3.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	statusError = "error"
	toolName    = "bibliographic-ingest"
)

// Config holds the configuration for the PMC client.
type Config struct {
	BaseURL   string
	OABaseURL string
	APIKey    string
	Email     string
	Timeout   time.Duration
	RateLimit float64
	Enabled   bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.OABaseURL == "" {
		c.OABaseURL = DefaultOABaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
}

// Client converts identifiers and locates open-access full text.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var (
	_ papersources.IDConverter     = (*Client)(nil)
	_ papersources.FullTextLocator = (*Client)(nil)
)

// New creates a new PMC client.
func New(cfg Config, opts ...papersources.Option) *Client {
	cfg.applyDefaults()
	httpCfg := papersources.HTTPClientConfig{
		Name:      "pmc",
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
	}
	for _, opt := range opts {
		opt(&httpCfg)
	}
	return &Client{config: cfg, httpClient: papersources.NewHTTPClient(httpCfg)}
}

// NewWithHTTPClient creates a new PMC client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// IsEnabled returns whether the services are enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// ConvertIDs cross-references a batch of PMIDs, PMCIDs or DOIs.
//
// Records the converter rejects are returned with Error set and the requested
// id kept in the field its form implies, so later stages can still address
// the candidate. Records with no identifier at all are dropped.
func (c *Client) ConvertIDs(ctx context.Context, ids []string) ([]domain.CandidateIDs, error) {
	if !c.config.Enabled {
		return nil, errors.New("pmc source is disabled")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, domain.NewValidationError("ids", fmt.Sprintf("batch of %d exceeds %d", len(ids), MaxBatchSize))
	}

	u, err := url.Parse(c.config.BaseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("ids", strings.Join(ids, ","))
	q.Set("format", "xml")
	c.setCommonParams(q)
	u.RawQuery = q.Encode()

	body, err := c.httpClient.GetBody(ctx, u.String(), "application/xml")
	if err != nil {
		return nil, fmt.Errorf("id conversion: %w", err)
	}

	var resp IDConvResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	if resp.Status == statusError && len(resp.Records) == 0 {
		return nil, domain.NewExternalAPIError("pmc", 200, "converter returned status error", nil)
	}

	out := make([]domain.CandidateIDs, 0, len(resp.Records))
	for _, rec := range resp.Records {
		cand := domain.CandidateIDs{
			PrimaryID:   strings.TrimSpace(rec.PMID),
			SecondaryID: domain.NormalizePMCID(rec.PMCID),
			DOI:         domain.NormalizeDOI(rec.DOI),
		}
		if rec.Status == statusError {
			cand.Error = rec.ErrMsg
			if cand.Error == "" {
				cand.Error = statusError
			}
			cand = cand.Merge(ClassifyID(rec.RequestedID))
		}
		if cand.Empty() {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// ClassifyID places a bare identifier into the field its form implies.
func ClassifyID(id string) domain.CandidateIDs {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return domain.CandidateIDs{}
	case strings.HasPrefix(strings.ToUpper(id), "PMC"):
		return domain.CandidateIDs{SecondaryID: domain.NormalizePMCID(id)}
	case strings.Contains(id, "/"):
		return domain.CandidateIDs{DOI: domain.NormalizeDOI(id)}
	default:
		return domain.CandidateIDs{PrimaryID: id}
	}
}

// LocateFullText asks the OA service for the candidate's full-text package.
// A direct PDF link is preferred over the tgz package. Articles outside the
// open-access subset yield domain.ErrLinkNotFound.
func (c *Client) LocateFullText(ctx context.Context, ids domain.CandidateIDs) (*papersources.FullTextLink, error) {
	if !c.config.Enabled {
		return nil, errors.New("pmc source is disabled")
	}
	pmcid := domain.NormalizePMCID(ids.SecondaryID)
	if pmcid == "" {
		return nil, fmt.Errorf("%w: candidate has no PMCID", domain.ErrLinkNotFound)
	}

	u, err := url.Parse(c.config.OABaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid OA base URL: %w", err)
	}
	q := u.Query()
	q.Set("id", pmcid)
	u.RawQuery = q.Encode()

	body, err := c.httpClient.GetBody(ctx, u.String(), "application/xml")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLinkNotFound, pmcid)
		}
		return nil, fmt.Errorf("oa lookup: %w", err)
	}

	var resp OAResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrLinkNotFound, pmcid, strings.TrimSpace(resp.Error.Message))
	}

	var pkg *papersources.FullTextLink
	for _, rec := range resp.Records {
		for _, link := range rec.Links {
			if link.Href == "" {
				continue
			}
			switch link.Format {
			case "pdf":
				return &papersources.FullTextLink{URL: link.Href, Format: "pdf"}, nil
			case "tgz":
				if pkg == nil {
					pkg = &papersources.FullTextLink{URL: link.Href, Format: "tgz"}
				}
			}
		}
	}
	if pkg == nil {
		return nil, fmt.Errorf("%w: %s has no package link", domain.ErrLinkNotFound, pmcid)
	}
	return pkg, nil
}

func (c *Client) setCommonParams(q url.Values) {
	q.Set("tool", toolName)
	if c.config.Email != "" {
		q.Set("email", c.config.Email)
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
}
