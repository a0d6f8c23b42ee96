package pubmed

import (
	"context"
	"encoding/xml"
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
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	// With an API key, the limit increases to 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the esearch page size when none is requested.
	DefaultPageSize = 200

	// MaxPageSize is the largest retmax esearch accepts.
	MaxPageSize = 10000

	// DatabasePubMed and DatabasePMC are the searchable id spaces.
	DatabasePubMed = "pubmed"
	DatabasePMC    = "pmc"

	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	APIKey string

	// Email identifies the caller to NCBI, as their usage policy asks.
	Email string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// MaxRetries bounds retries of 429 and 5xx responses.
	MaxRetries int

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
}

// Client searches and fetches records from PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var (
	_ papersources.IDSearcher     = (*Client)(nil)
	_ papersources.MetadataSource = (*Client)(nil)
)

// New creates a new PubMed client with the given configuration.
func New(cfg Config, opts ...papersources.Option) *Client {
	cfg.applyDefaults()

	httpCfg := papersources.HTTPClientConfig{
		Name:       domain.ProviderPubMed,
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		MaxRetries: cfg.MaxRetries,
	}
	for _, opt := range opts {
		opt(&httpCfg)
	}

	return &Client{
		config:     cfg,
		httpClient: papersources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return domain.ProviderPubMed
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchIDs returns one page of ids matching params. Ids of the pmc database
// are returned in their canonical "PMC<digits>" form.
func (c *Client) SearchIDs(ctx context.Context, params papersources.SearchParams) (*papersources.SearchPage, error) {
	if !c.config.Enabled {
		return nil, errors.New("pubmed source is disabled")
	}

	result, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	if result.ERROR != "" {
		return nil, domain.NewExternalAPIError(sourceName, 200, result.ERROR, nil)
	}
	if result.ErrorList != nil && len(result.ErrorList.PhraseNotFound) > 0 && len(result.IDList.IDs) == 0 {
		return &papersources.SearchPage{IDs: []string{}, Total: 0}, nil
	}

	ids := make([]string, 0, len(result.IDList.IDs))
	for _, id := range result.IDList.IDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if params.Database == DatabasePMC {
			id = domain.NormalizePMCID(id)
		}
		ids = append(ids, id)
	}

	return &papersources.SearchPage{IDs: ids, Total: result.Count}, nil
}

// FetchMetadata returns the PubmedArticle XML of a candidate. When the
// candidate has no PMID it is looked up by DOI, then by PMCID.
func (c *Client) FetchMetadata(ctx context.Context, ids domain.CandidateIDs) (*papersources.RawRecord, error) {
	if !c.config.Enabled {
		return nil, errors.New("pubmed source is disabled")
	}

	pmid := strings.TrimSpace(ids.PrimaryID)
	if pmid == "" {
		resolved, err := c.lookupPMID(ctx, ids)
		if err != nil {
			return nil, err
		}
		pmid = resolved
	}

	body, err := c.efetch(ctx, []string{pmid})
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	var set PubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	if len(set.Articles) == 0 {
		return nil, domain.NewNotFoundError("pubmed record", pmid)
	}

	return &papersources.RawRecord{
		Provider: domain.ProviderPubMed,
		Payload:  body,
		IDs:      ids.Merge(domain.CandidateIDs{PrimaryID: pmid}),
	}, nil
}

// lookupPMID resolves a DOI or PMCID to a PMID through esearch field tags.
func (c *Client) lookupPMID(ctx context.Context, ids domain.CandidateIDs) (string, error) {
	var terms []string
	if doi := domain.NormalizeDOI(ids.DOI); doi != "" {
		terms = append(terms, `"`+doi+`"[doi]`)
	}
	if pmcid := domain.NormalizePMCID(ids.SecondaryID); pmcid != "" {
		terms = append(terms, pmcid+"[pmcid]")
	}
	if len(terms) == 0 {
		return "", domain.ErrNoIdentifier
	}

	for _, term := range terms {
		page, err := c.SearchIDs(ctx, papersources.SearchParams{
			Database: DatabasePubMed,
			Term:     term,
			Limit:    1,
		})
		if err != nil {
			return "", err
		}
		if len(page.IDs) > 0 {
			return page.IDs[0], nil
		}
	}
	return "", domain.NewNotFoundError("pubmed record", ids.String())
}

// esearch performs a search query and returns matching ids.
func (c *Client) esearch(ctx context.Context, params papersources.SearchParams) (*ESearchResult, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	db := params.Database
	if db == "" {
		db = DatabasePubMed
	}

	q := u.Query()
	q.Set("db", db)
	q.Set("term", params.Term)
	q.Set("retmode", "xml")
	q.Set("usehistory", "n")

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	q.Set("retmax", strconv.Itoa(limit))
	if params.Offset > 0 {
		q.Set("retstart", strconv.Itoa(params.Offset))
	}

	if params.DateFrom != nil || params.DateTo != nil {
		q.Set("datetype", "pdat")
		if params.DateFrom != nil {
			q.Set("mindate", params.DateFrom.Format("2006/01/02"))
		}
		if params.DateTo != nil {
			q.Set("maxdate", params.DateTo.Format("2006/01/02"))
		}
	}
	c.setCommonParams(q)
	u.RawQuery = q.Encode()

	body, err := c.httpClient.GetBody(ctx, u.String(), "application/xml")
	if err != nil {
		return nil, err
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	return &result, nil
}

// efetch retrieves the raw PubmedArticleSet XML for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) ([]byte, error) {
	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", DatabasePubMed)
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")
	c.setCommonParams(q)
	u.RawQuery = q.Encode()

	return c.httpClient.GetBody(ctx, u.String(), "application/xml")
}

func (c *Client) setCommonParams(q url.Values) {
	q.Set("tool", "bibliographic-ingest")
	if c.config.Email != "" {
		q.Set("email", c.config.Email)
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
}

// AffiliationTerm builds the esearch term that restricts results to the
// given affiliation, e.g. `"University of North Carolina"[Affiliation]`.
func AffiliationTerm(affiliation string) string {
	affiliation = strings.TrimSpace(affiliation)
	if affiliation == "" {
		return ""
	}
	if strings.Contains(affiliation, "[") {
		return affiliation
	}
	return `"` + strings.Trim(affiliation, `"`) + `"[Affiliation]`
}
