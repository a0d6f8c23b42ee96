// Package papersources defines the contracts shared by the clients of
// external bibliographic APIs and the plumbing they have in common.
//
// Each API lives in its own subpackage (pubmed, pmc, openalex, crossref,
// datacite, govinfo) and implements one or more of the interfaces below:
//
//	searcher := pubmed.New(cfg)              // IDSearcher + MetadataSource
//	page, err := searcher.SearchIDs(ctx, papersources.SearchParams{
//		Database: "pmc",
//		Term:     `"University of North Carolina"[Affiliation]`,
//		Offset:   cursor,
//		Limit:    200,
//	})
package papersources

import (
	"context"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// SearchParams defines one page request against an identifier search endpoint.
type SearchParams struct {
	// Database selects the id space searched (e.g. "pubmed" or "pmc").
	Database string

	// Term is the provider query, typically an affiliation filter.
	Term string

	// DateFrom and DateTo bound the publication date. Nil leaves the side open.
	DateFrom *time.Time
	DateTo   *time.Time

	// Offset is the zero-based index of the first id to return.
	Offset int

	// Limit is the page size.
	Limit int
}

// SearchPage is one page of identifiers.
type SearchPage struct {
	// IDs holds the identifiers of this page in provider order.
	IDs []string

	// Total is the total number of matches the provider reports.
	Total int
}

// IDSearcher lists candidate identifiers page by page.
type IDSearcher interface {
	SearchIDs(ctx context.Context, params SearchParams) (*SearchPage, error)
}

// IDConverter cross-references a batch of identifiers into identifier sets.
// Records the provider could not convert are returned with Error set.
type IDConverter interface {
	ConvertIDs(ctx context.Context, ids []string) ([]domain.CandidateIDs, error)
}

// RawRecord is one provider payload for a candidate, before normalization.
type RawRecord struct {
	// Provider is the discriminant used to select a builder.
	Provider string

	// Payload is the provider response body (XML or JSON).
	Payload []byte

	// IDs are the identifiers the record was fetched by.
	IDs domain.CandidateIDs
}

// MetadataSource fetches the raw metadata record of one candidate.
// Implementations return an error wrapping domain.ErrNotFound when the
// provider has no record for any of the candidate's identifiers.
type MetadataSource interface {
	// Name returns the provider name used as the RawRecord discriminant.
	Name() string

	// IsEnabled reports whether the provider is configured for use.
	IsEnabled() bool

	// FetchMetadata retrieves the raw record for ids.
	FetchMetadata(ctx context.Context, ids domain.CandidateIDs) (*RawRecord, error)
}

// FullTextLink describes where the full text of a candidate can be retrieved.
type FullTextLink struct {
	// URL is an http(s) or ftp link to the file or archive.
	URL string

	// Format is "pdf" for a direct document or "tgz"/"zip" for an archive.
	Format string
}

// FullTextLocator finds the full-text link of a candidate. It returns
// domain.ErrLinkNotFound when none exists.
type FullTextLocator interface {
	LocateFullText(ctx context.Context, ids domain.CandidateIDs) (*FullTextLink, error)
}
