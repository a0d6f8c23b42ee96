package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// Source names accepted by the CLI.
const (
	SourcePubMed  = "pubmed"
	SourceNSF     = "nsf"
	SourceGovInfo = "govinfo"
)

// SourceNames lists the supported sources.
func SourceNames() []string {
	return []string{SourcePubMed, SourceNSF, SourceGovInfo}
}

// Stream is one identifier stream of a source. A stream either pages through
// a search (Searcher set) and is then reconciled, or loads an input list
// (InputPath set) whose rows are already identifier sets.
type Stream struct {
	Name string

	Searcher papersources.IDSearcher
	Params   papersources.SearchParams
	Delay    time.Duration

	// Converter reconciles searched ids. Nil keeps each id as the primary id.
	Converter      papersources.IDConverter
	ConverterDelay time.Duration

	InputPath string
}

// IsList reports whether the stream is loaded from an input list.
func (s Stream) IsList() bool {
	return s.InputPath != ""
}

// Source describes how one bibliographic source is ingested.
type Source struct {
	Name    string
	Streams []Stream

	// CanonicalStream is kept whole by deduplication; every other stream
	// loses the identifier sets it shares. Empty disables deduplication.
	CanonicalStream string

	// Providers lists the metadata providers in priority order.
	Providers []string

	// Locator finds full text for candidates without a staged file.
	Locator papersources.FullTextLocator

	// UseMetadataLink attaches the open-access link reported by the metadata
	// provider when the candidate has no staged file.
	UseMetadataLink bool

	// RequireInstitutionalAuthor skips candidates without an author
	// affiliated with the institution.
	RequireInstitutionalAuthor bool
}

// PubMedSource searches the literature index and its full-text mirror for
// the affiliation query and date range, reconciles both id streams through
// the id converter and fetches full text from the mirror's OA service.
func PubMedSource(searcher papersources.IDSearcher, converter papersources.IDConverter, locator papersources.FullTextLocator, params papersources.SearchParams, delay time.Duration) Source {
	pubmedParams := params
	pubmedParams.Database = "pubmed"
	pmcParams := params
	pmcParams.Database = "pmc"

	return Source{
		Name: SourcePubMed,
		Streams: []Stream{
			{Name: "pmc", Searcher: searcher, Params: pmcParams, Delay: delay, Converter: converter, ConverterDelay: delay},
			{Name: "pubmed", Searcher: searcher, Params: pubmedParams, Delay: delay, Converter: converter, ConverterDelay: delay},
		},
		CanonicalStream: "pmc",
		Providers:       []string{domain.ProviderPubMed, domain.ProviderOpenAlex, domain.ProviderCrossref},
		Locator:         locator,
	}
}

// NSFSource loads a DOI list of funder-reported publications. Rows may name
// a staged PDF; otherwise the open-access link from the metadata is used.
func NSFSource(inputPath string) Source {
	return Source{
		Name:                       SourceNSF,
		Streams:                    []Stream{{Name: "nsf", InputPath: inputPath}},
		Providers:                  []string{domain.ProviderCrossref, domain.ProviderOpenAlex, domain.ProviderDataCite},
		UseMetadataLink:            true,
		RequireInstitutionalAuthor: true,
	}
}

// GovInfoSource loads government documents either from an input list of
// package ids or, without one, by listing a collection over the date range.
func GovInfoSource(client interface {
	papersources.IDSearcher
	papersources.FullTextLocator
}, inputPath string, params papersources.SearchParams, delay time.Duration) Source {
	stream := Stream{Name: "govinfo", InputPath: inputPath}
	if inputPath == "" {
		stream.Searcher = client
		stream.Params = params
		stream.Delay = delay
	}
	return Source{
		Name:      SourceGovInfo,
		Streams:   []Stream{stream},
		Providers: []string{domain.ProviderGovInfo},
		Locator:   client,
	}
}

// passthroughConverter turns each searched id into an identifier set
// carrying it as the primary id.
type passthroughConverter struct{}

func (passthroughConverter) ConvertIDs(_ context.Context, ids []string) ([]domain.CandidateIDs, error) {
	out := make([]domain.CandidateIDs, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, domain.CandidateIDs{PrimaryID: id})
		}
	}
	return out, nil
}
