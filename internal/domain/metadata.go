package domain

import (
	"strings"
	"time"
)

// Provider names used as the SourceProvider discriminant of NormalizedMetadata.
const (
	ProviderPubMed   = "pubmed"
	ProviderOpenAlex = "openalex"
	ProviderCrossref = "crossref"
	ProviderDataCite = "datacite"
	ProviderGovInfo  = "govinfo"
)

// Author is one creator of a work. Affiliations keeps every affiliation the
// provider listed; Affiliation holds the single resolved one used on the work.
type Author struct {
	Name         string   `json:"name"`
	ORCID        string   `json:"orcid,omitempty"`
	Affiliations []string `json:"affiliations,omitempty"`
	Affiliation  string   `json:"affiliation,omitempty"`
	Index        int      `json:"index"`
}

// String returns a formatted string representation of the author.
func (a Author) String() string {
	var sb strings.Builder
	sb.WriteString(a.Name)

	if a.Affiliation != "" {
		sb.WriteString(" (")
		sb.WriteString(a.Affiliation)
		sb.WriteString(")")
	}

	if a.ORCID != "" {
		sb.WriteString(" [")
		sb.WriteString(a.ORCID)
		sb.WriteString("]")
	}

	return sb.String()
}

// Journal holds the container fields of a journal article.
type Journal struct {
	Title  string `json:"title,omitempty"`
	Volume string `json:"volume,omitempty"`
	Issue  string `json:"issue,omitempty"`
	Pages  string `json:"pages,omitempty"`
}

// NormalizedMetadata is the provider-independent attribute set of a candidate.
// It is built once by a provider-specific builder and treated as read-only.
type NormalizedMetadata struct {
	Title          string       `json:"title"`
	Abstract       string       `json:"abstract,omitempty"`
	Authors        []Author     `json:"authors,omitempty"`
	DateIssued     string       `json:"date_issued,omitempty"`
	Publisher      string       `json:"publisher,omitempty"`
	Journal        Journal      `json:"journal"`
	Keywords       []string     `json:"keywords,omitempty"`
	Funders        []string     `json:"funders,omitempty"`
	Identifiers    CandidateIDs `json:"identifiers"`
	SourceProvider string       `json:"source_provider"`

	// FullTextURL is an open-access PDF link reported by the provider, if any.
	FullTextURL string `json:"full_text_url,omitempty"`
}

// FormatDateIssued renders a partial publication date as YYYY, YYYY-MM or
// YYYY-MM-DD depending on which parts are known.
func FormatDateIssued(year, month, day int) string {
	if year <= 0 {
		return ""
	}
	if month <= 0 || month > 12 {
		return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	}
	if day <= 0 || day > 31 {
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}
