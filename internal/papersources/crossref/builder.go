package crossref

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// Builder converts Crossref work JSON into normalized metadata.
type Builder struct{}

// Provider returns the raw-record discriminant the builder handles.
func (Builder) Provider() string {
	return domain.ProviderCrossref
}

// Build decodes a /works/{doi} response. The JATS abstract is flattened to
// plain text.
func (Builder) Build(raw *papersources.RawRecord) (*domain.NormalizedMetadata, error) {
	var resp WorkResponse
	if err := json.Unmarshal(raw.Payload, &resp); err != nil {
		return nil, fmt.Errorf("decode crossref work: %w", err)
	}
	work := resp.Message
	if work.DOI == "" && len(work.Title) == 0 {
		return nil, domain.NewNotFoundError("crossref work", raw.IDs.String())
	}

	meta := &domain.NormalizedMetadata{
		Title:      papersources.StripMarkup(first(work.Title)),
		Abstract:   papersources.StripMarkup(stripAbstractHeading(work.Abstract)),
		Authors:    buildAuthors(work.Author),
		DateIssued: dateIssued(work),
		Publisher:  work.Publisher,
		Journal: domain.Journal{
			Title:  first(work.ContainerTitle),
			Volume: work.Volume,
			Issue:  work.Issue,
			Pages:  work.Page,
		},
		Keywords:       dedupe(work.Subject),
		Funders:        funderNames(work.Funder),
		Identifiers:    domain.CandidateIDs{DOI: domain.NormalizeDOI(work.DOI)}.Merge(raw.IDs),
		SourceProvider: domain.ProviderCrossref,
		FullTextURL:    pdfLink(work.Link),
	}
	return meta, nil
}

func buildAuthors(authors []Author) []domain.Author {
	if len(authors) == 0 {
		return nil
	}
	out := make([]domain.Author, 0, len(authors))
	for _, a := range authors {
		name := a.Name
		if name == "" {
			name = strings.TrimSpace(a.Given + " " + a.Family)
		}
		if name == "" {
			continue
		}
		var affiliations []string
		for _, aff := range a.Affiliation {
			if n := strings.TrimSpace(aff.Name); n != "" {
				affiliations = append(affiliations, n)
			}
		}
		orcid := strings.TrimSpace(a.ORCID)
		orcid = strings.Replace(orcid, "http://orcid.org/", "https://orcid.org/", 1)
		out = append(out, domain.Author{
			Name:         name,
			ORCID:        orcid,
			Affiliations: affiliations,
			Index:        len(out),
		})
	}
	return out
}

// dateIssued prefers print over online publication, then the issued date.
func dateIssued(work Work) string {
	for _, d := range []DateParts{work.PublishedPrint, work.PublishedOnline, work.Issued} {
		if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == 0 {
			continue
		}
		p := d.DateParts[0]
		month, day := 0, 0
		if len(p) > 1 {
			month = p[1]
		}
		if len(p) > 2 {
			day = p[2]
		}
		return domain.FormatDateIssued(p[0], month, day)
	}
	return ""
}

// stripAbstractHeading drops the leading "Abstract" title publishers put
// inside the JATS abstract.
func stripAbstractHeading(abstract string) string {
	trimmed := strings.TrimSpace(abstract)
	for _, heading := range []string{"<jats:title>Abstract</jats:title>", "<title>Abstract</title>"} {
		trimmed = strings.TrimPrefix(trimmed, heading)
	}
	return trimmed
}

func pdfLink(links []Link) string {
	for _, l := range links {
		if l.ContentType == "application/pdf" && l.URL != "" {
			return l.URL
		}
	}
	return ""
}

func funderNames(funders []Funder) []string {
	names := make([]string, 0, len(funders))
	for _, f := range funders {
		names = append(names, f.Name)
	}
	return dedupe(names)
}

func dedupe(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
