package openalex

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// maxAbstractWords guards against payloads with excessive position entries.
const maxAbstractWords = 100_000

// Builder converts OpenAlex work JSON into normalized metadata.
type Builder struct{}

// Provider returns the raw-record discriminant the builder handles.
func (Builder) Provider() string {
	return domain.ProviderOpenAlex
}

// Build decodes a single work record.
func (Builder) Build(raw *papersources.RawRecord) (*domain.NormalizedMetadata, error) {
	var work Work
	if err := json.Unmarshal(raw.Payload, &work); err != nil {
		return nil, fmt.Errorf("decode openalex work: %w", err)
	}

	title := work.DisplayName
	if title == "" {
		title = work.Title
	}
	if title == "" && work.ID == "" {
		return nil, domain.NewNotFoundError("openalex work", raw.IDs.String())
	}

	ids := domain.CandidateIDs{
		PrimaryID:   normalizePMID(work.IDs.PMID),
		SecondaryID: normalizePMCID(work.IDs.PMCID),
		DOI:         domain.NormalizeDOI(firstNonEmpty(work.DOI, work.IDs.DOI)),
	}

	meta := &domain.NormalizedMetadata{
		Title:          papersources.StripMarkup(title),
		Abstract:       reconstructAbstract(work.AbstractInvertedIndex),
		Authors:        buildAuthors(work.Authorships),
		DateIssued:     dateIssued(work),
		Journal:        buildJournal(work),
		Keywords:       buildKeywords(work.Keywords),
		Funders:        buildFunders(work.Grants),
		Identifiers:    ids.Merge(raw.IDs),
		SourceProvider: domain.ProviderOpenAlex,
		FullTextURL:    pdfURL(work),
	}
	if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
		meta.Publisher = work.PrimaryLocation.Source.HostOrganizationName
	}
	return meta, nil
}

func buildAuthors(authorships []Authorship) []domain.Author {
	if len(authorships) == 0 {
		return nil
	}
	authors := make([]domain.Author, 0, len(authorships))
	for _, a := range authorships {
		name := strings.TrimSpace(a.Author.DisplayName)
		if name == "" {
			continue
		}
		var affiliations []string
		for _, inst := range a.Institutions {
			if inst.DisplayName != "" {
				affiliations = append(affiliations, inst.DisplayName)
			}
		}
		// Raw strings carry department-level detail the institution list drops.
		for _, rawAff := range a.RawAffiliationStrings {
			if rawAff != "" && !contains(affiliations, rawAff) {
				affiliations = append(affiliations, rawAff)
			}
		}
		authors = append(authors, domain.Author{
			Name:         name,
			ORCID:        normalizeORCID(a.Author.Orcid),
			Affiliations: affiliations,
			Index:        len(authors),
		})
	}
	return authors
}

func dateIssued(work Work) string {
	if work.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", work.PublicationDate); err == nil {
			return domain.FormatDateIssued(t.Year(), int(t.Month()), t.Day())
		}
	}
	return domain.FormatDateIssued(work.PublicationYear, 0, 0)
}

func buildJournal(work Work) domain.Journal {
	j := domain.Journal{
		Volume: work.Biblio.Volume,
		Issue:  work.Biblio.Issue,
		Pages:  work.Biblio.FirstPage,
	}
	if work.Biblio.LastPage != "" && work.Biblio.LastPage != work.Biblio.FirstPage {
		j.Pages = work.Biblio.FirstPage + "-" + work.Biblio.LastPage
	}
	if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
		j.Title = work.PrimaryLocation.Source.DisplayName
	}
	return j
}

func buildKeywords(keywords []Keyword) []string {
	var out []string
	for _, kw := range keywords {
		if name := strings.TrimSpace(kw.DisplayName); name != "" && !contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func buildFunders(grants []Grant) []string {
	var out []string
	for _, g := range grants {
		if name := strings.TrimSpace(g.FunderDisplayName); name != "" && !contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func pdfURL(work Work) string {
	if work.BestOALocation != nil && work.BestOALocation.PDFURL != "" {
		return work.BestOALocation.PDFURL
	}
	if work.PrimaryLocation != nil && work.PrimaryLocation.PDFURL != "" {
		return work.PrimaryLocation.PDFURL
	}
	return ""
}

func normalizePMID(pmid string) string {
	pmid = strings.TrimPrefix(strings.TrimSpace(pmid), "https://pubmed.ncbi.nlm.nih.gov/")
	return strings.TrimSpace(pmid)
}

func normalizePMCID(pmcid string) string {
	pmcid = strings.TrimSpace(pmcid)
	if i := strings.LastIndex(pmcid, "/"); i >= 0 {
		pmcid = pmcid[i+1:]
	}
	return domain.NormalizePMCID(pmcid)
}

// normalizeORCID returns the ORCID as a full https://orcid.org/ URL.
func normalizeORCID(orcid string) string {
	orcid = strings.TrimSpace(orcid)
	if orcid == "" {
		return ""
	}
	return "https://orcid.org/" + strings.TrimPrefix(orcid, "https://orcid.org/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// reconstructAbstract rebuilds plain text from an inverted index by sorting
// the (position, word) pairs and joining the words.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	if totalPairs > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, totalPairs)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].pos == pairs[j].pos {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].pos < pairs[j].pos
	})

	var builder strings.Builder
	builder.Grow(totalPairs * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}
	return builder.String()
}
