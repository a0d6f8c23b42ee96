package govinfo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// Builder converts GovInfo package summaries into normalized metadata.
type Builder struct{}

// Provider returns the raw-record discriminant the builder handles.
func (Builder) Provider() string {
	return domain.ProviderGovInfo
}

// Build decodes a package summary. Government authors become organizational
// creators; personal authors follow them.
func (Builder) Build(raw *papersources.RawRecord) (*domain.NormalizedMetadata, error) {
	var s Summary
	if err := json.Unmarshal(raw.Payload, &s); err != nil {
		return nil, fmt.Errorf("decode govinfo summary: %w", err)
	}
	if s.PackageID == "" && s.Title == "" {
		return nil, domain.NewNotFoundError("govinfo package", raw.IDs.String())
	}

	var authors []domain.Author
	for _, name := range append([]string{s.GovernmentAuthor1, s.GovernmentAuthor2}, s.PersonalAuthors...) {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{Name: name, Index: len(authors)})
	}

	var dateIssued string
	if t, err := time.Parse("2006-01-02", s.DateIssued); err == nil {
		dateIssued = domain.FormatDateIssued(t.Year(), int(t.Month()), t.Day())
	}

	ids := raw.IDs
	if ids.PrimaryID == "" {
		ids.PrimaryID = s.PackageID
	}

	return &domain.NormalizedMetadata{
		Title:          strings.TrimSpace(s.Title),
		Abstract:       papersources.StripMarkup(s.Abstract),
		Authors:        authors,
		DateIssued:     dateIssued,
		Publisher:      s.Publisher,
		Journal:        domain.Journal{Title: s.CollectionName, Pages: s.Pages},
		Keywords:       s.Subjects,
		Identifiers:    ids,
		SourceProvider: domain.ProviderGovInfo,
		FullTextURL:    s.Download.PDFLink,
	}, nil
}
