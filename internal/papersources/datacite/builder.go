package datacite

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// Builder converts DataCite JSON:API records into normalized metadata.
type Builder struct{}

// Provider returns the raw-record discriminant the builder handles.
func (Builder) Provider() string {
	return domain.ProviderDataCite
}

// Build decodes a /dois/{doi} response.
func (Builder) Build(raw *papersources.RawRecord) (*domain.NormalizedMetadata, error) {
	var resp DOIResponse
	if err := json.Unmarshal(raw.Payload, &resp); err != nil {
		return nil, fmt.Errorf("decode datacite record: %w", err)
	}
	attrs := resp.Data.Attributes
	if attrs.DOI == "" && len(attrs.Titles) == 0 {
		return nil, domain.NewNotFoundError("datacite record", raw.IDs.String())
	}

	pages := attrs.Container.FirstPage
	if attrs.Container.LastPage != "" && attrs.Container.LastPage != pages {
		pages += "-" + attrs.Container.LastPage
	}

	return &domain.NormalizedMetadata{
		Title:      mainTitle(attrs.Titles),
		Abstract:   abstract(attrs.Descriptions),
		Authors:    buildAuthors(attrs.Creators),
		DateIssued: dateIssued(attrs),
		Publisher:  attrs.Publisher,
		Journal: domain.Journal{
			Title:  attrs.Container.Title,
			Volume: attrs.Container.Volume,
			Issue:  attrs.Container.Issue,
			Pages:  pages,
		},
		Keywords:       subjects(attrs.Subjects),
		Funders:        funders(attrs.FundingReferences),
		Identifiers:    domain.CandidateIDs{DOI: domain.NormalizeDOI(attrs.DOI)}.Merge(raw.IDs),
		SourceProvider: domain.ProviderDataCite,
	}, nil
}

// mainTitle returns the untyped title, which DataCite uses for the main one.
func mainTitle(titles []Title) string {
	for _, t := range titles {
		if t.TitleType == "" {
			return strings.TrimSpace(t.Title)
		}
	}
	if len(titles) > 0 {
		return strings.TrimSpace(titles[0].Title)
	}
	return ""
}

func abstract(descriptions []Description) string {
	for _, d := range descriptions {
		if strings.EqualFold(d.DescriptionType, "Abstract") {
			return papersources.StripMarkup(d.Description)
		}
	}
	return ""
}

func buildAuthors(creators []Creator) []domain.Author {
	if len(creators) == 0 {
		return nil
	}
	out := make([]domain.Author, 0, len(creators))
	for _, c := range creators {
		name := strings.TrimSpace(c.GivenName + " " + c.FamilyName)
		if c.NameType == "Organizational" || name == "" {
			name = strings.TrimSpace(c.Name)
		}
		if name == "" {
			continue
		}
		var orcid string
		for _, id := range c.NameIdentifiers {
			if strings.EqualFold(id.NameIdentifierScheme, "ORCID") && id.NameIdentifier != "" {
				orcid = id.NameIdentifier
				if !strings.HasPrefix(orcid, "https://orcid.org/") {
					orcid = "https://orcid.org/" + strings.TrimPrefix(orcid, "http://orcid.org/")
				}
				break
			}
		}
		var affiliations []string
		for _, a := range c.Affiliation {
			if n := strings.TrimSpace(a.Name); n != "" {
				affiliations = append(affiliations, n)
			}
		}
		out = append(out, domain.Author{
			Name:         name,
			ORCID:        orcid,
			Affiliations: affiliations,
			Index:        len(out),
		})
	}
	return out
}

// dateIssued uses the Issued date when present, else the publication year.
func dateIssued(attrs Attributes) string {
	for _, d := range attrs.Dates {
		if !strings.EqualFold(d.DateType, "Issued") {
			continue
		}
		for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
			t, err := time.Parse(layout, strings.TrimSpace(d.Date))
			if err != nil {
				continue
			}
			switch layout {
			case "2006-01-02":
				return domain.FormatDateIssued(t.Year(), int(t.Month()), t.Day())
			case "2006-01":
				return domain.FormatDateIssued(t.Year(), int(t.Month()), 0)
			default:
				return domain.FormatDateIssued(t.Year(), 0, 0)
			}
		}
	}
	return domain.FormatDateIssued(attrs.PublicationYear, 0, 0)
}

func subjects(list []Subject) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range list {
		v := strings.TrimSpace(s.Subject)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func funders(refs []FundingReference) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range refs {
		v := strings.TrimSpace(r.FunderName)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
