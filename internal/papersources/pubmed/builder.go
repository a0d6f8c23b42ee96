package pubmed

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// Builder converts PubmedArticle XML into normalized metadata.
type Builder struct{}

// Provider returns the raw-record discriminant the builder handles.
func (Builder) Provider() string {
	return domain.ProviderPubMed
}

// Build parses the first article of an efetch payload.
func (Builder) Build(raw *papersources.RawRecord) (*domain.NormalizedMetadata, error) {
	var set PubmedArticleSet
	if err := xml.Unmarshal(raw.Payload, &set); err != nil {
		return nil, fmt.Errorf("parse pubmed payload: %w", err)
	}
	if len(set.Articles) == 0 {
		return nil, domain.NewNotFoundError("pubmed article", raw.IDs.String())
	}

	meta := articleToMetadata(set.Articles[0])
	meta.Identifiers = meta.Identifiers.Merge(raw.IDs)
	return meta, nil
}

func articleToMetadata(article PubmedArticle) *domain.NormalizedMetadata {
	citation := article.MedlineCitation
	ids := domain.CandidateIDs{
		PrimaryID: strings.TrimSpace(citation.PMID.Value),
		DOI:       extractDOI(citation.Article, article.PubmedData),
	}
	for _, aid := range article.PubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "pmc" {
			ids.SecondaryID = domain.NormalizePMCID(aid.Value)
			break
		}
	}

	journal := citation.Article.Journal
	title := journal.Title
	if title == "" {
		title = journal.ISOAbbreviation
	}

	return &domain.NormalizedMetadata{
		Title:      papersources.StripMarkup(citation.Article.ArticleTitle.Inner),
		Abstract:   extractAbstract(citation.Article.Abstract),
		Authors:    extractAuthors(citation.Article.AuthorList),
		DateIssued: extractDateIssued(citation.Article),
		Journal: domain.Journal{
			Title:  title,
			Volume: journal.JournalIssue.Volume,
			Issue:  journal.JournalIssue.Issue,
			Pages:  extractPages(citation.Article.Pagination),
		},
		Keywords:       extractKeywords(citation),
		Funders:        extractFunders(citation.Article.GrantList),
		Identifiers:    ids,
		SourceProvider: domain.ProviderPubMed,
	}
}

// extractDOI checks ELocationID first, then ArticleIdList.
func extractDOI(article Article, pubmedData PubmedData) string {
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return domain.NormalizeDOI(eloc.Value)
		}
	}
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return domain.NormalizeDOI(aid.Value)
		}
	}
	return ""
}

// extractDateIssued prefers the electronic ArticleDate over the issue PubDate.
func extractDateIssued(article Article) string {
	for _, ad := range article.ArticleDate {
		if ad.DateType == "" || strings.EqualFold(ad.DateType, "electronic") {
			if y := atoi(ad.Year); y > 0 {
				return domain.FormatDateIssued(y, parseMonth(ad.Month), atoi(ad.Day))
			}
		}
	}

	pubDate := article.Journal.JournalIssue.PubDate
	if pubDate.Year != "" {
		return domain.FormatDateIssued(atoi(pubDate.Year), parseMonth(pubDate.Month), atoi(pubDate.Day))
	}
	if pubDate.MedlineDate != "" {
		return domain.FormatDateIssued(extractYearFromMedlineDate(pubDate.MedlineDate), 0, 0)
	}
	return ""
}

var monthNames = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// parseMonth parses a numeric or named month. Unknown values return 0.
func parseMonth(month string) int {
	month = strings.TrimSpace(month)
	if month == "" {
		return 0
	}
	if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
		return m
	}
	return monthNames[strings.ToLower(month)]
}

// extractYearFromMedlineDate handles "2020 Jan-Feb", "2020 Spring" and "2020-2021".
func extractYearFromMedlineDate(medlineDate string) int {
	parts := strings.Fields(medlineDate)
	if len(parts) == 0 {
		return 0
	}
	return atoi(strings.Split(parts[0], "-")[0])
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// extractAbstract joins abstract sections, prefixing labeled ones.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	parts := make([]string, 0, len(abstract.AbstractTexts))
	for _, at := range abstract.AbstractTexts {
		text := papersources.StripMarkup(at.Inner)
		if text == "" {
			continue
		}
		if at.Label != "" && len(abstract.AbstractTexts) > 1 {
			text = at.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// extractAuthors keeps valid authors in order with every listed affiliation.
func extractAuthors(authorList *AuthorList) []domain.Author {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]domain.Author, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		name := a.CollectiveName
		if name == "" {
			name = strings.TrimSpace(strings.Join([]string{a.ForeName, a.LastName}, " "))
		}
		if name == "" {
			continue
		}

		var orcid string
		for _, id := range a.Identifiers {
			if strings.EqualFold(id.Source, "ORCID") {
				orcid = normalizeORCID(id.Value)
				break
			}
		}

		var affiliations []string
		for _, info := range a.AffiliationInfo {
			if aff := strings.TrimSpace(info.Affiliation); aff != "" {
				affiliations = append(affiliations, aff)
			}
		}

		authors = append(authors, domain.Author{
			Name:         name,
			ORCID:        orcid,
			Affiliations: affiliations,
			Index:        len(authors),
		})
	}
	return authors
}

// normalizeORCID returns the ORCID as a full https://orcid.org/ URL.
func normalizeORCID(orcid string) string {
	orcid = strings.TrimSpace(orcid)
	if orcid == "" {
		return ""
	}
	orcid = strings.TrimPrefix(orcid, "http://orcid.org/")
	orcid = strings.TrimPrefix(orcid, "https://orcid.org/")
	return "https://orcid.org/" + orcid
}

// extractKeywords returns author keywords followed by MeSH descriptors, without duplicates.
func extractKeywords(citation MedlineCitation) []string {
	seen := make(map[string]bool)
	var keywords []string
	add := func(kw string) {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			return
		}
		seen[key] = true
		keywords = append(keywords, kw)
	}

	for _, list := range citation.KeywordList {
		for _, kw := range list.Keywords {
			add(kw.Value)
		}
	}
	if citation.MeshHeadingList != nil {
		for _, mh := range citation.MeshHeadingList.MeshHeadings {
			add(mh.DescriptorName.Value)
		}
	}
	return keywords
}

// extractFunders returns the distinct grant agencies.
func extractFunders(grants *GrantList) []string {
	if grants == nil {
		return nil
	}
	seen := make(map[string]bool)
	var funders []string
	for _, g := range grants.Grants {
		agency := strings.TrimSpace(g.Agency)
		if agency == "" || seen[agency] {
			continue
		}
		seen[agency] = true
		funders = append(funders, agency)
	}
	return funders
}

// extractPages formats the page information.
func extractPages(pagination *Pagination) string {
	if pagination == nil {
		return ""
	}
	if pagination.MedlinePgn != "" {
		return pagination.MedlinePgn
	}
	if pagination.StartPage != "" {
		if pagination.EndPage != "" && pagination.EndPage != pagination.StartPage {
			return pagination.StartPage + "-" + pagination.EndPage
		}
		return pagination.StartPage
	}
	return ""
}
