// Package pubmed is the client for the NCBI E-utilities API.
//
// It serves two roles in the pipeline: esearch lists candidate identifiers
// of the pubmed and pmc databases for an affiliation and date filter, and
// efetch returns the PubmedArticle XML that the Builder normalizes.
//
// API documentation: https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pubmed

import "encoding/xml"

// ESearchResult is the esearch.fcgi response.
type ESearchResult struct {
	XMLName   xml.Name   `xml:"eSearchResult"`
	Count     int        `xml:"Count"`
	RetMax    int        `xml:"RetMax"`
	RetStart  int        `xml:"RetStart"`
	IDList    IDList     `xml:"IdList"`
	ErrorList *ErrorList `xml:"ErrorList,omitempty"`
	ERROR     string     `xml:"ERROR,omitempty"`
}

// IDList holds the ids of one esearch page.
type IDList struct {
	IDs []string `xml:"Id"`
}

// ErrorList carries query terms esearch could not resolve.
type ErrorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound,omitempty"`
	FieldNotFound  []string `xml:"FieldNotFound,omitempty"`
}

// PubmedArticleSet is the efetch.fcgi response.
type PubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

// PubmedArticle is one citation with its PubMed bookkeeping data.
type PubmedArticle struct {
	MedlineCitation MedlineCitation `xml:"MedlineCitation"`
	PubmedData      PubmedData      `xml:"PubmedData"`
}

// MedlineCitation holds the bibliographic part of a record.
type MedlineCitation struct {
	PMID            PMID             `xml:"PMID"`
	Article         Article          `xml:"Article"`
	MeshHeadingList *MeshHeadingList `xml:"MeshHeadingList,omitempty"`
	KeywordList     []KeywordList    `xml:"KeywordList,omitempty"`
}

// PMID is the versioned PubMed identifier.
type PMID struct {
	Version int    `xml:"Version,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// Article is the article-level metadata.
type Article struct {
	Journal      Journal       `xml:"Journal"`
	ArticleTitle InnerText     `xml:"ArticleTitle"`
	Pagination   *Pagination   `xml:"Pagination,omitempty"`
	ELocationID  []ELocationID `xml:"ELocationID,omitempty"`
	Abstract     *Abstract     `xml:"Abstract,omitempty"`
	AuthorList   *AuthorList   `xml:"AuthorList,omitempty"`
	GrantList    *GrantList    `xml:"GrantList,omitempty"`
	ArticleDate  []ArticleDate `xml:"ArticleDate,omitempty"`
}

// InnerText captures element text including inline markup such as <i> or <sup>.
type InnerText struct {
	Inner string `xml:",innerxml"`
}

// Journal is the journal the article appeared in.
type Journal struct {
	JournalIssue    JournalIssue `xml:"JournalIssue"`
	Title           string       `xml:"Title,omitempty"`
	ISOAbbreviation string       `xml:"ISOAbbreviation,omitempty"`
}

// JournalIssue holds volume, issue and the print publication date.
type JournalIssue struct {
	Volume  string  `xml:"Volume,omitempty"`
	Issue   string  `xml:"Issue,omitempty"`
	PubDate PubDate `xml:"PubDate"`
}

// PubDate is a publication date in one of its several PubMed shapes.
type PubDate struct {
	Year        string `xml:"Year,omitempty"`
	Month       string `xml:"Month,omitempty"`
	Day         string `xml:"Day,omitempty"`
	Season      string `xml:"Season,omitempty"`
	MedlineDate string `xml:"MedlineDate,omitempty"`
}

// Pagination holds page information.
type Pagination struct {
	StartPage  string `xml:"StartPage,omitempty"`
	EndPage    string `xml:"EndPage,omitempty"`
	MedlinePgn string `xml:"MedlinePgn,omitempty"`
}

// ELocationID is an electronic location such as a DOI or PII.
type ELocationID struct {
	EIdType string `xml:"EIdType,attr"`
	Valid   string `xml:"ValidYN,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// Abstract holds one or more abstract sections.
type Abstract struct {
	AbstractTexts []AbstractText `xml:"AbstractText"`
}

// AbstractText is one abstract section. Structured abstracts label theirs.
type AbstractText struct {
	Label string `xml:"Label,attr,omitempty"`
	Inner string `xml:",innerxml"`
}

// AuthorList holds the article authors in order.
type AuthorList struct {
	Authors []Author `xml:"Author"`
}

// Author is a person or collective author.
type Author struct {
	ValidYN         string            `xml:"ValidYN,attr,omitempty"`
	LastName        string            `xml:"LastName,omitempty"`
	ForeName        string            `xml:"ForeName,omitempty"`
	CollectiveName  string            `xml:"CollectiveName,omitempty"`
	Identifiers     []Identifier      `xml:"Identifier,omitempty"`
	AffiliationInfo []AffiliationInfo `xml:"AffiliationInfo,omitempty"`
}

// Identifier is an author identifier such as an ORCID.
type Identifier struct {
	Source string `xml:"Source,attr"`
	Value  string `xml:",chardata"`
}

// AffiliationInfo is one author affiliation.
type AffiliationInfo struct {
	Affiliation string `xml:"Affiliation"`
}

// GrantList holds the funding grants of the article.
type GrantList struct {
	Grants []Grant `xml:"Grant"`
}

// Grant is one funding grant.
type Grant struct {
	GrantID string `xml:"GrantID,omitempty"`
	Agency  string `xml:"Agency,omitempty"`
	Country string `xml:"Country,omitempty"`
}

// ArticleDate is the electronic publication date.
type ArticleDate struct {
	DateType string `xml:"DateType,attr,omitempty"`
	Year     string `xml:"Year"`
	Month    string `xml:"Month,omitempty"`
	Day      string `xml:"Day,omitempty"`
}

// MeshHeadingList holds the MeSH descriptors of the article.
type MeshHeadingList struct {
	MeshHeadings []MeshHeading `xml:"MeshHeading"`
}

// MeshHeading is one MeSH descriptor.
type MeshHeading struct {
	DescriptorName DescriptorName `xml:"DescriptorName"`
}

// DescriptorName is the MeSH descriptor term.
type DescriptorName struct {
	UI    string `xml:"UI,attr,omitempty"`
	Value string `xml:",chardata"`
}

// KeywordList holds author or publisher keywords.
type KeywordList struct {
	Owner    string    `xml:"Owner,attr,omitempty"`
	Keywords []Keyword `xml:"Keyword"`
}

// Keyword is one keyword.
type Keyword struct {
	Value string `xml:",chardata"`
}

// PubmedData holds the cross-reference ids of the record.
type PubmedData struct {
	PublicationStatus string        `xml:"PublicationStatus,omitempty"`
	ArticleIdList     ArticleIdList `xml:"ArticleIdList"`
}

// ArticleIdList holds every identifier of the article.
type ArticleIdList struct {
	ArticleIds []ArticleId `xml:"ArticleId"`
}

// ArticleId is one identifier (pubmed, doi, pmc, pii).
type ArticleId struct {
	IdType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}
