// Package openalex is the client for the OpenAlex works API.
//
// OpenAlex is used as a metadata provider: a candidate's work record is
// fetched by DOI, PMID or PMCID and normalized by the Builder. Abstracts come
// as an inverted index and are rebuilt into plain text.
//
// API Documentation: https://docs.openalex.org/
package openalex

// Work is an OpenAlex work record.
type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	Title           string       `json:"title"`
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	PublicationDate string       `json:"publication_date"`
	Type            string       `json:"type"`
	OpenAccess      *OpenAccess  `json:"open_access"`
	Authorships     []Authorship `json:"authorships"`
	PrimaryLocation *Location    `json:"primary_location"`
	BestOALocation  *Location    `json:"best_oa_location"`
	IDs             IDs          `json:"ids"`
	Biblio          Biblio       `json:"biblio"`
	Keywords        []Keyword    `json:"keywords"`
	Grants          []Grant      `json:"grants"`

	// AbstractInvertedIndex maps each word to the positions it occupies.
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// OpenAccess holds the open-access status of a work.
type OpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAURL    string `json:"oa_url"`
	OAStatus string `json:"oa_status"`
}

// Authorship is one author position on a work.
type Authorship struct {
	AuthorPosition        string        `json:"author_position"`
	Author                AuthorInfo    `json:"author"`
	Institutions          []Institution `json:"institutions"`
	RawAffiliationStrings []string      `json:"raw_affiliation_strings"`
}

// AuthorInfo identifies the author.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Orcid       string `json:"orcid"`
}

// Institution is an affiliated institution.
type Institution struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Location is where a work is hosted.
type Location struct {
	Source  *Source `json:"source"`
	PDFURL  string  `json:"pdf_url"`
	Version string  `json:"version"`
}

// Source is the journal or repository of a location.
type Source struct {
	ID                   string `json:"id"`
	DisplayName          string `json:"display_name"`
	Type                 string `json:"type"`
	HostOrganizationName string `json:"host_organization_name"`
}

// IDs holds the external identifiers of a work.
type IDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
	PMID     string `json:"pmid"`
	PMCID    string `json:"pmcid"`
}

// Biblio holds volume, issue and page range.
type Biblio struct {
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	FirstPage string `json:"first_page"`
	LastPage  string `json:"last_page"`
}

// Keyword is a keyword OpenAlex assigned to the work.
type Keyword struct {
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

// Grant is one funding record.
type Grant struct {
	Funder            string `json:"funder"`
	FunderDisplayName string `json:"funder_display_name"`
	AwardID           string `json:"award_id"`
}
