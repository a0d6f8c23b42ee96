// Package datacite is the client for the DataCite REST API, used as a
// DOI-keyed metadata provider for datasets, reports and other non-journal
// outputs that Crossref does not register.
//
// API Documentation: https://support.datacite.org/docs/api
package datacite

// DOIResponse is the JSON:API envelope of GET /dois/{doi}.
type DOIResponse struct {
	Data Data `json:"data"`
}

// Data is the resource object.
type Data struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Attributes Attributes `json:"attributes"`
}

// Attributes holds the DataCite metadata of a DOI.
type Attributes struct {
	DOI               string             `json:"doi"`
	Titles            []Title            `json:"titles"`
	Creators          []Creator          `json:"creators"`
	Publisher         string             `json:"publisher"`
	PublicationYear   int                `json:"publicationYear"`
	Dates             []Date             `json:"dates"`
	Descriptions      []Description      `json:"descriptions"`
	Subjects          []Subject          `json:"subjects"`
	FundingReferences []FundingReference `json:"fundingReferences"`
	Container         Container          `json:"container"`
	URL               string             `json:"url"`
}

// Title is one title of the resource.
type Title struct {
	Title     string `json:"title"`
	TitleType string `json:"titleType"`
}

// Creator is one creator of the resource.
type Creator struct {
	Name            string           `json:"name"`
	NameType        string           `json:"nameType"`
	GivenName       string           `json:"givenName"`
	FamilyName      string           `json:"familyName"`
	Affiliation     []Affiliation    `json:"affiliation"`
	NameIdentifiers []NameIdentifier `json:"nameIdentifiers"`
}

// Affiliation is returned as an object when requested with affiliation=true.
type Affiliation struct {
	Name string `json:"name"`
}

// NameIdentifier is a creator identifier such as an ORCID.
type NameIdentifier struct {
	NameIdentifier       string `json:"nameIdentifier"`
	NameIdentifierScheme string `json:"nameIdentifierScheme"`
}

// Date is a typed date of the resource.
type Date struct {
	Date     string `json:"date"`
	DateType string `json:"dateType"`
}

// Description is a typed description; the Abstract type is the abstract.
type Description struct {
	Description     string `json:"description"`
	DescriptionType string `json:"descriptionType"`
}

// Subject is a free-text or scheme subject.
type Subject struct {
	Subject string `json:"subject"`
}

// FundingReference names a funder.
type FundingReference struct {
	FunderName  string `json:"funderName"`
	AwardNumber string `json:"awardNumber"`
}

// Container is the series or journal the resource belongs to.
type Container struct {
	Title     string `json:"title"`
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	FirstPage string `json:"firstPage"`
	LastPage  string `json:"lastPage"`
}
