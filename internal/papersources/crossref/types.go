// Package crossref is the client for the Crossref REST API works endpoint,
// used as a DOI-keyed metadata provider.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorkResponse is the envelope of GET /works/{doi}.
type WorkResponse struct {
	Status      string `json:"status"`
	MessageType string `json:"message-type"`
	Message     Work   `json:"message"`
}

// Work is a Crossref work record.
type Work struct {
	DOI             string    `json:"DOI"`
	Title           []string  `json:"title"`
	Abstract        string    `json:"abstract"`
	Author          []Author  `json:"author"`
	Publisher       string    `json:"publisher"`
	ContainerTitle  []string  `json:"container-title"`
	Volume          string    `json:"volume"`
	Issue           string    `json:"issue"`
	Page            string    `json:"page"`
	Subject         []string  `json:"subject"`
	Funder          []Funder  `json:"funder"`
	Link            []Link    `json:"link"`
	Issued          DateParts `json:"issued"`
	PublishedPrint  DateParts `json:"published-print"`
	PublishedOnline DateParts `json:"published-online"`
	Type            string    `json:"type"`
}

// Author is one contributor.
type Author struct {
	Given       string        `json:"given"`
	Family      string        `json:"family"`
	Name        string        `json:"name"`
	ORCID       string        `json:"ORCID"`
	Sequence    string        `json:"sequence"`
	Affiliation []Affiliation `json:"affiliation"`
}

// Affiliation is a free-text affiliation.
type Affiliation struct {
	Name string `json:"name"`
}

// Funder is a funding organization.
type Funder struct {
	Name  string   `json:"name"`
	DOI   string   `json:"DOI"`
	Award []string `json:"award"`
}

// Link is a full-text link registered by the publisher.
type Link struct {
	URL                 string `json:"URL"`
	ContentType         string `json:"content-type"`
	IntendedApplication string `json:"intended-application"`
}

// DateParts is Crossref's partial date: [[year, month?, day?]].
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}
