// Package pmc is the client for two PMC utility services: the ID Converter,
// which cross-references PMIDs, PMCIDs and DOIs in batches, and the Open
// Access web service, which lists full-text package links.
//
// ID Converter: https://www.ncbi.nlm.nih.gov/pmc/tools/id-converter-api/
// OA service:   https://www.ncbi.nlm.nih.gov/pmc/tools/oa-service/
package pmc

import "encoding/xml"

// IDConvResponse is the ID Converter XML response.
type IDConvResponse struct {
	XMLName xml.Name       `xml:"pmcids"`
	Status  string         `xml:"status,attr"`
	Records []IDConvRecord `xml:"record"`
}

// IDConvRecord is the conversion result for one requested id.
type IDConvRecord struct {
	RequestedID string `xml:"requested-id,attr"`
	PMCID       string `xml:"pmcid,attr"`
	PMID        string `xml:"pmid,attr"`
	DOI         string `xml:"doi,attr"`
	Status      string `xml:"status,attr"`
	ErrMsg      string `xml:"errmsg,attr"`
}

// OAResponse is the OA web service XML response.
type OAResponse struct {
	XMLName xml.Name   `xml:"OA"`
	Error   *OAError   `xml:"error"`
	Records []OARecord `xml:"records>record"`
}

// OAError is returned for ids that are not in the open-access subset.
type OAError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// OARecord lists the full-text links of one article.
type OARecord struct {
	ID        string   `xml:"id,attr"`
	License   string   `xml:"license,attr"`
	Retracted string   `xml:"retracted,attr"`
	Links     []OALink `xml:"link"`
}

// OALink is one downloadable package.
type OALink struct {
	Format string `xml:"format,attr"`
	Href   string `xml:"href,attr"`
}
