// Package govinfo is the client for the GovInfo API of the U.S. Government
// Publishing Office. Government documents carry no DOI; they are keyed by
// their GovInfo package id and their PDF rendition is fetched directly.
//
// API Documentation: https://api.govinfo.gov/docs/
package govinfo

// CollectionResponse is one page of GET /collections/{code}/{start}/{end}.
type CollectionResponse struct {
	Count    int              `json:"count"`
	Message  string           `json:"message"`
	NextPage string           `json:"nextPage"`
	Packages []PackageSummary `json:"packages"`
}

// PackageSummary is one package of a collection listing.
type PackageSummary struct {
	PackageID    string `json:"packageId"`
	LastModified string `json:"lastModified"`
	PackageLink  string `json:"packageLink"`
	DocClass     string `json:"docClass"`
	Title        string `json:"title"`
	DateIssued   string `json:"dateIssued"`
}

// Summary is the GET /packages/{id}/summary response.
type Summary struct {
	PackageID          string   `json:"packageId"`
	Title              string   `json:"title"`
	CollectionCode     string   `json:"collectionCode"`
	CollectionName     string   `json:"collectionName"`
	Category           string   `json:"category"`
	DateIssued         string   `json:"dateIssued"`
	Publisher          string   `json:"publisher"`
	GovernmentAuthor1  string   `json:"governmentAuthor1"`
	GovernmentAuthor2  string   `json:"governmentAuthor2"`
	SuDocClassNumber   string   `json:"suDocClassNumber"`
	Pages              string   `json:"pages"`
	Subjects           []string `json:"subjects"`
	Download           Download `json:"download"`
	Abstract           string   `json:"abstract"`
	DocumentNumber     string   `json:"documentNumber"`
	Congress           string   `json:"congress"`
	PersonalAuthors    []string `json:"personalAuthors"`
}

// Download holds the rendition links of a package.
type Download struct {
	PDFLink string `json:"pdfLink"`
	TxtLink string `json:"txtLink"`
	ZipLink string `json:"zipLink"`
}
