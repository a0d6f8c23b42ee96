package domain

// Identifier fields understood by the repository search index.
const (
	FieldDOI         = "doi"
	FieldSecondaryID = "pmcid"
	FieldPrimaryID   = "pmid"
)

// Visibility values applied to works and file sets.
const (
	VisibilityOpen       = "open"
	VisibilityRestricted = "restricted"
)

// SearchDocument is the search-index summary of an existing repository work.
type SearchDocument struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	AdminSet   string   `json:"admin_set"`
	FileSetIDs []string `json:"file_set_ids,omitempty"`
}

// HasFiles reports whether the work already has attached file sets.
func (d *SearchDocument) HasFiles() bool {
	return d != nil && len(d.FileSetIDs) > 0
}

// WorkHandle references a repository work created or found by the pipeline.
type WorkHandle struct {
	ID       string
	Title    string
	AdminSet string
}

// FileHandle references a file set attached to a work.
type FileHandle struct {
	ID       string
	WorkID   string
	FileName string
}

// Creator is the repository form of an author.
type Creator struct {
	Name        string `json:"name"`
	ORCID       string `json:"orcid,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Index       int    `json:"index"`
}

// WorkAttributes is the attribute set persisted when a work is created.
type WorkAttributes struct {
	Title           string       `json:"title"`
	Abstract        string       `json:"abstract"`
	Creators        []Creator    `json:"creators"`
	DateIssued      string       `json:"date_issued,omitempty"`
	Publisher       string       `json:"publisher,omitempty"`
	Journal         Journal      `json:"journal"`
	Keywords        []string     `json:"keywords,omitempty"`
	Funders         []string     `json:"funders,omitempty"`
	Identifiers     []string     `json:"identifiers"`
	IDs             CandidateIDs `json:"-"`
	RightsStatement string       `json:"rights_statement"`
	ResourceType    string       `json:"resource_type"`
	Visibility      string       `json:"visibility"`
	Depositor       string       `json:"depositor"`
	AdminSet        string       `json:"admin_set"`
	SourceProvider  string       `json:"source_provider"`
}

// FileSpec describes a fetched file ready to be attached to a work.
type FileSpec struct {
	Path       string
	Name       string
	Visibility string
	Size       int64
	SHA256     string
	PageCount  int
}
