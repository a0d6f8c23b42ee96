package domain

import (
	"strings"
)

// Key prefixes of the composite deduplication key, in priority order.
const (
	keyPrefixDOI       = "doi:"
	keyPrefixSecondary = "pmcid:"
	keyPrefixPrimary   = "pmid:"
)

// CandidateIDs is the cross-referenced identifier set of one candidate record.
// PrimaryID is the literature index id (PMID), SecondaryID the full-text mirror
// id (PMCID). Error carries the converter's status message when reconciliation
// failed for the requested id.
type CandidateIDs struct {
	PrimaryID   string `json:"pmid,omitempty"`
	SecondaryID string `json:"pmcid,omitempty"`
	DOI         string `json:"doi,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Normalize trims every identifier, lowercases the DOI and strips resolver
// prefixes so that equal identifiers compare equal.
func (c CandidateIDs) Normalize() CandidateIDs {
	return CandidateIDs{
		PrimaryID:   strings.TrimSpace(c.PrimaryID),
		SecondaryID: NormalizePMCID(c.SecondaryID),
		DOI:         NormalizeDOI(c.DOI),
		Error:       strings.TrimSpace(c.Error),
	}
}

// Empty reports whether no identifier field is set.
func (c CandidateIDs) Empty() bool {
	return strings.TrimSpace(c.PrimaryID) == "" &&
		strings.TrimSpace(c.SecondaryID) == "" &&
		strings.TrimSpace(c.DOI) == ""
}

// Key returns the composite deduplication key.
// Priority order: DOI > SecondaryID > PrimaryID.
// Returns empty string if no identifiers are available.
func (c CandidateIDs) Key() string {
	n := c.Normalize()
	if n.DOI != "" {
		return keyPrefixDOI + n.DOI
	}
	if n.SecondaryID != "" {
		return keyPrefixSecondary + n.SecondaryID
	}
	if n.PrimaryID != "" {
		return keyPrefixPrimary + n.PrimaryID
	}
	return ""
}

// Keys returns one key per populated identifier, in priority order.
func (c CandidateIDs) Keys() []string {
	n := c.Normalize()
	keys := make([]string, 0, 3)
	if n.DOI != "" {
		keys = append(keys, keyPrefixDOI+n.DOI)
	}
	if n.SecondaryID != "" {
		keys = append(keys, keyPrefixSecondary+n.SecondaryID)
	}
	if n.PrimaryID != "" {
		keys = append(keys, keyPrefixPrimary+n.PrimaryID)
	}
	return keys
}

// String renders the identifier set for logs and report rows.
func (c CandidateIDs) String() string {
	parts := make([]string, 0, 3)
	if c.PrimaryID != "" {
		parts = append(parts, "PMID:"+c.PrimaryID)
	}
	if c.SecondaryID != "" {
		parts = append(parts, "PMCID:"+c.SecondaryID)
	}
	if c.DOI != "" {
		parts = append(parts, "DOI:"+c.DOI)
	}
	return strings.Join(parts, " ")
}

// Merge fills empty identifiers of c from other.
func (c CandidateIDs) Merge(other CandidateIDs) CandidateIDs {
	if c.PrimaryID == "" {
		c.PrimaryID = other.PrimaryID
	}
	if c.SecondaryID == "" {
		c.SecondaryID = other.SecondaryID
	}
	if c.DOI == "" {
		c.DOI = other.DOI
	}
	return c
}

// NormalizeDOI strips resolver prefixes from a DOI and returns it lowercase.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}
	lower := strings.ToLower(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(lower, prefix) {
			lower = lower[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(lower)
}

// NormalizePMCID returns a PMCID in its canonical "PMC<digits>" form.
func NormalizePMCID(pmcid string) string {
	pmcid = strings.TrimSpace(pmcid)
	if pmcid == "" {
		return ""
	}
	upper := strings.ToUpper(pmcid)
	if strings.HasPrefix(upper, "PMC") {
		return "PMC" + pmcid[3:]
	}
	return "PMC" + pmcid
}

// Candidate is one line of a reconciled identifier log: an identifier set and,
// for list-driven sources, the path of a full-text file staged before the run.
type Candidate struct {
	CandidateIDs
	FilePath string `json:"file_path,omitempty"`
}
