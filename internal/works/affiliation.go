package works

import (
	"strings"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// ResolveAffiliation returns the first affiliation containing an allow-list
// fragment (case-insensitive), else the first listed affiliation, else "".
func ResolveAffiliation(affiliations, allowList []string) string {
	for _, aff := range affiliations {
		if IsInstitutional(aff, allowList) {
			return strings.TrimSpace(aff)
		}
	}
	for _, aff := range affiliations {
		if aff = strings.TrimSpace(aff); aff != "" {
			return aff
		}
	}
	return ""
}

// IsInstitutional reports whether the affiliation matches the allow-list.
func IsInstitutional(affiliation string, allowList []string) bool {
	lower := strings.ToLower(affiliation)
	for _, fragment := range allowList {
		fragment = strings.ToLower(strings.TrimSpace(fragment))
		if fragment != "" && strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// HasInstitutionalAuthor reports whether any author lists an institutional
// affiliation.
func HasInstitutionalAuthor(meta *domain.NormalizedMetadata, allowList []string) bool {
	if meta == nil {
		return false
	}
	for _, a := range meta.Authors {
		if IsInstitutional(a.Affiliation, allowList) {
			return true
		}
		for _, aff := range a.Affiliations {
			if IsInstitutional(aff, allowList) {
				return true
			}
		}
	}
	return false
}
