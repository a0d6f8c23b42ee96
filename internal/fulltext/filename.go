package fulltext

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultTitleLength is the default number of title characters kept in a
// generated file name.
const DefaultTitleLength = 50

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// FileName derives a deterministic PDF file name from a work title. The
// title is lowercased, runs of non-alphanumerics become "_" and the result
// is cut to maxLen characters. A work that already has existingCount files
// gets the ordinal suffix "_<existingCount+1>".
func FileName(title string, existingCount, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTitleLength
	}

	base := nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "_")
	base = strings.Trim(base, "_")
	if len(base) > maxLen {
		base = strings.TrimRight(base[:maxLen], "_")
	}
	if base == "" {
		base = "document"
	}

	if existingCount > 0 {
		base += "_" + strconv.Itoa(existingCount+1)
	}
	return base + ".pdf"
}
