package papersources

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripMarkup returns the text content of an XML or JATS fragment with
// entities decoded and whitespace collapsed. Malformed fragments fall back
// to removing anything that looks like a tag.
func StripMarkup(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapseSpace(fragment)
	}

	dec := xml.NewDecoder(strings.NewReader("<root>" + fragment + "</root>"))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return collapseSpace(tagPattern.ReplaceAllString(fragment, " "))
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			// Block-level JATS elements separate words.
			if t.Name.Local == "p" || t.Name.Local == "title" || t.Name.Local == "sec" {
				sb.WriteByte(' ')
			}
		}
	}
	return collapseSpace(sb.String())
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
