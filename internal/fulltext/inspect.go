package fulltext

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// InspectPDF parses the document structure and returns its page count.
// Content without a PDF header is domain.ErrNotPDF.
func InspectPDF(content []byte) (pages int, err error) {
	if !IsPDF(content) {
		return 0, domain.ErrNotPDF
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: malformed document: %v", domain.ErrNotPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrNotPDF, err)
	}
	return reader.NumPage(), nil
}
