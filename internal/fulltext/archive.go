package fulltext

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ExtractPDFs returns the PDF members of a tar.gz or zip archive in archive
// order. Non-PDF entries are skipped. Every member is capped at maxSize bytes.
func ExtractPDFs(data []byte, maxSize int64) ([]Document, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	switch {
	case isGzip(data):
		return extractTarGz(data, maxSize)
	case isZip(data):
		return extractZip(data, maxSize)
	default:
		return nil, fmt.Errorf("unsupported archive format")
	}
}

func extractTarGz(data []byte, maxSize int64) ([]Document, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	var docs []Document
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !hasPDFName(hdr.Name) {
			continue
		}

		content, err := readMember(tr, maxSize)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		if !IsPDF(content) {
			continue
		}
		docs = append(docs, newDocument(path.Base(hdr.Name), content, StrategyArchive))
	}
	return docs, nil
}

func extractZip(data []byte, maxSize int64) ([]Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip archive: %w", err)
	}

	var docs []Document
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !hasPDFName(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		content, err := readMember(rc, maxSize)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if !IsPDF(content) {
			continue
		}
		docs = append(docs, newDocument(path.Base(f.Name), content, StrategyArchive))
	}
	return docs, nil
}

func readMember(r io.Reader, maxSize int64) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, maxSize)
	}
	return content, nil
}

func hasPDFName(name string) bool {
	return strings.EqualFold(path.Ext(name), ".pdf")
}
