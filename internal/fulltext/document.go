// Package fulltext acquires full-text files for repository works: staged
// local files, HTTP and FTP downloads, and PDFs extracted from archives.
package fulltext

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Strategy names reported to metrics and logs.
const (
	StrategyLocal   = "local"
	StrategyHTTP    = "http"
	StrategyFTP     = "ftp"
	StrategyArchive = "archive"
)

// DefaultMaxSize is the size cap of a fetched file or archive.
const DefaultMaxSize = 100 * 1024 * 1024

// Sentinel errors for acquisition.
var (
	// ErrTooLarge is returned when a file exceeds the maximum allowed size.
	ErrTooLarge = errors.New("fulltext: file exceeds maximum size")
	// ErrDownloadFailed is returned when a download fails due to network or protocol errors.
	ErrDownloadFailed = errors.New("fulltext: download failed")
	// ErrSSRF is returned when a URL resolves to a private/internal network address.
	ErrSSRF = errors.New("fulltext: request to private network denied")
)

var (
	magicPDF  = []byte("%PDF-")
	magicGzip = []byte{0x1f, 0x8b}
	magicZip  = []byte("PK\x03\x04")
)

// Document is one acquired file held in memory.
type Document struct {
	// Name is the base name of the remote file, archive member or local path.
	Name string
	// Content is the file bytes.
	Content []byte
	// SHA256 is the hex digest of Content.
	SHA256 string
	// Strategy is how the file was acquired.
	Strategy string
}

// Size returns the content length in bytes.
func (d Document) Size() int64 {
	return int64(len(d.Content))
}

func newDocument(name string, content []byte, strategy string) Document {
	sum := sha256.Sum256(content)
	return Document{
		Name:     name,
		Content:  content,
		SHA256:   hex.EncodeToString(sum[:]),
		Strategy: strategy,
	}
}

// IsPDF reports whether content starts with the PDF header.
func IsPDF(content []byte) bool {
	return bytes.HasPrefix(content, magicPDF)
}

func isGzip(content []byte) bool {
	return bytes.HasPrefix(content, magicGzip)
}

func isZip(content []byte) bool {
	return bytes.HasPrefix(content, magicZip)
}
