package fulltext

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// Fetcher retrieves one file from a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (*Document, error)
}

// Config holds acquisition settings.
type Config struct {
	// StagingRoot resolves relative local paths.
	StagingRoot string
	// MaxSize caps every fetched file, archive and archive member.
	MaxSize int64
	HTTP    HTTPConfig
	FTP     FTPConfig
}

// Acquirer picks a fetch strategy from a link's scheme and unpacks
// archives into their PDF members.
type Acquirer struct {
	local   Fetcher
	http    Fetcher
	ftp     Fetcher
	maxSize int64
}

// NewAcquirer creates an Acquirer with the local, HTTP and FTP fetchers.
func NewAcquirer(cfg Config) *Acquirer {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.HTTP.MaxSize == 0 {
		cfg.HTTP.MaxSize = cfg.MaxSize
	}
	if cfg.FTP.MaxSize == 0 {
		cfg.FTP.MaxSize = cfg.MaxSize
	}
	return &Acquirer{
		local:   NewLocalFetcher(cfg.StagingRoot, cfg.MaxSize),
		http:    NewHTTPFetcher(cfg.HTTP),
		ftp:     NewFTPFetcher(cfg.FTP),
		maxSize: cfg.MaxSize,
	}
}

// Acquire fetches the link and returns the PDF documents it yields: the
// file itself, or every PDF member of an archive. An archive without PDF
// members is ErrLinkNotFound; a non-archive that is not a PDF is ErrNotPDF.
func (a *Acquirer) Acquire(ctx context.Context, link papersources.FullTextLink) ([]Document, error) {
	fetcher, err := a.fetcherFor(link.URL)
	if err != nil {
		return nil, err
	}

	doc, err := fetcher.Fetch(ctx, link.URL)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(link.Format)
	if format == "tgz" || format == "zip" || isGzip(doc.Content) || isZip(doc.Content) {
		docs, err := ExtractPDFs(doc.Content, a.maxSize)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", doc.Name, err)
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("%w: archive %s has no PDF members", domain.ErrLinkNotFound, doc.Name)
		}
		return docs, nil
	}

	if !IsPDF(doc.Content) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotPDF, doc.Name)
	}
	return []Document{*doc}, nil
}

func (a *Acquirer) fetcherFor(location string) (Fetcher, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty location", domain.ErrLinkNotFound)
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid location %q", ErrDownloadFailed, location)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return a.http, nil
	case "ftp":
		return a.ftp, nil
	case "", "file":
		return a.local, nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrDownloadFailed, u.Scheme)
	}
}
