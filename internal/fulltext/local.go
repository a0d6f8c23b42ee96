package fulltext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// LocalFetcher reads files staged on disk before the run.
type LocalFetcher struct {
	root    string
	maxSize int64
}

// NewLocalFetcher creates a LocalFetcher. Relative paths are resolved
// against root; an empty root leaves them relative to the working directory.
func NewLocalFetcher(root string, maxSize int64) *LocalFetcher {
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	return &LocalFetcher{root: root, maxSize: maxSize}
}

// Fetch reads the file at p, which may be a plain path or a file:// URL.
// A missing file is ErrLinkNotFound.
func (f *LocalFetcher) Fetch(ctx context.Context, p string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p = strings.TrimPrefix(p, "file://")
	if !filepath.IsAbs(p) && f.root != "" {
		p = filepath.Join(f.root, p)
	}

	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLinkNotFound, p)
		}
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}
	if int64(len(content)) > f.maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, f.maxSize)
	}

	doc := newDocument(filepath.Base(p), content, StrategyLocal)
	return &doc, nil
}
