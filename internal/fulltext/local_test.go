package fulltext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

func TestLocalFetcher_Fetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "staged"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "staged", "a.pdf"), samplePDFContent, 0o644))
	ctx := context.Background()

	t.Run("relative to root", func(t *testing.T) {
		doc, err := NewLocalFetcher(root, 0).Fetch(ctx, "staged/a.pdf")
		require.NoError(t, err)
		assert.Equal(t, "a.pdf", doc.Name)
		assert.Equal(t, StrategyLocal, doc.Strategy)
		assert.Equal(t, samplePDFContent, doc.Content)
	})

	t.Run("file url", func(t *testing.T) {
		doc, err := NewLocalFetcher("", 0).Fetch(ctx, "file://"+filepath.Join(root, "staged", "a.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "a.pdf", doc.Name)
	})

	t.Run("missing file is link not found", func(t *testing.T) {
		_, err := NewLocalFetcher(root, 0).Fetch(ctx, "staged/missing.pdf")
		assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	})

	t.Run("size cap", func(t *testing.T) {
		_, err := NewLocalFetcher(root, 4).Fetch(ctx, "staged/a.pdf")
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewLocalFetcher(root, 0).Fetch(cctx, "staged/a.pdf")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFTPFetcher_Guards(t *testing.T) {
	ctx := context.Background()

	_, err := NewFTPFetcher(FTPConfig{}).Fetch(ctx, "http://example.com/a.pdf")
	assert.ErrorIs(t, err, ErrDownloadFailed)

	_, err = NewFTPFetcher(FTPConfig{}).Fetch(ctx, "ftp://127.0.0.1/pub/a.tar.gz")
	assert.ErrorIs(t, err, ErrSSRF)
}
