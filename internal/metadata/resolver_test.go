package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// stubSource serves a fixed NormalizedMetadata as a JSON payload.
type stubSource struct {
	name  string
	meta  *domain.NormalizedMetadata
	err   error
	calls atomic.Int32
}

func (s *stubSource) Name() string    { return s.name }
func (s *stubSource) IsEnabled() bool { return true }

func (s *stubSource) FetchMetadata(_ context.Context, ids domain.CandidateIDs) (*papersources.RawRecord, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	payload, err := json.Marshal(s.meta)
	if err != nil {
		return nil, err
	}
	return &papersources.RawRecord{Provider: s.name, Payload: payload, IDs: ids}, nil
}

// jsonBuilder decodes the stub payload.
type jsonBuilder struct{ provider string }

func (b jsonBuilder) Provider() string { return b.provider }

func (b jsonBuilder) Build(raw *papersources.RawRecord) (*domain.NormalizedMetadata, error) {
	var meta domain.NormalizedMetadata
	if err := json.Unmarshal(raw.Payload, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func newTestResolver(t *testing.T, cache *Cache, sources ...*stubSource) (*Resolver, *bytes.Buffer) {
	t.Helper()
	registry := papersources.NewRegistry()
	names := make([]string, 0, len(sources))
	builders := make([]Builder, 0, len(sources))
	for _, s := range sources {
		registry.Register(s)
		names = append(names, s.name)
		builders = append(builders, jsonBuilder{provider: s.name})
	}
	var buf bytes.Buffer
	r := NewResolver(registry, NewBuilders(builders...), ResolverConfig{
		Providers: names,
		Cache:     cache,
		Logger:    zerolog.New(&buf),
	})
	return r, &buf
}

var testIDs = domain.CandidateIDs{SecondaryID: "PMC123456", DOI: "10.1/x"}

func TestResolver_PrimaryWins(t *testing.T) {
	primary := &stubSource{name: "primary", meta: &domain.NormalizedMetadata{Title: "Primary title", Abstract: "Primary abstract"}}
	secondary := &stubSource{name: "secondary", meta: &domain.NormalizedMetadata{Title: "Secondary title", Abstract: "Other", Keywords: []string{"k"}}}
	r, logs := newTestResolver(t, nil, primary, secondary)

	meta, err := r.Resolve(context.Background(), testIDs)
	require.NoError(t, err)

	assert.Equal(t, "primary", meta.SourceProvider)
	assert.Equal(t, "Primary title", meta.Title)
	assert.Equal(t, "Primary abstract", meta.Abstract)
	assert.Equal(t, []string{"k"}, meta.Keywords, "empty keywords are filled from the other provider")
	assert.NotContains(t, logs.String(), "using fallback")
}

func TestResolver_FallbackLogsWarning(t *testing.T) {
	primary := &stubSource{name: "pubmed", err: domain.NewNotFoundError("pubmed record", "x")}
	secondary := &stubSource{name: "openalex", meta: &domain.NormalizedMetadata{Title: "From OpenAlex"}}
	r, logs := newTestResolver(t, nil, primary, secondary)

	meta, err := r.Resolve(context.Background(), testIDs)
	require.NoError(t, err)

	assert.Equal(t, "openalex", meta.SourceProvider)
	assert.Equal(t, "From OpenAlex", meta.Title)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "using fallback")
	assert.Contains(t, logs.String(), `"fallback":"openalex"`)
}

func TestResolver_FillsAbstractFromLowerPriority(t *testing.T) {
	primary := &stubSource{name: "crossref", meta: &domain.NormalizedMetadata{
		Title:       "T",
		Identifiers: domain.CandidateIDs{DOI: "10.1/x"},
	}}
	failing := &stubSource{name: "datacite", err: errors.New("connection reset")}
	enrich := &stubSource{name: "openalex", meta: &domain.NormalizedMetadata{
		Title:       "T2",
		Abstract:    "Rebuilt abstract",
		Keywords:    []string{"Open access"},
		FullTextURL: "https://example.org/x.pdf",
		Identifiers: domain.CandidateIDs{PrimaryID: "42", DOI: "10.1/x"},
	}}
	r, _ := newTestResolver(t, nil, primary, failing, enrich)

	meta, err := r.Resolve(context.Background(), testIDs)
	require.NoError(t, err)

	assert.Equal(t, "crossref", meta.SourceProvider)
	assert.Equal(t, "T", meta.Title)
	assert.Equal(t, "Rebuilt abstract", meta.Abstract)
	assert.Equal(t, []string{"Open access"}, meta.Keywords)
	assert.Equal(t, "https://example.org/x.pdf", meta.FullTextURL)
	assert.Equal(t, "42", meta.Identifiers.PrimaryID)
}

func TestResolver_NoProviderIsNoMetadata(t *testing.T) {
	a := &stubSource{name: "a", err: domain.NewNotFoundError("a", "x")}
	b := &stubSource{name: "b", err: errors.New("boom")}
	r, _ := newTestResolver(t, nil, a, b)

	_, err := r.Resolve(context.Background(), testIDs)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoMetadata)
	assert.Contains(t, err.Error(), "b: boom")
}

func TestResolver_EmptyIdentifiers(t *testing.T) {
	r, _ := newTestResolver(t, nil, &stubSource{name: "a"})
	_, err := r.Resolve(context.Background(), domain.CandidateIDs{})
	assert.ErrorIs(t, err, domain.ErrNoIdentifier)
}

func TestResolver_CanceledContext(t *testing.T) {
	r, _ := newTestResolver(t, nil, &stubSource{name: "a", meta: &domain.NormalizedMetadata{Title: "x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, testIDs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolver_UsesCache(t *testing.T) {
	src := &stubSource{name: "a", meta: &domain.NormalizedMetadata{Title: "cached"}}
	cache := NewCache(time.Hour)
	r, _ := newTestResolver(t, cache, src)

	_, err := r.Resolve(context.Background(), testIDs)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), testIDs)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	r.Forget(testIDs)
	_, err = r.Resolve(context.Background(), testIDs)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())

	r.ResetCache()
	assert.Zero(t, cache.Len())
	_, err = r.Resolve(context.Background(), testIDs)
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestResolver_SkipsProvidersWithoutBuilder(t *testing.T) {
	known := &stubSource{name: "known", meta: &domain.NormalizedMetadata{Title: "Known"}}
	unknown := &stubSource{name: "unknown", meta: &domain.NormalizedMetadata{Title: "Unknown"}}
	registry := papersources.NewRegistry()
	registry.Register(unknown)
	registry.Register(known)

	var buf bytes.Buffer
	r := NewResolver(registry, NewBuilders(jsonBuilder{provider: "known"}), ResolverConfig{
		Providers: []string{"unknown", "known"},
		Logger:    zerolog.New(&buf),
	})
	assert.Contains(t, buf.String(), "no record builder for provider")

	meta, err := r.Resolve(context.Background(), testIDs)
	require.NoError(t, err)
	assert.Equal(t, "Known", meta.Title)
	assert.Zero(t, unknown.calls.Load())
	assert.Equal(t, int32(1), known.calls.Load())
}

func TestMerge_DoesNotMutateChosen(t *testing.T) {
	chosen := &domain.NormalizedMetadata{Title: "T"}
	other := &domain.NormalizedMetadata{Abstract: "A", Keywords: []string{"k"}}

	merged := Merge(chosen, nil, other)

	assert.Equal(t, "A", merged.Abstract)
	assert.Empty(t, chosen.Abstract)
	assert.Nil(t, chosen.Keywords)
}

func TestBuilders_Build(t *testing.T) {
	b := NewBuilders(jsonBuilder{provider: "a"})
	assert.True(t, b.Has("a"))
	assert.False(t, b.Has("z"))

	meta, err := b.Build(&papersources.RawRecord{Provider: "a", Payload: []byte(`{"title":"x","source_provider":"wrong"}`)})
	require.NoError(t, err)
	assert.Equal(t, "a", meta.SourceProvider)

	_, err = b.Build(&papersources.RawRecord{Provider: "z"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = b.Build(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
