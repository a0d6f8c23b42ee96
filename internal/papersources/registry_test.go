package papersources

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// mockSource is a mock implementation of MetadataSource for testing.
type mockSource struct {
	name    string
	enabled bool

	fetchFunc  func(ctx context.Context, ids domain.CandidateIDs) (*RawRecord, error)
	fetchCalls atomic.Int32
}

func newMockSource(name string, enabled bool) *mockSource {
	return &mockSource{name: name, enabled: enabled}
}

func (m *mockSource) Name() string    { return m.name }
func (m *mockSource) IsEnabled() bool { return m.enabled }

func (m *mockSource) FetchMetadata(ctx context.Context, ids domain.CandidateIDs) (*RawRecord, error) {
	m.fetchCalls.Add(1)
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, ids)
	}
	return &RawRecord{Provider: m.name, Payload: []byte(m.name), IDs: ids}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("crossref"))

	first := newMockSource("crossref", true)
	r.Register(first)
	assert.Same(t, first, r.Get("crossref"))

	replacement := newMockSource("crossref", false)
	r.Register(replacement)
	assert.Same(t, replacement, r.Get("crossref"))
}

func TestRegistry_Enabled(t *testing.T) {
	r := NewRegistry()
	r.Register(newMockSource("crossref", true))
	r.Register(newMockSource("openalex", true))
	r.Register(newMockSource("datacite", false))

	sources := r.Enabled([]string{"openalex", "datacite", "unknown", "crossref"})

	require.Len(t, sources, 2)
	assert.Equal(t, "openalex", sources[0].Name())
	assert.Equal(t, "crossref", sources[1].Name())
}

func TestRegistry_FetchAll(t *testing.T) {
	ids := domain.CandidateIDs{DOI: "10.1/x"}

	t.Run("returns results in priority order", func(t *testing.T) {
		r := NewRegistry()
		slow := newMockSource("pubmed", true)
		slow.fetchFunc = func(ctx context.Context, ids domain.CandidateIDs) (*RawRecord, error) {
			time.Sleep(20 * time.Millisecond)
			return &RawRecord{Provider: "pubmed", IDs: ids}, nil
		}
		r.Register(slow)
		r.Register(newMockSource("openalex", true))

		results, err := r.FetchAll(context.Background(), []string{"pubmed", "openalex"}, ids)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "pubmed", results[0].Provider)
		assert.Equal(t, "openalex", results[1].Provider)
		assert.Equal(t, ids, results[0].Record.IDs)
	})

	t.Run("keeps per-source errors without failing", func(t *testing.T) {
		r := NewRegistry()
		failing := newMockSource("crossref", true)
		failing.fetchFunc = func(context.Context, domain.CandidateIDs) (*RawRecord, error) {
			return nil, errors.New("boom")
		}
		r.Register(failing)
		r.Register(newMockSource("openalex", true))

		results, err := r.FetchAll(context.Background(), []string{"crossref", "openalex"}, ids)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.EqualError(t, results[0].Error, "boom")
		assert.Nil(t, results[0].Record)
		assert.NoError(t, results[1].Error)
		assert.Equal(t, int32(1), failing.fetchCalls.Load())
	})

	t.Run("no enabled sources", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newMockSource("datacite", false))

		results, err := r.FetchAll(context.Background(), []string{"datacite"}, ids)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("canceled context", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newMockSource("openalex", true))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := r.FetchAll(ctx, []string{"openalex"}, ids)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
