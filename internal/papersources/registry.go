package papersources

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// FetchResult holds the outcome of a metadata fetch from one provider.
type FetchResult struct {
	// Provider identifies which source produced the result.
	Provider string

	// Record contains the raw record if the fetch succeeded.
	Record *RawRecord

	// Error contains the error if the fetch failed.
	Error error
}

// Registry manages metadata sources and coordinates concurrent fetches.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]MetadataSource
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]MetadataSource),
	}
}

// Register adds a source to the registry, replacing one with the same name.
func (r *Registry) Register(source MetadataSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.Name()] = source
}

// Get returns a source by name, or nil if not found.
func (r *Registry) Get(name string) MetadataSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// Enabled returns the enabled sources among names, preserving the order of
// names. Unknown names are skipped.
func (r *Registry) Enabled(names []string) []MetadataSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]MetadataSource, 0, len(names))
	for _, name := range names {
		if source, ok := r.sources[name]; ok && source.IsEnabled() {
			sources = append(sources, source)
		}
	}
	return sources
}

// FetchAll fetches ids from the enabled sources among names concurrently.
// The result slice is in the order of names so callers can apply provider
// priority. Per-source errors are reported in the results, never returned;
// the only error is a canceled context.
func (r *Registry) FetchAll(ctx context.Context, names []string, ids domain.CandidateIDs) ([]FetchResult, error) {
	sources := r.Enabled(names)
	if len(sources) == 0 {
		return nil, ctx.Err()
	}

	results := make([]FetchResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		g.Go(func() error {
			record, err := source.FetchMetadata(gctx, ids)
			results[i] = FetchResult{
				Provider: source.Name(),
				Record:   record,
				Error:    err,
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
