package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// Fetcher fetches raw records from named providers concurrently, returning
// results in the order of names.
type Fetcher interface {
	FetchAll(ctx context.Context, names []string, ids domain.CandidateIDs) ([]papersources.FetchResult, error)
}

// Resolver produces one normalized record per candidate from a prioritized
// provider list.
type Resolver struct {
	fetcher   Fetcher
	builders  *Builders
	cache     *Cache
	providers []string
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Providers lists provider names in priority order. The first is primary.
	Providers []string

	// Cache is optional.
	Cache *Cache

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// NewResolver creates a Resolver. Providers without a registered builder are
// dropped with a warning, since their records could never be normalized.
func NewResolver(fetcher Fetcher, builders *Builders, cfg ResolverConfig) *Resolver {
	r := &Resolver{
		fetcher:  fetcher,
		builders: builders,
		cache:    cfg.Cache,
		logger:   cfg.Logger.With().Str("component", "metadata_resolver").Logger(),
		metrics:  cfg.Metrics,
	}
	for _, name := range cfg.Providers {
		if !builders.Has(name) {
			r.logger.Warn().Str("provider", name).Msg("no record builder for provider, skipping it")
			continue
		}
		r.providers = append(r.providers, name)
	}
	return r
}

// ResetCache empties the resolver's cache.
func (r *Resolver) ResetCache() {
	r.cache.Reset()
}

// Forget drops the cached records of ids.
func (r *Resolver) Forget(ids domain.CandidateIDs) {
	r.cache.Invalidate(ids)
}

// Resolve fetches the candidate from every provider, picks the record of the
// highest-priority provider that produced one and fills its empty abstract,
// keywords, identifiers and full-text link from the other records.
//
// A failing provider is logged and skipped. When no provider produces a
// record the error wraps domain.ErrNoMetadata.
func (r *Resolver) Resolve(ctx context.Context, ids domain.CandidateIDs) (*domain.NormalizedMetadata, error) {
	if ids.Empty() {
		return nil, domain.ErrNoIdentifier
	}
	logger := observability.WithCandidateContext(r.logger, ids)

	built := make(map[string]*domain.NormalizedMetadata, len(r.providers))
	var missing []string
	for _, name := range r.providers {
		if meta, ok := r.cache.Get(name, ids); ok {
			built[name] = meta
			continue
		}
		missing = append(missing, name)
	}

	var failures []string
	if len(missing) > 0 {
		results, err := r.fetcher.FetchAll(ctx, missing, ids)
		if err != nil {
			return nil, fmt.Errorf("fetch metadata: %w", err)
		}
		for _, res := range results {
			if res.Error != nil {
				failures = append(failures, res.Provider+": "+res.Error.Error())
				event := logger.Warn()
				if errors.Is(res.Error, domain.ErrNotFound) || errors.Is(res.Error, domain.ErrNoIdentifier) {
					event = logger.Debug()
				}
				event.Err(res.Error).Str("provider", res.Provider).Msg("metadata provider returned no record")
				continue
			}
			meta, err := r.builders.Build(res.Record)
			if err != nil {
				failures = append(failures, res.Provider+": "+err.Error())
				logger.Warn().Err(err).Str("provider", res.Provider).Msg("failed to build metadata record")
				continue
			}
			built[res.Provider] = meta
			r.cache.Put(res.Provider, ids, meta)
		}
	}

	var chosen *domain.NormalizedMetadata
	var others []*domain.NormalizedMetadata
	for _, name := range r.providers {
		meta, ok := built[name]
		if !ok {
			continue
		}
		if chosen == nil {
			chosen = meta
			continue
		}
		others = append(others, meta)
	}

	if chosen == nil {
		if len(failures) == 0 {
			return nil, fmt.Errorf("%w: no provider configured", domain.ErrNoMetadata)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrNoMetadata, strings.Join(failures, "; "))
	}

	if len(r.providers) > 0 && chosen.SourceProvider != r.providers[0] {
		logger.Warn().
			Str("primary", r.providers[0]).
			Str("fallback", chosen.SourceProvider).
			Msg("primary metadata provider had no record, using fallback")
		r.metrics.RecordProviderFallback(chosen.SourceProvider)
	}

	return Merge(chosen, others...), nil
}

// Merge returns a copy of chosen with its empty supplementary fields filled
// from others, in order. Non-empty fields of chosen are never overwritten.
func Merge(chosen *domain.NormalizedMetadata, others ...*domain.NormalizedMetadata) *domain.NormalizedMetadata {
	merged := *chosen
	for _, other := range others {
		if other == nil {
			continue
		}
		if strings.TrimSpace(merged.Abstract) == "" && strings.TrimSpace(other.Abstract) != "" {
			merged.Abstract = other.Abstract
		}
		if len(merged.Keywords) == 0 && len(other.Keywords) > 0 {
			merged.Keywords = other.Keywords
		}
		if len(merged.Funders) == 0 && len(other.Funders) > 0 {
			merged.Funders = other.Funders
		}
		if merged.FullTextURL == "" {
			merged.FullTextURL = other.FullTextURL
		}
		merged.Identifiers = merged.Identifiers.Merge(other.Identifiers)
	}
	return &merged
}
