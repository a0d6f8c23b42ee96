// Package metadata resolves a candidate's normalized metadata from several
// providers. Raw records are fetched concurrently, normalized by the builder
// registered for their provider, chosen by provider priority and enriched
// with the fields the chosen record lacks.
package metadata

import (
	"fmt"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

// Builder normalizes the raw records of one provider format.
type Builder interface {
	// Provider returns the RawRecord.Provider value the builder accepts.
	Provider() string

	// Build converts a raw record into normalized metadata.
	Build(raw *papersources.RawRecord) (*domain.NormalizedMetadata, error)
}

// Builders selects a Builder by the raw record's provider discriminant.
type Builders struct {
	byProvider map[string]Builder
}

// NewBuilders registers the given builders. A later builder replaces an
// earlier one for the same provider.
func NewBuilders(builders ...Builder) *Builders {
	b := &Builders{byProvider: make(map[string]Builder, len(builders))}
	for _, builder := range builders {
		b.byProvider[builder.Provider()] = builder
	}
	return b
}

// Build dispatches raw to the builder registered for raw.Provider and stamps
// the result with that provider.
func (b *Builders) Build(raw *papersources.RawRecord) (*domain.NormalizedMetadata, error) {
	if raw == nil {
		return nil, domain.NewValidationError("raw", "nil record")
	}
	builder, ok := b.byProvider[raw.Provider]
	if !ok {
		return nil, fmt.Errorf("no builder for provider %q: %w", raw.Provider, domain.ErrInvalidInput)
	}
	meta, err := builder.Build(raw)
	if err != nil {
		return nil, fmt.Errorf("build %s record: %w", raw.Provider, err)
	}
	meta.SourceProvider = raw.Provider
	return meta, nil
}

// Has reports whether a builder is registered for provider.
func (b *Builders) Has(provider string) bool {
	_, ok := b.byProvider[provider]
	return ok
}
