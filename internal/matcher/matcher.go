// Package matcher decides whether a candidate already exists in the
// repository and, if so, whether it still needs a file.
package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// Decision routes a candidate after an index lookup.
type Decision int

const (
	// DecisionCreate means no existing work matched.
	DecisionCreate Decision = iota
	// DecisionAttachOnly means a work matched but has no file sets.
	DecisionAttachOnly
	// DecisionSkip means a work matched and already has file sets.
	DecisionSkip
)

// String returns the decision name used in logs.
func (d Decision) String() string {
	switch d {
	case DecisionCreate:
		return "create"
	case DecisionAttachOnly:
		return "attach_only"
	case DecisionSkip:
		return "skip"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Searcher is the search index lookup the matcher depends on.
type Searcher interface {
	SearchByIdentifier(ctx context.Context, field, value string) (*domain.SearchDocument, error)
}

// Matcher looks candidates up in the search index.
type Matcher struct {
	index  Searcher
	logger zerolog.Logger
}

// New creates a matcher over the given index.
func New(index Searcher, logger zerolog.Logger) *Matcher {
	return &Matcher{
		index:  index,
		logger: logger.With().Str("component", "matcher").Logger(),
	}
}

// Match queries the index by DOI, then secondary id, then primary id and
// decides on the first hit. A lookup error other than not-found is returned
// so the caller can classify it.
func (m *Matcher) Match(ctx context.Context, ids domain.CandidateIDs) (Decision, *domain.SearchDocument, error) {
	n := ids.Normalize()
	lookups := []struct {
		field string
		value string
	}{
		{domain.FieldDOI, n.DOI},
		{domain.FieldSecondaryID, n.SecondaryID},
		{domain.FieldPrimaryID, n.PrimaryID},
	}

	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		doc, err := m.index.SearchByIdentifier(ctx, l.field, l.value)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return DecisionCreate, nil, fmt.Errorf("search index lookup by %s: %w", l.field, err)
		}

		decision := DecisionAttachOnly
		if doc.HasFiles() {
			decision = DecisionSkip
		}
		m.logger.Debug().
			Str("field", l.field).
			Str("value", l.value).
			Str("work_id", doc.ID).
			Stringer("decision", decision).
			Msg("existing work matched")
		return decision, doc, nil
	}
	return DecisionCreate, nil, nil
}
