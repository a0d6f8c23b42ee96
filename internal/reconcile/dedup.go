package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/wal"
)

// DedupInput names a reconciled log taking part in deduplication.
type DedupInput struct {
	Stream string
	Path   string
}

// DedupResult summarizes a deduplication pass.
type DedupResult struct {
	Kept      map[string]int
	Removed   map[string]int
	Conflicts int
	Skipped   bool
}

// Deduplicate removes identifier sets already present in the canonical
// stream from the other streams. A record is a duplicate when any of its
// identifiers (DOI, secondary id or primary id) was seen before; the first
// record seen wins, including within a non-canonical stream. The surviving
// records of each non-canonical stream are rewritten atomically. The pass runs
// once per run.
//
// When a dropped record shares a secondary id with a kept record but carries
// a different DOI, the conflict is logged with both DOIs and the kept record
// stays.
func (r *Reconciler) Deduplicate(ctx context.Context, canonical DedupInput, others ...DedupInput) (*DedupResult, error) {
	logger := r.logger.With().Str("stage", "dedup").Logger()
	result := &DedupResult{Kept: map[string]int{}, Removed: map[string]int{}}

	if r.tracker.DedupCompleted() {
		logger.Info().Msg("deduplication already completed, skipping")
		result.Skipped = true
		return result, nil
	}

	seen := newKeySet()
	err := wal.Scan(canonical.Path, 0, func(lineNo int, line string) error {
		var c domain.Candidate
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return fmt.Errorf("parse %s line %d: %w", canonical.Path, lineNo+1, err)
		}
		seen.add(c.CandidateIDs)
		result.Kept[canonical.Stream]++
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, other := range others {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var survivors []string
		err := wal.Scan(other.Path, 0, func(lineNo int, line string) error {
			var c domain.Candidate
			if err := json.Unmarshal([]byte(line), &c); err != nil {
				return fmt.Errorf("parse %s line %d: %w", other.Path, lineNo+1, err)
			}

			if keptDOI, dup := seen.match(c.CandidateIDs); dup {
				result.Removed[other.Stream]++
				ids := c.Normalize()
				if keptDOI != "" && ids.DOI != "" && keptDOI != ids.DOI {
					result.Conflicts++
					logger.Warn().
						Str("stream", other.Stream).
						Str("pmcid", ids.SecondaryID).
						Str("kept_doi", keptDOI).
						Str("dropped_doi", ids.DOI).
						Msg("two DOIs map to the same identifier, keeping the first seen")
				} else {
					logger.Debug().Str("stream", other.Stream).Str("ids", ids.String()).Msg("duplicate identifier set removed")
				}
				return nil
			}

			seen.add(c.CandidateIDs)
			survivors = append(survivors, line)
			return nil
		})
		if err != nil {
			return nil, err
		}

		if err := wal.Rewrite(other.Path, survivors); err != nil {
			return nil, err
		}
		result.Kept[other.Stream] = len(survivors)
		r.metrics.RecordDuplicatesRemoved(result.Removed[other.Stream])
	}

	if err := r.tracker.MarkDedupCompleted(); err != nil {
		return nil, err
	}

	logger.Info().
		Interface("kept", result.Kept).
		Interface("removed", result.Removed).
		Int("conflicts", result.Conflicts).
		Msg("deduplication completed")
	return result, nil
}

// keySet remembers every individual identifier of the records kept so far,
// and the DOI each key belonged to.
type keySet struct {
	doiByKey map[string]string
}

func newKeySet() *keySet {
	return &keySet{doiByKey: map[string]string{}}
}

func (s *keySet) add(ids domain.CandidateIDs) {
	doi := domain.NormalizeDOI(ids.DOI)
	for _, key := range ids.Keys() {
		if _, ok := s.doiByKey[key]; !ok {
			s.doiByKey[key] = doi
		}
	}
}

// match reports whether any key of ids was seen, and the DOI of the record
// that first carried it.
func (s *keySet) match(ids domain.CandidateIDs) (string, bool) {
	for _, key := range ids.Keys() {
		if doi, ok := s.doiByKey[key]; ok {
			return doi, true
		}
	}
	return "", false
}
