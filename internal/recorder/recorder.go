// Package recorder appends candidate outcomes to a run's outcome log and
// remembers which identifier sets already have one.
package recorder

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/wal"
)

// FileName is the outcome log inside a run directory.
const FileName = "outcomes.jsonl"

// DefaultFlushThreshold is the number of buffered outcomes that triggers a flush.
const DefaultFlushThreshold = 25

// Recorder is an outcome log with an in-memory index of recorded identifier
// sets. Two identifier sets are the same when their normalized identifiers
// are equal; sets that only share some identifiers are distinct.
type Recorder struct {
	mu        sync.Mutex
	w         *wal.Writer
	seen      map[string]struct{}
	counts    map[domain.Category]int
	total     int
	threshold int
	logger    zerolog.Logger
}

// Open opens the outcome log at path and loads the identifiers of the
// outcomes it already holds.
func Open(path string, threshold int, logger zerolog.Logger) (*Recorder, error) {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	r := &Recorder{
		seen:      make(map[string]struct{}),
		counts:    make(map[domain.Category]int),
		threshold: threshold,
		logger:    logger.With().Str("component", "recorder").Logger(),
	}

	existing, err := wal.ReadJSON[domain.Outcome](path, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load outcome log: %w", err)
	}
	for _, o := range existing {
		r.index(o)
	}

	w, err := wal.Open(path)
	if err != nil {
		return nil, err
	}
	r.w = w

	if r.total > 0 {
		r.logger.Info().Int("outcomes", r.total).Str("path", path).Msg("loaded existing outcomes")
	}
	return r, nil
}

// Path returns the outcome log path.
func (r *Recorder) Path() string {
	return r.w.Path()
}

// Seen reports whether an outcome was recorded for the identifier set ids.
func (r *Recorder) Seen(ids domain.CandidateIDs) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seenLocked(ids)
}

// Record appends o to the log. It returns flushed=true when the append
// reached the flush threshold and every outcome recorded so far is durable.
// An outcome whose identifiers were already recorded is dropped.
func (r *Recorder) Record(o domain.Outcome) (flushed bool, err error) {
	if !o.Category.IsValid() {
		return false, domain.NewValidationError("category", "unknown outcome category "+string(o.Category))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seenLocked(o.IDs) {
		r.logger.Warn().Str("ids", o.IDs.String()).Str("category", string(o.Category)).
			Msg("outcome already recorded, dropping")
		return false, nil
	}
	if err := r.w.WriteJSON(o); err != nil {
		return false, err
	}
	r.index(o)

	if r.w.Pending() >= r.threshold {
		if err := r.w.Flush(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Flush makes every recorded outcome durable.
func (r *Recorder) Flush() error {
	return r.w.Flush()
}

// Close flushes and closes the log.
func (r *Recorder) Close() error {
	return r.w.Close()
}

// Count returns the number of recorded outcomes.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Counts returns the number of recorded outcomes per category.
func (r *Recorder) Counts() map[domain.Category]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.Category]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Outcomes reads every outcome in the log file at path.
func Outcomes(path string) ([]domain.Outcome, error) {
	return wal.ReadJSON[domain.Outcome](path, 0, 0)
}

func (r *Recorder) seenLocked(ids domain.CandidateIDs) bool {
	_, ok := r.seen[setKey(ids)]
	return ok
}

func (r *Recorder) index(o domain.Outcome) {
	r.seen[setKey(o.IDs)] = struct{}{}
	r.counts[o.Category]++
	r.total++
}

func setKey(ids domain.CandidateIDs) string {
	return strings.Join(ids.Keys(), "|")
}
