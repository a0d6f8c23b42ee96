// Package reconcile cross-references raw identifiers into identifier sets and
// removes identifier sets that two streams share.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
	"github.com/helixir/bibliographic-ingest/internal/wal"
)

// DefaultBatchSize is the converter batch size used when a stream sets none.
const DefaultBatchSize = 200

// CounterLines counts the lines a stage appended to its output log.
const CounterLines = "lines"

// CounterErrors counts records the converter returned with an error status.
const CounterErrors = "conversion_errors"

// Tracker is the subset of the progress tracker reconciliation needs.
type Tracker interface {
	Begin(stage string) error
	Checkpoint(stage string, cursor int, deltas map[string]int) error
	SetTotal(stage string, total int) error
	Complete(stage string) error
	IsCompleted(stage string) bool
	Cursor(stage string) int
	Counter(stage, counter string) int
	DedupCompleted() bool
	MarkDedupCompleted() error
}

// StageName returns the tracker stage of a reconciliation stream.
func StageName(stream string) string {
	return "reconcile_" + stream
}

// Stream is one raw identifier log to reconcile.
type Stream struct {
	Name       string
	InputPath  string
	OutputPath string
	BatchSize  int
	Delay      time.Duration
	Converter  papersources.IDConverter
}

// Result summarizes one Run.
type Result struct {
	Stream    string
	Written   int
	Errors    int
	Cursor    int
	Completed bool
}

// Reconciler converts raw identifier logs into reconciled logs.
type Reconciler struct {
	tracker Tracker
	logger  zerolog.Logger
	metrics *observability.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a Reconciler.
func New(tracker Tracker, logger zerolog.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		tracker: tracker,
		logger:  logger.With().Str("component", "reconcile").Logger(),
		metrics: metrics,
		sleep:   papersources.Sleep,
	}
}

// Run reads the raw identifier log in batches from the stored line cursor,
// converts each batch and appends one domain.Candidate JSON line per returned
// record. Records with no identifier are skipped. Records the converter
// could not convert keep their requested id and carry the converter's
// message in Error. The cursor is checkpointed after every batch.
//
// A failed conversion halts the stage with a *domain.StageError.
func (r *Reconciler) Run(ctx context.Context, stream Stream) (*Result, error) {
	stage := StageName(stream.Name)
	logger := observability.WithStageContext(r.logger, stage, stream.Name)
	result := &Result{Stream: stream.Name}

	if r.tracker.IsCompleted(stage) {
		logger.Info().Msg("stage already completed, skipping")
		result.Completed = true
		result.Cursor = r.tracker.Cursor(stage)
		return result, nil
	}

	total, err := wal.CountLines(stream.InputPath)
	if err != nil {
		return result, err
	}
	if err := r.tracker.SetTotal(stage, total); err != nil {
		return result, err
	}

	if err := wal.Align(stream.OutputPath, r.tracker.Counter(stage, CounterLines)); err != nil {
		return result, err
	}
	w, err := wal.Open(stream.OutputPath)
	if err != nil {
		return result, err
	}
	defer w.Close()

	if err := r.tracker.Begin(stage); err != nil {
		return result, err
	}

	batchSize := stream.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	cursor := r.tracker.Cursor(stage)
	result.Cursor = cursor

	for batches := 0; cursor < total; batches++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if batches > 0 && stream.Delay > 0 {
			if err := r.sleep(ctx, stream.Delay); err != nil {
				return result, err
			}
		}

		lines, err := wal.ReadLines(stream.InputPath, cursor, batchSize)
		if err != nil {
			return result, err
		}
		if len(lines) == 0 {
			break
		}

		ids := make([]string, 0, len(lines))
		for _, line := range lines {
			if id := strings.TrimSpace(line); id != "" {
				ids = append(ids, id)
			}
		}

		var records []domain.CandidateIDs
		if len(ids) > 0 {
			records, err = stream.Converter.ConvertIDs(ctx, ids)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return result, err
				}
				logger.Error().Err(err).Int("cursor", cursor).Msg("identifier conversion failed, halting stage")
				return result, domain.NewStageError(stage, cursor, err)
			}
		}

		written, failed := 0, 0
		for _, rec := range records {
			if rec.Empty() {
				continue
			}
			if rec.Error != "" {
				failed++
				logger.Warn().
					Str("ids", rec.String()).
					Str("error", rec.Error).
					Msg("identifier conversion returned an error status")
			}
			if err := w.WriteJSON(domain.Candidate{CandidateIDs: rec.Normalize()}); err != nil {
				return result, err
			}
			written++
		}
		if err := w.Flush(); err != nil {
			return result, err
		}

		cursor += len(lines)
		if err := r.tracker.Checkpoint(stage, cursor, map[string]int{
			CounterLines:  written,
			CounterErrors: failed,
		}); err != nil {
			return result, err
		}
		result.Cursor = cursor
		result.Written += written
		result.Errors += failed
	}

	if err := r.tracker.Complete(stage); err != nil {
		return result, err
	}
	result.Completed = true

	logger.Info().
		Int("written", result.Written).
		Int("conversion_errors", result.Errors).
		Msg("identifier reconciliation completed")
	return result, nil
}
