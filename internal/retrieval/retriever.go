// Package retrieval lists candidate identifiers into the raw identifier log
// of a stream, page by page, resuming from the tracker's cursor.
package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
	"github.com/helixir/bibliographic-ingest/internal/wal"
)

// CounterLines counts the lines a stage appended to its output log.
const CounterLines = "lines"

// DefaultPageSize is the page size used when a stream does not set one.
const DefaultPageSize = 200

// Tracker is the subset of the progress tracker retrieval needs.
type Tracker interface {
	Begin(stage string) error
	Checkpoint(stage string, cursor int, deltas map[string]int) error
	SetTotal(stage string, total int) error
	Complete(stage string) error
	IsCompleted(stage string) bool
	Cursor(stage string) int
	Counter(stage, counter string) int
}

// StageName returns the tracker stage of a retrieval stream.
func StageName(stream string) string {
	return "retrieve_" + stream
}

// Stream is one paginated identifier search.
type Stream struct {
	// Name identifies the stream, e.g. "pubmed" or "pmc".
	Name string

	// Searcher lists the identifiers.
	Searcher papersources.IDSearcher

	// Params holds the database, term and date range. Offset and Limit are
	// managed by the retriever.
	Params papersources.SearchParams

	// PageSize is the number of ids requested per page.
	PageSize int

	// Delay is the pause between consecutive requests.
	Delay time.Duration

	// OutputPath is the raw identifier log.
	OutputPath string
}

// Result summarizes one Run.
type Result struct {
	Stream    string
	Retrieved int
	Cursor    int
	Total     int
	Completed bool
}

// Retriever runs identifier searches.
type Retriever struct {
	tracker Tracker
	logger  zerolog.Logger
	metrics *observability.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a Retriever.
func New(tracker Tracker, logger zerolog.Logger, metrics *observability.Metrics) *Retriever {
	return &Retriever{
		tracker: tracker,
		logger:  logger.With().Str("component", "retrieval").Logger(),
		metrics: metrics,
		sleep:   papersources.Sleep,
	}
}

// Run pages through the stream's search from the stored cursor, appending each
// id as one line of the raw identifier log. After every page the log is
// flushed and the cursor checkpointed. The stage completes when the cursor
// reaches the reported total.
//
// A failed request halts the stage: the error is logged and returned as a
// *domain.StageError, and the stage stays in progress at its last cursor.
// Other errors are fatal local failures.
func (r *Retriever) Run(ctx context.Context, stream Stream) (*Result, error) {
	stage := StageName(stream.Name)
	logger := observability.WithStageContext(r.logger, stage, stream.Name)
	result := &Result{Stream: stream.Name}

	if r.tracker.IsCompleted(stage) {
		logger.Info().Msg("stage already completed, skipping")
		result.Completed = true
		result.Cursor = r.tracker.Cursor(stage)
		return result, nil
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

	pageSize := stream.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	cursor := r.tracker.Cursor(stage)
	result.Cursor = cursor

	for requests := 0; ; requests++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if requests > 0 && stream.Delay > 0 {
			if err := r.sleep(ctx, stream.Delay); err != nil {
				return result, err
			}
		}

		params := stream.Params
		params.Offset = cursor
		params.Limit = pageSize

		page, err := stream.Searcher.SearchIDs(ctx, params)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}
			logger.Error().Err(err).Int("cursor", cursor).Msg("identifier search failed, halting stage")
			return result, domain.NewStageError(stage, cursor, err)
		}

		result.Total = page.Total
		if err := r.tracker.SetTotal(stage, page.Total); err != nil {
			return result, err
		}

		for _, id := range page.IDs {
			if err := w.WriteLine(id); err != nil {
				return result, err
			}
		}
		if err := w.Flush(); err != nil {
			return result, err
		}

		cursor += len(page.IDs)
		if err := r.tracker.Checkpoint(stage, cursor, map[string]int{CounterLines: len(page.IDs)}); err != nil {
			return result, err
		}
		result.Cursor = cursor
		result.Retrieved += len(page.IDs)
		r.metrics.RecordIdentifiersRetrieved(stream.Name, len(page.IDs))

		logger.Debug().
			Int("cursor", cursor).
			Int("total", page.Total).
			Int("page_ids", len(page.IDs)).
			Msg("page retrieved")

		if cursor >= page.Total {
			break
		}
		if len(page.IDs) == 0 {
			logger.Warn().
				Int("cursor", cursor).
				Int("total", page.Total).
				Msg("provider returned an empty page before the reported total")
			break
		}
	}

	if err := r.tracker.Complete(stage); err != nil {
		return result, err
	}
	result.Completed = true

	logger.Info().
		Int("retrieved", result.Retrieved).
		Int("total", result.Total).
		Msg("identifier retrieval completed")
	return result, nil
}
