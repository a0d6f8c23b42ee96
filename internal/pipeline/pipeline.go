// Package pipeline runs one ingest of a bibliographic source: identifier
// retrieval and reconciliation per stream, cross-stream deduplication,
// per-candidate processing into categorized outcomes, and the final report.
//
// Every stage is tracked in the run directory's progress file. A run that
// stops, whether killed, canceled or halted by a failing provider, resumes
// from the last checkpoint when started again in resume mode.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/attach"
	"github.com/helixir/bibliographic-ingest/internal/dispatch"
	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/matcher"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/reconcile"
	"github.com/helixir/bibliographic-ingest/internal/recorder"
	"github.com/helixir/bibliographic-ingest/internal/report"
	"github.com/helixir/bibliographic-ingest/internal/retrieval"
	"github.com/helixir/bibliographic-ingest/internal/tracker"
	"github.com/helixir/bibliographic-ingest/internal/wal"
	"github.com/helixir/bibliographic-ingest/internal/works"
)

// ErrHalted is returned when a stage stopped on an external failure. The
// run can be continued in resume mode.
var ErrHalted = errors.New("run halted")

// Output path names recorded in the tracker.
const (
	OutputOutcomes = "outcomes"
	OutputReport   = "report"
	OutputFiles    = "files"
)

// ProcessStageName returns the tracker stage processing a stream's candidates.
func ProcessStageName(stream string) string {
	return "process_" + stream
}

// IDsPath returns the raw identifier log of a stream.
func IDsPath(dir, stream string) string {
	return filepath.Join(dir, stream+"_ids.txt")
}

// ReconciledPath returns the reconciled identifier log of a stream.
func ReconciledPath(dir, stream string) string {
	return filepath.Join(dir, stream+"_reconciled.jsonl")
}

// OutcomesPath returns the outcome log of a run directory.
func OutcomesPath(dir string) string {
	return filepath.Join(dir, recorder.FileName)
}

// Resolver produces merged metadata for a candidate.
type Resolver interface {
	Resolve(ctx context.Context, ids domain.CandidateIDs) (*domain.NormalizedMetadata, error)
}

// CachingResolver is a Resolver that caches records. Its cache is emptied
// when a run starts and a candidate's entries are dropped once the
// candidate's outcome is recorded.
type CachingResolver interface {
	Resolver
	ResetCache()
	Forget(ids domain.CandidateIDs)
}

// Matcher looks candidates up in the repository search index.
type Matcher interface {
	Match(ctx context.Context, ids domain.CandidateIDs) (matcher.Decision, *domain.SearchDocument, error)
}

// Creator creates works and destroys the ones whose creation did not complete.
type Creator interface {
	Create(ctx context.Context, meta *domain.NormalizedMetadata, run works.RunContext) (*domain.WorkHandle, error)
	Rollback(ctx context.Context, work *domain.WorkHandle, cause error) error
}

// Attacher attaches full text to works.
type Attacher interface {
	Attach(ctx context.Context, work *domain.WorkHandle, req attach.Request) (*attach.Result, error)
}

// Config holds the per-run settings.
type Config struct {
	// Dir is the run directory.
	Dir string

	Run works.RunContext

	// AllowList marks institutional affiliations.
	AllowList []string

	PageSize           int
	ReconcileBatchSize int
	ReportRowCap       int

	Recipients    []string
	SubjectPrefix string
}

// Deps are the collaborators of a run.
type Deps struct {
	Tracker    *tracker.Tracker
	Recorder   *recorder.Recorder
	Retriever  *retrieval.Retriever
	Reconciler *reconcile.Reconciler
	Resolver   Resolver
	Matcher    Matcher
	Creator    Creator
	Attacher   Attacher
	Notifier   dispatch.Notifier
}

// Result summarizes a Run.
type Result struct {
	RunID            string
	Halted           []string
	Outcomes         map[domain.Category]int
	Report           *report.Result
	NotificationSent bool

	// NotificationsDisabled is set when the notifier does not publish.
	NotificationsDisabled bool
}

// Pipeline runs one source against one run directory.
type Pipeline struct {
	config  Config
	source  Source
	deps    Deps
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline. metrics may be nil.
func New(cfg Config, source Source, deps Deps, logger zerolog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		config:  cfg,
		source:  source,
		deps:    deps,
		logger:  observability.WithRunContext(logger, deps.Tracker.RunID(), source.Name),
		metrics: metrics,
	}
}

// Run executes every stage not yet completed.
//
// A stage halted by an external failure does not stop the streams that do
// not depend on it, but the run stops before deduplication and returns an
// error wrapping ErrHalted. Context cancellation stops processing at the
// next candidate boundary after the outcomes so far are flushed and
// checkpointed. A candidate that fails because of the cancellation gets no
// outcome and is processed again on resume.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	result := &Result{RunID: p.deps.Tracker.RunID()}
	p.logger.Info().Str("dir", p.config.Dir).Msg("run started")
	if cr, ok := p.deps.Resolver.(CachingResolver); ok {
		cr.ResetCache()
	}

	if err := p.deps.Tracker.SetOutputPath(OutputOutcomes, OutcomesPath(p.config.Dir)); err != nil {
		return result, err
	}

	halted, err := p.collect(ctx)
	if err != nil {
		return result, err
	}
	if len(halted) > 0 {
		result.Halted = halted
		p.logger.Error().Strs("stages", halted).Msg("run halted before processing")
		return result, fmt.Errorf("%w: %s", ErrHalted, strings.Join(halted, ", "))
	}

	if err := p.deduplicate(ctx); err != nil {
		return result, err
	}

	for _, stream := range p.source.Streams {
		if err := p.process(ctx, stream.Name); err != nil {
			result.Outcomes = p.deps.Recorder.Counts()
			return result, err
		}
	}
	if err := p.deps.Recorder.Flush(); err != nil {
		return result, err
	}
	result.Outcomes = p.deps.Recorder.Counts()

	if err := p.finish(ctx, result); err != nil {
		return result, err
	}

	p.logger.Info().
		Dur("duration", time.Since(started)).
		Int("outcomes", p.deps.Recorder.Count()).
		Bool("notification_sent", result.NotificationSent).
		Msg("run completed")
	return result, nil
}

// collect retrieves and reconciles every stream, returning the stages that
// halted.
func (p *Pipeline) collect(ctx context.Context) ([]string, error) {
	var halted []string
	for _, stream := range p.source.Streams {
		reconciled := ReconciledPath(p.config.Dir, stream.Name)
		if err := p.deps.Tracker.SetOutputPath(stream.Name+"_reconciled", reconciled); err != nil {
			return nil, err
		}

		if stream.IsList() {
			_, err := p.deps.Retriever.RunList(ctx, retrieval.ListStream{
				Name:       stream.Name,
				InputPath:  stream.InputPath,
				OutputPath: reconciled,
			})
			if err != nil {
				return nil, err
			}
			continue
		}

		ids := IDsPath(p.config.Dir, stream.Name)
		if err := p.deps.Tracker.SetOutputPath(stream.Name+"_ids", ids); err != nil {
			return nil, err
		}

		_, err := p.deps.Retriever.Run(ctx, retrieval.Stream{
			Name:       stream.Name,
			Searcher:   stream.Searcher,
			Params:     stream.Params,
			PageSize:   p.config.PageSize,
			Delay:      stream.Delay,
			OutputPath: ids,
		})
		if stage, ok := haltedStage(err); ok {
			halted = append(halted, stage)
			continue
		}
		if err != nil {
			return nil, err
		}

		converter := stream.Converter
		if converter == nil {
			converter = passthroughConverter{}
		}
		_, err = p.deps.Reconciler.Run(ctx, reconcile.Stream{
			Name:       stream.Name,
			InputPath:  ids,
			OutputPath: reconciled,
			BatchSize:  p.config.ReconcileBatchSize,
			Delay:      stream.ConverterDelay,
			Converter:  converter,
		})
		if stage, ok := haltedStage(err); ok {
			halted = append(halted, stage)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return halted, nil
}

func haltedStage(err error) (string, bool) {
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}

func (p *Pipeline) deduplicate(ctx context.Context) error {
	if p.source.CanonicalStream == "" || len(p.source.Streams) < 2 {
		return nil
	}

	canonical := reconcile.DedupInput{
		Stream: p.source.CanonicalStream,
		Path:   ReconciledPath(p.config.Dir, p.source.CanonicalStream),
	}
	var others []reconcile.DedupInput
	for _, stream := range p.source.Streams {
		if stream.Name == p.source.CanonicalStream {
			continue
		}
		others = append(others, reconcile.DedupInput{
			Stream: stream.Name,
			Path:   ReconciledPath(p.config.Dir, stream.Name),
		})
	}

	_, err := p.deps.Reconciler.Deduplicate(ctx, canonical, others...)
	return err
}

// process turns every candidate of a stream's reconciled log into an
// outcome. The stage cursor advances only when the recorder has flushed, so
// every candidate before the cursor has a durable outcome. Candidates past
// the cursor that already have one are skipped on resume.
func (p *Pipeline) process(ctx context.Context, stream string) error {
	stage := ProcessStageName(stream)
	logger := observability.WithStageContext(p.logger, stage, stream)
	t := p.deps.Tracker

	if t.IsCompleted(stage) {
		logger.Info().Msg("stage already completed, skipping")
		return nil
	}

	path := ReconciledPath(p.config.Dir, stream)
	total, err := wal.CountLines(path)
	if err != nil {
		return err
	}
	if err := t.SetTotal(stage, total); err != nil {
		return err
	}
	if err := t.Begin(stage); err != nil {
		return err
	}

	cursor := t.Cursor(stage)
	deltas := map[string]int{}
	checkpoint := func(next int) error {
		if err := t.Checkpoint(stage, next, deltas); err != nil {
			return err
		}
		deltas = map[string]int{}
		return nil
	}

	logger.Info().Int("cursor", cursor).Int("total", total).Msg("processing candidates")

	var stopErr error
	position := cursor
	err = wal.Scan(path, cursor, func(lineNo int, line string) error {
		if err := ctx.Err(); err != nil {
			stopErr = err
			return wal.ErrStop
		}
		position = lineNo + 1

		var c domain.Candidate
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return fmt.Errorf("parse %s line %d: %w", path, lineNo+1, err)
		}
		if p.deps.Recorder.Seen(c.CandidateIDs) {
			logger.Debug().Str("ids", c.String()).Msg("candidate already has an outcome, skipping")
			return nil
		}

		began := time.Now()
		outcome := p.processCandidate(ctx, c)
		// A failure caused by cancellation is not an outcome. The cursor stays
		// on this line so resume processes the candidate again.
		if err := ctx.Err(); err != nil && outcome.Category == domain.CategoryFailed {
			logger.Debug().Str("ids", c.String()).Msg("candidate interrupted, not recorded")
			stopErr = err
			position = lineNo
			return wal.ErrStop
		}
		p.metrics.RecordOutcome(string(outcome.Category), time.Since(began).Seconds())

		flushed, err := p.deps.Recorder.Record(outcome)
		if err != nil {
			return err
		}
		if cr, ok := p.deps.Resolver.(CachingResolver); ok {
			cr.Forget(c.CandidateIDs)
		}
		deltas[string(outcome.Category)]++
		if flushed {
			return checkpoint(position)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.deps.Recorder.Flush(); err != nil {
		return err
	}
	if err := checkpoint(position); err != nil {
		return err
	}
	if stopErr != nil {
		logger.Warn().Int("cursor", position).Msg("processing interrupted, rerun with resume to continue")
		return stopErr
	}

	if err := t.Complete(stage); err != nil {
		return err
	}
	logger.Info().Int("candidates", position).Msg("processing completed")
	return nil
}
