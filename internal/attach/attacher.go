// Package attach fetches the full text of a candidate and attaches it to a
// repository work.
package attach

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/dispatch"
	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/fulltext"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
	"github.com/helixir/bibliographic-ingest/internal/wal"
)

// FilesDirName is the directory inside a run directory holding attached files.
const FilesDirName = "files"

// Repository is the subset of the repository contract used for attachment.
type Repository interface {
	AttachFile(ctx context.Context, work *domain.WorkHandle, file domain.FileSpec) (*domain.FileHandle, error)
	CountFileSets(ctx context.Context, workID string) (int, error)
}

// Acquirer turns a full-text link into PDF documents.
type Acquirer interface {
	Acquire(ctx context.Context, link papersources.FullTextLink) ([]fulltext.Document, error)
}

// Config holds attachment settings.
type Config struct {
	// RunID is copied onto enqueued tasks.
	RunID string
	// FilesDir is where attached files are written, one directory per work.
	FilesDir string
	// MaxAttempts bounds attempts on transient failures.
	MaxAttempts int
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
	// TitleLength is the maximum length of the title part of a file name.
	TitleLength int
	// Visibility is applied to every attached file.
	Visibility string
}

// Request describes where a candidate's full text comes from. Link is used
// when set, otherwise Locator is asked for one.
type Request struct {
	IDs     domain.CandidateIDs
	Link    *papersources.FullTextLink
	Locator papersources.FullTextLocator
}

// Result lists the attached files.
type Result struct {
	Files []*domain.FileHandle
	Bytes int64
}

// FileNames returns the attached file names joined by "; ".
func (r Result) FileNames() string {
	names := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		names = append(names, f.FileName)
	}
	return strings.Join(names, "; ")
}

// partial names the files attached before err stopped the attachment.
func (r *Result) partial(err error) error {
	if len(r.Files) == 0 {
		return err
	}
	return fmt.Errorf("%w (already attached: %s)", err, r.FileNames())
}

// Attacher attaches full-text files to works.
type Attacher struct {
	repo     Repository
	acquirer Acquirer
	tasks    dispatch.TaskQueue
	config   Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// New creates an Attacher. tasks and metrics may be nil.
func New(repo Repository, acquirer Acquirer, tasks dispatch.TaskQueue, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Attacher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.TitleLength <= 0 {
		cfg.TitleLength = fulltext.DefaultTitleLength
	}
	if cfg.Visibility == "" {
		cfg.Visibility = domain.VisibilityOpen
	}
	return &Attacher{
		repo:     repo,
		acquirer: acquirer,
		tasks:    tasks,
		config:   cfg,
		logger:   logger.With().Str("component", "attacher").Logger(),
		metrics:  metrics,
	}
}

// Attach fetches the full text described by req and attaches every PDF it
// yields to work. Transient failures are retried with a fixed backoff;
// domain.ErrLinkNotFound and other definitive failures are returned at once.
// When a later file fails, the returned Result holds the files attached so
// far and the error names them.
func (a *Attacher) Attach(ctx context.Context, work *domain.WorkHandle, req Request) (*Result, error) {
	if work == nil {
		return nil, domain.NewValidationError("work", "work cannot be nil")
	}
	log := observability.WithCandidateContext(a.logger, req.IDs).With().Str("work_id", work.ID).Logger()

	docs, err := a.acquireWithRetry(ctx, req, log)
	if err != nil {
		return nil, err
	}

	existing, err := a.repo.CountFileSets(ctx, work.ID)
	if err != nil {
		return nil, fmt.Errorf("count file sets: %w", err)
	}

	result := &Result{}
	for i, doc := range docs {
		name := fulltext.FileName(work.Title, existing+i, a.config.TitleLength)
		path := filepath.Join(a.config.FilesDir, work.ID, name)
		if err := wal.WriteFileAtomic(path, doc.Content); err != nil {
			return result, result.partial(fmt.Errorf("stage %s: %w", name, err))
		}

		pages, err := fulltext.InspectPDF(doc.Content)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("could not read PDF page count")
		}

		file, err := a.repo.AttachFile(ctx, work, domain.FileSpec{
			Path:       path,
			Name:       name,
			Visibility: a.config.Visibility,
			Size:       doc.Size(),
			SHA256:     doc.SHA256,
			PageCount:  pages,
		})
		if err != nil {
			return result, result.partial(fmt.Errorf("attach %s: %w", name, err))
		}
		result.Files = append(result.Files, file)
		result.Bytes += doc.Size()
		a.metrics.RecordFileAttached(doc.Strategy, doc.Size())

		log.Info().
			Str("file", name).
			Str("strategy", doc.Strategy).
			Int64("bytes", doc.Size()).
			Int("pages", pages).
			Msg("file attached")
	}

	if a.tasks != nil {
		a.tasks.Enqueue(ctx, dispatch.Task{
			Type:     dispatch.TaskReindexWork,
			WorkID:   work.ID,
			AdminSet: work.AdminSet,
			RunID:    a.config.RunID,
		})
	}
	return result, nil
}

func (a *Attacher) acquireWithRetry(ctx context.Context, req Request, log zerolog.Logger) ([]fulltext.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= a.config.MaxAttempts; attempt++ {
		docs, err := a.acquire(ctx, req)
		if err == nil {
			return docs, nil
		}
		if !domain.IsTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt == a.config.MaxAttempts {
			break
		}

		log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", a.config.MaxAttempts).
			Dur("backoff", a.config.Backoff).
			Msg("transient full-text failure, retrying")
		if err := papersources.Sleep(ctx, a.config.Backoff); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("full text unavailable after %d attempts: %w", a.config.MaxAttempts, lastErr)
}

func (a *Attacher) acquire(ctx context.Context, req Request) ([]fulltext.Document, error) {
	link := req.Link
	if link == nil {
		if req.Locator == nil {
			return nil, fmt.Errorf("%w: no full-text source", domain.ErrLinkNotFound)
		}
		located, err := req.Locator.LocateFullText(ctx, req.IDs)
		if err != nil {
			return nil, err
		}
		if located == nil {
			return nil, fmt.Errorf("%w: locator returned no link", domain.ErrLinkNotFound)
		}
		link = located
	}

	docs, err := a.acquirer.Acquire(ctx, *link)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents at %s", domain.ErrLinkNotFound, link.URL)
	}
	return docs, nil
}
