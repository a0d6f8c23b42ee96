// Package works builds repository work attributes from normalized metadata
// and persists them, destroying any work whose creation did not complete.
package works

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/observability"
)

// AbstractPlaceholder fills the abstract when no provider supplied one.
const AbstractPlaceholder = "N/A"

// Identifier label prefixes of the work's identifier list.
const (
	LabelPrimaryID   = "PMID: "
	LabelSecondaryID = "PMCID: "
	LabelDOI         = "DOI: https://doi.org/"
	LabelGovInfo     = "GovInfo: "
)

// Repository is the subset of the repository contract used for creation.
type Repository interface {
	CreateWork(ctx context.Context, attrs *domain.WorkAttributes) (*domain.WorkHandle, error)
	SyncWorkflow(ctx context.Context, workID, adminSet string) error
	DestroyWork(ctx context.Context, workID string) error
}

// RunContext carries the per-run values applied to every created work.
type RunContext struct {
	AdminSet  string
	Depositor string
}

// Config holds the institution defaults applied to created works.
type Config struct {
	AllowList       []string
	RightsStatement string
	ResourceType    string
	Visibility      string
}

// Creator creates repository works.
type Creator struct {
	repo    Repository
	config  Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewCreator creates a Creator. metrics may be nil.
func NewCreator(repo Repository, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Creator {
	if cfg.ResourceType == "" {
		cfg.ResourceType = "Article"
	}
	if cfg.Visibility == "" {
		cfg.Visibility = domain.VisibilityOpen
	}
	return &Creator{
		repo:    repo,
		config:  cfg,
		logger:  logger.With().Str("component", "works").Logger(),
		metrics: metrics,
	}
}

// Create persists a work built from meta and synchronizes its workflow. If
// anything fails after the work was persisted, the work is destroyed before
// the error is returned.
func (c *Creator) Create(ctx context.Context, meta *domain.NormalizedMetadata, run RunContext) (*domain.WorkHandle, error) {
	if meta == nil {
		return nil, domain.NewValidationError("metadata", "metadata cannot be nil")
	}
	if strings.TrimSpace(meta.Title) == "" {
		return nil, domain.NewValidationError("title", "metadata has no title")
	}

	attrs := c.Attributes(meta, run)
	work, err := c.repo.CreateWork(ctx, attrs)
	if err != nil {
		return nil, fmt.Errorf("create work: %w", err)
	}

	if err := c.repo.SyncWorkflow(ctx, work.ID, run.AdminSet); err != nil {
		return nil, c.Rollback(ctx, work, fmt.Errorf("sync workflow: %w", err))
	}

	c.metrics.RecordWorkCreated()
	c.logger.Info().
		Str("work_id", work.ID).
		Str("admin_set", run.AdminSet).
		Str("source_provider", meta.SourceProvider).
		Msg("work created")
	return work, nil
}

// Rollback destroys a work whose creation did not complete and returns
// cause, extended with the destroy failure if there was one.
func (c *Creator) Rollback(ctx context.Context, work *domain.WorkHandle, cause error) error {
	// Destroy even when the run is being canceled.
	destroyCtx := context.WithoutCancel(ctx)
	if err := c.repo.DestroyWork(destroyCtx, work.ID); err != nil {
		c.logger.Error().
			Err(err).
			AnErr("cause", cause).
			Str("work_id", work.ID).
			Msg("failed to destroy partially created work")
		return fmt.Errorf("%w (rollback of work %s failed: %v)", cause, work.ID, err)
	}

	c.metrics.RecordWorkRolledBack()
	c.logger.Warn().
		Err(cause).
		Str("work_id", work.ID).
		Msg("partially created work destroyed")
	return cause
}

// Attributes builds the work attribute set from normalized metadata.
func (c *Creator) Attributes(meta *domain.NormalizedMetadata, run RunContext) *domain.WorkAttributes {
	abstract := strings.TrimSpace(meta.Abstract)
	if abstract == "" {
		abstract = AbstractPlaceholder
	}

	return &domain.WorkAttributes{
		Title:           strings.TrimSpace(meta.Title),
		Abstract:        abstract,
		Creators:        c.creators(meta.Authors),
		DateIssued:      meta.DateIssued,
		Publisher:       meta.Publisher,
		Journal:         meta.Journal,
		Keywords:        meta.Keywords,
		Funders:         meta.Funders,
		Identifiers:     IdentifierLabels(meta.Identifiers, meta.SourceProvider),
		IDs:             meta.Identifiers.Normalize(),
		RightsStatement: c.config.RightsStatement,
		ResourceType:    c.config.ResourceType,
		Visibility:      c.config.Visibility,
		Depositor:       run.Depositor,
		AdminSet:        run.AdminSet,
		SourceProvider:  meta.SourceProvider,
	}
}

func (c *Creator) creators(authors []domain.Author) []domain.Creator {
	creators := make([]domain.Creator, 0, len(authors))
	for i, a := range authors {
		affiliation := a.Affiliation
		if affiliation == "" {
			affiliation = ResolveAffiliation(a.Affiliations, c.config.AllowList)
		}
		creators = append(creators, domain.Creator{
			Name:        a.Name,
			ORCID:       a.ORCID,
			Affiliation: affiliation,
			Index:       i,
		})
	}
	return creators
}

// IdentifierLabels renders the identifier set as the fixed-prefix list stored
// on the work. Government documents carry their package id as primary id.
func IdentifierLabels(ids domain.CandidateIDs, provider string) []string {
	n := ids.Normalize()
	var labels []string
	if n.PrimaryID != "" {
		if provider == domain.ProviderGovInfo {
			labels = append(labels, LabelGovInfo+n.PrimaryID)
		} else {
			labels = append(labels, LabelPrimaryID+n.PrimaryID)
		}
	}
	if n.SecondaryID != "" {
		labels = append(labels, LabelSecondaryID+n.SecondaryID)
	}
	if n.DOI != "" {
		labels = append(labels, LabelDOI+n.DOI)
	}
	return labels
}
