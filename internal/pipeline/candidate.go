package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/attach"
	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/matcher"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
	"github.com/helixir/bibliographic-ingest/internal/works"
)

// Outcome messages.
const (
	msgAlreadyComplete  = "work already exists with attached files"
	msgAttachedExisting = "file attached to existing work"
	msgNoFullText       = "no full-text link available"
	msgCreatedNoFile    = "work created without file: no full-text link available"
	msgCreatedWithFile  = "work created and file attached"
	msgNoAffiliation    = "no author affiliated with the institution"
)

// Failure stages prefixed to failed outcome messages.
const (
	failMatch    = "match"
	failMetadata = "metadata"
	failCreate   = "create"
	failAttach   = "attach"
)

// processCandidate routes one candidate to exactly one outcome. The outcome
// always carries the candidate's identifiers as read from the reconciled log.
func (p *Pipeline) processCandidate(ctx context.Context, c domain.Candidate) domain.Outcome {
	ids := c.CandidateIDs
	logger := observability.WithCandidateContext(p.logger, ids)

	if ids.Empty() {
		return domain.Failed(ids, failMatch, domain.ErrNoIdentifier)
	}

	decision, doc, err := p.deps.Matcher.Match(ctx, ids)
	if err != nil {
		logger.Error().Err(err).Msg("existing-work lookup failed")
		return domain.Failed(ids, failMatch, err)
	}
	if out, done := p.routeExisting(ctx, c, decision, doc, nil, logger); done {
		return out
	}

	meta, err := p.deps.Resolver.Resolve(ctx, ids)
	if err != nil {
		logger.Error().Err(err).Msg("metadata resolution failed")
		return domain.Failed(ids, failMetadata, err)
	}
	merged := ids.Merge(meta.Identifiers)

	if p.source.RequireInstitutionalAuthor && !works.HasInstitutionalAuthor(meta, p.config.AllowList) {
		logger.Info().Msg("no institutional author, skipping")
		return domain.NewOutcome(ids, domain.CategorySkippedAffiliation, msgNoAffiliation)
	}

	// Match again right before creating: identifiers learned from metadata,
	// or a work created since the first lookup, can name an existing work.
	decision, doc, err = p.deps.Matcher.Match(ctx, merged)
	if err != nil {
		logger.Error().Err(err).Msg("existing-work lookup failed")
		return domain.Failed(ids, failMatch, err)
	}
	if out, done := p.routeExisting(ctx, c, decision, doc, meta, logger); done {
		return out
	}

	work, err := p.deps.Creator.Create(ctx, meta, p.config.Run)
	if err != nil {
		logger.Error().Err(err).Msg("work creation failed")
		return domain.Failed(ids, failCreate, err)
	}

	res, err := p.deps.Attacher.Attach(ctx, work, p.attachRequest(c, merged, meta))
	switch {
	case errors.Is(err, domain.ErrLinkNotFound):
		logger.Info().Str("work_id", work.ID).Msg("work created without full text")
		return domain.NewOutcome(ids, domain.CategoryIngestedMetadataOnly, msgCreatedNoFile).WithWork(work.ID)
	case err != nil:
		logger.Error().Err(err).Str("work_id", work.ID).Msg("file attachment failed")
		return domain.Failed(ids, failAttach, p.deps.Creator.Rollback(ctx, work, err))
	}

	logger.Info().Str("work_id", work.ID).Str("files", res.FileNames()).Msg("work created and file attached")
	return domain.NewOutcome(ids, domain.CategoryIngestedAndAttached, msgCreatedWithFile).
		WithWork(work.ID).
		WithFile(res.FileNames())
}

// routeExisting finishes candidates that matched an existing work. It
// reports false when the candidate still needs a new work.
func (p *Pipeline) routeExisting(ctx context.Context, c domain.Candidate, decision matcher.Decision, doc *domain.SearchDocument, meta *domain.NormalizedMetadata, logger zerolog.Logger) (domain.Outcome, bool) {
	ids := c.CandidateIDs
	switch decision {
	case matcher.DecisionSkip:
		logger.Info().Str("work_id", doc.ID).Msg("work already complete, skipping")
		return domain.NewOutcome(ids, domain.CategorySkipped, msgAlreadyComplete).WithWork(doc.ID), true

	case matcher.DecisionAttachOnly:
		if meta == nil && c.FilePath == "" && p.source.UseMetadataLink {
			resolved, err := p.deps.Resolver.Resolve(ctx, ids)
			switch {
			case err != nil && ctx.Err() != nil:
				return domain.Failed(ids, failMetadata, err).WithWork(doc.ID), true
			case err != nil:
				logger.Warn().Err(err).Str("work_id", doc.ID).Msg("metadata unavailable, attaching without its full-text link")
			default:
				meta = resolved
			}
		}
		work := &domain.WorkHandle{ID: doc.ID, Title: doc.Title, AdminSet: doc.AdminSet}
		res, err := p.deps.Attacher.Attach(ctx, work, p.attachRequest(c, ids, meta))
		switch {
		case errors.Is(err, domain.ErrLinkNotFound):
			logger.Info().Str("work_id", doc.ID).Msg("existing work has no full text available")
			return domain.NewOutcome(ids, domain.CategorySkippedAttachment, msgNoFullText).WithWork(doc.ID), true
		case err != nil:
			logger.Error().Err(err).Str("work_id", doc.ID).Msg("file attachment to existing work failed")
			out := domain.Failed(ids, failAttach, err).WithWork(doc.ID)
			if res != nil && len(res.Files) > 0 {
				out = out.WithFile(res.FileNames())
			}
			return out, true
		}
		logger.Info().Str("work_id", doc.ID).Str("files", res.FileNames()).Msg("file attached to existing work")
		return domain.NewOutcome(ids, domain.CategoryAttached, msgAttachedExisting).
			WithWork(doc.ID).
			WithFile(res.FileNames()), true
	}
	return domain.Outcome{}, false
}

// attachRequest picks the full-text source of a candidate: a staged file,
// then the metadata's open-access link when the source uses one, then the
// source's locator.
func (p *Pipeline) attachRequest(c domain.Candidate, ids domain.CandidateIDs, meta *domain.NormalizedMetadata) attach.Request {
	req := attach.Request{IDs: ids, Locator: p.source.Locator}
	switch {
	case c.FilePath != "":
		req.Link = &papersources.FullTextLink{URL: c.FilePath, Format: "pdf"}
	case p.source.UseMetadataLink && meta != nil && meta.FullTextURL != "":
		req.Link = &papersources.FullTextLink{URL: meta.FullTextURL, Format: "pdf"}
	}
	return req
}
