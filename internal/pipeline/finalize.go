package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/helixir/bibliographic-ingest/internal/dispatch"
	"github.com/helixir/bibliographic-ingest/internal/recorder"
	"github.com/helixir/bibliographic-ingest/internal/report"
)

// DefaultSubjectPrefix starts the subject of the run notification.
const DefaultSubjectPrefix = "Bibliographic ingest report:"

// finish writes the report and sends the notification once per run. A
// failed or disabled notification is logged and left unsent so a resumed run
// retries it.
func (p *Pipeline) finish(ctx context.Context, result *Result) error {
	res, err := Report(p.config.Dir, p.config.ReportRowCap)
	if err != nil {
		return err
	}
	result.Report = res
	if err := p.deps.Tracker.SetOutputPath(OutputReport, res.ArchivePath); err != nil {
		return err
	}

	if p.deps.Tracker.NotificationSent() {
		p.logger.Info().Msg("notification already sent, skipping")
		result.NotificationSent = true
		return nil
	}
	if p.deps.Notifier == nil {
		return nil
	}

	n := dispatch.Notification{
		RunID:       result.RunID,
		Source:      p.source.Name,
		Subject:     p.subject(result.RunID),
		Recipients:  p.config.Recipients,
		Summary:     res.Summary,
		ArchivePath: res.ArchivePath,
	}
	switch err := p.deps.Notifier.Notify(ctx, n); {
	case errors.Is(err, dispatch.ErrNotifierDisabled):
		p.logger.Info().Msg("notifications disabled, run notification not sent")
		result.NotificationsDisabled = true
		return nil
	case err != nil:
		p.logger.Warn().Err(err).Msg("failed to send run notification, it will be retried on resume")
		return nil
	}
	if err := p.deps.Tracker.MarkNotificationSent(); err != nil {
		return err
	}
	result.NotificationSent = true
	return nil
}

func (p *Pipeline) subject(runID string) string {
	prefix := p.config.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return strings.Join([]string{prefix, p.source.Name, runID}, " ")
}

// Report regenerates the category CSVs and the archive of a run directory
// from its outcome log.
func Report(dir string, rowCap int) (*report.Result, error) {
	outcomes, err := recorder.Outcomes(OutcomesPath(dir))
	if err != nil {
		return nil, err
	}
	return report.Write(dir, outcomes, rowCap)
}
