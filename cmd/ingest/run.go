package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/bibliographic-ingest/internal/attach"
	"github.com/helixir/bibliographic-ingest/internal/config"
	"github.com/helixir/bibliographic-ingest/internal/database"
	"github.com/helixir/bibliographic-ingest/internal/dispatch"
	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/fulltext"
	"github.com/helixir/bibliographic-ingest/internal/matcher"
	"github.com/helixir/bibliographic-ingest/internal/metadata"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/pipeline"
	"github.com/helixir/bibliographic-ingest/internal/reconcile"
	"github.com/helixir/bibliographic-ingest/internal/recorder"
	"github.com/helixir/bibliographic-ingest/internal/repository"
	"github.com/helixir/bibliographic-ingest/internal/retrieval"
	httpserver "github.com/helixir/bibliographic-ingest/internal/server/http"
	"github.com/helixir/bibliographic-ingest/internal/tracker"
	"github.com/helixir/bibliographic-ingest/internal/works"
)

// inputPathKey is the tracker output path recording --input-file.
const inputPathKey = "input"

var runOpts RunOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run or resume an ingest",
	Long: `Run retrieves, reconciles and processes the candidates of one source into
the output directory. With --mode resume the run continues from the last
checkpoint; flags omitted on resume default to the values recorded when the
run started.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIngest(cmd.Context(), runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.Source, "source", "", "bibliographic source (pubmed, nsf, govinfo)")
	f.StringVar(&runOpts.Mode, "mode", string(tracker.ModeNew), "new or resume")
	f.StringVar(&runOpts.StartDate, "start-date", "", "first publication date, YYYY-MM-DD")
	f.StringVar(&runOpts.EndDate, "end-date", "", "last publication date, YYYY-MM-DD")
	f.StringVar(&runOpts.OutputDir, "output-dir", "", "run directory")
	f.StringVar(&runOpts.AdminSet, "admin-set", "", "admin set of created works")
	f.StringVar(&runOpts.Depositor, "depositor", "", "depositor of created works")
	f.StringVar(&runOpts.InputFile, "input-file", "", "CSV list of identifiers (nsf, govinfo)")

	rootCmd.AddCommand(runCmd)
}

func runIngest(ctx context.Context, opts RunOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	if opts.TrackerMode() == tracker.ModeResume && opts.OutputDir != "" {
		progress, err := tracker.Load(opts.OutputDir)
		if err != nil {
			return fmt.Errorf("load run: %w", err)
		}
		opts.fillFromProgress(progress)
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.Source == pipeline.SourcePubMed && cfg.Pipeline.AffiliationQuery == "" {
		return fmt.Errorf("%w: pipeline.affiliation_query", domain.ErrMissingConfig)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.MigrationAutoRun {
		if err := migrateUp(db, cfg.Database.MigrationPath, logger); err != nil {
			return err
		}
	}
	repo := repository.NewPgWorkRepository(db, logger)

	from, to, err := opts.DateRange()
	if err != nil {
		return err
	}
	clients := newClients(cfg, metrics)
	source, err := buildSource(opts, cfg, clients, from, to)
	if err != nil {
		return err
	}

	tr, err := tracker.Open(opts.OutputDir, tracker.RunInfo{
		Source:    opts.Source,
		DateRange: tracker.DateRange{From: opts.StartDate, To: opts.EndDate},
		AdminSet:  opts.AdminSet,
		Depositor: opts.Depositor,
	}, opts.TrackerMode(), tracker.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("open run: %w", err)
	}
	if opts.InputFile != "" {
		if err := tr.SetOutputPath(inputPathKey, opts.InputFile); err != nil {
			return err
		}
	}
	logger = observability.WithRunContext(logger, tr.RunID(), opts.Source)

	rec, err := recorder.Open(pipeline.OutcomesPath(opts.OutputDir), cfg.Pipeline.OutcomeFlushThreshold, logger)
	if err != nil {
		return fmt.Errorf("open outcome log: %w", err)
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close outcome log")
		}
	}()

	dispatcher := dispatch.NewKafkaDispatcher(dispatch.Config{
		Enabled:           cfg.Kafka.Enabled,
		Brokers:           cfg.Kafka.Brokers,
		NotificationTopic: cfg.Kafka.NotificationTopic,
		TaskTopic:         cfg.Kafka.TaskTopic,
		BatchTimeout:      cfg.Kafka.BatchTimeout,
		WriteTimeout:      cfg.Kafka.WriteTimeout,
	}, logger)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close dispatcher")
		}
	}()

	resolver := metadata.NewResolver(clients.registry, clients.builders, metadata.ResolverConfig{
		Providers: source.Providers,
		Cache:     metadata.NewCache(0),
		Logger:    logger,
		Metrics:   metrics,
	})

	acquirer := fulltext.NewAcquirer(fulltext.Config{
		StagingRoot: cfg.Attachment.StagingDir,
		MaxSize:     cfg.Attachment.MaxFileSize,
		HTTP: fulltext.HTTPConfig{
			Timeout:              cfg.Attachment.HTTPTimeout,
			UserAgent:            cfg.Attachment.UserAgent,
			AllowPrivateNetworks: cfg.Attachment.AllowPrivateNetworks,
		},
		FTP: fulltext.FTPConfig{
			Timeout:              cfg.Attachment.FTPTimeout,
			AllowPrivateNetworks: cfg.Attachment.AllowPrivateNetworks,
		},
	})

	attacher := attach.New(repo, acquirer, dispatcher, attach.Config{
		RunID:       tr.RunID(),
		FilesDir:    filepath.Join(opts.OutputDir, attach.FilesDirName),
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		Backoff:     cfg.Pipeline.RetryBackoff,
		TitleLength: cfg.Attachment.FilenameTitleLength,
		Visibility:  cfg.Institution.Visibility,
	}, logger, metrics)

	creator := works.NewCreator(repo, works.Config{
		AllowList:       cfg.Institution.AffiliationAllowList,
		RightsStatement: cfg.Institution.RightsStatement,
		ResourceType:    cfg.Institution.ResourceType,
		Visibility:      cfg.Institution.Visibility,
	}, logger, metrics)

	if cfg.Server.Enabled {
		stopServer := startStatusServer(cfg, db, tr, rec, logger)
		defer stopServer()
	}

	p := pipeline.New(pipeline.Config{
		Dir:                opts.OutputDir,
		Run:                works.RunContext{AdminSet: opts.AdminSet, Depositor: opts.Depositor},
		AllowList:          cfg.Institution.AffiliationAllowList,
		PageSize:           cfg.Pipeline.PageSize,
		ReconcileBatchSize: cfg.Pipeline.ReconcileBatchSize,
		ReportRowCap:       cfg.Pipeline.ReportRowCap,
		Recipients:         cfg.Notification.Recipients,
		SubjectPrefix:      cfg.Notification.SubjectPrefix,
	}, source, pipeline.Deps{
		Tracker:    tr,
		Recorder:   rec,
		Retriever:  retrieval.New(tr, logger, metrics),
		Reconciler: reconcile.New(tr, logger, metrics),
		Resolver:   resolver,
		Matcher:    matcher.New(repo, logger),
		Creator:    creator,
		Attacher:   attacher,
		Notifier:   dispatcher,
	}, logger, metrics)

	result, err := p.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrHalted):
		fmt.Fprintln(os.Stderr, "run halted; rerun with --mode resume")
		return err
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "run interrupted; rerun with --mode resume")
		return err
	case err != nil:
		return err
	}

	printResult(result)
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	}).With().Str("component", "ingest").Logger()
}

func migrateUp(db *database.DB, path string, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// startStatusServer serves health, metrics and run progress in the
// background and returns its shutdown function.
func startStatusServer(cfg *config.Config, db *database.DB, tr *tracker.Tracker, rec *recorder.Recorder, logger zerolog.Logger) func() {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	srv := httpserver.NewServer(httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MetricsPath:     metricsPath,
	}, db, tr, rec, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("status server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("status server shutdown failed")
		}
	}
}

func printResult(result *pipeline.Result) {
	fmt.Printf("run %s completed\n", result.RunID)
	printCounts(os.Stdout, result.Outcomes)
	if result.Report != nil {
		fmt.Printf("report: %s\n", result.Report.ArchivePath)
	}
	switch {
	case result.NotificationsDisabled:
		fmt.Println("notifications disabled; run notification not sent")
	case !result.NotificationSent:
		fmt.Println("notification not sent; rerun with --mode resume to retry")
	}
}
