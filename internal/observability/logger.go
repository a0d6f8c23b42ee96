package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is the output format (json, console, pretty).
	Format string

	// Output is the output destination: stdout, stderr, or a file path.
	// Long runs usually log to a file inside the run directory.
	Output string

	// AddSource adds source file and line number to log entries.
	AddSource bool

	// TimeFormat is the time format for timestamps.
	TimeFormat string
}

// DefaultLoggingConfig returns a LoggingConfig with sensible defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a new zerolog logger based on configuration.
// When Output names a file that cannot be opened the logger falls back to stderr.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	output := resolveOutput(cfg.Output)

	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	format := strings.ToLower(cfg.Format)
	if format == "console" || format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: zerolog.TimeFieldFormat,
		}
	}

	logger := zerolog.New(output).With().Timestamp()
	if cfg.AddSource {
		logger = logger.Caller()
	}
	log := logger.Logger()

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return log.Level(level)
}

func resolveOutput(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr
	}
	return f
}

// parseLevel converts a string log level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRunContext adds run-level fields to a logger.
func WithRunContext(logger zerolog.Logger, runID, source string) zerolog.Logger {
	return logger.With().
		Str("run_id", runID).
		Str("source", source).
		Logger()
}

// WithStageContext adds the pipeline stage and stream to a logger.
func WithStageContext(logger zerolog.Logger, stage, stream string) zerolog.Logger {
	ctx := logger.With().Str("stage", stage)
	if stream != "" {
		ctx = ctx.Str("stream", stream)
	}
	return ctx.Logger()
}

// WithCandidateContext adds every known identifier of a candidate to a logger.
func WithCandidateContext(logger zerolog.Logger, ids domain.CandidateIDs) zerolog.Logger {
	ctx := logger.With()
	if ids.PrimaryID != "" {
		ctx = ctx.Str("pmid", ids.PrimaryID)
	}
	if ids.SecondaryID != "" {
		ctx = ctx.Str("pmcid", ids.SecondaryID)
	}
	if ids.DOI != "" {
		ctx = ctx.Str("doi", ids.DOI)
	}
	return ctx.Logger()
}

// WithProviderContext adds provider request fields to a logger.
func WithProviderContext(logger zerolog.Logger, provider, endpoint string) zerolog.Logger {
	return logger.With().
		Str("provider", provider).
		Str("endpoint", endpoint).
		Logger()
}
