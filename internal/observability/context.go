package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	runIDKey  contextKey = "run_id"
	sourceKey contextKey = "source"
	stageKey  contextKey = "stage"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext retrieves the run ID from context.
// Returns empty string if not present.
func RunIDFromContext(ctx context.Context) string {
	return stringValue(ctx, runIDKey)
}

// WithSource adds the ingest source name to the context.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext retrieves the ingest source name from context.
func SourceFromContext(ctx context.Context) string {
	return stringValue(ctx, sourceKey)
}

// WithStage adds the current pipeline stage to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext retrieves the current pipeline stage from context.
func StageFromContext(ctx context.Context) string {
	return stringValue(ctx, stageKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RunContext contains the observability data of one pipeline run.
type RunContext struct {
	RunID  string
	Source string
	Stage  string
}

// WithRunContextFull adds all run context to the context.
func WithRunContextFull(ctx context.Context, rc RunContext) context.Context {
	if rc.RunID != "" {
		ctx = WithRunID(ctx, rc.RunID)
	}
	if rc.Source != "" {
		ctx = WithSource(ctx, rc.Source)
	}
	if rc.Stage != "" {
		ctx = WithStage(ctx, rc.Stage)
	}
	return ctx
}

// RunContextFromContext extracts all run context from the context.
func RunContextFromContext(ctx context.Context) RunContext {
	return RunContext{
		RunID:  RunIDFromContext(ctx),
		Source: SourceFromContext(ctx),
		Stage:  StageFromContext(ctx),
	}
}
