package audit

import (
	"context"
	"log/slog"
)

// Recorder records named actions with a details payload. Recording is
// fire-and-forget: implementations must not fail the caller, so the
// interface returns nothing.
type Recorder interface {
	Record(ctx context.Context, action string, details map[string]any)
}

// SlogRecorder writes audit events through a structured logger
type SlogRecorder struct {
	logger *slog.Logger
}

// Ensure SlogRecorder implements Recorder
var _ Recorder = (*SlogRecorder)(nil)

// NewSlogRecorder creates a Recorder backed by the given logger
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	return &SlogRecorder{logger: logger.With(slog.String("component", "audit"))}
}

// Record emits one audit event
func (r *SlogRecorder) Record(ctx context.Context, action string, details map[string]any) {
	attrs := make([]any, 0, len(details)+1)
	attrs = append(attrs, slog.String("action", action))
	for k, v := range details {
		attrs = append(attrs, slog.Any(k, v))
	}
	r.logger.InfoContext(ctx, "audit event", attrs...)
}

// NopRecorder discards all audit events
type NopRecorder struct{}

// Ensure NopRecorder implements Recorder
var _ Recorder = (*NopRecorder)(nil)

// NewNopRecorder creates a Recorder that drops everything
func NewNopRecorder() *NopRecorder {
	return &NopRecorder{}
}

// Record does nothing
func (r *NopRecorder) Record(ctx context.Context, action string, details map[string]any) {}
