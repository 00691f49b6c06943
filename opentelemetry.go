package autostudent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Initialize the tracer lazily to allow user to have a chance to configure
// the global tracer provider.
var tracer = otel.Tracer("github.com/jperrello/Auto-Student")

// runSpan manages the span covering one pipeline run.
type runSpan struct {
	span trace.Span
}

func newRunSpan(ctx context.Context, runID, assignmentID string) (*runSpan, context.Context) {
	newCtx, span := tracer.Start(ctx, "autostudent.run")
	span.SetAttributes(
		attribute.String("autostudent.run.id", runID),
		attribute.String("autostudent.assignment.id", assignmentID),
	)
	return &runSpan{span: span}, newCtx
}

// onEnd ends the span with the manifest tallies of the finished run.
func (s *runSpan) onEnd(draft *SolutionDraft) {
	s.span.SetAttributes(
		attribute.Int("autostudent.manifest.included", len(draft.Manifest.Included)),
		attribute.Int("autostudent.manifest.summarized", len(draft.Manifest.Summarized)),
		attribute.Int("autostudent.manifest.omitted", len(draft.Manifest.Omitted)),
	)
	s.span.End()
}

// onError records an error and ends the span.
func (s *runSpan) onError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.span.End()
}

// traceRun wraps one pipeline run in a span.
func traceRun(ctx context.Context, runID, assignmentID string, fn func(context.Context) (*SolutionDraft, error)) (*SolutionDraft, error) {
	span, ctx := newRunSpan(ctx, runID, assignmentID)

	draft, err := fn(ctx)
	if err != nil {
		span.onError(err)
		return nil, err
	}
	span.onEnd(draft)
	return draft, nil
}

// traceStage wraps one pipeline stage in a span.
func traceStage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "autostudent.stage."+string(stage))
	defer span.End()

	span.SetAttributes(attribute.String("autostudent.stage", string(stage)))

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
