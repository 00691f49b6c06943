package autostudent

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned by a ResourceSource when the platform
// refuses access to a resource. It is never retried.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNoTranscript is returned by a TranscriptService when a video has no
// captions available.
var ErrNoTranscript = errors.New("no transcript available")

// PipelineError is a run-level failure. Resource-local failures are absorbed
// into the manifest and never surface as errors.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
	// Bundle carries the assembled context when generation exhausted its
	// retries, so the caller can retry without redoing fetch and
	// summarization work.
	Bundle *ContextBundle
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

type ErrorKind string

const (
	ErrorKindEthicsGateRejected ErrorKind = "ethics_gate_rejected"
	ErrorKindGenerationFailure  ErrorKind = "generation_failure"
	ErrorKindInvalidConfig      ErrorKind = "invalid_config"
)

// NewEthicsGateRejectedError reports that the run terminated because the
// gate was declined or timed out. This is expected behavior, not a bug.
func NewEthicsGateRejectedError(detail string) *PipelineError {
	return &PipelineError{
		Kind:    ErrorKindEthicsGateRejected,
		Message: fmt.Sprintf("ethics gate rejected: %s", detail),
	}
}

// NewGenerationFailureError reports that the completion call exhausted its
// retries. The assembled bundle is attached unchanged.
func NewGenerationFailureError(err error, bundle *ContextBundle) *PipelineError {
	return &PipelineError{
		Kind:    ErrorKindGenerationFailure,
		Message: fmt.Sprintf("generation failed: %v", err),
		Err:     err,
		Bundle:  bundle,
	}
}

// NewInvalidConfigError reports a rejected configuration value.
func NewInvalidConfigError(msg string) *PipelineError {
	return &PipelineError{
		Kind:    ErrorKindInvalidConfig,
		Message: fmt.Sprintf("invalid config: %s", msg),
	}
}
