package autostudent

import (
	"context"
	"time"
)

// ResourceKind classifies how a linked resource's text is extracted.
type ResourceKind string

const (
	ResourceKindDocument  ResourceKind = "document"
	ResourceKindWebpage   ResourceKind = "webpage"
	ResourceKindPlainText ResourceKind = "plain_text"
	ResourceKindVideo     ResourceKind = "video"
)

// Course identifies one course the student is enrolled in.
type Course struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	EndAt *time.Time `json:"end_at,omitempty"`
}

// Assignment is one piece of coursework to process. It is immutable once
// fetched; a pipeline run owns it for the duration of that run.
type Assignment struct {
	ID          string           `json:"id"`
	CourseID    string           `json:"course_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Resources   []LinkedResource `json:"resources,omitempty"`
	DueAt       *time.Time       `json:"due_at,omitempty"`
	Submitted   bool             `json:"submitted,omitempty"`
}

// LinkedResource is an externally hosted document, page, or video referenced
// by an assignment. It is consumed exactly once, by either the
// ResourceFetcher or the TranscriptEnricher depending on its kind.
type LinkedResource struct {
	ID    string       `json:"id"`
	URL   string       `json:"url"`
	Kind  ResourceKind `json:"kind"`
	Title string       `json:"title,omitempty"`
}

// FailureReason names why a resource contributed nothing to the context.
type FailureReason string

const (
	FailureAccessDenied      FailureReason = "access_denied"
	FailureFetchError        FailureReason = "fetch_error"
	FailureUnsupportedFormat FailureReason = "unsupported_format"
	FailureNoTranscript      FailureReason = "no_transcript"
)

// FetchOutcome is the tagged per-resource result. Exactly one of Content,
// Transcript, or Failure is set. Every LinkedResource handed to a run maps to
// exactly one FetchOutcome in the final manifest.
type FetchOutcome struct {
	ResourceID string             `json:"resource_id"`
	Content    *ContentOutcome    `json:"content,omitempty"`
	Transcript *TranscriptOutcome `json:"transcript,omitempty"`
	Failure    *FailureOutcome    `json:"failure,omitempty"`
}

type FetchOutcomeType string

const (
	FetchOutcomeTypeContent    FetchOutcomeType = "content"
	FetchOutcomeTypeTranscript FetchOutcomeType = "transcript"
	FetchOutcomeTypeFailure    FetchOutcomeType = "failure"
)

func (o FetchOutcome) Type() FetchOutcomeType {
	switch {
	case o.Content != nil:
		return FetchOutcomeTypeContent
	case o.Transcript != nil:
		return FetchOutcomeTypeTranscript
	case o.Failure != nil:
		return FetchOutcomeTypeFailure
	default:
		return ""
	}
}

// ContentOutcome carries the normalized text of a fetched resource.
type ContentOutcome struct {
	Text string `json:"text"`
}

// TranscriptOutcome carries the joined spoken-word transcript of a video
// reference.
type TranscriptOutcome struct {
	VideoID string `json:"video_id"`
	Text    string `json:"text"`
}

// FailureOutcome records a resource-local failure. It never escalates past
// the manifest.
type FailureOutcome struct {
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message,omitempty"`
}

// NewContentOutcome creates a content outcome for a resource.
func NewContentOutcome(resourceID, text string) FetchOutcome {
	return FetchOutcome{ResourceID: resourceID, Content: &ContentOutcome{Text: text}}
}

// NewTranscriptOutcome creates a transcript outcome for a video reference.
func NewTranscriptOutcome(resourceID, videoID, text string) FetchOutcome {
	return FetchOutcome{ResourceID: resourceID, Transcript: &TranscriptOutcome{VideoID: videoID, Text: text}}
}

// NewFailureOutcome creates a failure outcome with a reason and detail.
func NewFailureOutcome(resourceID string, reason FailureReason, message string) FetchOutcome {
	return FetchOutcome{ResourceID: resourceID, Failure: &FailureOutcome{Reason: reason, Message: message}}
}

// SummaryArtifact is a unit of context text. When the source text was within
// the summarization budget it equals the source verbatim and WasSummarized is
// false.
type SummaryArtifact struct {
	ResourceID     string `json:"resource_id"`
	Text           string `json:"text"`
	WasSummarized  bool   `json:"was_summarized"`
	FromTranscript bool   `json:"from_transcript,omitempty"`
}

// ManifestEntry records one omitted resource and why.
type ManifestEntry struct {
	ResourceID string        `json:"resource_id"`
	Reason     FailureReason `json:"reason"`
	Detail     string        `json:"detail,omitempty"`
}

// Manifest is the auditable per-run record of which resources made it into
// the context, which were condensed, and which were omitted.
type Manifest struct {
	RunID      string          `json:"run_id"`
	Included   []string        `json:"included,omitempty"`
	Summarized []string        `json:"summarized,omitempty"`
	Omitted    []ManifestEntry `json:"omitted,omitempty"`
}

// ContextBundle is the merged, size-bounded body of text supplied to the
// generation call. Built once per run, immutable thereafter.
type ContextBundle struct {
	AssignmentID   string            `json:"assignment_id"`
	AssignmentText string            `json:"assignment_text"`
	Artifacts      []SummaryArtifact `json:"artifacts,omitempty"`
	Manifest       Manifest          `json:"manifest"`
}

// SolutionDraft is the terminal output of a run: the generated answer, the
// exact prompt that produced it, and the manifest for auditability. Never
// mutated after creation.
type SolutionDraft struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	Prompt       string    `json:"prompt"`
	Answer       string    `json:"answer"`
	Model        string    `json:"model"`
	Manifest     Manifest  `json:"manifest"`
	CreatedAt    time.Time `json:"created_at"`
}

// TranscriptSegment is one timed piece of spoken text.
type TranscriptSegment struct {
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
	Text     string        `json:"text"`
}

// CourseSource is the read-only query interface over the academic platform.
// The pipeline only consumes its read results, never its authentication or
// pagination mechanics.
type CourseSource interface {
	// Courses lists the student's active courses.
	Courses(ctx context.Context) ([]Course, error)
	// Assignments lists the assignment descriptors for a course.
	Assignments(ctx context.Context, courseID string) ([]Assignment, error)
}

// ResourceSource retrieves the raw bytes of one linked resource together with
// its media type. Implementations return ErrPermissionDenied (possibly
// wrapped) for non-retryable authorization failures.
type ResourceSource interface {
	Open(ctx context.Context, res LinkedResource) (data []byte, mediaType string, err error)
}

// TranscriptService retrieves the ordered timed segments for a video.
// Implementations return ErrNoTranscript (possibly wrapped) when the video
// has no captions.
type TranscriptService interface {
	Transcript(ctx context.Context, videoID string) ([]TranscriptSegment, error)
}
