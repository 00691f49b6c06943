package autostudent_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	autostudent "github.com/jperrello/Auto-Student"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{
			name:   "youtube watch page",
			url:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "youtube watch page with extra params",
			url:    "https://youtube.com/watch?t=42&v=dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "youtube embed",
			url:    "https://www.youtube.com/embed/dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "short link",
			url:    "https://youtu.be/dQw4w9WgXcQ",
			wantID: "dQw4w9WgXcQ",
			wantOK: true,
		},
		{
			name:   "yuja media link",
			url:    "https://university.yuja.com/V/392817",
			wantID: "392817",
			wantOK: true,
		},
		{
			name:   "plain webpage",
			url:    "https://example.edu/reading",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := autostudent.ParseVideoID(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ParseVideoID(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if ok && id != tt.wantID {
				t.Errorf("ParseVideoID(%q) = %q, want %q", tt.url, id, tt.wantID)
			}
		})
	}
}

func TestFindReferencesDeduplicates(t *testing.T) {
	enricher := autostudent.NewTranscriptEnricher(newMockTranscriptService(), newTestConfig(t))

	text := `Watch https://youtu.be/dQw4w9WgXcQ first.
Then https://youtu.be/AAAAAAAAAAA and again https://youtu.be/dQw4w9WgXcQ.`

	refs := enricher.FindReferences(text)

	want := []autostudent.VideoReference{
		{ResourceID: "video:dQw4w9WgXcQ", VideoID: "dQw4w9WgXcQ", SourceURL: "https://youtu.be/dQw4w9WgXcQ"},
		{ResourceID: "video:AAAAAAAAAAA", VideoID: "AAAAAAAAAAA", SourceURL: "https://youtu.be/AAAAAAAAAAA"},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("FindReferences mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrichJoinsSegments(t *testing.T) {
	transcripts := newMockTranscriptService().Serve("vid1234",
		autostudent.TranscriptSegment{Start: 0, Duration: time.Second, Text: " Welcome to "},
		autostudent.TranscriptSegment{Start: time.Second, Duration: time.Second, Text: "the course."},
		autostudent.TranscriptSegment{Start: 2 * time.Second, Duration: time.Second, Text: "   "},
	)
	enricher := autostudent.NewTranscriptEnricher(transcripts, newTestConfig(t))

	outcome := enricher.Enrich(context.Background(), autostudent.VideoReference{
		ResourceID: "video:vid1234", VideoID: "vid1234",
	})

	if outcome.Type() != autostudent.FetchOutcomeTypeTranscript {
		t.Fatalf("outcome type = %q, want transcript (%+v)", outcome.Type(), outcome)
	}
	if outcome.Transcript.Text != "Welcome to the course." {
		t.Errorf("text = %q, want %q", outcome.Transcript.Text, "Welcome to the course.")
	}
	if outcome.Transcript.VideoID != "vid1234" {
		t.Errorf("video id = %q, want %q", outcome.Transcript.VideoID, "vid1234")
	}
}

func TestEnrichAbsorbsMissingTranscript(t *testing.T) {
	transcripts := newMockTranscriptService().Fail("vid1234",
		fmt.Errorf("video vid1234: %w", autostudent.ErrNoTranscript))
	enricher := autostudent.NewTranscriptEnricher(transcripts, newTestConfig(t))

	outcome := enricher.Enrich(context.Background(), autostudent.VideoReference{
		ResourceID: "r2", VideoID: "vid1234",
	})

	if outcome.Type() != autostudent.FetchOutcomeTypeFailure {
		t.Fatalf("outcome type = %q, want failure", outcome.Type())
	}
	if outcome.Failure.Reason != autostudent.FailureNoTranscript {
		t.Errorf("reason = %q, want %q", outcome.Failure.Reason, autostudent.FailureNoTranscript)
	}
	if outcome.ResourceID != "r2" {
		t.Errorf("resource id = %q, want %q", outcome.ResourceID, "r2")
	}
}

func TestEnrichTreatsEmptyTranscriptAsMissing(t *testing.T) {
	transcripts := newMockTranscriptService().Serve("vid1234",
		autostudent.TranscriptSegment{Text: "  "})
	enricher := autostudent.NewTranscriptEnricher(transcripts, newTestConfig(t))

	outcome := enricher.Enrich(context.Background(), autostudent.VideoReference{
		ResourceID: "r2", VideoID: "vid1234",
	})

	if outcome.Type() != autostudent.FetchOutcomeTypeFailure {
		t.Fatalf("outcome type = %q, want failure", outcome.Type())
	}
	if outcome.Failure.Reason != autostudent.FailureNoTranscript {
		t.Errorf("reason = %q, want %q", outcome.Failure.Reason, autostudent.FailureNoTranscript)
	}
}
