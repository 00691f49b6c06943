package autostudent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// videoURLPatterns match the video-hosting URL shapes the enricher
// recognizes. Capture group 1 is the video identifier.
var videoURLPatterns = []*regexp.Regexp{
	// YouTube watch pages, embeds, and short links.
	regexp.MustCompile(`https?://(?:www\.)?youtube\.com/watch\?[^\s"'<>]*v=([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`https?://(?:www\.)?youtube\.com/embed/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`https?://youtu\.be/([A-Za-z0-9_-]{6,})`),
	// YuJa media links carry the id in a /V/ path segment.
	regexp.MustCompile(`https?://[^\s"'<>]+/V/([^/?&"'\s<>]+)`),
}

// VideoReference is one recognized video mention. ResourceID names the
// linked resource it belongs to, or a synthetic "video:<id>" identifier for
// references discovered inside text.
type VideoReference struct {
	ResourceID string
	VideoID    string
	SourceURL  string
}

// ParseVideoID extracts the video identifier from a URL if it matches a
// known video-hosting shape.
func ParseVideoID(rawURL string) (string, bool) {
	for _, pattern := range videoURLPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// TranscriptEnricher turns video references into transcript outcomes.
// Each reference is processed independently; a missing transcript fails only
// that one contribution.
type TranscriptEnricher struct {
	service TranscriptService
	logger  *zap.Logger
}

// NewTranscriptEnricher creates an enricher over the given transcript
// service.
func NewTranscriptEnricher(service TranscriptService, cfg *Config) *TranscriptEnricher {
	return &TranscriptEnricher{service: service, logger: cfg.Logger}
}

// FindReferences scans text for video URLs and returns one reference per
// distinct video id, in order of first appearance.
func (e *TranscriptEnricher) FindReferences(text string) []VideoReference {
	var refs []VideoReference
	seen := make(map[string]struct{})
	for _, pattern := range videoURLPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			id := m[1]
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			refs = append(refs, VideoReference{
				ResourceID: "video:" + id,
				VideoID:    id,
				SourceURL:  m[0],
			})
		}
	}
	return refs
}

// Enrich requests the transcript for one video reference. A missing or
// failed transcript yields a NoTranscript failure outcome, never an error.
func (e *TranscriptEnricher) Enrich(ctx context.Context, ref VideoReference) FetchOutcome {
	segments, err := e.service.Transcript(ctx, ref.VideoID)
	if err != nil {
		e.logger.Debug("transcript unavailable",
			zap.String("video", ref.VideoID), zap.Error(err))
		return NewFailureOutcome(ref.ResourceID, FailureNoTranscript,
			fmt.Sprintf("video %s: %v", ref.VideoID, err))
	}
	text := joinSegments(segments)
	if text == "" {
		return NewFailureOutcome(ref.ResourceID, FailureNoTranscript,
			fmt.Sprintf("video %s has an empty transcript", ref.VideoID))
	}
	return NewTranscriptOutcome(ref.ResourceID, ref.VideoID, text)
}

func joinSegments(segments []TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
