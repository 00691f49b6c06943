package autostudent

import (
	"context"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/utils/ptr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const condensationPrompt = `You condense course material so a student assistant can answer an assignment.
Preserve every fact, definition, requirement, and number relevant to answering the assignment.
Drop boilerplate, navigation text, and repetition. Reply with the condensed text only.`

// Summarizer condenses a body of text that exceeds the configured budget
// into a shorter representative digest, and leaves short text untouched.
// Summarization is an optimization: a failed condensation call degrades to a
// deterministic truncation, never to an error.
type Summarizer struct {
	model     llmsdk.LanguageModel
	threshold int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewSummarizer creates a summarizer over the condensation model. The
// limiter is the process-wide completion-call budget shared with the
// generator; it may be nil.
func NewSummarizer(model llmsdk.LanguageModel, limiter *rate.Limiter, cfg *Config) *Summarizer {
	return &Summarizer{
		model:     model,
		threshold: cfg.SummarizationThresholdChars,
		limiter:   limiter,
		logger:    cfg.Logger,
	}
}

// Summarize returns a SummaryArtifact for one text unit. Text within the
// budget is returned verbatim with WasSummarized false.
func (s *Summarizer) Summarize(ctx context.Context, resourceID, text string, fromTranscript bool) SummaryArtifact {
	if runeLen(text) <= s.threshold {
		return SummaryArtifact{
			ResourceID:     resourceID,
			Text:           text,
			WasSummarized:  false,
			FromTranscript: fromTranscript,
		}
	}

	condensed, err := s.condense(ctx, text)
	if err != nil || strings.TrimSpace(condensed) == "" {
		s.logger.Warn("summarization degraded to truncation",
			zap.String("resource", resourceID), zap.Error(err))
		condensed = truncateRunes(text, s.threshold)
	}

	return SummaryArtifact{
		ResourceID:     resourceID,
		Text:           condensed,
		WasSummarized:  true,
		FromTranscript: fromTranscript,
	}
}

func (s *Summarizer) condense(ctx context.Context, text string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	response, err := s.model.Generate(ctx, &llmsdk.LanguageModelInput{
		SystemPrompt: ptr.To(condensationPrompt),
		Messages: []llmsdk.Message{
			llmsdk.NewUserMessage(llmsdk.NewTextPart(text)),
		},
		Temperature: ptr.To(0.2),
	})
	if err != nil {
		return "", err
	}
	return responseText(response), nil
}

// responseText joins the text parts of a model response.
func responseText(response *llmsdk.ModelResponse) string {
	var lines []string
	for _, part := range response.Content {
		if part.TextPart == nil {
			continue
		}
		text := strings.TrimSpace(part.TextPart.Text)
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

func runeLen(s string) int {
	return len([]rune(s))
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
