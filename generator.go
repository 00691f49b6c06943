package autostudent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/utils/ptr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const solutionPrompt = `You are a capable student assistant. Using the assignment description and the
attached material, produce the best possible draft answer. Be direct, cite the
material you rely on, and do not invent sources.`

// SolutionGenerator builds the final prompt from an assembled context bundle
// and issues one completion call on the strong model.
type SolutionGenerator struct {
	model      llmsdk.LanguageModel
	maxChars   int
	retryLimit int
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewSolutionGenerator creates a generator over the generation model. The
// limiter is the shared completion-call budget; it may be nil.
func NewSolutionGenerator(model llmsdk.LanguageModel, limiter *rate.Limiter, cfg *Config) *SolutionGenerator {
	return &SolutionGenerator{
		model:      model,
		maxChars:   cfg.MaxPromptChars,
		retryLimit: cfg.GenerationRetryLimit,
		limiter:    limiter,
		logger:     cfg.Logger,
	}
}

// BuildPrompt renders the bundle into one bounded prompt. When the combined
// size exceeds maxChars, transcript sections are dropped (last first) before
// primary resource text; a final rune cut enforces the hard cap.
func BuildPrompt(bundle ContextBundle, maxChars int) string {
	artifacts := append([]SummaryArtifact(nil), bundle.Artifacts...)

	prompt := renderPrompt(bundle, artifacts)
	for runeLen(prompt) > maxChars {
		dropped := false
		for i := len(artifacts) - 1; i >= 0; i-- {
			if artifacts[i].FromTranscript {
				artifacts = append(artifacts[:i], artifacts[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			break
		}
		prompt = renderPrompt(bundle, artifacts)
	}

	return truncateRunes(prompt, maxChars)
}

func renderPrompt(bundle ContextBundle, artifacts []SummaryArtifact) string {
	var b strings.Builder
	b.WriteString("[Assignment Description]\n")
	b.WriteString(strings.TrimSpace(bundle.AssignmentText))

	for _, artifact := range artifacts {
		if artifact.FromTranscript {
			fmt.Fprintf(&b, "\n\n[Video Transcript: %s]\n", artifact.ResourceID)
		} else {
			fmt.Fprintf(&b, "\n\n[Attached Material: %s]\n", artifact.ResourceID)
		}
		b.WriteString(strings.TrimSpace(artifact.Text))
	}

	b.WriteString("\n\nPlease provide the best possible answer.")
	return b.String()
}

// Generate issues the completion call for an assembled bundle. Transient
// failures are retried with bounded backoff; on exhaustion the returned
// error is a GenerationFailure carrying the bundle unchanged so the caller
// can retry without redoing fetch and summarization work.
func (g *SolutionGenerator) Generate(ctx context.Context, bundle ContextBundle) (*SolutionDraft, error) {
	prompt := BuildPrompt(bundle, g.maxChars)

	var response *llmsdk.ModelResponse
	operation := func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		var err error
		response, err = g.model.Generate(ctx, &llmsdk.LanguageModelInput{
			SystemPrompt: ptr.To(solutionPrompt),
			Messages: []llmsdk.Message{
				llmsdk.NewUserMessage(llmsdk.NewTextPart(prompt)),
			},
			Temperature: ptr.To(0.7),
		})
		if err != nil {
			if !retryableModelError(err) {
				return backoff.Permanent(err)
			}
			g.logger.Debug("generation attempt failed", zap.Error(err))
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(g.retryLimit)), ctx))
	if err != nil {
		return nil, NewGenerationFailureError(err, &bundle)
	}

	return &SolutionDraft{
		ID:           uuid.NewString(),
		AssignmentID: bundle.AssignmentID,
		Prompt:       prompt,
		Answer:       responseText(response),
		Model:        g.model.ModelID(),
		Manifest:     bundle.Manifest,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// retryableModelError reports whether a completion error is transient:
// transport failures, rate limits, and server-side status codes.
func retryableModelError(err error) bool {
	var lmErr *llmsdk.LanguageModelError
	if !errors.As(err, &lmErr) {
		return false
	}
	switch lmErr.Kind {
	case llmsdk.Transport:
		return true
	case llmsdk.StatusCode:
		return lmErr.Status == 429 || lmErr.Status >= 500
	default:
		return false
	}
}
