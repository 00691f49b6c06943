package autostudent_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/llmsdktest"
	autostudent "github.com/jperrello/Auto-Student"
)

func testBundle() autostudent.ContextBundle {
	return autostudent.ContextBundle{
		AssignmentID:   "a1",
		AssignmentText: "Explain the halting problem.",
		Artifacts: []autostudent.SummaryArtifact{
			{ResourceID: "c1", Text: "alpha"},
			{ResourceID: "t1", Text: "beta", FromTranscript: true},
			{ResourceID: "t2", Text: "gamma", FromTranscript: true},
		},
		Manifest: autostudent.Manifest{
			RunID:    "run1",
			Included: []string{"c1", "t1", "t2"},
		},
	}
}

func TestBuildPromptSections(t *testing.T) {
	prompt := autostudent.BuildPrompt(testBundle(), 100000)

	if !strings.HasPrefix(prompt, "[Assignment Description]\n") {
		t.Errorf("prompt does not open with the assignment section: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Please provide the best possible answer.") {
		t.Errorf("prompt does not close with the answer instruction: %q", prompt)
	}
	for _, section := range []string{
		"[Attached Material: c1]",
		"[Video Transcript: t1]",
		"[Video Transcript: t2]",
	} {
		if !strings.Contains(prompt, section) {
			t.Errorf("prompt missing section %q", section)
		}
	}
}

func TestBuildPromptDropsTranscriptsLastFirst(t *testing.T) {
	bundle := testBundle()
	full := autostudent.BuildPrompt(bundle, 100000)

	limited := autostudent.BuildPrompt(bundle, utf8.RuneCountInString(full)-1)

	if strings.Contains(limited, "[Video Transcript: t2]") {
		t.Error("last transcript should be dropped first when over budget")
	}
	if !strings.Contains(limited, "[Video Transcript: t1]") {
		t.Error("earlier transcript dropped before the budget required it")
	}
	if !strings.Contains(limited, "[Attached Material: c1]") {
		t.Error("primary resource text dropped before transcripts")
	}
}

func TestBuildPromptHardCap(t *testing.T) {
	prompt := autostudent.BuildPrompt(testBundle(), 60)

	if got := utf8.RuneCountInString(prompt); got != 60 {
		t.Errorf("prompt length = %d, want exactly the cap of 60", got)
	}
	if !strings.HasPrefix(prompt, "[Assignment Description]\n") {
		t.Errorf("capped prompt lost its head: %q", prompt)
	}
	if strings.Contains(prompt, "Video Transcript") {
		t.Error("transcripts must be dropped before the hard cut")
	}
}

func TestGenerateProducesDraft(t *testing.T) {
	model := llmsdktest.NewMockLanguageModel()
	model.EnqueueGenerateResult(textResult("the answer"))
	cfg := newTestConfig(t)
	generator := autostudent.NewSolutionGenerator(model, nil, cfg)

	bundle := testBundle()
	draft, err := generator.Generate(context.Background(), bundle)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if draft.Answer != "the answer" {
		t.Errorf("answer = %q, want %q", draft.Answer, "the answer")
	}
	if draft.AssignmentID != "a1" {
		t.Errorf("assignment id = %q, want %q", draft.AssignmentID, "a1")
	}
	if draft.Model != "mock-model" {
		t.Errorf("model = %q, want %q", draft.Model, "mock-model")
	}
	if want := autostudent.BuildPrompt(bundle, cfg.MaxPromptChars); draft.Prompt != want {
		t.Errorf("draft prompt does not match the built prompt")
	}
	if draft.Manifest.RunID != "run1" {
		t.Errorf("manifest run id = %q, want %q", draft.Manifest.RunID, "run1")
	}
	if draft.ID == "" || draft.CreatedAt.IsZero() {
		t.Error("draft must carry an id and creation time")
	}
}

func TestGenerateRetriesTransportErrors(t *testing.T) {
	model := llmsdktest.NewMockLanguageModel()
	model.EnqueueGenerateResult(
		errorResult(llmsdk.NewTransportError(errors.New("connection reset"))),
		textResult("recovered"),
	)
	generator := autostudent.NewSolutionGenerator(model, nil, newTestConfig(t))

	draft, err := generator.Generate(context.Background(), testBundle())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if draft.Answer != "recovered" {
		t.Errorf("answer = %q, want %q", draft.Answer, "recovered")
	}
	if generateCalls(model) != 2 {
		t.Errorf("model calls = %d, want 2", generateCalls(model))
	}
}

func TestGenerateDoesNotRetryInvalidInput(t *testing.T) {
	model := llmsdktest.NewMockLanguageModel()
	model.EnqueueGenerateResult(errorResult(llmsdk.NewInvalidInputError("prompt rejected")))
	generator := autostudent.NewSolutionGenerator(model, nil, newTestConfig(t))

	bundle := testBundle()
	_, err := generator.Generate(context.Background(), bundle)
	if err == nil {
		t.Fatal("Generate() error = nil, want a generation failure")
	}

	var pipeErr *autostudent.PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("error %T does not unwrap to *PipelineError", err)
	}
	if pipeErr.Kind != autostudent.ErrorKindGenerationFailure {
		t.Errorf("kind = %q, want %q", pipeErr.Kind, autostudent.ErrorKindGenerationFailure)
	}
	if pipeErr.Bundle == nil {
		t.Fatal("generation failure must carry the assembled bundle")
	}
	if pipeErr.Bundle.AssignmentID != bundle.AssignmentID {
		t.Errorf("carried bundle assignment = %q, want %q", pipeErr.Bundle.AssignmentID, bundle.AssignmentID)
	}
	if generateCalls(model) != 1 {
		t.Errorf("model calls = %d, want 1", generateCalls(model))
	}
}

func TestGenerateExhaustedRetries(t *testing.T) {
	model := llmsdktest.NewMockLanguageModel()
	model.EnqueueGenerateResult(errorResult(llmsdk.NewStatusCodeError(500, "upstream down")))
	generator := autostudent.NewSolutionGenerator(model, nil,
		newTestConfig(t, autostudent.WithGenerationRetryLimit(0)))

	_, err := generator.Generate(context.Background(), testBundle())

	var pipeErr *autostudent.PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("error %T does not unwrap to *PipelineError", err)
	}
	if pipeErr.Kind != autostudent.ErrorKindGenerationFailure {
		t.Errorf("kind = %q, want %q", pipeErr.Kind, autostudent.ErrorKindGenerationFailure)
	}
	if generateCalls(model) != 1 {
		t.Errorf("model calls = %d, want 1 with retries disabled", generateCalls(model))
	}
}
