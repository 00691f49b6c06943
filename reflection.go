package autostudent

import (
	"context"
	"fmt"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/utils/ptr"
)

const reflectionPrompt = `You help a student engage with their coursework before they see any generated
draft. Given a course name and an assignment, write exactly three short
reflective questions that make the student think about the material
themselves. One question per line, no numbering, no preamble.`

// GenerateReflectiveQuestions asks the light model for three questions the
// student should consider before acknowledging the ethics gate. Failures are
// returned to the caller; the questions are a study aid, not a pipeline
// stage.
func GenerateReflectiveQuestions(ctx context.Context, model llmsdk.LanguageModel, courseName string, assignment Assignment) ([]string, error) {
	body := fmt.Sprintf("Course: %s\nAssignment: %s\n\n%s",
		courseName, assignment.Title, strings.TrimSpace(assignment.Description))

	response, err := model.Generate(ctx, &llmsdk.LanguageModelInput{
		SystemPrompt: ptr.To(reflectionPrompt),
		Messages: []llmsdk.Message{
			llmsdk.NewUserMessage(llmsdk.NewTextPart(body)),
		},
		Temperature: ptr.To(0.8),
	})
	if err != nil {
		return nil, fmt.Errorf("reflective questions: %w", err)
	}

	var questions []string
	for _, line := range strings.Split(responseText(response), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-) ")
		if line != "" {
			questions = append(questions, line)
		}
	}
	if len(questions) > 3 {
		questions = questions[:3]
	}
	return questions, nil
}
