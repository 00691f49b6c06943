package autostudent_test

import (
	"context"
	"fmt"
	"sync"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/llmsdktest"
	autostudent "github.com/jperrello/Auto-Student"
)

// textResult builds a mocked text response for llmsdktest.MockLanguageModel.
func textResult(text string) llmsdktest.MockGenerateResult {
	return llmsdktest.NewMockGenerateResultResponse(llmsdk.ModelResponse{
		Content: []llmsdk.Part{llmsdk.NewTextPart(text)},
	})
}

func errorResult(err error) llmsdktest.MockGenerateResult {
	return llmsdktest.NewMockGenerateResultError(err)
}

func generateCalls(model *llmsdktest.MockLanguageModel) int {
	return len(model.TrackedGenerateInputs())
}

// mockResourceSource implements autostudent.ResourceSource from an in-memory
// table. Queued errors are consumed before data is served, so a retry path
// can be scripted per resource.
type mockResourceSource struct {
	mu        sync.Mutex
	resources map[string]*mockResource
}

type mockResource struct {
	data      []byte
	mediaType string
	errs      []error
	calls     int
}

func newMockResourceSource() *mockResourceSource {
	return &mockResourceSource{resources: make(map[string]*mockResource)}
}

func (s *mockResourceSource) Serve(id string, data []byte, mediaType string) *mockResourceSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.resource(id)
	res.data = data
	res.mediaType = mediaType
	return s
}

func (s *mockResourceSource) Fail(id string, errs ...error) *mockResourceSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.resource(id)
	res.errs = append(res.errs, errs...)
	return s
}

func (s *mockResourceSource) resource(id string) *mockResource {
	res, ok := s.resources[id]
	if !ok {
		res = &mockResource{}
		s.resources[id] = res
	}
	return res
}

func (s *mockResourceSource) Open(_ context.Context, res autostudent.LinkedResource) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.resources[res.ID]
	if !ok {
		return nil, "", fmt.Errorf("no mock resource %q", res.ID)
	}
	entry.calls++
	if len(entry.errs) > 0 {
		err := entry.errs[0]
		entry.errs = entry.errs[1:]
		return nil, "", err
	}
	return entry.data, entry.mediaType, nil
}

func (s *mockResourceSource) Calls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.resources[id]; ok {
		return res.calls
	}
	return 0
}

// mockTranscriptService implements autostudent.TranscriptService from an
// in-memory table.
type mockTranscriptService struct {
	mu       sync.Mutex
	segments map[string][]autostudent.TranscriptSegment
	errs     map[string]error
	calls    map[string]int
}

func newMockTranscriptService() *mockTranscriptService {
	return &mockTranscriptService{
		segments: make(map[string][]autostudent.TranscriptSegment),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (s *mockTranscriptService) Serve(videoID string, segments ...autostudent.TranscriptSegment) *mockTranscriptService {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[videoID] = segments
	return s
}

func (s *mockTranscriptService) Fail(videoID string, err error) *mockTranscriptService {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[videoID] = err
	return s
}

func (s *mockTranscriptService) Transcript(_ context.Context, videoID string) ([]autostudent.TranscriptSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[videoID]++
	if err, ok := s.errs[videoID]; ok {
		return nil, err
	}
	if segments, ok := s.segments[videoID]; ok {
		return segments, nil
	}
	return nil, fmt.Errorf("video %s: %w", videoID, autostudent.ErrNoTranscript)
}
