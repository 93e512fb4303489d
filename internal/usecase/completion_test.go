package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rustplugin-bot/internal/domain"
	"rustplugin-bot/internal/integrations/openrouter"
)

type mockLLM struct {
	answer   string
	err      error
	captured []domain.PromptRequest
}

func (m *mockLLM) Chat(_ context.Context, req domain.PromptRequest) (string, error) {
	m.captured = append(m.captured, req)
	return m.answer, m.err
}

type observation struct {
	task    string
	outcome string
}

type mockRecorder struct {
	seen []observation
}

func (m *mockRecorder) ObserveCompletion(task, outcome string, _ time.Duration) {
	m.seen = append(m.seen, observation{task: task, outcome: outcome})
}

func newTestService(t *testing.T, llm LLMClient, rec Recorder) *CompletionService {
	t.Helper()
	svc, err := NewCompletionService(llm, rec, nil)
	require.NoError(t, err)
	return svc
}

func expectCompletionError(t *testing.T, err error, code ErrorCode) *Error {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	return usecaseErr
}

func TestNewCompletionService_ValidatesDependencies(t *testing.T) {
	_, err := NewCompletionService(nil, nil, nil)
	require.Error(t, err)
}

func TestComplete_HappyPath(t *testing.T) {
	llm := &mockLLM{answer: "class Teleport : RustPlugin {}"}
	rec := &mockRecorder{}
	svc := newTestService(t, llm, rec)

	req := BuildRequest(domain.TaskGenerateCode, "teleport plugin", PromptOptions{})
	out, err := svc.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "class Teleport : RustPlugin {}", out)
	require.Equal(t, []domain.PromptRequest{req}, llm.captured)
	require.Equal(t, []observation{{task: "generate_code", outcome: "ok"}}, rec.seen)
}

func TestComplete_Unauthorized(t *testing.T) {
	llm := &mockLLM{err: fmt.Errorf("openrouter: request failed: %w", &openrouter.HTTPStatusError{StatusCode: http.StatusUnauthorized, Body: "no key"})}
	rec := &mockRecorder{}
	svc := newTestService(t, llm, rec)

	_, err := svc.Complete(context.Background(), BuildRequest(domain.TaskFreeform, "hi", PromptOptions{}))
	usecaseErr := expectCompletionError(t, err, ErrorUnauthorized)
	require.Equal(t, unauthorizedMessage, usecaseErr.UserMessage())
	require.Equal(t, []observation{{task: "freeform", outcome: "UNAUTHORIZED"}}, rec.seen)
}

func TestComplete_TransportError(t *testing.T) {
	llm := &mockLLM{err: &openrouter.HTTPStatusError{StatusCode: http.StatusTooManyRequests, Body: `{"error":"rate limited"}`}}
	svc := newTestService(t, llm, nil)

	_, err := svc.Complete(context.Background(), BuildRequest(domain.TaskExplain, "code", PromptOptions{}))
	usecaseErr := expectCompletionError(t, err, ErrorTransport)
	require.Equal(t, http.StatusTooManyRequests, usecaseErr.Status)
	require.Equal(t, `{"error":"rate limited"}`, usecaseErr.Body)
	require.Contains(t, usecaseErr.UserMessage(), "429")
}

func TestComplete_UnknownError(t *testing.T) {
	cause := errors.New("openrouter: decode response: invalid character")
	svc := newTestService(t, &mockLLM{err: cause}, nil)

	_, err := svc.Complete(context.Background(), BuildRequest(domain.TaskModify, "code", PromptOptions{}))
	usecaseErr := expectCompletionError(t, err, ErrorUnknown)
	require.ErrorIs(t, err, cause)
	require.Contains(t, usecaseErr.UserMessage(), "invalid character")
}
