package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"rustplugin-bot/internal/domain"
)

type LLMClient interface {
	Chat(ctx context.Context, req domain.PromptRequest) (string, error)
}

// Recorder receives the outcome of each completion call.
type Recorder interface {
	ObserveCompletion(task string, outcome string, elapsed time.Duration)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type responseBodier interface {
	ResponseBody() string
}

// CompletionService turns a PromptRequest into text or a classified *Error.
type CompletionService struct {
	llm      LLMClient
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewCompletionService(llm LLMClient, recorder Recorder, logger *slog.Logger) (*CompletionService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionService{
		llm:      llm,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "completion")),
		now:      time.Now,
	}, nil
}

// Complete issues one completion call. Any failure is returned as *Error with
// code ErrorUnauthorized, ErrorTransport or ErrorUnknown; it is never retried.
func (s *CompletionService) Complete(ctx context.Context, req domain.PromptRequest) (string, error) {
	start := s.now()
	text, err := s.llm.Chat(ctx, req)
	if err != nil {
		classified := classify(err)
		s.observe(req.Kind, string(classified.Code), start)
		s.logger.Warn("completion failed",
			slog.String("task", string(req.Kind)),
			slog.String("code", string(classified.Code)),
			slog.Int("status", classified.Status),
			slog.Any("err", err),
		)
		return "", classified
	}
	s.observe(req.Kind, "ok", start)
	s.logger.Debug("completion succeeded",
		slog.String("task", string(req.Kind)),
		slog.Int("chars", len([]rune(text))),
	)
	return text, nil
}

func (s *CompletionService) observe(kind domain.TaskKind, outcome string, start time.Time) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveCompletion(string(kind), outcome, s.now().Sub(start))
}

func classify(err error) *Error {
	status, ok := upstreamStatusCode(err)
	if !ok {
		return newError(ErrorUnknown, "completion_failed", err)
	}
	if status == http.StatusUnauthorized {
		return newError(ErrorUnauthorized, "completion_unauthorized", err)
	}
	out := newError(ErrorTransport, "completion_http_error", err)
	out.Status = status
	var bodier responseBodier
	if errors.As(err, &bodier) {
		out.Body = bodier.ResponseBody()
	}
	return out
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
