package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"rustplugin-bot/internal/domain"
)

type stubDispatcher struct {
	err    error
	events []domain.ChatEvent
}

func (s *stubDispatcher) Dispatch(_ context.Context, ev domain.ChatEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

const textUpdate = `{"update_id":1,"message":{"message_id":3,"date":0,"chat":{"id":42,"type":"private"},"text":"как сделать телепорт?"}}`

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/telegram",
		Headers: map[string]string{
			"Content-Type":                    "application/json",
			"X-Telegram-Bot-Api-Secret-Token": "s3cret",
		},
		Body: body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewWebhook_ValidatesDependency(t *testing.T) {
	_, err := NewWebhook(nil, "", nil)
	require.Error(t, err)
}

func TestHandle_DispatchesUpdate(t *testing.T) {
	d := &stubDispatcher{}
	w, err := NewWebhook(d, "s3cret", nil)
	require.NoError(t, err)

	resp, err := w.Handle(context.Background(), makeEvent(textUpdate))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, parseBody[okResponse](t, resp.Body).OK)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])

	require.Len(t, d.events, 1)
	require.Equal(t, domain.EventText, d.events[0].Kind)
	require.Equal(t, int64(42), d.events[0].ChatID)
	require.Equal(t, "как сделать телепорт?", d.events[0].Text)
}

func TestHandle_RejectsBadSecret(t *testing.T) {
	for _, secret := range []string{"", "wrong"} {
		d := &stubDispatcher{}
		w, err := NewWebhook(d, "s3cret", nil)
		require.NoError(t, err)

		event := makeEvent(textUpdate)
		event.Headers["X-Telegram-Bot-Api-Secret-Token"] = secret
		resp, err := w.Handle(context.Background(), event)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "UNAUTHORIZED", parseBody[errorResponse](t, resp.Body).Error)
		require.Empty(t, d.events)
	}
}

func TestHandle_NoSecretConfigured(t *testing.T) {
	d := &stubDispatcher{}
	w, err := NewWebhook(d, "", nil)
	require.NoError(t, err)

	event := makeEvent(textUpdate)
	delete(event.Headers, "X-Telegram-Bot-Api-Secret-Token")
	resp, err := w.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, d.events, 1)
}

func TestHandle_InvalidBody(t *testing.T) {
	d := &stubDispatcher{}
	w, err := NewWebhook(d, "s3cret", nil)
	require.NoError(t, err)

	resp, err := w.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, "INVALID_UPDATE", out.Error)
	require.Equal(t, resp.Headers["X-Correlation-Id"], out.CorrelationID)
	require.Empty(t, d.events)
}

func TestHandle_Base64Body(t *testing.T) {
	d := &stubDispatcher{}
	w, err := NewWebhook(d, "s3cret", nil)
	require.NoError(t, err)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte(textUpdate)))
	event.IsBase64Encoded = true
	resp, err := w.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, d.events, 1)
}

func TestHandle_IgnoredUpdate(t *testing.T) {
	d := &stubDispatcher{}
	w, err := NewWebhook(d, "s3cret", nil)
	require.NoError(t, err)

	resp, err := w.Handle(context.Background(), makeEvent(`{"update_id":2}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, d.events)
}

func TestHandle_DispatchFailureStillAcknowledged(t *testing.T) {
	d := &stubDispatcher{err: errors.New("telegram: send message: Forbidden")}
	w, err := NewWebhook(d, "s3cret", nil)
	require.NoError(t, err)

	resp, err := w.Handle(context.Background(), makeEvent(textUpdate))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, d.events, 1)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	w, err := NewWebhook(&stubDispatcher{}, "s3cret", nil)
	require.NoError(t, err)

	event := makeEvent(textUpdate)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := w.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

type stubClaimer struct {
	seen map[int]bool
	err  error
}

func (s *stubClaimer) ClaimUpdate(_ context.Context, updateID int) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.seen[updateID] {
		return false, nil
	}
	s.seen[updateID] = true
	return true, nil
}

func TestHandle_RedeliveredUpdateIsHandledOnce(t *testing.T) {
	d := &stubDispatcher{}
	w, err := NewWebhook(d, "s3cret", nil, WithUpdateClaimer(&stubClaimer{seen: map[int]bool{}}))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err := w.Handle(context.Background(), makeEvent(textUpdate))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	require.Len(t, d.events, 1)
	require.Equal(t, 1, d.events[0].UpdateID)
}

func TestHandle_ClaimFailureStillDispatches(t *testing.T) {
	d := &stubDispatcher{}
	w, err := NewWebhook(d, "s3cret", nil, WithUpdateClaimer(&stubClaimer{err: errors.New("throttled")}))
	require.NoError(t, err)

	resp, err := w.Handle(context.Background(), makeEvent(textUpdate))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, d.events, 1)
}

func TestHandleFunctionURL(t *testing.T) {
	d := &stubDispatcher{}
	w, err := NewWebhook(d, "s3cret", nil)
	require.NoError(t, err)

	req := events.LambdaFunctionURLRequest{
		Headers: map[string]string{"x-telegram-bot-api-secret-token": "s3cret", "x-correlation-id": "corr-9"},
		Body:    textUpdate,
	}
	resp, err := w.HandleFunctionURL(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "corr-9", resp.Headers["X-Correlation-Id"])
	require.Len(t, d.events, 1)

	req.Headers["x-telegram-bot-api-secret-token"] = "wrong"
	resp, err = w.HandleFunctionURL(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, d.events, 1)
}
