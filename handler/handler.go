package handler

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"rustplugin-bot/internal/domain"
	"rustplugin-bot/internal/integrations/telegram"
)

const (
	correlationHeader = "X-Correlation-Id"
	secretHeader      = "X-Telegram-Bot-Api-Secret-Token"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.ChatEvent) error
}

// UpdateClaimer records which updates were already accepted.
type UpdateClaimer interface {
	ClaimUpdate(ctx context.Context, updateID int) (bool, error)
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId"`
}

// Webhook receives Telegram updates on Lambda, behind either API Gateway
// (Handle) or a function URL (HandleFunctionURL).
//
// API Gateway cuts integrations off after 29 seconds while a generation can
// take minutes. Telegram then sees a 504 and redelivers; with an
// UpdateClaimer configured the redelivery is acknowledged without being
// handled again. Function URLs run for the full Lambda timeout.
type Webhook struct {
	dispatcher Dispatcher
	secret     string
	claims     UpdateClaimer
	logger     *slog.Logger
}

type WebhookOption func(*Webhook)

// WithUpdateClaimer drops updates whose id was already claimed.
func WithUpdateClaimer(claims UpdateClaimer) WebhookOption {
	return func(w *Webhook) {
		w.claims = claims
	}
}

// NewWebhook builds the Lambda entrypoint. An empty secret disables the
// secret-token check.
func NewWebhook(dispatcher Dispatcher, secret string, logger *slog.Logger, opts ...WebhookOption) (*Webhook, error) {
	if dispatcher == nil {
		return nil, errors.New("handler: dispatcher must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Webhook{
		dispatcher: dispatcher,
		secret:     secret,
		logger:     logger.With(slog.String("component", "webhook")),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Handle serves API Gateway proxy requests.
func (w *Webhook) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	res := w.serve(ctx, req.Headers, req.Body, req.IsBase64Encoded)
	return events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers:    res.headers,
		Body:       res.body,
	}, nil
}

// HandleFunctionURL serves Lambda function URL requests.
func (w *Webhook) HandleFunctionURL(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	res := w.serve(ctx, req.Headers, req.Body, req.IsBase64Encoded)
	return events.LambdaFunctionURLResponse{
		StatusCode: res.status,
		Headers:    res.headers,
		Body:       res.body,
	}, nil
}

type webhookResponse struct {
	status  int
	headers map[string]string
	body    string
}

// serve acknowledges every well-formed update with 200, including ones whose
// delivery failed, so Telegram does not redeliver them.
func (w *Webhook) serve(ctx context.Context, headers map[string]string, rawBody string, isBase64 bool) webhookResponse {
	correlationID := headerValue(headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := w.logger.With(slog.String("correlation_id", correlationID))

	if w.secret != "" {
		got := headerValue(headers, secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(w.secret)) != 1 {
			logger.Warn("rejected update with bad secret token")
			return jsonResponse(http.StatusUnauthorized, correlationID, errorResponse{Error: "UNAUTHORIZED", CorrelationID: correlationID})
		}
	}

	body := []byte(rawBody)
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(rawBody)
		if err != nil {
			logger.Warn("failed to decode base64 body", slog.Any("err", err))
			return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{Error: "INVALID_UPDATE", CorrelationID: correlationID})
		}
		body = decoded
	}

	ev, ok, err := telegram.ParseEvent(body)
	if err != nil {
		logger.Warn("failed to parse update", slog.Any("err", err))
		return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{Error: "INVALID_UPDATE", CorrelationID: correlationID})
	}
	if !ok {
		logger.Debug("ignoring update")
		return jsonResponse(http.StatusOK, correlationID, okResponse{OK: true})
	}

	if w.claims != nil {
		claimed, err := w.claims.ClaimUpdate(ctx, ev.UpdateID)
		switch {
		case err != nil:
			// Handling twice beats dropping the update.
			logger.Warn("failed to claim update", slog.Int("update_id", ev.UpdateID), slog.Any("err", err))
		case !claimed:
			logger.Info("skipping redelivered update", slog.Int("update_id", ev.UpdateID))
			return jsonResponse(http.StatusOK, correlationID, okResponse{OK: true})
		}
	}

	if err := w.dispatcher.Dispatch(ctx, ev); err != nil {
		logger.Error("event handling failed",
			slog.Int64("chat_id", ev.ChatID),
			slog.String("kind", string(ev.Kind)),
			slog.Any("err", err),
		)
	}
	return jsonResponse(http.StatusOK, correlationID, okResponse{OK: true})
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func jsonResponse(status int, correlationID string, payload any) webhookResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL"}`)
	}
	return webhookResponse{
		status: status,
		headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		body: string(body),
	}
}
