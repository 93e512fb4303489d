package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rustplugin-bot/internal/chunk"
	"rustplugin-bot/internal/domain"
	"rustplugin-bot/internal/usecase"
)

type Completer interface {
	Complete(ctx context.Context, req domain.PromptRequest) (string, error)
}

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendStatus(ctx context.Context, chatID int64, text string) (int, error)
	ClearStatus(ctx context.Context, chatID int64, messageID int) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte) error
	SendChoice(ctx context.Context, chatID int64, text string, choices []domain.Choice) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

type PendingStore interface {
	Save(ctx context.Context, p domain.PendingResult) error
	Take(ctx context.Context, token string) (domain.PendingResult, error)
}

// EventRecorder counts routed events and delivered chunks.
type EventRecorder interface {
	ObserveEvent(kind string)
	ObserveChunks(n int)
}

type Config struct {
	ChunkSize         int
	MaxDocumentBytes  int64
	ExplainGenerated  bool
	PendingTTL        time.Duration
	Prompt            usecase.PromptOptions
	GeneratedFileName string
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:         4000,
		MaxDocumentBytes:  512 * 1024,
		ExplainGenerated:  true,
		PendingTTL:        15 * time.Minute,
		GeneratedFileName: "RustPlugin.cs",
	}
}

const deliverPrefix = "deliver"

// Router sends each inbound chat event down exactly one handling path.
type Router struct {
	completer Completer
	messenger Messenger
	store     PendingStore
	recorder  EventRecorder
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	newToken  func() string
}

func NewRouter(completer Completer, messenger Messenger, store PendingStore, recorder EventRecorder, cfg Config, logger *slog.Logger) (*Router, error) {
	if completer == nil {
		return nil, errors.New("handler: completer must not be nil")
	}
	if messenger == nil {
		return nil, errors.New("handler: messenger must not be nil")
	}
	if store == nil {
		return nil, errors.New("handler: pending store must not be nil")
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = def.MaxDocumentBytes
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = def.PendingTTL
	}
	if strings.TrimSpace(cfg.GeneratedFileName) == "" {
		cfg.GeneratedFileName = def.GeneratedFileName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		completer: completer,
		messenger: messenger,
		store:     store,
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "router")),
		now:       time.Now,
		newToken:  uuid.NewString,
	}, nil
}

// Dispatch handles one event. Completion failures are reported to the chat
// and do not surface here; a returned error means the transport or the
// pending store failed.
func (r *Router) Dispatch(ctx context.Context, ev domain.ChatEvent) error {
	r.recorder.ObserveEvent(string(ev.Kind))
	r.logger.Debug("dispatching event",
		slog.String("kind", string(ev.Kind)),
		slog.Int64("chat_id", ev.ChatID),
	)
	switch ev.Kind {
	case domain.EventText:
		return r.handleText(ctx, ev)
	case domain.EventCommand:
		return r.handleCommand(ctx, ev)
	case domain.EventDocument:
		return r.handleDocument(ctx, ev)
	case domain.EventCallback:
		return r.handleCallback(ctx, ev)
	default:
		return fmt.Errorf("handler: unsupported event kind %q", ev.Kind)
	}
}

func (r *Router) handleText(ctx context.Context, ev domain.ChatEvent) error {
	req := usecase.BuildRequest(domain.TaskFreeform, ev.Text, r.cfg.Prompt)
	text, ok, err := r.complete(ctx, ev.ChatID, msgProcessing, req)
	if !ok {
		return err
	}
	return r.deliverChunks(ctx, ev.ChatID, text)
}

func (r *Router) handleCommand(ctx context.Context, ev domain.ChatEvent) error {
	switch ev.Command {
	case "start", "help":
		return r.messenger.SendText(ctx, ev.ChatID, msgGreeting)
	case "generate":
		return r.handleGenerate(ctx, ev)
	default:
		return r.messenger.SendText(ctx, ev.ChatID, msgUnknownCommand)
	}
}

func (r *Router) handleGenerate(ctx context.Context, ev domain.ChatEvent) error {
	description := strings.TrimSpace(ev.Args)
	if description == "" {
		return r.messenger.SendText(ctx, ev.ChatID, msgGenerateUsage)
	}

	req := usecase.BuildRequest(domain.TaskGenerateCode, description, r.cfg.Prompt)
	code, ok, err := r.complete(ctx, ev.ChatID, msgGeneratingFile, req)
	if !ok {
		return err
	}
	code = usecase.StripCodeFence(code)
	if err := r.messenger.SendDocument(ctx, ev.ChatID, r.cfg.GeneratedFileName, []byte(code)); err != nil {
		return err
	}
	if !r.cfg.ExplainGenerated {
		return nil
	}

	req = usecase.BuildRequest(domain.TaskExplain, usecase.ExplainContent(code), r.cfg.Prompt)
	explanation, ok, err := r.complete(ctx, ev.ChatID, msgExplaining, req)
	if !ok {
		return err
	}
	return r.deliverChunks(ctx, ev.ChatID, explanation)
}

func (r *Router) handleDocument(ctx context.Context, ev domain.ChatEvent) error {
	doc := ev.Document
	if doc == nil {
		return errors.New("handler: document event without document")
	}
	if !strings.EqualFold(path.Ext(doc.FileName), ".cs") {
		return r.messenger.SendText(ctx, ev.ChatID, msgWrongExtension)
	}
	if int64(doc.Size) > r.cfg.MaxDocumentBytes {
		return r.messenger.SendText(ctx, ev.ChatID, fmt.Sprintf(msgDocumentTooLarge, r.cfg.MaxDocumentBytes/1024))
	}

	data, err := r.messenger.DownloadFile(ctx, doc.FileID, r.cfg.MaxDocumentBytes)
	if err != nil {
		r.logger.Warn("document download failed",
			slog.Int64("chat_id", ev.ChatID),
			slog.String("file_name", doc.FileName),
			slog.Any("err", err),
		)
		return r.messenger.SendText(ctx, ev.ChatID, msgDocumentDownload)
	}
	if !utf8.Valid(data) {
		return r.messenger.SendText(ctx, ev.ChatID, msgDocumentNotText)
	}
	code := strings.TrimPrefix(string(data), "\ufeff")

	intent := usecase.ClassifyCaption(ev.Caption)
	r.logger.Debug("document classified",
		slog.Int64("chat_id", ev.ChatID),
		slog.String("intent", string(intent)),
	)
	if intent == domain.IntentModify {
		return r.handleModify(ctx, ev, doc.FileName, code)
	}

	req := usecase.BuildRequest(domain.TaskFreeform, usecase.AnalyzeContent(code, ev.Caption), r.cfg.Prompt)
	text, ok, err := r.complete(ctx, ev.ChatID, msgProcessing, req)
	if !ok {
		return err
	}
	return r.deliverChunks(ctx, ev.ChatID, text)
}

func (r *Router) handleModify(ctx context.Context, ev domain.ChatEvent, fileName, code string) error {
	req := usecase.BuildRequest(domain.TaskModify, usecase.ModifyContent(code, ev.Caption), r.cfg.Prompt)
	text, ok, err := r.complete(ctx, ev.ChatID, msgProcessing, req)
	if !ok {
		return err
	}

	pending := domain.PendingResult{
		Token:     r.newToken(),
		ChatID:    ev.ChatID,
		Text:      text,
		FileName:  fileName,
		ExpiresAt: r.now().Add(r.cfg.PendingTTL),
	}
	if err := r.store.Save(ctx, pending); err != nil {
		return fmt.Errorf("handler: save pending result: %w", err)
	}
	return r.messenger.SendChoice(ctx, ev.ChatID, msgChooseFormat, []domain.Choice{
		{Label: msgChoiceText, Data: deliverData(domain.DeliverText, pending.Token)},
		{Label: msgChoiceFile, Data: deliverData(domain.DeliverFile, pending.Token)},
	})
}

func (r *Router) handleCallback(ctx context.Context, ev domain.ChatEvent) error {
	format, token, ok := parseDeliverData(ev.CallbackData)
	if !ok {
		return r.messenger.AnswerCallback(ctx, ev.CallbackID, msgCallbackMalformed)
	}

	pending, err := r.store.Take(ctx, token)
	if err == nil && pending.ChatID != ev.ChatID {
		r.logger.Warn("pending result taken from another chat",
			slog.Int64("chat_id", ev.ChatID),
			slog.Int64("owner_chat_id", pending.ChatID),
		)
		err = domain.ErrPendingNotFound
	}
	if errors.Is(err, domain.ErrPendingNotFound) {
		if err := r.messenger.AnswerCallback(ctx, ev.CallbackID, msgPendingExpired); err != nil {
			return err
		}
		return r.messenger.SendText(ctx, ev.ChatID, msgPendingExpired)
	}
	if err != nil {
		answerErr := r.messenger.AnswerCallback(ctx, ev.CallbackID, msgPendingExpired)
		return errors.Join(fmt.Errorf("handler: take pending result: %w", err), answerErr)
	}

	if err := r.messenger.AnswerCallback(ctx, ev.CallbackID, msgCallbackAccepted); err != nil {
		return err
	}
	if format == domain.DeliverFile {
		return r.messenger.SendDocument(ctx, ev.ChatID, pending.FileName, []byte(usecase.StripCodeFence(pending.Text)))
	}
	return r.deliverChunks(ctx, ev.ChatID, pending.Text)
}

// complete runs one completion behind a status message. ok is false when no
// result is available; err is then set only if reporting the failure to the
// chat failed too.
func (r *Router) complete(ctx context.Context, chatID int64, status string, req domain.PromptRequest) (text string, ok bool, err error) {
	statusID, err := r.messenger.SendStatus(ctx, chatID, status)
	if err != nil {
		return "", false, err
	}
	defer r.clearStatus(ctx, chatID, statusID)

	text, err = r.completer.Complete(ctx, req)
	if err != nil {
		return "", false, r.messenger.SendText(ctx, chatID, failureMessage(err))
	}
	if strings.TrimSpace(text) == "" {
		return "", false, r.messenger.SendText(ctx, chatID, msgEmptyResponse)
	}
	return text, true, nil
}

func (r *Router) clearStatus(ctx context.Context, chatID int64, messageID int) {
	if err := r.messenger.ClearStatus(ctx, chatID, messageID); err != nil {
		r.logger.Warn("failed to clear status message",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
			slog.Any("err", err),
		)
	}
}

func (r *Router) deliverChunks(ctx context.Context, chatID int64, text string) error {
	sent := 0
	defer func() { r.recorder.ObserveChunks(sent) }()
	for part := range chunk.Split(text, r.cfg.ChunkSize) {
		if err := r.messenger.SendText(ctx, chatID, part); err != nil {
			return err
		}
		sent++
	}
	return nil
}

func failureMessage(err error) string {
	var uerr *usecase.Error
	if errors.As(err, &uerr) {
		return uerr.UserMessage()
	}
	return "Ошибка при обращении к API: " + err.Error()
}

func deliverData(format domain.DeliveryFormat, token string) string {
	return deliverPrefix + ":" + string(format) + ":" + token
}

func parseDeliverData(data string) (domain.DeliveryFormat, string, bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] != deliverPrefix || parts[2] == "" {
		return "", "", false
	}
	format := domain.DeliveryFormat(parts[1])
	if format != domain.DeliverText && format != domain.DeliverFile {
		return "", "", false
	}
	return format, parts[2], true
}

type noopRecorder struct{}

func (noopRecorder) ObserveEvent(string) {}
func (noopRecorder) ObserveChunks(int)   {}
