package telegram

import (
	"context"
	"errors"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"rustplugin-bot/internal/domain"
)

// HandleFunc processes one event. Returned errors are logged, never retried.
type HandleFunc func(ctx context.Context, ev domain.ChatEvent) error

// Poller long-polls getUpdates and runs a HandleFunc per event, at most
// limit at a time.
type Poller struct {
	bot     botAPI
	timeout int
	limit   int
	logger  *slog.Logger
}

func NewPoller(bot botAPI, timeoutSeconds, limit int, logger *slog.Logger) (*Poller, error) {
	if bot == nil {
		return nil, errors.New("telegram: bot must not be nil")
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	if limit <= 0 {
		limit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		bot:     bot,
		timeout: timeoutSeconds,
		limit:   limit,
		logger:  logger.With(slog.String("component", "telegram-poller")),
	}, nil
}

// Run blocks until ctx is cancelled or the update channel closes, then waits
// for in-flight handlers. Handlers run on a context detached from ctx's
// cancellation so that a shutdown lets started events finish delivering.
func (p *Poller) Run(ctx context.Context, handle HandleFunc) error {
	if handle == nil {
		return errors.New("telegram: handle func must not be nil")
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	updates := p.bot.GetUpdatesChan(cfg)

	handlerCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(p.limit)

	p.logger.Info("polling for updates", slog.Int("timeout_s", p.timeout), slog.Int("concurrency", p.limit))
loop:
	for {
		select {
		case <-ctx.Done():
			p.bot.StopReceivingUpdates()
			break loop
		case u, ok := <-updates:
			if !ok {
				break loop
			}
			ev, ok := ToEvent(u)
			if !ok {
				p.logger.Debug("ignoring update", slog.Int("update_id", u.UpdateID))
				continue
			}
			g.Go(func() error {
				if err := handle(handlerCtx, ev); err != nil {
					p.logger.Error("event handling failed",
						slog.Int64("chat_id", ev.ChatID),
						slog.String("kind", string(ev.Kind)),
						slog.Any("err", err),
					)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	p.logger.Info("polling stopped")
	return nil
}
