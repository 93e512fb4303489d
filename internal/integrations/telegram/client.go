package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rustplugin-bot/internal/domain"
)

// botAPI is the subset of *tgbotapi.BotAPI used by Client and Poller.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client delivers outbound messages through the Telegram Bot API.
//
// The underlying library has no context support; Client checks ctx before
// each call so cancelled events stop issuing requests.
//
// Bot API URLs embed the bot token, so every error Client returns has the
// token and request URLs scrubbed first.
type Client struct {
	bot        botAPI
	token      string
	httpClient *http.Client
}

// New wraps bot. token is the bot token to scrub from errors. httpClient is
// used for file downloads; nil selects a client with a 30s timeout.
func New(bot botAPI, token string, httpClient *http.Client) (*Client, error) {
	if bot == nil {
		return nil, errors.New("telegram: bot must not be nil")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{bot: bot, token: token, httpClient: httpClient}, nil
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram: send message: %w", c.redact(err))
	}
	return nil
}

// SendStatus posts a status message and returns its id for ClearStatus.
func (c *Client) SendStatus(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("telegram: send status: %w", c.redact(err))
	}
	return msg.MessageID, nil
}

func (c *Client) ClearStatus(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("telegram: delete status: %w", c.redact(err))
	}
	return nil
}

// SendDocument uploads data from memory as a file called name.
func (c *Client) SendDocument(ctx context.Context, chatID int64, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := c.bot.Send(doc); err != nil {
		return fmt.Errorf("telegram: send document %q: %w", name, c.redact(err))
	}
	return nil
}

// SendChoice posts text with one inline button per choice, on a single row.
func (c *Client) SendChoice(ctx context.Context, chatID int64, text string, choices []domain.Choice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(choices) == 0 {
		return errors.New("telegram: send choice: no choices")
	}
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, ch := range choices {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(ch.Label, ch.Data))
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: send choice: %w", c.redact(err))
	}
	return nil
}

// AnswerCallback acknowledges a button press; text is shown as a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", c.redact(err))
	}
	return nil
}

// DownloadFile fetches an uploaded file, failing if it exceeds maxBytes.
func (c *Client) DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("telegram: resolve file url: %w", c.redact(err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: create download request: %w", c.redact(err))
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: download file: %w", c.redact(err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: download file: unexpected status %d", res.StatusCode)
	}
	buf, err := io.ReadAll(io.LimitReader(res.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("telegram: read file: %w", c.redact(err))
	}
	if int64(len(buf)) > maxBytes {
		return nil, fmt.Errorf("telegram: file exceeds %d bytes", maxBytes)
	}
	return buf, nil
}
