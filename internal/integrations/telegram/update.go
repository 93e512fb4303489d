package telegram

import (
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rustplugin-bot/internal/domain"
)

// ToEvent converts an update into a ChatEvent. Updates the bot does not act
// on (edits, stickers, channel posts, empty text) report false.
func ToEvent(u tgbotapi.Update) (domain.ChatEvent, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.Message == nil || cq.Message.Chat == nil {
			return domain.ChatEvent{}, false
		}
		return domain.ChatEvent{
			Kind:         domain.EventCallback,
			UpdateID:     u.UpdateID,
			ChatID:       cq.Message.Chat.ID,
			MessageID:    cq.Message.MessageID,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}, true
	}

	m := u.Message
	if m == nil || m.Chat == nil {
		return domain.ChatEvent{}, false
	}
	ev := domain.ChatEvent{UpdateID: u.UpdateID, ChatID: m.Chat.ID, MessageID: m.MessageID}
	switch {
	case m.Document != nil:
		ev.Kind = domain.EventDocument
		ev.Caption = m.Caption
		ev.Document = &domain.Document{
			FileID:   m.Document.FileID,
			FileName: m.Document.FileName,
			Size:     m.Document.FileSize,
		}
	case m.IsCommand():
		ev.Kind = domain.EventCommand
		ev.Command = strings.ToLower(m.Command())
		ev.Args = strings.TrimSpace(m.CommandArguments())
	case strings.TrimSpace(m.Text) != "":
		ev.Kind = domain.EventText
		ev.Text = m.Text
	default:
		return domain.ChatEvent{}, false
	}
	return ev, true
}

// ParseEvent decodes a webhook payload. ok is false for updates ToEvent
// ignores.
func ParseEvent(body []byte) (ev domain.ChatEvent, ok bool, err error) {
	var u tgbotapi.Update
	if err := json.Unmarshal(body, &u); err != nil {
		return domain.ChatEvent{}, false, fmt.Errorf("telegram: decode update: %w", err)
	}
	ev, ok = ToEvent(u)
	return ev, ok, nil
}
