// Package notify delivers operator messages.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"synthpop/internal/logging"
)

// maxMessageLen is Telegram's limit for one message, in runes.
const maxMessageLen = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts messages to a single admin chat.
type Telegram struct {
	s      sender
	chatID int64
}

func NewTelegram(botToken string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{s: api, chatID: chatID}, nil
}

// Notify sends text, split into several messages when it is too long.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	for _, part := range split(text, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.s.Send(tgbotapi.NewMessage(t.chatID, part)); err != nil {
			return fmt.Errorf("send to chat %d: %w", t.chatID, err)
		}
	}
	return nil
}

func split(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > 0 {
		n := min(limit, len(runes))
		parts = append(parts, string(runes[:n]))
		runes = runes[n:]
	}
	return parts
}

// Log writes notifications to the logger when no chat is configured.
type Log struct {
	log logging.Logger
}

func NewLog(log logging.Logger) *Log { return &Log{log: log} }

func (l *Log) Notify(_ context.Context, text string) error {
	l.log.WithField("notification", text).Info("operator notification")
	return nil
}
