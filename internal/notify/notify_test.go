package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthpop/internal/logging"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegram_Notify(t *testing.T) {
	fs := &fakeSender{}
	tg := &Telegram{s: fs, chatID: 77}

	require.NoError(t, tg.Notify(context.Background(), "report"))
	require.Len(t, fs.sent, 1)
	assert.Equal(t, int64(77), fs.sent[0].ChatID)
	assert.Equal(t, "report", fs.sent[0].Text)
}

func TestTelegram_SplitsLongText(t *testing.T) {
	fs := &fakeSender{}
	tg := &Telegram{s: fs, chatID: 1}

	require.NoError(t, tg.Notify(context.Background(), strings.Repeat("я", maxMessageLen+10)))
	require.Len(t, fs.sent, 2)
	assert.Equal(t, maxMessageLen, len([]rune(fs.sent[0].Text)))
	assert.Equal(t, 10, len([]rune(fs.sent[1].Text)))
}

func TestTelegram_SendError(t *testing.T) {
	tg := &Telegram{s: &fakeSender{err: errors.New("Forbidden: bot was blocked")}, chatID: 5}
	err := tg.Notify(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat 5")
}

func TestLog_Notify(t *testing.T) {
	assert.NoError(t, NewLog(logging.Discard()).Notify(context.Background(), "hi"))
}
