package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.Bot.StopReceivingUpdates()
			t.log.Info().Msg("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, update, handler)
		}
	}
}

func (t *TelegramNotifier) handleUpdate(ctx context.Context, update tgbotapi.Update, handler CommandHandler) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		return
	}
	// Only the configured chat may drive the bot.
	if msg.Chat.ID != t.ChatID {
		t.log.Warn().Int64("chat_id", msg.Chat.ID).Msg("ignoring command from unknown chat")
		return
	}
	text := strings.TrimSpace(msg.Text)
	if i := strings.IndexByte(text, '@'); i > 0 && strings.HasPrefix(text, "/") {
		text = text[:i] // "/status@my_bot" in group chats
	}
	t.log.Info().Str("command", text).Msg("received command")
	if reply := handler(ctx, text); reply != "" {
		if err := t.Send(ctx, reply); err != nil {
			t.log.Error().Err(err).Msg("send reply")
		}
	}
}
