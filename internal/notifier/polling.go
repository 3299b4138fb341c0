package notifier

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
// Messages from chats other than the configured one are ignored.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	t.handler = handler
	log.Info().Str("chat_id", t.ChatID).Msg("telegram polling started")
	t.bot.Start(ctx)
	log.Info().Msg("telegram polling stopped")
}

func (t *TelegramNotifier) onUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	text, ok := t.command(update)
	if !ok || t.handler == nil {
		return
	}
	log.Info().Str("command", text).Msg("received command")
	reply := t.handler(ctx, text)
	if reply == "" {
		return
	}
	if err := t.Send(ctx, reply); err != nil {
		log.Error().Err(err).Str("command", text).Msg("send reply failed")
	}
}

// command extracts a command from an update sent by the configured chat.
func (t *TelegramNotifier) command(update *models.Update) (string, bool) {
	if update == nil || update.Message == nil {
		return "", false
	}
	if strconv.FormatInt(update.Message.Chat.ID, 10) != t.ChatID {
		log.Warn().Int64("chat_id", update.Message.Chat.ID).Msg("ignoring message from unknown chat")
		return "", false
	}
	text := strings.TrimSpace(update.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	return text, true
}
