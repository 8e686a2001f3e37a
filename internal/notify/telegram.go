package notify

import (
	"context"
	"fmt"

	"beachbookings/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramMirror posts a short summary of every outgoing mail to an ops chat.
// Addresses are not posted, only their count.
type TelegramMirror struct {
	bot    domain.TelegramSender
	chatID int64
}

func NewTelegramMirror(bot domain.TelegramSender, chatID int64) *TelegramMirror {
	return &TelegramMirror{bot: bot, chatID: chatID}
}

func (t *TelegramMirror) Send(ctx context.Context, recipients []string, subject, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := fmt.Sprintf("✉️ %s\nrecipients: %d", subject, len(recipients))
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to mirror email to telegram: %w", err)
	}
	return nil
}
