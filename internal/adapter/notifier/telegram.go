package notifier

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/semmidev/cloudvault/internal/config"
	"github.com/semmidev/cloudvault/internal/domain"
)

type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(cfg *config.TelegramConfig) (*TelegramNotifier, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Notify sends one message per ledger entry. The bot API has no context
// support, so ctx is only checked before sending.
func (t *TelegramNotifier) Notify(ctx context.Context, entry domain.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, formatMessage(entry))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

func formatMessage(entry domain.HistoryEntry) string {
	when := entry.Timestamp.Format("2006-01-02 15:04:05")

	switch entry.Operation {
	case domain.OperationUpload:
		var sizeMB float64
		if entry.Size != nil {
			sizeMB = float64(*entry.Size) / (1024 * 1024)
		}
		return fmt.Sprintf(
			"✅ File Uploaded\n\n"+
				"📁 File: %s\n"+
				"📊 Size: %.2f MB\n"+
				"🕐 Time: %s",
			entry.Filename, sizeMB, when,
		)
	case domain.OperationDelete:
		return fmt.Sprintf(
			"🗑 File Deleted\n\n"+
				"📁 File: %s\n"+
				"🕐 Time: %s",
			entry.Filename, when,
		)
	default:
		return fmt.Sprintf("ℹ️ %s: %s (%s)", entry.Operation, entry.Filename, when)
	}
}
