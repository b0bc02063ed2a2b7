package bot

import (
	"context"

	"pricepulse/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier sends outbound Telegram messages. For private chats the
// chat id equals the user id, which is the only kind the bot serves.
type Notifier struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewNotifier(api *tgbotapi.BotAPI, logger *zap.Logger) *Notifier {
	return &Notifier{api: api, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, userID int64, text string) error {
	_ = ctx // bot API клиент не принимает контекст

	msg := tgbotapi.NewMessage(userID, text)
	if _, err := n.api.Send(msg); err != nil {
		metrics.BotSendFailuresTotal.Inc()
		return err
	}
	return nil
}
