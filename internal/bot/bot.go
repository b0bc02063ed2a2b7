package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	alertservice "pricepulse/internal/alert/service"
	"pricepulse/internal/metrics"
	paymentservice "pricepulse/internal/payment/service"
	"pricepulse/internal/pricing"
	promoservice "pricepulse/internal/promocode/service"
	subservice "pricepulse/internal/subscription/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const helpText = `Commands:
/price <ticker> - current USD price (e.g. /price bitcoin)
/setalert <ticker> <price> <up|down> - one-shot price alert
/status - premium status and active alerts
/premium - buy premium subscription
/redeem <code> - redeem a promo code
/help - this message`

// Bot dispatches incoming Telegram updates to the core services.
// Every failure turns into a chat message; nothing propagates out of
// the update handler.
type Bot struct {
	api      *tgbotapi.BotAPI
	subs     *subservice.Service
	alerts   *alertservice.Service
	payments *paymentservice.Service
	promos   *promoservice.Service
	prices   pricing.Provider
	logger   *zap.Logger
}

func New(api *tgbotapi.BotAPI, subs *subservice.Service, alerts *alertservice.Service, payments *paymentservice.Service, promos *promoservice.Service, prices pricing.Provider, logger *zap.Logger) *Bot {
	return &Bot{
		api:      api,
		subs:     subs,
		alerts:   alerts,
		payments: payments,
		promos:   promos,
		prices:   prices,
		logger:   logger,
	}
}

// SetWebhook регистрирует вебхук в Telegram (путь содержит токен)
func (b *Bot) SetWebhook(publicURL string) error {
	wh, err := tgbotapi.NewWebhook(strings.TrimSuffix(publicURL, "/") + "/telegram/" + b.api.Token)
	if err != nil {
		return err
	}
	_, err = b.api.Request(wh)
	return err
}

// HandleWebhook принимает апдейт от Telegram и всегда отвечает 200
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("malformed telegram update", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
		return
	}

	b.handleUpdate(r.Context(), &update)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	command := msg.Command()
	args := strings.Fields(msg.CommandArguments())
	chatID := msg.Chat.ID
	userID := msg.From.ID

	metrics.BotCommandsTotal.WithLabelValues(command).Inc()

	switch command {
	case "start":
		b.reply(chatID, fmt.Sprintf("Hi %s! I watch crypto prices for you. Try /help.", msg.From.FirstName))
	case "help":
		b.reply(chatID, helpText)
	case "price":
		b.cmdPrice(ctx, chatID, args)
	case "setalert":
		b.cmdSetAlert(ctx, chatID, userID, args)
	case "status":
		b.cmdStatus(ctx, chatID, userID)
	case "premium":
		b.cmdPremium(chatID)
	case "redeem":
		b.cmdRedeem(ctx, chatID, userID, args)
	default:
		b.reply(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) cmdPrice(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(chatID, "Usage: /price <ticker>, e.g. /price bitcoin")
		return
	}
	ticker := strings.ToLower(args[0])

	price, err := pricing.GetPrice(ctx, b.prices, ticker)
	if err != nil {
		if !errors.Is(err, pricing.ErrNotFound) {
			b.logger.Warn("price lookup failed", zap.String("ticker", ticker), zap.Error(err))
		}
		b.reply(chatID, fmt.Sprintf("Could not find price for %q.", ticker))
		return
	}

	b.reply(chatID, fmt.Sprintf("💰 %s: $%s", ticker, price.StringFixed(2)))
}

func (b *Bot) cmdSetAlert(ctx context.Context, chatID, userID int64, args []string) {
	usage := "Usage: /setalert <ticker> <price> <up|down>, e.g. /setalert bitcoin 65000 up"
	if len(args) != 3 {
		b.reply(chatID, usage)
		return
	}

	target, err := decimal.NewFromString(args[1])
	if err != nil {
		b.reply(chatID, "Price must be a number. "+usage)
		return
	}

	a, err := b.alerts.Create(ctx, userID, args[0], target, strings.ToLower(args[2]))
	if err != nil {
		if errors.Is(err, alertservice.ErrValidation) {
			b.reply(chatID, usage)
			return
		}
		b.logger.Error("alert create failed", zap.Int64("user_id", userID), zap.Error(err))
		b.reply(chatID, "Something went wrong, try again later.")
		return
	}

	b.reply(chatID, fmt.Sprintf("✅ Alert set: %s %s $%s. You will be notified once.",
		a.Crypto, a.Direction, a.TargetPrice.String()))
}

func (b *Bot) cmdStatus(ctx context.Context, chatID, userID int64) {
	isPremium, until, err := b.subs.Status(ctx, userID)
	if err != nil {
		b.logger.Error("status lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		b.reply(chatID, "Something went wrong, try again later.")
		return
	}

	var sb strings.Builder
	if isPremium {
		sb.WriteString(fmt.Sprintf("⭐ Premium active until %s\n", until.Format("2006-01-02 15:04 MST")))
	} else {
		sb.WriteString("Free plan. Use /premium to upgrade.\n")
	}

	alerts, err := b.alerts.ListByUser(ctx, userID)
	if err != nil {
		b.logger.Error("alert list failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if len(alerts) == 0 {
		sb.WriteString("No active alerts.")
	} else {
		sb.WriteString("Active alerts:\n")
		for _, a := range alerts {
			sb.WriteString(fmt.Sprintf("• %s %s $%s\n", a.Crypto, a.Direction, a.TargetPrice.String()))
		}
	}

	b.reply(chatID, sb.String())
}

func (b *Bot) cmdPremium(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 $15 / Monthly", "sub_monthly"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💎 $100 / Yearly", "sub_yearly"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, "Choose your subscription plan:")
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		metrics.BotSendFailuresTotal.Inc()
		b.logger.Warn("failed to send plan keyboard", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) cmdRedeem(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) != 1 {
		b.reply(chatID, "Usage: /redeem <code>")
		return
	}

	days, err := b.promos.ApplyPromoCode(ctx, userID, args[0])
	if err != nil {
		switch {
		case errors.Is(err, promoservice.ErrPromoCodeNotFound):
			b.reply(chatID, "❌ Unknown promo code.")
		case errors.Is(err, promoservice.ErrPromoCodeExpired):
			b.reply(chatID, "❌ This promo code has expired.")
		case errors.Is(err, promoservice.ErrPromoCodeMaxUses):
			b.reply(chatID, "❌ This promo code has been fully used.")
		case errors.Is(err, promoservice.ErrUserAlreadyUsed):
			b.reply(chatID, "❌ You already used this promo code.")
		default:
			b.logger.Error("promo redeem failed", zap.Int64("user_id", userID), zap.Error(err))
			b.reply(chatID, "Something went wrong, try again later.")
		}
		return
	}

	b.reply(chatID, fmt.Sprintf("🎉 Promo code accepted, %d days of premium added!", days))
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Telegram не присылает Message для устаревших колбэков
	if cq.Message == nil {
		b.logger.Warn("callback without message skipped", zap.String("data", cq.Data))
		return
	}

	// Убираем "часики" на кнопке
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.logger.Warn("callback answer failed", zap.Error(err))
	}

	var tier string
	switch cq.Data {
	case "sub_monthly":
		tier = "monthly"
	case "sub_yearly":
		tier = "yearly"
	default:
		return
	}

	chatID := cq.Message.Chat.ID
	userID := cq.From.ID

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	url, err := b.payments.CreateInvoice(ctx, userID, tier)
	if err != nil {
		b.logger.Error("invoice creation failed",
			zap.Int64("user_id", userID), zap.String("plan", tier), zap.Error(err))
		b.reply(chatID, "⚠️ Payment error. Try again later.")
		return
	}

	b.reply(chatID, fmt.Sprintf("✅ Complete your %s payment:\n%s", tier, url))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		metrics.BotSendFailuresTotal.Inc()
		b.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
