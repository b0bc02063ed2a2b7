package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricepulse/internal/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoProvider means no payment provider is configured
var ErrNoProvider = errors.New("no payment provider configured")

type Result string

const (
	ResultSuccess Result = "success"
	ResultIgnored Result = "ignored"
)

type OrderRepository interface {
	Create(ctx context.Context, o *payment.Order) error
	Get(ctx context.Context, orderID string) (*payment.Order, error)
}

type SubscriptionService interface {
	Activate(ctx context.Context, userID int64, duration time.Duration) error
}

// Notifier delivers the purchase confirmation to the user
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

type Service struct {
	cryptomus *CryptomusClient
	coinbase  *CoinbaseClient
	orders    OrderRepository
	subs      SubscriptionService
	notifier  Notifier
	logger    *zap.Logger
}

func NewService(cryptomus *CryptomusClient, coinbase *CoinbaseClient, orders OrderRepository, subs SubscriptionService, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		cryptomus: cryptomus,
		coinbase:  coinbase,
		orders:    orders,
		subs:      subs,
		notifier:  notifier,
		logger:    logger,
	}
}

// CreateInvoice creates a hosted checkout for the plan and records the
// order for webhook reconciliation. Cryptomus is preferred when both
// providers are configured.
func (s *Service) CreateInvoice(ctx context.Context, userID int64, tier string) (string, error) {
	plan, ok := payment.PlanByTier(tier)
	if !ok {
		return "", fmt.Errorf("unknown plan %q", tier)
	}

	order := &payment.Order{
		OrderID: uuid.NewString(),
		UserID:  userID,
		Plan:    plan.Tier,
	}

	var (
		url string
		err error
	)
	switch {
	case s.cryptomus.Configured():
		order.Provider = "cryptomus"
		url, err = s.cryptomus.CreateInvoice(ctx, order.OrderID, plan.PriceUSD, userID, plan.Tier)
	case s.coinbase.Configured():
		order.Provider = "coinbase"
		url, err = s.coinbase.CreateCharge(ctx, order.OrderID, plan.PriceUSD, userID, plan.Tier)
	default:
		return "", ErrNoProvider
	}
	if err != nil {
		return "", err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		// Счет уже выставлен, вебхук сможет взять user/plan из payload
		s.logger.Error("failed to persist payment order",
			zap.String("order_id", order.OrderID), zap.Error(err))
	}

	s.logger.Info("payment invoice created",
		zap.Int64("user_id", userID),
		zap.String("plan", plan.Tier),
		zap.String("provider", order.Provider),
		zap.String("order_id", order.OrderID),
	)
	return url, nil
}

// ResolveOrder fills user/plan from the stored order when the webhook
// payload references one.
func (s *Service) ResolveOrder(ctx context.Context, orderID string) (*payment.Order, error) {
	if orderID == "" {
		return nil, nil
	}
	return s.orders.Get(ctx, orderID)
}

// HandleEvent maps a payment confirmation onto a subscription
// activation. Everything that is not a recognized confirmed event with
// a known user and plan is ignored, never an error.
func (s *Service) HandleEvent(ctx context.Context, ev payment.Event) Result {
	if !ev.Confirmed() || ev.UserID == 0 || ev.PlanTier == "" {
		s.logger.Info("payment event ignored",
			zap.String("type", ev.Type),
			zap.Int64("user_id", ev.UserID),
			zap.String("plan", ev.PlanTier),
		)
		return ResultIgnored
	}

	plan, ok := payment.PlanByTier(ev.PlanTier)
	if !ok {
		s.logger.Info("payment event for unknown plan ignored", zap.String("plan", ev.PlanTier))
		return ResultIgnored
	}

	if err := s.subs.Activate(ctx, ev.UserID, plan.Duration); err != nil {
		s.logger.Error("subscription activation failed",
			zap.Int64("user_id", ev.UserID), zap.Error(err))
		return ResultIgnored
	}

	s.logger.Info("subscription activated via webhook",
		zap.Int64("user_id", ev.UserID),
		zap.String("plan", plan.Tier),
	)

	// Подтверждение пользователю строго best-effort
	text := fmt.Sprintf("✅ Payment received! Premium is active for the %s plan.", plan.Tier)
	if err := s.notifier.Notify(ctx, ev.UserID, text); err != nil {
		s.logger.Warn("purchase confirmation failed",
			zap.Int64("user_id", ev.UserID), zap.Error(err))
	}

	return ResultSuccess
}
