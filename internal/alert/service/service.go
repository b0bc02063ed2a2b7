package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pricepulse/internal/alert"
	"pricepulse/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrValidation wraps every user-input error so handlers can turn it
// into a corrective chat message instead of a server error.
var ErrValidation = errors.New("validation error")

type AlertRepository interface {
	Insert(ctx context.Context, a *alert.Alert) error
	ListActive(ctx context.Context) ([]*alert.Alert, error)
	ListByUser(ctx context.Context, userID int64) ([]*alert.Alert, error)
	Deactivate(ctx context.Context, id int64) error
	CountActive(ctx context.Context) (int64, error)
}

// PriceProvider returns current USD prices for a batch of lowercase
// tickers. Unknown tickers are simply absent from the result map.
type PriceProvider interface {
	GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

// Notifier delivers the alert message to the user
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

type createRequest struct {
	Crypto    string `validate:"required,lowercase,alphanum,max=32"`
	Direction string `validate:"required,oneof=up down"`
}

type Service struct {
	repo     AlertRepository
	prices   PriceProvider
	notifier Notifier
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(repo AlertRepository, prices PriceProvider, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		prices:   prices,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create registers a one-shot alert. No limit on alerts per user and
// no duplicate detection: the same watch may exist many times.
func (s *Service) Create(ctx context.Context, userID int64, crypto string, target decimal.Decimal, direction string) (*alert.Alert, error) {
	crypto = strings.ToLower(strings.TrimSpace(crypto))

	req := createRequest{Crypto: crypto, Direction: direction}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !target.IsPositive() {
		return nil, fmt.Errorf("%w: target price must be positive", ErrValidation)
	}

	a := &alert.Alert{
		UserID:      userID,
		Crypto:      crypto,
		TargetPrice: target,
		Direction:   alert.Direction(direction),
		IsActive:    true,
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("alert created",
		zap.Int64("user_id", userID),
		zap.String("crypto", crypto),
		zap.String("target", target.String()),
		zap.String("direction", direction),
	)
	return a, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*alert.Alert, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ActiveCount(ctx context.Context) (int64, error) {
	return s.repo.CountActive(ctx)
}

// EvaluateAll runs one evaluation pass: all active alerts are checked
// against a single batched price snapshot. If the batch fetch fails the
// whole pass aborts with no side effects and is retried on the next tick.
func (s *Service) EvaluateAll(ctx context.Context) error {
	alerts, err := s.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load active alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil
	}

	tickers := distinctTickers(alerts)

	snapshot, err := s.prices.GetPrices(ctx, tickers)
	if err != nil {
		metrics.AlertPassFailuresTotal.Inc()
		return fmt.Errorf("price fetch: %w", err)
	}

	for _, a := range alerts {
		metrics.AlertsEvaluatedTotal.Inc()

		price, ok := snapshot[a.Crypto]
		if !ok {
			// тикер не вернулся в снапшоте, алерт остается активным
			continue
		}
		if !a.Triggered(price) {
			continue
		}

		metrics.AlertsTriggeredTotal.Inc()

		text := fmt.Sprintf("🔔 %s is now at $%s (your %s target: $%s)",
			a.Crypto, price.StringFixed(2), a.Direction, a.TargetPrice.String())
		if err := s.notifier.Notify(ctx, a.UserID, text); err != nil {
			// Заблокированный бот не должен мешать гашению алерта
			s.logger.Warn("alert notification failed",
				zap.Int64("user_id", a.UserID),
				zap.Int64("alert_id", a.ID),
				zap.Error(err),
			)
		}

		if err := s.repo.Deactivate(ctx, a.ID); err != nil {
			s.logger.Error("failed to deactivate alert",
				zap.Int64("alert_id", a.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func distinctTickers(alerts []*alert.Alert) []string {
	seen := make(map[string]struct{}, len(alerts))
	tickers := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if _, ok := seen[a.Crypto]; ok {
			continue
		}
		seen[a.Crypto] = struct{}{}
		tickers = append(tickers, a.Crypto)
	}
	return tickers
}
