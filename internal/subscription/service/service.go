package service

import (
	"context"
	"time"

	"pricepulse/internal/subscription"

	"go.uber.org/zap"
)

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *subscription.Subscription) error
	Get(ctx context.Context, userID int64) (*subscription.Subscription, error)
	CountPremium(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	repo   SubscriptionRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo SubscriptionRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Activate выдает премиум на duration от текущего момента.
// Повторный вызов просто сдвигает окно от нового now (идемпотентно).
func (s *Service) Activate(ctx context.Context, userID int64, duration time.Duration) error {
	until := s.now().Add(duration).UTC()
	return s.repo.Upsert(ctx, &subscription.Subscription{
		UserID:       userID,
		IsPremium:    true,
		PremiumUntil: &until,
	})
}

// Extend добавляет дни поверх неистекшего премиума,
// для истекшего или отсутствующего ведет себя как Activate
func (s *Service) Extend(ctx context.Context, userID int64, days int) error {
	sub, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}

	extra := time.Duration(days) * 24 * time.Hour

	if sub != nil {
		if effective, _ := subscription.Expire(*sub, s.now()); effective.IsPremium {
			until := effective.PremiumUntil.Add(extra)
			return s.repo.Upsert(ctx, &subscription.Subscription{
				UserID:       userID,
				IsPremium:    true,
				PremiumUntil: &until,
			})
		}
	}

	return s.Activate(ctx, userID, extra)
}

// Status возвращает актуальный премиум-статус. Истекший премиум
// схлопывается в false корректирующей записью на этом же чтении.
func (s *Service) Status(ctx context.Context, userID int64) (bool, *time.Time, error) {
	sub, err := s.repo.Get(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	if sub == nil {
		return false, nil, nil
	}

	effective, writeNeeded := subscription.Expire(*sub, s.now())
	if writeNeeded {
		if err := s.repo.Upsert(ctx, &effective); err != nil {
			return false, nil, err
		}
		s.logger.Info("premium expired", zap.Int64("user_id", userID))
	}

	return effective.IsPremium, effective.PremiumUntil, nil
}

func (s *Service) PremiumCount(ctx context.Context) (int64, error) {
	return s.repo.CountPremium(ctx, s.now())
}
