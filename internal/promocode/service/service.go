package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pricepulse/internal/promocode"
	"pricepulse/internal/promocode/repository"

	"go.uber.org/zap"
)

var (
	ErrPromoCodeNotFound = errors.New("promo code not found or inactive")
	ErrPromoCodeExpired  = errors.New("promo code expired")
	ErrPromoCodeMaxUses  = errors.New("promo code usage limit reached")
	ErrUserAlreadyUsed   = errors.New("promo code already used by this user")
)

type PromoCodeRepository interface {
	Create(ctx context.Context, pc *promocode.PromoCode) error
	GetByCode(ctx context.Context, code string) (*promocode.PromoCode, error)
	Redeem(ctx context.Context, userID, promoCodeID int64) error
}

type SubscriptionService interface {
	Extend(ctx context.Context, userID int64, days int) error
}

type Service struct {
	repo   PromoCodeRepository
	subs   SubscriptionService
	logger *zap.Logger
}

func NewService(repo PromoCodeRepository, subs SubscriptionService, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		subs:   subs,
		logger: logger,
	}
}

func (s *Service) CreatePromoCode(ctx context.Context, code string, daysDuration, maxUses int, expiresAt *time.Time) (*promocode.PromoCode, error) {
	pc := &promocode.PromoCode{
		Code:         strings.ToUpper(strings.TrimSpace(code)),
		DaysDuration: daysDuration,
		MaxUses:      maxUses,
		IsActive:     true,
		ExpiresAt:    expiresAt,
	}
	return pc, s.repo.Create(ctx, pc)
}

// ApplyPromoCode redeems one use of the code for the user and extends
// the premium subscription by the code's duration. Returns the granted
// number of days.
func (s *Service) ApplyPromoCode(ctx context.Context, userID int64, code string) (int, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	pc, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	if pc == nil {
		return 0, ErrPromoCodeNotFound
	}

	if pc.ExpiresAt != nil && time.Now().After(*pc.ExpiresAt) {
		return 0, ErrPromoCodeExpired
	}
	if pc.UsedCount >= pc.MaxUses {
		return 0, ErrPromoCodeMaxUses
	}

	if err := s.repo.Redeem(ctx, userID, pc.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRedeemed):
			return 0, ErrUserAlreadyUsed
		case errors.Is(err, sql.ErrNoRows):
			return 0, ErrPromoCodeMaxUses
		default:
			return 0, err
		}
	}

	if err := s.subs.Extend(ctx, userID, pc.DaysDuration); err != nil {
		return 0, err
	}

	s.logger.Info("promo code applied",
		zap.Int64("user_id", userID),
		zap.String("code", code),
		zap.Int("days", pc.DaysDuration),
	)
	return pc.DaysDuration, nil
}
