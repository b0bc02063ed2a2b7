package repository

import (
	"context"
	"database/sql"
	"time"

	"pricepulse/internal/subscription"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert полностью заменяет запись пользователя (replace-семантика)
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	var until sql.NullInt64
	if sub.PremiumUntil != nil {
		until = sql.NullInt64{Int64: sub.PremiumUntil.Unix(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, is_premium, premium_until) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET is_premium = excluded.is_premium, premium_until = excluded.premium_until`,
		sub.UserID, sub.IsPremium, until)
	return err
}

func (r *SubscriptionRepository) Get(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	sub := &subscription.Subscription{}
	var until sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, is_premium, premium_until FROM subscriptions WHERE user_id = ?`,
		userID).Scan(&sub.UserID, &sub.IsPremium, &until)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if until.Valid {
		t := time.Unix(until.Int64, 0).UTC()
		sub.PremiumUntil = &t
	}
	return sub, nil
}

// CountPremium считает премиум-записи, не истекшие на момент now
func (r *SubscriptionRepository) CountPremium(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE is_premium = 1 AND premium_until > ?`,
		now.Unix()).Scan(&count)
	return count, err
}
