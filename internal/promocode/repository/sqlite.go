package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pricepulse/internal/promocode"
)

// ErrAlreadyRedeemed возвращается при повторном использовании кода
var ErrAlreadyRedeemed = errors.New("promo code already redeemed by this user")

type PromoCodeRepository struct {
	db *sql.DB
}

func NewPromoCodeRepository(db *sql.DB) *PromoCodeRepository {
	return &PromoCodeRepository{db: db}
}

func (r *PromoCodeRepository) Create(ctx context.Context, pc *promocode.PromoCode) error {
	var expires interface{}
	if pc.ExpiresAt != nil {
		expires = pc.ExpiresAt.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO promo_codes (code, days_duration, max_uses, is_active, expires_at) VALUES (?, ?, ?, 1, ?)`,
		pc.Code, pc.DaysDuration, pc.MaxUses, expires)
	if err != nil {
		return err
	}
	pc.ID, err = res.LastInsertId()
	return err
}

func (r *PromoCodeRepository) GetByCode(ctx context.Context, code string) (*promocode.PromoCode, error) {
	pc := &promocode.PromoCode{}
	var expires sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, days_duration, max_uses, used_count, is_active, created_at, expires_at
		 FROM promo_codes WHERE code = ? AND is_active = 1`, code).
		Scan(&pc.ID, &pc.Code, &pc.DaysDuration, &pc.MaxUses, &pc.UsedCount, &pc.IsActive, &pc.CreatedAt, &expires)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		pc.ExpiresAt = &t
	}
	return pc, nil
}

// Redeem атомарно расходует одно использование кода. Возвращает
// sql.ErrNoRows при исчерпанном лимите и ErrAlreadyRedeemed при
// повторном использовании тем же пользователем.
func (r *PromoCodeRepository) Redeem(ctx context.Context, userID, promoCodeID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var used int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM promo_code_usages WHERE user_id = ? AND promo_code_id = ?`,
		userID, promoCodeID).Scan(&used)
	if err != nil {
		return err
	}
	if used > 0 {
		return ErrAlreadyRedeemed
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE promo_codes SET used_count = used_count + 1 WHERE id = ? AND used_count < max_uses`,
		promoCodeID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO promo_code_usages (user_id, promo_code_id, used_at) VALUES (?, ?, ?)`,
		userID, promoCodeID, time.Now().UTC())
	if err != nil {
		return err
	}

	return tx.Commit()
}
