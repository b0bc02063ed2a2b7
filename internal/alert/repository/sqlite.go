package repository

import (
	"context"
	"database/sql"

	"pricepulse/internal/alert"

	"github.com/shopspring/decimal"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Insert(ctx context.Context, a *alert.Alert) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (user_id, crypto, target_price, direction, is_active) VALUES (?, ?, ?, ?, 1)`,
		a.UserID, a.Crypto, a.TargetPrice.String(), string(a.Direction))
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (r *AlertRepository) ListActive(ctx context.Context) ([]*alert.Alert, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, crypto, target_price, direction, is_active, created_at FROM alerts WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*alert.Alert
	for rows.Next() {
		a := &alert.Alert{}
		var target, direction string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Crypto, &target, &direction, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.TargetPrice, err = decimal.NewFromString(target)
		if err != nil {
			return nil, err
		}
		a.Direction = alert.Direction(direction)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *AlertRepository) ListByUser(ctx context.Context, userID int64) ([]*alert.Alert, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, crypto, target_price, direction, is_active, created_at FROM alerts
		 WHERE user_id = ? AND is_active = 1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*alert.Alert
	for rows.Next() {
		a := &alert.Alert{}
		var target, direction string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Crypto, &target, &direction, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.TargetPrice, err = decimal.NewFromString(target)
		if err != nil {
			return nil, err
		}
		a.Direction = alert.Direction(direction)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Deactivate гасит ровно одну запись по суррогатному ключу
func (r *AlertRepository) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE alerts SET is_active = 0 WHERE id = ?`, id)
	return err
}

func (r *AlertRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE is_active = 1`).Scan(&count)
	return count, err
}
