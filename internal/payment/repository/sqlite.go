package repository

import (
	"context"
	"database/sql"

	"pricepulse/internal/payment"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *payment.Order) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_orders (order_id, user_id, plan, provider) VALUES (?, ?, ?, ?)`,
		o.OrderID, o.UserID, o.Plan, o.Provider)
	return err
}

func (r *OrderRepository) Get(ctx context.Context, orderID string) (*payment.Order, error) {
	o := &payment.Order{}
	err := r.db.QueryRowContext(ctx,
		`SELECT order_id, user_id, plan, provider, created_at FROM payment_orders WHERE order_id = ?`,
		orderID).Scan(&o.OrderID, &o.UserID, &o.Plan, &o.Provider, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}
