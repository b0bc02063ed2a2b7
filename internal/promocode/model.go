package promocode

import (
	"time"
)

type PromoCode struct {
	ID           int64      `json:"id"`
	Code         string     `json:"code"`
	DaysDuration int        `json:"days_duration"` // сколько дней премиума дает код
	MaxUses      int        `json:"max_uses"`
	UsedCount    int        `json:"used_count"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at"` // опциональный срок действия
}

type PromoCodeUsage struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	PromoCodeID int64     `json:"promo_code_id"`
	UsedAt      time.Time `json:"used_at"`
}
