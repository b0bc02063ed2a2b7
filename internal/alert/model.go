package alert

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Alert is a one-shot price watch: once triggered it is deactivated
// and never fires again.
type Alert struct {
	ID          int64
	UserID      int64
	Crypto      string // lowercase ticker
	TargetPrice decimal.Decimal
	Direction   Direction
	IsActive    bool
	CreatedAt   time.Time
}

// Triggered reports whether the current price satisfies the alert
// condition. The comparison is non-strict in both directions: a price
// exactly at the target always fires.
func (a Alert) Triggered(current decimal.Decimal) bool {
	switch a.Direction {
	case DirectionUp:
		return current.GreaterThanOrEqual(a.TargetPrice)
	case DirectionDown:
		return current.LessThanOrEqual(a.TargetPrice)
	}
	return false
}
