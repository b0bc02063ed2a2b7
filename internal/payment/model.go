package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a named subscription offering with a fixed price and duration
type Plan struct {
	Tier     string
	PriceUSD decimal.Decimal
	Duration time.Duration
}

var plans = map[string]Plan{
	"monthly": {Tier: "monthly", PriceUSD: decimal.NewFromInt(15), Duration: 30 * 24 * time.Hour},
	"yearly":  {Tier: "yearly", PriceUSD: decimal.NewFromInt(100), Duration: 365 * 24 * time.Hour},
}

func PlanByTier(tier string) (Plan, bool) {
	p, ok := plans[tier]
	return p, ok
}

// Order is a created checkout invoice, persisted for webhook reconciliation
type Order struct {
	OrderID   string
	UserID    int64
	Plan      string
	Provider  string
	CreatedAt time.Time
}

// Event is the provider-agnostic payment confirmation extracted from a
// webhook payload. Zero UserID or empty PlanTier means the payload did
// not carry the field.
type Event struct {
	Type     string
	UserID   int64
	PlanTier string
}

// confirmed event kinds per provider
var confirmedTypes = map[string]struct{}{
	"paid":             {}, // cryptomus
	"paid_over":        {}, // cryptomus, оплата сверх счета
	"charge:confirmed": {}, // coinbase commerce
}

func (e Event) Confirmed() bool {
	_, ok := confirmedTypes[e.Type]
	return ok
}
