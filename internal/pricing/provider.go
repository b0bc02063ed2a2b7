package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound означает, что у провайдера нет цены для тикера
var ErrNotFound = errors.New("price not found")

// Provider fetches current USD prices for a batch of lowercase tickers
// in a single upstream call. Tickers the provider does not know are
// absent from the returned map, not an error.
type Provider interface {
	GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

// GetPrice is the single-ticker convenience used by the /price command.
func GetPrice(ctx context.Context, p Provider, ticker string) (decimal.Decimal, error) {
	prices, err := p.GetPrices(ctx, []string{ticker})
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := prices[ticker]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return price, nil
}
