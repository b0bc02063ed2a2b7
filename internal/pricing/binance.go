package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pricepulse/internal/metrics"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Тикеры у нас в стиле CoinGecko, биржа хочет символы пар
var binanceAliases = map[string]string{
	"bitcoin":  "BTC",
	"ethereum": "ETH",
	"solana":   "SOL",
	"ripple":   "XRP",
	"cardano":  "ADA",
	"dogecoin": "DOGE",
	"litecoin": "LTC",
	"tron":     "TRX",
}

// BinanceProvider serves prices from Binance spot USDT pairs. It pulls
// the full list-prices snapshot in one call and filters locally, so one
// unknown ticker never poisons the batch.
type BinanceProvider struct {
	client *binance.Client
	logger *zap.Logger
}

func NewBinanceProvider(timeout time.Duration, logger *zap.Logger) *BinanceProvider {
	client := binance.NewClient("", "") // публичные эндпоинты не требуют ключей
	client.HTTPClient.Timeout = timeout
	return &BinanceProvider{client: client, logger: logger}
}

func (p *BinanceProvider) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	start := time.Now()

	listed, err := p.client.NewListPricesService().Do(ctx)
	if err != nil {
		metrics.PriceAPIRequestsTotal.WithLabelValues("binance", "error").Inc()
		return nil, fmt.Errorf("binance list prices: %w", err)
	}
	metrics.PriceAPIRequestsTotal.WithLabelValues("binance", "ok").Inc()
	metrics.PriceAPIRequestDuration.WithLabelValues("binance").Observe(time.Since(start).Seconds())

	bySymbol := make(map[string]string, len(listed))
	for _, sp := range listed {
		bySymbol[sp.Symbol] = sp.Price
	}

	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, ticker := range tickers {
		raw, ok := bySymbol[symbolFor(ticker)]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			p.logger.Warn("binance returned unparsable price",
				zap.String("ticker", ticker), zap.String("raw", raw))
			continue
		}
		prices[ticker] = price
	}

	return prices, nil
}

func symbolFor(ticker string) string {
	base, ok := binanceAliases[ticker]
	if !ok {
		base = strings.ToUpper(ticker)
	}
	return base + "USDT"
}
