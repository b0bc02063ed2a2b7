package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pricepulse/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CoinGeckoProvider batches tickers into one /simple/price call.
// Tickers are CoinGecko coin ids ("bitcoin", "ethereum").
type CoinGeckoProvider struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewCoinGeckoProvider(baseURL string, timeout time.Duration, logger *zap.Logger) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (p *CoinGeckoProvider) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	start := time.Now()

	q := url.Values{}
	q.Set("ids", strings.Join(tickers, ","))
	q.Set("vs_currencies", "usd")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.PriceAPIRequestsTotal.WithLabelValues("coingecko", "error").Inc()
		return nil, fmt.Errorf("coingecko request: %w", err)
	}
	defer resp.Body.Close()

	metrics.PriceAPIRequestDuration.WithLabelValues("coingecko").Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.PriceAPIRequestsTotal.WithLabelValues("coingecko", "error").Inc()
		return nil, fmt.Errorf("coingecko status %d", resp.StatusCode)
	}

	// {"bitcoin": {"usd": 65000.12}, ...}
	var body map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.PriceAPIRequestsTotal.WithLabelValues("coingecko", "error").Inc()
		return nil, fmt.Errorf("coingecko decode: %w", err)
	}
	metrics.PriceAPIRequestsTotal.WithLabelValues("coingecko", "ok").Inc()

	prices := make(map[string]decimal.Decimal, len(body))
	for ticker, quote := range body {
		raw, ok := quote["usd"]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(raw.String())
		if err != nil {
			p.logger.Warn("coingecko returned unparsable price",
				zap.String("ticker", ticker), zap.String("raw", raw.String()))
			continue
		}
		prices[ticker] = price
	}

	return prices, nil
}
