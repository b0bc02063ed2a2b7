package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCoinGeckoGetPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":65000.12},"ethereum":{"usd":3200}}`))
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(srv.URL, time.Second, zap.NewNop())

	prices, err := p.GetPrices(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.True(t, prices["bitcoin"].Equal(decimal.RequireFromString("65000.12")))
	assert.True(t, prices["ethereum"].Equal(decimal.RequireFromString("3200")))
}

func TestCoinGeckoOmitsUnknownTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CoinGecko просто не включает неизвестные id в ответ
		w.Write([]byte(`{"bitcoin":{"usd":65000}}`))
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(srv.URL, time.Second, zap.NewNop())

	prices, err := p.GetPrices(context.Background(), []string{"bitcoin", "nosuchcoin"})
	require.NoError(t, err)
	assert.Len(t, prices, 1)
	_, ok := prices["nosuchcoin"]
	assert.False(t, ok)
}

func TestCoinGeckoNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(srv.URL, time.Second, zap.NewNop())

	_, err := p.GetPrices(context.Background(), []string{"bitcoin"})
	require.Error(t, err)
}

func TestGetPriceSingleTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{"usd":65000}}`))
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(srv.URL, time.Second, zap.NewNop())

	price, err := GetPrice(context.Background(), p, "bitcoin")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(65000)))

	_, err = GetPrice(context.Background(), p, "nosuchcoin")
	require.ErrorIs(t, err, ErrNotFound)
}
