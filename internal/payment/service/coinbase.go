package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const coinbaseAPI = "https://api.commerce.coinbase.com/charges"

// CoinbaseClient creates charges via Coinbase Commerce.
type CoinbaseClient struct {
	apiKey        string
	webhookSecret string
	client        *http.Client
}

func NewCoinbaseClient(apiKey, webhookSecret string, timeout time.Duration) *CoinbaseClient {
	return &CoinbaseClient{
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: timeout},
	}
}

func (c *CoinbaseClient) Configured() bool {
	return c.apiKey != ""
}

func (c *CoinbaseClient) WebhookSecretSet() bool {
	return c.webhookSecret != ""
}

// VerifySignature проверяет X-CC-Webhook-Signature (HMAC-SHA256 от тела)
func (c *CoinbaseClient) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// CreateCharge returns the hosted checkout URL for the order.
func (c *CoinbaseClient) CreateCharge(ctx context.Context, orderID string, amount decimal.Decimal, userID int64, plan string) (string, error) {
	payload := map[string]interface{}{
		"name":         fmt.Sprintf("%s premium subscription", plan),
		"description":  "PricePulse premium access",
		"pricing_type": "fixed_price",
		"local_price": map[string]string{
			"amount":   amount.String(),
			"currency": "USD",
		},
		"metadata": map[string]string{
			"order_id": orderID,
			"user_id":  fmt.Sprintf("%d", userID),
			"plan":     plan,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, coinbaseAPI, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CC-Api-Key", c.apiKey)
	req.Header.Set("X-CC-Version", "2018-03-22")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("coinbase request: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Data struct {
			HostedURL string `json:"hosted_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("coinbase decode: %w", err)
	}
	if parsed.Data.HostedURL == "" {
		return "", fmt.Errorf("coinbase: no hosted url in response (status %d)", resp.StatusCode)
	}

	return parsed.Data.HostedURL, nil
}
