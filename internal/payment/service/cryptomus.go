package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const cryptomusAPI = "https://api.cryptomus.com/v1/payment"

// CryptomusClient creates hosted invoices via the Cryptomus merchant API.
// Requests are signed with MD5(base64(body) + payment key) per their docs.
type CryptomusClient struct {
	merchantID  string
	paymentKey  string
	callbackURL string
	client      *http.Client
}

func NewCryptomusClient(merchantID, paymentKey, callbackURL string, timeout time.Duration) *CryptomusClient {
	return &CryptomusClient{
		merchantID:  merchantID,
		paymentKey:  paymentKey,
		callbackURL: callbackURL,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *CryptomusClient) Configured() bool {
	return c.merchantID != "" && c.paymentKey != ""
}

func (c *CryptomusClient) sign(body []byte) string {
	encoded := base64.StdEncoding.EncodeToString(body)
	sum := md5.Sum([]byte(encoded + c.paymentKey))
	return hex.EncodeToString(sum[:])
}

// VerifySign проверяет подпись вебхука; тело должно быть без поля sign
func (c *CryptomusClient) VerifySign(body []byte, sign string) bool {
	expected := c.sign(body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sign)) == 1
}

// CreateInvoice returns the hosted checkout URL for the order.
func (c *CryptomusClient) CreateInvoice(ctx context.Context, orderID string, amount decimal.Decimal, userID int64, plan string) (string, error) {
	payload := map[string]string{
		"amount":       amount.String(),
		"currency":     "USD",
		"order_id":     orderID,
		"url_callback": c.callbackURL,
		"user_id":      fmt.Sprintf("%d", userID),
		"plan":         plan,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cryptomusAPI, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("merchant", c.merchantID)
	req.Header.Set("sign", c.sign(body))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cryptomus request: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Result struct {
			URL string `json:"url"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("cryptomus decode: %w", err)
	}
	if parsed.Result.URL == "" {
		return "", fmt.Errorf("cryptomus: no payment url in response (status %d)", resp.StatusCode)
	}

	return parsed.Result.URL, nil
}
