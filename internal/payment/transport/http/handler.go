package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"pricepulse/internal/metrics"
	"pricepulse/internal/payment"
	"pricepulse/internal/payment/service"

	"go.uber.org/zap"
)

// Handler terminates payment provider webhooks. Every structurally
// valid request is answered 200 with {"status":"success"} or
// {"status":"ignored"}; nothing here ever propagates an error.
type Handler struct {
	service   *service.Service
	cryptomus *service.CryptomusClient
	coinbase  *service.CoinbaseClient
	logger    *zap.Logger
}

func NewPaymentHandler(s *service.Service, cryptomus *service.CryptomusClient, coinbase *service.CoinbaseClient, logger *zap.Logger) *Handler {
	return &Handler{
		service:   s,
		cryptomus: cryptomus,
		coinbase:  coinbase,
		logger:    logger,
	}
}

func (h *Handler) respond(w http.ResponseWriter, provider string, result service.Result) {
	metrics.PaymentWebhooksTotal.WithLabelValues(provider, string(result)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": string(result)})
}

type cryptomusPayload struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Sign    string          `json:"sign"`
	UserID  json.RawMessage `json:"user_id"`
	Plan    string          `json:"plan"`
}

// CryptomusWebhook обрабатывает колбэк Cryptomus (status "paid")
func (h *Handler) CryptomusWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respond(w, "cryptomus", service.ResultIgnored)
		return
	}

	var payload cryptomusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Info("cryptomus webhook with malformed body ignored", zap.Error(err))
		h.respond(w, "cryptomus", service.ResultIgnored)
		return
	}

	// Подпись проверяется только при настроенном ключе, иначе
	// сохраняется исходное неаутентифицированное поведение
	if h.cryptomus.Configured() {
		if !h.cryptomus.VerifySign(stripSign(body), payload.Sign) {
			h.logger.Warn("cryptomus webhook signature mismatch",
				zap.String("order_id", payload.OrderID))
			h.respond(w, "cryptomus", service.ResultIgnored)
			return
		}
	}

	ev := payment.Event{
		Type:     payload.Status,
		UserID:   parseUserID(payload.UserID),
		PlanTier: payload.Plan,
	}

	// Запись о счете надежнее полей из payload
	if order, err := h.service.ResolveOrder(r.Context(), payload.OrderID); err == nil && order != nil {
		ev.UserID = order.UserID
		ev.PlanTier = order.Plan
	}

	h.respond(w, "cryptomus", h.service.HandleEvent(r.Context(), ev))
}

type coinbasePayload struct {
	Event struct {
		Type string `json:"type"`
		Data struct {
			Metadata struct {
				OrderID string          `json:"order_id"`
				UserID  json.RawMessage `json:"user_id"`
				Plan    string          `json:"plan"`
			} `json:"metadata"`
		} `json:"data"`
	} `json:"event"`
}

// CoinbaseWebhook обрабатывает событие Coinbase Commerce ("charge:confirmed")
func (h *Handler) CoinbaseWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respond(w, "coinbase", service.ResultIgnored)
		return
	}

	if h.coinbase.WebhookSecretSet() {
		signature := r.Header.Get("X-CC-Webhook-Signature")
		if !h.coinbase.VerifySignature(body, signature) {
			h.logger.Warn("coinbase webhook signature mismatch")
			h.respond(w, "coinbase", service.ResultIgnored)
			return
		}
	}

	var payload coinbasePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Info("coinbase webhook with malformed body ignored", zap.Error(err))
		h.respond(w, "coinbase", service.ResultIgnored)
		return
	}

	meta := payload.Event.Data.Metadata
	ev := payment.Event{
		Type:     payload.Event.Type,
		UserID:   parseUserID(meta.UserID),
		PlanTier: meta.Plan,
	}

	if order, err := h.service.ResolveOrder(r.Context(), meta.OrderID); err == nil && order != nil {
		ev.UserID = order.UserID
		ev.PlanTier = order.Plan
	}

	h.respond(w, "coinbase", h.service.HandleEvent(r.Context(), ev))
}

// parseUserID принимает и число, и строку с числом
func parseUserID(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, _ := strconv.ParseInt(s, 10, 64)
		return v
	}
	return 0
}

// stripSign вырезает поле sign из сырых байтов тела. Подпись считается
// от тела в исходном порядке ключей, поэтому пересборка через map
// недопустима: json.Marshal сортирует ключи.
func stripSign(body []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return body
	}

	prev := dec.InputOffset() // сразу после '{'
	afterBrace := prev
	for dec.More() {
		keyStart := prev
		key, err := dec.Token()
		if err != nil {
			return body
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return body
		}
		valueEnd := dec.InputOffset()

		if name, ok := key.(string); ok && name == "sign" {
			// Для не первого поля keyStart стоит перед разделяющей
			// запятой, она уходит вместе с полем
			head := body[:keyStart]
			rest := bytes.TrimLeft(body[valueEnd:], " \t\r\n")
			if keyStart == afterBrace && len(rest) > 0 && rest[0] == ',' {
				rest = rest[1:]
			}
			stripped := make([]byte, 0, len(head)+len(rest))
			stripped = append(stripped, head...)
			return append(stripped, rest...)
		}

		prev = valueEnd
	}
	return body
}
