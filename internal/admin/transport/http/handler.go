package http

import (
	"encoding/json"
	"net/http"
	"time"

	alertservice "pricepulse/internal/alert/service"
	promoservice "pricepulse/internal/promocode/service"
	subservice "pricepulse/internal/subscription/service"
	"pricepulse/pkg/hash"
	"pricepulse/pkg/jwt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler exposes the operator API: login, promo code management,
// manual premium grants and counters.
type Handler struct {
	jwtSecret    string
	passwordHash string
	subs         *subservice.Service
	alerts       *alertservice.Service
	promos       *promoservice.Service
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewAdminHandler(jwtSecret, passwordHash string, subs *subservice.Service, alerts *alertservice.Service, promos *promoservice.Service, logger *zap.Logger) *Handler {
	return &Handler{
		jwtSecret:    jwtSecret,
		passwordHash: passwordHash,
		subs:         subs,
		alerts:       alerts,
		promos:       promos,
		validate:     validator.New(),
		logger:       logger,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if h.passwordHash == "" || !hash.CheckPassword(h.passwordHash, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := jwt.GenerateToken(h.jwtSecret, "admin", 24*time.Hour)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type createPromoCodeRequest struct {
	Code         string `json:"code" validate:"required,alphanum,min=4,max=32"`
	DaysDuration int    `json:"days_duration" validate:"required,gt=0"`
	MaxUses      int    `json:"max_uses" validate:"required,gt=0"`
	ExpiresAt    string `json:"expires_at,omitempty"` // RFC3339, опционально
}

func (h *Handler) CreatePromoCode(w http.ResponseWriter, r *http.Request) {
	var req createPromoCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			http.Error(w, "expires_at must be RFC3339", http.StatusBadRequest)
			return
		}
		expiresAt = &t
	}

	pc, err := h.promos.CreatePromoCode(r.Context(), req.Code, req.DaysDuration, req.MaxUses, expiresAt)
	if err != nil {
		h.logger.Error("promo code create failed", zap.Error(err))
		http.Error(w, "failed to create promo code", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, pc)
}

type grantRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
	Days   int   `json:"days" validate:"required,gt=0"`
}

// GrantSubscription вручную продлевает премиум пользователю
func (h *Handler) GrantSubscription(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.subs.Extend(r.Context(), req.UserID, req.Days); err != nil {
		h.logger.Error("manual grant failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		http.Error(w, "failed to grant subscription", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	premium, err := h.subs.PremiumCount(r.Context())
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	activeAlerts, err := h.alerts.ActiveCount(r.Context())
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{
		"premium_users": premium,
		"active_alerts": activeAlerts,
	})
}
