// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	adminhttp "pricepulse/internal/admin/transport/http"
	alertrepository "pricepulse/internal/alert/repository"
	alertservice "pricepulse/internal/alert/service"
	"pricepulse/internal/bot"
	"pricepulse/internal/config"
	"pricepulse/internal/metrics"
	paymentrepository "pricepulse/internal/payment/repository"
	paymentservice "pricepulse/internal/payment/service"
	paymenthttp "pricepulse/internal/payment/transport/http"
	"pricepulse/internal/pricing"
	promorepository "pricepulse/internal/promocode/repository"
	promoservice "pricepulse/internal/promocode/service"
	subscriptionrepository "pricepulse/internal/subscription/repository"
	subscriptionservice "pricepulse/internal/subscription/service"
	"pricepulse/pkg/db"
	"pricepulse/pkg/middleware"
)

var server *http.Server

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}
	logger.Info("Config loaded")

	database, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	logger.Info("Connected to SQLite", zap.String("path", cfg.DatabasePath))

	metrics.InitMetrics()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Telegram bot init failed", zap.Error(err))
	}
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	notifier := bot.NewNotifier(api, logger)

	// --- ИНИЦИАЛИЗАЦИЯ СЛОЁВ ---
	subRepo := subscriptionrepository.NewSubscriptionRepository(database)
	subService := subscriptionservice.NewService(subRepo, logger)

	var priceProvider pricing.Provider
	switch cfg.PriceProvider {
	case "binance":
		priceProvider = pricing.NewBinanceProvider(cfg.HTTPTimeout, logger)
	default:
		priceProvider = pricing.NewCoinGeckoProvider(cfg.CoinGeckoURL, cfg.HTTPTimeout, logger)
	}
	logger.Info("Price provider ready", zap.String("provider", cfg.PriceProvider))

	alertRepo := alertrepository.NewAlertRepository(database)
	alertService := alertservice.NewService(alertRepo, priceProvider, notifier, logger)
	alertWatcher := alertservice.NewWatcher(alertService, cfg.AlertInterval, logger)

	cryptomusClient := paymentservice.NewCryptomusClient(
		cfg.CryptomusMerchantID, cfg.CryptomusPaymentKey,
		cfg.PublicURL+"/webhooks/cryptomus", cfg.HTTPTimeout)
	coinbaseClient := paymentservice.NewCoinbaseClient(
		cfg.CoinbaseAPIKey, cfg.CoinbaseWebhookKey, cfg.HTTPTimeout)
	orderRepo := paymentrepository.NewOrderRepository(database)
	paymentService := paymentservice.NewService(
		cryptomusClient, coinbaseClient, orderRepo, subService, notifier, logger)
	paymentHandler := paymenthttp.NewPaymentHandler(
		paymentService, cryptomusClient, coinbaseClient, logger)

	promoRepo := promorepository.NewPromoCodeRepository(database)
	promoService := promoservice.NewService(promoRepo, subService, logger)

	tgBot := bot.New(api, subService, alertService, paymentService, promoService, priceProvider, logger)
	adminHandler := adminhttp.NewAdminHandler(
		cfg.JWTSecret, cfg.AdminPasswordHash, subService, alertService, promoService, logger)

	webhookLimiter := middleware.NewRateLimiter(100, time.Minute, logger)

	// --- РОУТЕР ---
	r := chi.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Telegram
	r.Post("/telegram/"+cfg.TelegramToken, tgBot.HandleWebhook)
	r.Get("/set_webhook", func(w http.ResponseWriter, r *http.Request) {
		if cfg.PublicURL == "" {
			http.Error(w, "PUBLIC_URL is not set", http.StatusBadRequest)
			return
		}
		if err := tgBot.SetWebhook(cfg.PublicURL); err != nil {
			logger.Error("Webhook registration failed", zap.Error(err))
			http.Error(w, "failed to set webhook", http.StatusBadGateway)
			return
		}
		w.Write([]byte("Webhook set successfully"))
	})

	// Платежные вебхуки
	r.Group(func(wr chi.Router) {
		wr.Use(webhookLimiter.Middleware)
		wr.Use(middleware.ValidateRequest)
		wr.Post("/webhooks/cryptomus", paymentHandler.CryptomusWebhook)
		wr.Post("/webhooks/coinbase", paymentHandler.CoinbaseWebhook)
	})

	// Админка
	r.Post("/admin/login", adminHandler.Login)
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.JWTAuth(cfg.JWTSecret))
		pr.Use(middleware.ValidateRequest)
		pr.Post("/admin/promocodes", adminHandler.CreatePromoCode)
		pr.Post("/admin/subscriptions", adminHandler.GrantSubscription)
		pr.Get("/admin/stats", adminHandler.Stats)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	if cfg.MetricsPassword != "" {
		r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)).
			Get("/metrics", promhttp.Handler().ServeHTTP)
	} else {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}

	// Регистрируем вебхук при старте, если известен внешний URL
	if cfg.PublicURL != "" {
		if err := tgBot.SetWebhook(cfg.PublicURL); err != nil {
			logger.Error("Webhook registration failed", zap.Error(err))
		} else {
			logger.Info("Telegram webhook registered")
		}
	}

	if err := alertWatcher.Start(); err != nil {
		logger.Fatal("Alert watcher start failed", zap.Error(err))
	}

	server = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	logger.Info("Server running", zap.String("addr", cfg.HTTPAddr))

	// Graceful shutdown на сигналы ОС
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		logger.Info("Shutdown signal received, starting graceful shutdown")
		alertWatcher.Stop()
		shutdownServer(logger)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func shutdownServer(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
