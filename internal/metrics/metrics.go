package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP метрики
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Метрики провайдера цен
	PriceAPIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_api_requests_total",
			Help: "Total number of price provider requests",
		},
		[]string{"provider", "status"},
	)
	PriceAPIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "price_api_request_duration_seconds",
			Help: "Duration of price provider requests in seconds",
		},
		[]string{"provider"},
	)

	// Метрики алертов
	AlertsEvaluatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_evaluated_total",
			Help: "Total number of alerts checked by the evaluation pass",
		},
	)
	AlertsTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Total number of alerts that fired",
		},
	)
	AlertPassFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_pass_failures_total",
			Help: "Total number of evaluation passes aborted by price fetch errors",
		},
	)

	// Метрики платежных вебхуков
	PaymentWebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_total",
			Help: "Total number of payment webhooks by provider and result",
		},
		[]string{"provider", "result"},
	)

	// Метрики бота
	BotCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of handled bot commands",
		},
		[]string{"command"},
	)
	BotSendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_send_failures_total",
			Help: "Total number of failed outbound Telegram messages",
		},
	)
)

func InitMetrics() {
	// Регистрация HTTP метрик
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)

	// Регистрация метрик провайдера цен
	prometheus.MustRegister(PriceAPIRequestsTotal)
	prometheus.MustRegister(PriceAPIRequestDuration)

	// Регистрация метрик алертов
	prometheus.MustRegister(AlertsEvaluatedTotal)
	prometheus.MustRegister(AlertsTriggeredTotal)
	prometheus.MustRegister(AlertPassFailuresTotal)

	// Регистрация метрик платежей и бота
	prometheus.MustRegister(PaymentWebhooksTotal)
	prometheus.MustRegister(BotCommandsTotal)
	prometheus.MustRegister(BotSendFailuresTotal)

	// Стандартные метрики Go
	prometheus.MustRegister(prometheus.NewGoCollector())
	prometheus.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
