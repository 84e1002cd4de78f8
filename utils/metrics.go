package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourguider_http_requests_total",
		Help: "Total HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tourguider_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route", "method"})

	CheckoutSessionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourguider_checkout_sessions_created_total",
		Help: "Checkout sessions created, by product and mode",
	}, []string{"product", "mode"})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourguider_stripe_webhook_events_total",
		Help: "Verified Stripe webhook events by type",
	}, []string{"type"})

	RefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourguider_refunds_total",
		Help: "Refunds issued, by refund type",
	}, []string{"type"})

	QuotesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tourguider_quotes_submitted_total",
		Help: "Quote requests received",
	})

	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourguider_push_deliveries_total",
		Help: "Web push deliveries by outcome",
	}, []string{"outcome"})

	EmailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourguider_email_deliveries_total",
		Help: "Notification emails by outcome",
	}, []string{"outcome"})
)
