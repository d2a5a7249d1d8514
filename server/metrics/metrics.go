// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records the counters the chat service cares about.
type Collector struct {
	registry *prometheus.Registry

	chatMessages  *prometheus.CounterVec
	chatFailures  prometheus.Counter
	chatLatency   prometheus.Histogram
	creditsSpent  *prometheus.CounterVec
	purchases     prometheus.Counter
	httpStatus    *prometheus.CounterVec
	pushBroadcast prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on a fresh
// registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindgleam_chat_messages_total",
			Help: "Chat messages handled, by access mode.",
		}, []string{"mode"}),
		chatFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindgleam_chat_failures_total",
			Help: "Chat completions that failed.",
		}),
		chatLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mindgleam_chat_latency_seconds",
			Help:    "End-to-end chat completion latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		creditsSpent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindgleam_credits_spent_total",
			Help: "Credits deducted from balances, by kind.",
		}, []string{"kind"}),
		purchases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindgleam_purchases_total",
			Help: "Completed plan purchases credited to balances.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindgleam_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		pushBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindgleam_balance_broadcasts_total",
			Help: "Balance updates pushed over WebSocket.",
		}),
	}

	registry.MustRegister(
		c.chatMessages,
		c.chatFailures,
		c.chatLatency,
		c.creditsSpent,
		c.purchases,
		c.httpStatus,
		c.pushBroadcast,
	)

	return c
}

func (c *Collector) RecordChatMessage(mode string) {
	c.chatMessages.WithLabelValues(mode).Inc()
}

func (c *Collector) RecordChatFailure() {
	c.chatFailures.Inc()
}

func (c *Collector) RecordChatLatency(duration time.Duration) {
	c.chatLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordCreditSpent(kind string) {
	c.creditsSpent.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordPurchase() {
	c.purchases.Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordBalanceBroadcast() {
	c.pushBroadcast.Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
