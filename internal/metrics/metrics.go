package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bazingamart"

// Metrics owns its registry so tests can build as many as they like.
type Metrics struct {
	Registry           *prometheus.Registry
	Requests           *prometheus.CounterVec
	LatencyMS          *prometheus.HistogramVec
	CheckoutOutcomes   *prometheus.CounterVec
	FulfillmentUpdates *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_outcomes_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	fulfillment := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fulfillment_updates_total",
		Help:      "Line item fulfillment updates by outcome.",
	}, []string{"outcome"})

	reg.MustRegister(
		requests, latency, checkout, fulfillment,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		Registry:           reg,
		Requests:           requests,
		LatencyMS:          latency,
		CheckoutOutcomes:   checkout,
		FulfillmentUpdates: fulfillment,
	}
}

// Checkout counts one checkout outcome. Safe on a nil receiver.
func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutOutcomes.WithLabelValues(outcome).Inc()
}

// Fulfillment counts one fulfillment update outcome. Safe on a nil receiver.
func (m *Metrics) Fulfillment(outcome string) {
	if m == nil {
		return
	}
	m.FulfillmentUpdates.WithLabelValues(outcome).Inc()
}

// Middleware records request count and latency per matched route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		return err
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
