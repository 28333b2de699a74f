package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service counters. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	BookingsInitiated *prometheus.CounterVec
	WebhookOutcomes   *prometheus.CounterVec
	CheckIns          *prometheus.CounterVec
	Withdrawals       *prometheus.CounterVec
	FulfillmentErrors *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BookingsInitiated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_initiated_total",
			Help: "Bookings created, labelled by whether a coupon was applied.",
		}, []string{"coupon"}),
		WebhookOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_webhook_notifications_total",
			Help: "Midtrans notifications by outcome.",
		}, []string{"outcome"}),
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_checkins_total",
			Help: "Check-in attempts by result.",
		}, []string{"result"}),
		Withdrawals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_withdrawals_total",
			Help: "Withdrawal requests by stage.",
		}, []string{"stage"}),
		FulfillmentErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_fulfillment_errors_total",
			Help: "Ticket delivery failures by step.",
		}, []string{"step"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware labels by chi route pattern so path parameters do not explode
// the label set.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Booking(couponApplied bool) {
	m.BookingsInitiated.WithLabelValues(strconv.FormatBool(couponApplied)).Inc()
}

func (m *Metrics) Webhook(outcome string) {
	m.WebhookOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CheckIn(result string) {
	m.CheckIns.WithLabelValues(result).Inc()
}

func (m *Metrics) Withdrawal(stage string) {
	m.Withdrawals.WithLabelValues(stage).Inc()
}

func (m *Metrics) Fulfillment(step string) {
	m.FulfillmentErrors.WithLabelValues(step).Inc()
}
