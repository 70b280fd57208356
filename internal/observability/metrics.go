package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	invoiceRuns       *prometheus.CounterVec
	invoicesGenerated prometheus.Counter
	allocations       *prometheus.CounterVec
	reconcileFailures prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zinsbuch_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zinsbuch_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zinsbuch_invoice_runs_total",
		Help: "Invoice runs by outcome.",
	}, []string{"outcome"})
	generated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zinsbuch_invoices_generated_total",
		Help: "Invoices persisted by billing runs.",
	})
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zinsbuch_payment_allocations_total",
		Help: "Payment allocations by strategy.",
	}, []string{"strategy"})
	reconcileFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zinsbuch_reconciliation_failures_total",
		Help: "Invoice line reconciliations that exceeded the correction bound.",
	})
	registry.MustRegister(requests, duration, runs, generated, allocations, reconcileFailures)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		invoiceRuns:       runs,
		invoicesGenerated: generated,
		allocations:       allocations,
		reconcileFailures: reconcileFailures,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveInvoiceRun counts one completed, failed or dry invoice run.
func (m *Metrics) ObserveInvoiceRun(outcome string, invoices int) {
	if m == nil {
		return
	}
	m.invoiceRuns.WithLabelValues(outcome).Inc()
	if invoices > 0 {
		m.invoicesGenerated.Add(float64(invoices))
	}
}

// ObserveAllocation counts one payment allocation per strategy.
func (m *Metrics) ObserveAllocation(strategy string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(strategy).Inc()
}

// ObserveReconcileFailure counts one reconciliation failure.
func (m *Metrics) ObserveReconcileFailure() {
	if m == nil {
		return
	}
	m.reconcileFailures.Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
