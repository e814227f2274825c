package obs

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fairyhunter13/gng-store/internal/report"
)

// Metrics owns a Prometheus registry and the collectors the service
// reports to. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	mutations       *prometheus.CounterVec
	persistFailures prometheus.Counter
	salesRecorded   prometheus.Counter
	salesRevenue    prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// NewMetrics builds a fresh registry with Go runtime and process collectors
// plus the service counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gng_store_mutations_total",
				Help: "Store mutations by operation and result",
			},
			[]string{"op", "result"},
		),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gng_store_persist_failures_total",
			Help: "Snapshot writes that did not reach durable storage",
		}),
		salesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gng_sales_recorded_total",
			Help: "Sales recorded since process start",
		}),
		salesRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gng_sales_revenue_total",
			Help: "Revenue of sales recorded since process start",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gng_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gng_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.mutations,
		m.persistFailures,
		m.salesRecorded,
		m.salesRevenue,
		m.httpRequests,
		m.httpLatency,
	)
	return m
}

// TrackSummary registers gauges that read the dashboard figures from fn on
// every scrape.
func (m *Metrics) TrackSummary(fn func() report.Summary) {
	if m == nil {
		return
	}
	gauge := func(name, help string, pick func(report.Summary) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return pick(fn())
		})
	}
	m.Registry.MustRegister(
		gauge("gng_income", "Total revenue of all sales", func(s report.Summary) float64 { return s.Income }),
		gauge("gng_expenses", "Total material cost of all sales", func(s report.Summary) float64 { return s.Expenses }),
		gauge("gng_profit", "Income minus expenses", func(s report.Summary) float64 { return s.Profit }),
		gauge("gng_target_remaining", "Revenue still needed to reach the target", func(s report.Summary) float64 { return s.TargetRemaining }),
	)
}

// ObserveMutation counts one store mutation outcome.
func (m *Metrics) ObserveMutation(op, result string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

// PersistFailed counts a best-effort write that was dropped.
func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// SaleRecorded counts a sale and its revenue.
func (m *Metrics) SaleRecorded(revenue float64) {
	if m == nil {
		return
	}
	m.salesRecorded.Inc()
	m.salesRevenue.Add(revenue)
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
