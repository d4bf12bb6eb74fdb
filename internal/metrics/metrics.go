// Package metrics exposes ledger activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess    = "success"
	ResultValidation = "validation"
	ResultNotFound   = "not_found"
	ResultError      = "error"
)

// Collector holds every metric the application records. A nil *Collector
// is valid and records nothing.
type Collector struct {
	mutations     *prometheus.CounterVec
	recalculation prometheus.Histogram
	ledgerRows    prometheus.Gauge

	mirrorSyncs  *prometheus.CounterVec
	circuitState prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration prometheus.Histogram
}

func NewCollector(namespace string) *Collector {
	return &Collector{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Ledger mutations by operation and result",
			},
			[]string{"operation", "result"},
		),
		recalculation: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "recalculation_seconds",
				Help:      "Time spent recomputing and rewriting running balances",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		ledgerRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_rows",
				Help:      "Number of transactions after the last recalculation",
			},
		),
		mirrorSyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mirror_syncs_total",
				Help:      "Spreadsheet mirror replacements by result",
			},
			[]string{"result"},
		),
		circuitState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mirror_circuit_state",
				Help:      "Mirror circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		),
		httpDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// Register registers the ledger and HTTP metrics served by the web server.
func (c *Collector) Register(registry *prometheus.Registry) error {
	return register(registry,
		c.mutations,
		c.recalculation,
		c.ledgerRows,
		c.httpRequests,
		c.httpDuration,
	)
}

// RegisterMirror registers the metrics recorded by the mirror worker.
func (c *Collector) RegisterMirror(registry *prometheus.Registry) error {
	return register(registry, c.mirrorSyncs, c.circuitState)
}

func register(registry *prometheus.Registry, collectors ...prometheus.Collector) error {
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) RecordMutation(operation, result string) {
	if c == nil {
		return
	}
	c.mutations.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordRecalculation(rows int, d time.Duration) {
	if c == nil {
		return
	}
	c.recalculation.Observe(d.Seconds())
	c.ledgerRows.Set(float64(rows))
}

func (c *Collector) RecordMirrorSync(result string) {
	if c == nil {
		return
	}
	c.mirrorSyncs.WithLabelValues(result).Inc()
}

// RecordCircuitState stores 0 for closed, 1 for open and 2 for half-open.
func (c *Collector) RecordCircuitState(state int) {
	if c == nil {
		return
	}
	c.circuitState.Set(float64(state))
}

func (c *Collector) RecordHTTPRequest(method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
