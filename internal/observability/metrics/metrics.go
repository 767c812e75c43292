package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/crosslock-io/htlc-monitor/internal/types"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (o Outcome) String() string {
	return string(o)
}

// HealthProvider supplies the payload of the /health endpoint.
type HealthProvider func(ctx context.Context) any

var (
	once                     sync.Once
	metricsRouter            *chi.Mux
	monitorLastProcessedUnit *prometheus.GaugeVec
	monitorCycleDuration     *prometheus.HistogramVec
	monitorErrorsTotal       *prometheus.CounterVec
	pollerDurationHistogram  *prometheus.HistogramVec
	recoveryScanCandidates   *prometheus.GaugeVec
	recoveryScansTotal       *prometheus.CounterVec
	recoveryRefundsTotal     *prometheus.CounterVec
	breakerStateGauge        *prometheus.GaugeVec
)

// Init initializes the metrics package and starts the metrics server.
func Init(metricsPort int, health HealthProvider) {
	once.Do(func() {
		initMetricsRouter(metricsPort, health)
		registerMetrics()
	})
}

func initMetricsRouter(metricsPort int, health HealthProvider) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	if health != nil {
		metricsRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(health(r.Context())); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		})
	}

	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	monitorLastProcessedUnit = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitor_last_processed_unit",
			Help: "Last block or height fully processed and dispatched, per chain.",
		},
		[]string{"chain"},
	)

	monitorCycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monitor_cycle_duration_seconds",
			Help:    "Histogram of polling cycle durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"chain", "status"},
	)

	monitorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_errors_total",
			Help: "Total number of failed polling cycles, per chain.",
		},
		[]string{"chain"},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_duration_seconds",
			Help:    "Histogram of poller durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"type", "status"},
	)

	recoveryScanCandidates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recovery_expired_htlcs",
			Help: "Number of expired HTLC candidates found by the last recovery scan.",
		},
		[]string{"chain"},
	)

	recoveryScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_scans_total",
			Help: "Total number of recovery scans, per chain and outcome.",
		},
		[]string{"chain", "status"},
	)

	recoveryRefundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_refunds_total",
			Help: "Total number of refund attempts, per chain and outcome.",
		},
		[]string{"chain", "status"},
	)

	breakerStateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		},
		[]string{"name"},
	)

	prometheus.MustRegister(
		monitorLastProcessedUnit,
		monitorCycleDuration,
		monitorErrorsTotal,
		pollerDurationHistogram,
		recoveryScanCandidates,
		recoveryScansTotal,
		recoveryRefundsTotal,
		breakerStateGauge,
	)
}

func outcomeOf(err error) Outcome {
	if err != nil {
		return Error
	}
	return Success
}

// Observer implements the monitor and recovery telemetry ports on top of the
// registered collectors. Constructed once and injected, so nothing deep in
// the polling loops reaches for package globals.
type Observer struct{}

func NewObserver() *Observer {
	return &Observer{}
}

func (Observer) RecordCycle(chain types.Chain, d time.Duration, err error) {
	monitorCycleDuration.WithLabelValues(chain.String(), outcomeOf(err).String()).Observe(d.Seconds())
	if err != nil {
		monitorErrorsTotal.WithLabelValues(chain.String()).Inc()
	}
}

func (Observer) SetLastProcessedUnit(chain types.Chain, unit uint64) {
	monitorLastProcessedUnit.WithLabelValues(chain.String()).Set(float64(unit))
}

func (Observer) RecordRecoveryScan(chain types.Chain, candidates int, err error) {
	recoveryScansTotal.WithLabelValues(chain.String(), outcomeOf(err).String()).Inc()
	if err == nil {
		recoveryScanCandidates.WithLabelValues(chain.String()).Set(float64(candidates))
	}
}

func (Observer) RecordRefund(chain types.Chain, err error) {
	recoveryRefundsTotal.WithLabelValues(chain.String(), outcomeOf(err).String()).Inc()
}

// RecordBreakerState is wired into the breakers' OnStateChange callbacks.
func RecordBreakerState(name string, state int) {
	if breakerStateGauge != nil {
		breakerStateGauge.WithLabelValues(name).Set(float64(state))
	}
}
