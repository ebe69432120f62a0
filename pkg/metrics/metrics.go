package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resilientsys/degrade/pkg/degradation"
)

// Metrics holds all Prometheus collectors and implements
// degradation.Recorder so a controller can report into it directly.
type Metrics struct {
	DegradationLevel  *prometheus.GaugeVec
	HealthChecksTotal *prometheus.CounterVec
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	ChainStagesTotal  *prometheus.CounterVec

	service  string
	registry *prometheus.Registry
}

// Config holds metrics configuration
type Config struct {
	Namespace string `json:"namespace"`
	Service   string `json:"service"`
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Namespace: "degrade",
		Service:   "default",
	}
}

// NewMetrics creates and registers all Prometheus collectors on a dedicated
// registry, so multiple controllers in one process do not collide.
func NewMetrics(config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Metrics{
		service:  config.Service,
		registry: prometheus.NewRegistry(),

		DegradationLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "level",
				Help:      "Current degradation level (0=normal 1=degraded 2=minimal 3=offline)",
			},
			[]string{"service"},
		),
		HealthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "health_checks_total",
				Help:      "Total number of health checks performed",
			},
			[]string{"service", "result"},
		),
		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "executions_total",
				Help:      "Total number of operations executed through the controller",
			},
			[]string{"service", "level", "outcome"},
		),
		ExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "execution_duration_seconds",
				Help:      "Duration of operations executed through the controller",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "level"},
		),
		ChainStagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "chain_stages_total",
				Help:      "Fallback chain terminations by producing stage",
			},
			[]string{"service", "source"},
		),
	}

	m.registry.MustRegister(
		m.DegradationLevel,
		m.HealthChecksTotal,
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.ChainStagesTotal,
	)

	return m
}

// RecordLevel implements degradation.Recorder
func (m *Metrics) RecordLevel(level degradation.DegradationLevel) {
	m.DegradationLevel.WithLabelValues(m.service).Set(float64(level))
}

// RecordHealthCheck implements degradation.Recorder
func (m *Metrics) RecordHealthCheck(healthy bool) {
	result := "healthy"
	if !healthy {
		result = "unhealthy"
	}
	m.HealthChecksTotal.WithLabelValues(m.service, result).Inc()
}

// RecordExecution implements degradation.Recorder
func (m *Metrics) RecordExecution(level degradation.DegradationLevel, outcome string, duration time.Duration) {
	m.ExecutionsTotal.WithLabelValues(m.service, level.String(), outcome).Inc()
	m.ExecutionDuration.WithLabelValues(m.service, level.String()).Observe(duration.Seconds())
}

// RecordChainStage implements degradation.Recorder
func (m *Metrics) RecordChainStage(source degradation.ChainSource) {
	m.ChainStagesTotal.WithLabelValues(m.service, string(source)).Inc()
}

// Handler returns a Gin handler serving the Prometheus exposition endpoint.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
