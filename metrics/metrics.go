package metrics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector captures metrics for acceptance runs and API checks.
type Collector struct {
	registry      *prometheus.Registry
	runsTotal     *prometheus.CounterVec
	stepsTotal    *prometheus.CounterVec
	checksTotal   *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	checkDuration *prometheus.HistogramVec
	successRate   *prometheus.GaugeVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "acceptance_runs_total", Help: "Total number of procedure runs"},
			[]string{"suite", "status"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "acceptance_steps_total", Help: "Total number of recorded steps"},
			[]string{"suite", "status"},
		),
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "acceptance_api_checks_total", Help: "Total number of API checks"},
			[]string{"suite", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acceptance_run_duration_seconds",
				Help:    "Procedure run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"suite", "status"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acceptance_api_check_duration_seconds",
				Help:    "API check duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"suite", "status"},
		),
		successRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "acceptance_success_ratio", Help: "Share of successful steps or checks in the last run of a suite"},
			[]string{"suite"},
		),
	}
	registry.MustRegister(c.runsTotal, c.stepsTotal, c.checksTotal, c.runDuration, c.checkDuration, c.successRate)
	return c
}

// ObserveRun records a finished procedure run.
func (c *Collector) ObserveRun(suite, status string, duration time.Duration) {
	c.runsTotal.WithLabelValues(suite, status).Inc()
	c.runDuration.WithLabelValues(suite, status).Observe(duration.Seconds())
}

func (c *Collector) ObserveStep(suite, status string) {
	c.stepsTotal.WithLabelValues(suite, status).Inc()
}

func (c *Collector) ObserveCheck(suite, status string, duration time.Duration) {
	c.checksTotal.WithLabelValues(suite, status).Inc()
	c.checkDuration.WithLabelValues(suite, status).Observe(duration.Seconds())
}

// SetSuccessRatio stores ratio in [0,1] for suite.
func (c *Collector) SetSuccessRatio(suite string, ratio float64) {
	c.successRate.WithLabelValues(suite).Set(ratio)
}

// Write writes all metrics to a Prometheus text file.
func (c *Collector) Write(path string) error {
	metricFamilies, err := c.registry.Gather()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range metricFamilies {
		if err := enc.Encode(family); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare metrics directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
