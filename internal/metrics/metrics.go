package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsguard",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Number of reconcile runs by outcome.",
		}, []string{"outcome"},
	)
	launches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wsguard",
			Subsystem: "reconcile",
			Name:      "launches_total",
			Help:      "Number of collector instances launched.",
		},
	)
	duplicatesKilled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wsguard",
			Subsystem: "reconcile",
			Name:      "duplicates_killed_total",
			Help:      "Number of duplicate collector instances signaled.",
		},
	)
	observedInstances = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wsguard",
			Subsystem: "reconcile",
			Name:      "observed_instances",
			Help:      "Instance count observed by the most recent run.",
		},
	)
	reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wsguard",
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Wall time of a reconcile run.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{reconcileRuns, launches, duplicatesKilled, observedInstances, reconcileDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op if Register hasn't been called.

func IncRun(outcome string) {
	if regOK.Load() {
		reconcileRuns.WithLabelValues(outcome).Inc()
	}
}

func IncLaunch() {
	if regOK.Load() {
		launches.Inc()
	}
}

func IncDuplicateKilled() {
	if regOK.Load() {
		duplicatesKilled.Inc()
	}
}

func SetObservedInstances(n int) {
	if regOK.Load() {
		observedInstances.Set(float64(n))
	}
}

func ObserveDuration(seconds float64) {
	if regOK.Load() {
		reconcileDuration.Observe(seconds)
	}
}
