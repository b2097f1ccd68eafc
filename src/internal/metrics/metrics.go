// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package metrics provides Prometheus instrumentation for the diagnostics.
// It counts probes by kind and outcome, observes probe durations, tallies
// reported oddities, and tracks CRL cache effectiveness.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace is the Prometheus namespace for all diagnostics metrics.
	Namespace = "eapdiag"

	// Label names
	LabelKind    = "kind"
	LabelOutcome = "outcome"
	LabelOddity  = "oddity"
	LabelResult  = "result"

	// Probe kinds
	KindReachability = "reachability"
	KindLogin        = "login"
	KindTLSCAPath    = "tls_capath"
	KindTLSClient    = "tls_client"
	KindAnalyze      = "analyze"

	// CRL cache lookup results
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Registry holds every diagnostics collector. It is separate from the
// default registerer so embedding programs do not see these series unless
// they serve [Handler].
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	// ProbesTotal counts finished probes by kind and outcome.
	ProbesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "probes_total",
			Help:      "Total number of diagnostic probes by kind and outcome",
		},
		[]string{LabelKind, LabelOutcome},
	)

	// ProbeDuration observes probe wall time in seconds. Buckets cover the
	// range between an immediate reject and a supplicant timeout.
	ProbeDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "probe_duration_seconds",
			Help:      "Duration of diagnostic probes in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{LabelKind},
	)

	// OdditiesTotal counts reported oddities by identifier.
	OdditiesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "oddities_total",
			Help:      "Total number of reported oddities by identifier",
		},
		[]string{LabelOddity},
	)

	// CRLCacheRequestsTotal counts CRL cache lookups by result.
	CRLCacheRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "crl_cache_requests_total",
			Help:      "Total number of CRL cache lookups by result",
		},
		[]string{LabelResult},
	)

	// CRLCacheEntries is the number of CRLs held by the most recently
	// changed cache.
	CRLCacheEntries = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "crl_cache_entries",
			Help:      "Number of CRLs held in the cache",
		},
	)

	// CRLCacheBytes approximates the memory held by cached CRLs.
	CRLCacheBytes = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "crl_cache_bytes",
			Help:      "Approximate memory held by cached CRLs in bytes",
		},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordProbe records one finished probe.
//
// Example:
//
//	start := time.Now()
//	res, err := s.UDPLogin(ctx, req)
//	metrics.RecordProbe(metrics.KindLogin, string(res.Outcome), time.Since(start))
func RecordProbe(kind, outcome string, duration time.Duration) {
	if !enabled.Load() {
		return
	}
	ProbesTotal.WithLabelValues(kind, outcome).Inc()
	ProbeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordOddities increments the counter of each given oddity identifier.
func RecordOddities[T ~string](oddities ...T) {
	if !enabled.Load() {
		return
	}
	for _, o := range oddities {
		OdditiesTotal.WithLabelValues(string(o)).Inc()
	}
}

// RecordCRLCacheLookup records a CRL cache hit or miss.
func RecordCRLCacheLookup(hit bool) {
	if !enabled.Load() {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	CRLCacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordCRLCacheSize sets the CRL cache size gauges.
func RecordCRLCacheSize(entries int, bytes int64) {
	if !enabled.Load() {
		return
	}
	CRLCacheEntries.Set(float64(entries))
	CRLCacheBytes.Set(float64(bytes))
}

// Enable enables metrics collection.
func Enable() { enabled.Store(true) }

// Disable disables metrics collection.
func Disable() { enabled.Store(false) }

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool { return enabled.Load() }

// Handler returns the HTTP handler exposing [Registry].
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Serve exposes [Handler] on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
