// Package metrics holds Prometheus instruments that are used across the
// update pipeline.  All collectors are registered with the global registry,
// so importing this package in main.go is enough to expose them on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GeneratorCallsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generator_calls_total",
			Help: "Cumulative number of external generator invocations.",
		})

	GeneratorErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generator_errors_total",
			Help: "Generator invocations that failed or timed out.",
		})

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_rejections_total",
			Help: "Update attempts rejected because the daily limit was reached.",
		})

	SnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshots_total",
			Help: "Automatic pre-write snapshots captured.",
		})

	RestoresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "restores_total",
			Help: "Snapshot restores performed.",
		})

	SanitizerFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanitizer_findings_total",
			Help: "Dangerous patterns seen in generated markup, by category.",
		}, []string{"category"})

	SessionsPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wizard_sessions_purged_total",
			Help: "Stale intake sessions removed by the retention loop.",
		})
)

func init() {
	prometheus.MustRegister(
		GeneratorCallsTotal,
		GeneratorErrorsTotal,
		QuotaRejectionsTotal,
		SnapshotsTotal,
		RestoresTotal,
		SanitizerFindingsTotal,
		SessionsPurgedTotal,
	)
}
