// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DraftSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draft_saves_total",
			Help: "Total number of durable draft writes",
		},
		[]string{"trigger"}, // "debounce" or "forced"
	)

	DraftSaveFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draft_save_failures_total",
			Help: "Total number of failed durable draft writes",
		},
		[]string{"trigger"},
	)

	DraftSaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "draft_save_duration_seconds",
			Help: "Duration of durable draft writes in seconds",
		},
	)

	ReferenceResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reference_resolutions_total",
			Help: "Total number of signed URL resolution attempts",
		},
		[]string{"result"}, // "ok" or "failed"
	)

	HandoffMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoff_merges_total",
			Help: "Total number of pending-asset merge attempts",
		},
		[]string{"result"}, // "merged", "duplicate", "empty", "deferred"
	)

	DraftsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "draft_sessions_open",
			Help: "Number of currently open draft sessions",
		},
	)
)
