package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicenav_commands_total",
			Help: "Total number of commands resolved, by intent and result source",
		},
		[]string{"intent", "source"},
	)

	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicenav_fallback_total",
			Help: "Total number of classifications answered by the rule engine, by reason",
		},
		[]string{"reason"},
	)

	ClassifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voicenav_classify_duration_seconds",
			Help:    "Duration of model classification calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"provider"},
	)

	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicenav_actions_total",
			Help: "Total number of dispatched actions, by action and outcome",
		},
		[]string{"action", "success"},
	)
)
