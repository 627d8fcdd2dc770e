package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "txengine"

var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broadcast",
		Name:      "submissions_total",
		Help:      "Raw transaction submissions, by result (ok / error)",
	}, []string{"result"})

	Outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "confirm",
		Name:      "outcomes_total",
		Help:      "Terminal confirmation results, by outcome and by the watcher that produced them",
	}, []string{"outcome", "source"})

	ConfirmSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "confirm",
		Name:      "duration_seconds",
		Help:      "Time from first submission to terminal result",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9),
	}, []string{"outcome"})

	PriorityFee = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "fee",
		Name:      "priority_fee_micro_lamports",
		Help:      "Last selected priority fee (micro-lamports per compute unit)",
	})

	FeeFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fee",
		Name:      "fallbacks_total",
		Help:      "Times the default fee was used instead of the sampled median, by reason",
	}, []string{"reason"})
)
