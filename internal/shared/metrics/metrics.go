package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	sessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scalp",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Diagnosis sessions started.",
		},
		[]string{"guest"},
	)

	stageTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scalp",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Stage transitions by source and target stage.",
		},
		[]string{"from", "to"},
	)

	analysisOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scalp",
			Subsystem: "analysis",
			Name:      "attempts_total",
			Help:      "Analysis attempts by gender and outcome.",
		},
		[]string{"gender", "outcome"},
	)

	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scalp",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Latency of diagnosis backend calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"backend", "outcome"},
	)

	imageUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scalp",
			Subsystem: "images",
			Name:      "uploads_total",
			Help:      "Background image uploads by outcome.",
		},
		[]string{"outcome"},
	)

	imageRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scalp",
			Subsystem: "images",
			Name:      "rejections_total",
			Help:      "Images rejected before acceptance, by reason.",
		},
		[]string{"reason"},
	)

	gateOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scalp",
			Subsystem: "gate",
			Name:      "outcomes_total",
			Help:      "Completion gate decisions.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		sessionsStarted,
		stageTransitions,
		analysisOutcomes,
		dispatchDuration,
		imageUploads,
		imageRejections,
		gateOutcomes,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// IncSessionStarted counts a new session.
func IncSessionStarted(guest bool) {
	label := "false"
	if guest {
		label = "true"
	}
	sessionsStarted.WithLabelValues(label).Inc()
}

// IncTransition counts a stage transition.
func IncTransition(from, to string) {
	stageTransitions.WithLabelValues(from, to).Inc()
}

// IncAnalysis counts a finished analysis attempt.
func IncAnalysis(gender, outcome string) {
	analysisOutcomes.WithLabelValues(gender, outcome).Inc()
}

// ObserveDispatch records a backend call.
func ObserveDispatch(backend, outcome string, d time.Duration) {
	dispatchDuration.WithLabelValues(backend, outcome).Observe(d.Seconds())
}

// IncUpload counts a background upload outcome.
func IncUpload(outcome string) {
	imageUploads.WithLabelValues(outcome).Inc()
}

// IncImageRejected counts an image rejected at acceptance.
func IncImageRejected(reason string) {
	imageRejections.WithLabelValues(reason).Inc()
}

// IncGate counts a completion gate decision.
func IncGate(outcome string) {
	gateOutcomes.WithLabelValues(outcome).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
