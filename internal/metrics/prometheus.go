// Package metrics exposes round-trip counters and stage latencies to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names used as the "stage" label.
const (
	StageTranscribe = "transcribe"
	StageComplete   = "complete"
	StageParse      = "parse"
	StageSynthesize = "synthesize"
	StagePlay       = "play"
)

// Outcome labels of a round trip.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeBusy   = "busy"
	OutcomeEmpty  = "empty"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	RoundTrips    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec
	Recordings    prometheus.Counter
	HistoryTurns  prometheus.Gauge
	ReplyEmotions *prometheus.CounterVec
	InFlight      prometheus.Gauge
}

// New creates the collectors on a private registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		RoundTrips: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emovox_round_trips_total",
			Help: "Round trips by outcome",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "emovox_stage_duration_seconds",
			Help:    "Latency of each round-trip stage",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"stage"}),
		StageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emovox_stage_errors_total",
			Help: "Failed round-trip stages",
		}, []string{"stage"}),
		Recordings: f.NewCounter(prometheus.CounterOpts{
			Name: "emovox_recordings_total",
			Help: "Captured recordings handed to the pipeline",
		}),
		HistoryTurns: f.NewGauge(prometheus.GaugeOpts{
			Name: "emovox_history_turns",
			Help: "Turns in the session history",
		}),
		ReplyEmotions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emovox_reply_emotions_total",
			Help: "Dominant emotion of parsed replies",
		}, []string{"emotion"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "emovox_round_trip_in_flight",
			Help: "1 while a round trip is running",
		}),
	}
}

// ObserveStage records the latency of a stage and counts it as failed when err
// is non-nil.
func (m *Metrics) ObserveStage(stage string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StageErrors.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) RoundTrip(outcome string) {
	if m == nil {
		return
	}
	m.RoundTrips.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Recorded() {
	if m == nil {
		return
	}
	m.Recordings.Inc()
}

func (m *Metrics) Reply(emotion string, historyLen int) {
	if m == nil {
		return
	}
	m.ReplyEmotions.WithLabelValues(emotion).Inc()
	m.HistoryTurns.Set(float64(historyLen))
}

func (m *Metrics) SetInFlight(running bool) {
	if m == nil {
		return
	}
	if running {
		m.InFlight.Set(1)
	} else {
		m.InFlight.Set(0)
	}
}
