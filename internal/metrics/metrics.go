// Package metrics registers the Prometheus instrumentation for the voice
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice pipeline.
type Metrics struct {
	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsEnded   prometheus.Counter

	// Buffer metrics
	ChunksReceived prometheus.Counter
	BufferedBytes  prometheus.Gauge

	// Utterance metrics
	UtterancesDispatched prometheus.Counter
	UtterancesAbandoned  prometheus.Counter
	UtteranceDuration    prometheus.Histogram

	// Speech service metrics
	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionLatency  prometheus.Histogram
	SynthesisRequests     prometheus.Counter
	SynthesisFailures     prometheus.Counter

	// Handler and playback metrics
	HandlerFailures  prometheus.Counter
	PlaybackStarted  prometheus.Counter
	PlaybackFailures prometheus.Counter
}

// New creates and registers all metrics on the given registerer. Tests pass
// a private registry so parallel constructions never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voice_active_sessions",
			Help: "Number of currently active voice sessions",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_sessions_created_total",
			Help: "Total number of voice sessions created",
		}),
		SessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_sessions_ended_total",
			Help: "Total number of voice sessions torn down",
		}),
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_chunks_received_total",
			Help: "Total number of PCM chunks received from the transport",
		}),
		BufferedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voice_buffered_bytes",
			Help: "Bytes of PCM audio currently buffered across all speakers",
		}),
		UtterancesDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_utterances_dispatched_total",
			Help: "Total number of utterances flushed to processing",
		}),
		UtterancesAbandoned: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_utterances_abandoned_total",
			Help: "Total number of utterances abandoned (empty transcript or lost session)",
		}),
		UtteranceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_utterance_duration_seconds",
			Help:    "Audio duration of dispatched utterances",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_transcription_latency_seconds",
			Help:    "Latency of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		SynthesisRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_synthesis_requests_total",
			Help: "Total number of synthesis requests sent",
		}),
		SynthesisFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_synthesis_failures_total",
			Help: "Total number of failed synthesis requests",
		}),
		HandlerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_handler_failures_total",
			Help: "Total number of message handler errors",
		}),
		PlaybackStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_playback_started_total",
			Help: "Total number of playback operations started",
		}),
		PlaybackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_playback_failures_total",
			Help: "Total number of failed playback operations",
		}),
	}
}
