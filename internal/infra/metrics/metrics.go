// Package metrics provides Prometheus instrumentation for the player.
//
// All metrics are prefixed with "talitunes_" and registered on the Recorder's
// own registry, which the HTTP API exposes on /metrics.
package metrics

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/app/playback"
)

// Error kinds used as the "kind" label of talitunes_errors_total.
const (
	ErrorKindInvalidIndex      = "invalid_index"
	ErrorKindLoad              = "load"
	ErrorKindEngineUnavailable = "engine_unavailable"
	ErrorKindOther             = "other"
)

var (
	errorKinds = []string{ErrorKindInvalidIndex, ErrorKindLoad, ErrorKindEngineUnavailable, ErrorKindOther}
	states     = []playback.State{playback.StateStopped, playback.StatePlaying, playback.StatePaused}
)

// Recorder holds the player metrics.
type Recorder struct {
	registry *prometheus.Registry

	TracksStarted   prometheus.Counter
	TracksEnded     prometheus.Counter
	Seeks           prometheus.Counter
	Resets          prometheus.Counter
	Errors          *prometheus.CounterVec
	State           *prometheus.GaugeVec
	Volume          prometheus.Gauge
	PlaylistTracks  prometheus.Gauge
	PositionSeconds prometheus.Gauge
	TrackSeconds    prometheus.Gauge
	EventsObserved  *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry.
// Go runtime and process collectors are registered alongside the player metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	r := &Recorder{
		registry: reg,

		TracksStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "talitunes_tracks_started_total",
			Help: "Total number of tracks started",
		}),
		TracksEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "talitunes_tracks_ended_total",
			Help: "Total number of tracks that played to their end",
		}),
		Seeks: factory.NewCounter(prometheus.CounterOpts{
			Name: "talitunes_seeks_total",
			Help: "Total number of seeks",
		}),
		Resets: factory.NewCounter(prometheus.CounterOpts{
			Name: "talitunes_refreshes_total",
			Help: "Total number of player refreshes",
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talitunes_errors_total",
			Help: "Total number of failed commands by kind",
		}, []string{"kind"}),
		State: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "talitunes_playback_state",
			Help: "Current playback state (1 for the active state)",
		}, []string{"state"}),
		Volume: factory.NewGauge(prometheus.GaugeOpts{
			Name: "talitunes_volume",
			Help: "Current volume (0-100)",
		}),
		PlaylistTracks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "talitunes_playlist_tracks",
			Help: "Number of tracks in the playlist",
		}),
		PositionSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "talitunes_position_seconds",
			Help: "Playback position of the current track in seconds",
		}),
		TrackSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "talitunes_track_duration_seconds",
			Help: "Duration of the current track in seconds",
		}),
		EventsObserved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talitunes_events_total",
			Help: "Total number of playback events by type",
		}, []string{"type"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talitunes_events_dropped_total",
			Help: "Total number of events dropped for slow subscribers by type",
		}, []string{"type"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talitunes_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talitunes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "talitunes_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
	}
	r.initialize()
	return r
}

// initialize pre-populates label combinations so that every series is exported from the first scrape.
func (r *Recorder) initialize() {
	for _, kind := range errorKinds {
		r.Errors.WithLabelValues(kind)
	}
	for _, s := range states {
		r.State.WithLabelValues(s.String())
	}
	r.setState(playback.StateStopped)
}

// Registry returns the registry holding the metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe updates the metrics from a playback event.
func (r *Recorder) Observe(e playback.Event) {
	r.EventsObserved.WithLabelValues(e.Type.String()).Inc()

	switch e.Type {
	case playback.EventTrackStarted:
		r.TracksStarted.Inc()
		r.PositionSeconds.Set(0)
		if e.Track != nil {
			r.TrackSeconds.Set(e.Track.Duration.Seconds())
		}
	case playback.EventTrackEnded:
		r.TracksEnded.Inc()
	case playback.EventPosition, playback.EventSeeked:
		if e.Type == playback.EventSeeked {
			r.Seeks.Inc()
		}
		r.PositionSeconds.Set(float64(e.View.SliderValue) / 1000)
	case playback.EventError:
		r.Errors.WithLabelValues(ErrorKind(e.Err)).Inc()
	case playback.EventReset:
		r.Resets.Inc()
		r.PositionSeconds.Set(0)
		r.TrackSeconds.Set(0)
	}

	r.setState(e.State)
	r.Volume.Set(float64(e.View.Volume))
	r.PlaylistTracks.Set(float64(e.View.Tracks))
	if e.State == playback.StateStopped {
		r.PositionSeconds.Set(0)
	}
}

// ObserveDrop counts an event the hub could not deliver to a subscriber.
func (r *Recorder) ObserveDrop(_ string, e playback.Event) {
	r.EventsDropped.WithLabelValues(e.Type.String()).Inc()
}

// Run observes events from ch until ctx is done or ch is closed.
func (r *Recorder) Run(ctx context.Context, ch <-chan playback.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				zlog.Debug().Msg("metrics: event channel closed")
				return
			}
			r.Observe(e)
		}
	}
}

func (r *Recorder) setState(state playback.State) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		r.State.WithLabelValues(s.String()).Set(v)
	}
}

// ErrorKind classifies a controller error for the "kind" label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ErrorKindOther
	case errors.Is(err, playback.ErrInvalidIndex):
		return ErrorKindInvalidIndex
	case errors.Is(err, playback.ErrEngineUnavailable):
		return ErrorKindEngineUnavailable
	case errors.Is(err, playback.ErrLoad):
		return ErrorKindLoad
	default:
		return ErrorKindOther
	}
}
