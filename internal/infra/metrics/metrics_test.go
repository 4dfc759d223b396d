package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/talitunes/internal/app/playback"
	"github.com/osa030/talitunes/internal/domain/track"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: ErrorKindOther},
		{name: "invalid index", err: errors.Mark(errors.New("out of range"), playback.ErrInvalidIndex), expected: ErrorKindInvalidIndex},
		{name: "load", err: errors.Wrap(playback.ErrLoad, "a.mp3"), expected: ErrorKindLoad},
		{name: "engine", err: errors.Wrap(playback.ErrEngineUnavailable, "closed"), expected: ErrorKindEngineUnavailable},
		{name: "other", err: errors.New("pause failed"), expected: ErrorKindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorKind(tt.err))
		})
	}
}

func TestRecorder_Initialized(t *testing.T) {
	r := NewRecorder()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.State.WithLabelValues("stopped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.State.WithLabelValues("playing")))
	assert.Equal(t, len(errorKinds), testutil.CollectAndCount(r.Errors))
}

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()
	cur := &track.Track{Path: "/music/a.mp3", Name: "a.mp3", Duration: 3 * time.Minute}

	r.Observe(playback.Event{
		Type:  playback.EventTrackStarted,
		State: playback.StatePlaying,
		Track: cur,
		View:  playback.View{Volume: 70, Tracks: 3},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TracksStarted))
	assert.Equal(t, 180.0, testutil.ToFloat64(r.TrackSeconds))
	assert.Equal(t, 70.0, testutil.ToFloat64(r.Volume))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.PlaylistTracks))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.State.WithLabelValues("playing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.State.WithLabelValues("stopped")))

	r.Observe(playback.Event{
		Type:  playback.EventPosition,
		State: playback.StatePlaying,
		View:  playback.View{SliderValue: 42500, Volume: 70, Tracks: 3},
	})
	assert.Equal(t, 42.5, testutil.ToFloat64(r.PositionSeconds))

	r.Observe(playback.Event{
		Type:  playback.EventSeeked,
		State: playback.StatePaused,
		View:  playback.View{SliderValue: 10000, Volume: 70, Tracks: 3},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Seeks))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.PositionSeconds))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.State.WithLabelValues("paused")))

	r.Observe(playback.Event{
		Type:  playback.EventError,
		State: playback.StateStopped,
		Err:   errors.Wrap(playback.ErrLoad, "b.mp3"),
		View:  playback.View{Volume: 70, Tracks: 3},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Errors.WithLabelValues(ErrorKindLoad)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.PositionSeconds))

	r.Observe(playback.Event{Type: playback.EventReset, State: playback.StateStopped})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Resets))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.TrackSeconds))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.PlaylistTracks))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.EventsObserved.WithLabelValues("track_started")))
}

func TestRecorder_ObserveDrop(t *testing.T) {
	r := NewRecorder()

	r.ObserveDrop("sub-1", playback.Event{Type: playback.EventPosition})
	r.ObserveDrop("sub-2", playback.Event{Type: playback.EventPosition})
	r.ObserveDrop("sub-1", playback.Event{Type: playback.EventStatus})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.EventsDropped.WithLabelValues("position")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.EventsDropped.WithLabelValues("status")))
}

func TestRecorder_Run(t *testing.T) {
	r := NewRecorder()
	ch := make(chan playback.Event, 2)
	ch <- playback.Event{Type: playback.EventTrackEnded, State: playback.StatePlaying}
	ch <- playback.Event{Type: playback.EventTrackStarted, State: playback.StatePlaying}
	close(ch)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), ch)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the channel was closed")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TracksEnded))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TracksStarted))
}

func TestRecorder_RunStopsOnCancel(t *testing.T) {
	r := NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, make(chan playback.Event))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRecorder_Exposition(t *testing.T) {
	r := NewRecorder()
	r.Observe(playback.Event{Type: playback.EventTrackStarted, State: playback.StatePlaying, View: playback.View{Volume: 55}})

	expected := `
# HELP talitunes_volume Current volume (0-100)
# TYPE talitunes_volume gauge
talitunes_volume 55
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "talitunes_volume"))
}
