package playbacktest

import (
	"sync"

	"github.com/osa030/talitunes/internal/app/playback"
)

// Recorder is a playback.Publisher that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []playback.Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records e.
func (r *Recorder) Publish(e playback.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns the recorded events.
func (r *Recorder) Events() []playback.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]playback.Event, len(r.events))
	copy(result, r.events)
	return result
}

// Types returns the types of the recorded events in order.
func (r *Recorder) Types() []playback.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]playback.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Count returns how many events of type t were recorded.
func (r *Recorder) Count(t playback.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Last returns the most recent event.
func (r *Recorder) Last() (playback.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return playback.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
