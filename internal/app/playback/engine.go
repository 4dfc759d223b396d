package playback

import "time"

// Engine decodes and outputs exactly one active track at a time.
// The controller is its only caller and never issues calls concurrently.
type Engine interface {
	// Init acquires the output device. It is called on startup and on refresh.
	Init() error
	// Close releases the output device and any loaded track.
	Close() error

	// Load opens path and makes it the active track, replacing any previous one.
	// onEnd is invoked asynchronously, from outside the caller's goroutine,
	// when the track plays to its natural end.
	Load(path string, onEnd func()) error
	Play() error
	Pause() error
	Resume() error
	Stop() error

	// SetVolume sets the output level in [0.0, 1.0].
	SetVolume(v float64) error
	Seek(pos time.Duration) error
	Position() time.Duration

	// Duration reports the length of path without touching the active track.
	Duration(path string) (time.Duration, error)
}
