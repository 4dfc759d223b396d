// Package playback provides the playback state machine driving a single audio engine.
package playback

// State represents the playback state.
type State int

const (
	StateStopped State = iota // Nothing loaded, or playback stopped
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Active reports whether a track is loaded and either playing or paused.
func (s State) Active() bool {
	return s == StatePlaying || s == StatePaused
}
