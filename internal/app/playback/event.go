package playback

import "github.com/osa030/talitunes/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted    EventType = iota // Track loaded and playing
	EventTrackEnded                       // Track finished naturally
	EventStateChanged                     // Playback state changed (pause/resume/stop)
	EventPosition                         // Progress tick while playing
	EventSeeked                           // Position moved by a seek
	EventVolumeChanged                    // Volume changed
	EventPlaylistChanged                  // Tracks added or playlist cleared
	EventStatus                           // Status message changed
	EventError                            // A command failed
	EventReset                            // Projection reset by refresh
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventStateChanged:
		return "state_changed"
	case EventPosition:
		return "position"
	case EventSeeked:
		return "seeked"
	case EventVolumeChanged:
		return "volume_changed"
	case EventPlaylistChanged:
		return "playlist_changed"
	case EventStatus:
		return "status"
	case EventError:
		return "error"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// View is the UI projection maintained by the controller.
// Front ends render it as they see fit.
type View struct {
	NowPlaying  string `json:"now_playing"`
	Status      string `json:"status"`
	Elapsed     string `json:"elapsed"`      // MM:SS
	Total       string `json:"total"`        // MM:SS
	SliderMax   int64  `json:"slider_max"`   // Track length in ms
	SliderValue int64  `json:"slider_value"` // Position in ms
	ShowPause   bool   `json:"show_pause"`   // Play button shows the pause icon
	Volume      int    `json:"volume"`
	Index       int    `json:"index"`
	State       State  `json:"-"`
	StateName   string `json:"state"`
	Tracks      int    `json:"tracks"`
}

// Event represents a playback event.
type Event struct {
	Seq   uint64       // Assigned by the publisher
	Type  EventType
	State State        // Playback state after the change
	Index int          // Current playlist index
	Track *track.Track // Current track (nil when none)
	View  View         // Projection snapshot after the change
	Err   error        // Set for EventError
}

// Publisher receives controller events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

// Publish calls f(e).
func (f PublisherFunc) Publish(e Event) { f(e) }

type discardPublisher struct{}

func (discardPublisher) Publish(Event) {}
