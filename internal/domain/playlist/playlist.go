// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/talitunes/internal/domain/track"
)

// NoIndex is the current index of a playlist with no selected track.
const NoIndex = -1

// ErrOutOfRange is returned when an index does not refer to a playlist entry.
var ErrOutOfRange = errors.New("playlist index out of range")

// Playlist is an ordered list of tracks with a single current-index pointer.
// It is not safe for concurrent use; the playback controller serializes access.
type Playlist struct {
	tracks  []track.Track
	current int
}

// New creates an empty playlist.
func New() *Playlist {
	return &Playlist{
		tracks:  make([]track.Track, 0),
		current: NoIndex,
	}
}

// Append adds tracks to the end of the playlist in the given order.
// The current index is left untouched.
func (p *Playlist) Append(tracks ...track.Track) {
	p.tracks = append(p.tracks, tracks...)
}

// Clear removes all tracks and resets the current index.
func (p *Playlist) Clear() {
	p.tracks = make([]track.Track, 0)
	p.current = NoIndex
}

// Get returns the track at index.
func (p *Playlist) Get(index int) (track.Track, error) {
	if index < 0 || index >= len(p.tracks) {
		return track.Track{}, errors.Wrapf(ErrOutOfRange, "index %d (length %d)", index, len(p.tracks))
	}
	return p.tracks[index], nil
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// IsEmpty returns true if the playlist has no tracks.
func (p *Playlist) IsEmpty() bool {
	return len(p.tracks) == 0
}

// CurrentIndex returns the current index, or NoIndex.
func (p *Playlist) CurrentIndex() int {
	return p.current
}

// SetCurrentIndex sets the current index. index must be in [NoIndex, Len()-1].
func (p *Playlist) SetCurrentIndex(index int) error {
	if index < NoIndex || index >= len(p.tracks) {
		return errors.Wrapf(ErrOutOfRange, "current index %d (length %d)", index, len(p.tracks))
	}
	p.current = index
	return nil
}

// Step returns the index delta positions away from the current one,
// wrapping around in both directions. It returns false on an empty playlist.
func (p *Playlist) Step(delta int) (int, bool) {
	n := len(p.tracks)
	if n == 0 {
		return NoIndex, false
	}
	i := (p.current + delta) % n
	if i < 0 {
		i += n
	}
	return i, true
}

// Tracks returns a copy of the tracks.
func (p *Playlist) Tracks() []track.Track {
	result := make([]track.Track, len(p.tracks))
	copy(result, p.tracks)
	return result
}

// SetDuration records the duration of the track at index once it is known.
func (p *Playlist) SetDuration(index int, d time.Duration) error {
	if index < 0 || index >= len(p.tracks) {
		return errors.Wrapf(ErrOutOfRange, "index %d (length %d)", index, len(p.tracks))
	}
	p.tracks[index].Duration = d
	return nil
}

// TotalDuration returns the sum of the known track durations.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.tracks {
		total += t.Duration
	}
	return total
}
