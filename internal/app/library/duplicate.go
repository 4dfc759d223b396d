package library

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/osa030/talitunes/internal/domain/track"
)

// TrackSource gives access to the tracks already in the playlist.
type TrackSource interface {
	GetTracks() []track.Track
}

// DuplicateTrackFilter rejects files that are already in the playlist or
// were already accepted earlier in the same scan.
type DuplicateTrackFilter struct {
	mu     sync.Mutex
	source TrackSource
	seen   map[string]bool
}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter(source TrackSource) *DuplicateTrackFilter {
	return &DuplicateTrackFilter{source: source}
}

func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

func (f *DuplicateTrackFilter) Description() string {
	return "Skips files that are already in the playlist"
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(map[string]any) error {
	// No configuration needed
	return nil
}

func (f *DuplicateTrackFilter) AppliesToExplicit() bool {
	return true
}

// Begin resets the per-scan state from the current playlist.
func (f *DuplicateTrackFilter) Begin() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = make(map[string]bool)
	if f.source == nil {
		return
	}
	for _, t := range f.source.GetTracks() {
		f.seen[normalizePath(t.Path)] = true
	}
}

func (f *DuplicateTrackFilter) Check(_ context.Context, c *Candidate) Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	key := normalizePath(c.Path)
	if f.seen[key] {
		return Reject(CodeDuplicate)
	}
	f.seen[key] = true
	return Accept()
}

func normalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return NewDuplicateTrackFilter(nil)
	})
}
