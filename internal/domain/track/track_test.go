package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "absolute path",
			path:     "/music/album/01 - Intro.mp3",
			expected: "01 - Intro.mp3",
		},
		{
			name:     "relative path",
			path:     "songs/track.flac",
			expected: "track.flac",
		},
		{
			name:     "bare file name",
			path:     "a.wav",
			expected: "a.wav",
		},
		{
			name:     "empty path",
			path:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(tt.path)
			assert.Equal(t, tt.path, tr.Path)
			assert.Equal(t, tt.expected, tr.Name)
			assert.False(t, tr.HasDuration())
		})
	}
}

func TestFromPaths(t *testing.T) {
	tracks := FromPaths([]string{"/a.mp3", "/b.ogg", "/c.flac"})

	assert.Len(t, tracks, 3)
	assert.Equal(t, "a.mp3", tracks[0].Name)
	assert.Equal(t, "b.ogg", tracks[1].Name)
	assert.Equal(t, "c.flac", tracks[2].Name)
}

func TestHasExtension(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		extensions []string
		expected   bool
	}{
		{
			name:       "lower case match",
			path:       "/x/song.mp3",
			extensions: DefaultExtensions,
			expected:   true,
		},
		{
			name:       "upper case file",
			path:       "/x/SONG.FLAC",
			extensions: DefaultExtensions,
			expected:   true,
		},
		{
			name:       "dotted extension list",
			path:       "/x/song.ogg",
			extensions: []string{".ogg"},
			expected:   true,
		},
		{
			name:       "unsupported",
			path:       "/x/cover.jpg",
			extensions: DefaultExtensions,
			expected:   false,
		},
		{
			name:       "no extension",
			path:       "/x/README",
			extensions: DefaultExtensions,
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasExtension(tt.path, tt.extensions))
		})
	}
}

func TestTrack_Ext(t *testing.T) {
	tr := Track{Path: "/music/Song.WAV", Duration: 3 * time.Minute}
	assert.Equal(t, "wav", tr.Ext())
	assert.True(t, tr.HasDuration())
}
