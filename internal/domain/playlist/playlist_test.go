package playlist

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/talitunes/internal/domain/track"
)

func newPlaylist(paths ...string) *Playlist {
	p := New()
	p.Append(track.FromPaths(paths)...)
	return p
}

func TestPlaylist_Append(t *testing.T) {
	p := New()
	assert.True(t, p.IsEmpty())
	assert.Equal(t, NoIndex, p.CurrentIndex())

	p.Append(track.FromPaths([]string{"/a.mp3", "/b.mp3"})...)
	p.Append(track.New("/c.mp3"))

	assert.Equal(t, 3, p.Len())
	for i, want := range []string{"/a.mp3", "/b.mp3", "/c.mp3"} {
		got, err := p.Get(i)
		require.NoError(t, err)
		assert.Equal(t, want, got.Path)
	}
	assert.Equal(t, NoIndex, p.CurrentIndex(), "append must not move the current index")
}

func TestPlaylist_Append_KeepsCurrentIndex(t *testing.T) {
	p := newPlaylist("/a.mp3", "/b.mp3")
	require.NoError(t, p.SetCurrentIndex(1))

	p.Append(track.New("/c.mp3"))

	assert.Equal(t, 1, p.CurrentIndex())
}

func TestPlaylist_Get(t *testing.T) {
	p := newPlaylist("/a.mp3", "/b.mp3", "/c.mp3")

	tests := []struct {
		name    string
		index   int
		want    string
		wantErr bool
	}{
		{name: "first", index: 0, want: "/a.mp3"},
		{name: "last", index: 2, want: "/c.mp3"},
		{name: "negative", index: -1, wantErr: true},
		{name: "past end", index: 3, wantErr: true},
		{name: "far past end", index: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Get(tt.index)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrOutOfRange))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Path)
		})
	}
}

func TestPlaylist_SetCurrentIndex(t *testing.T) {
	p := newPlaylist("/a.mp3", "/b.mp3")

	assert.NoError(t, p.SetCurrentIndex(1))
	assert.NoError(t, p.SetCurrentIndex(NoIndex))
	assert.True(t, errors.Is(p.SetCurrentIndex(2), ErrOutOfRange))
	assert.True(t, errors.Is(p.SetCurrentIndex(-2), ErrOutOfRange))
	assert.Equal(t, NoIndex, p.CurrentIndex())
}

func TestPlaylist_Clear(t *testing.T) {
	p := newPlaylist("/a.mp3", "/b.mp3")
	require.NoError(t, p.SetCurrentIndex(1))

	p.Clear()

	assert.Equal(t, 0, p.Len())
	assert.Equal(t, NoIndex, p.CurrentIndex())
	assert.Empty(t, p.Tracks())
}

func TestPlaylist_Step(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		current int
		delta   int
		want    int
		wantOK  bool
	}{
		{name: "empty next", length: 0, current: NoIndex, delta: 1, want: NoIndex, wantOK: false},
		{name: "empty prev", length: 0, current: NoIndex, delta: -1, want: NoIndex, wantOK: false},
		{name: "no current next", length: 3, current: NoIndex, delta: 1, want: 0, wantOK: true},
		{name: "no current prev", length: 3, current: NoIndex, delta: -1, want: 1, wantOK: true},
		{name: "middle next", length: 3, current: 1, delta: 1, want: 2, wantOK: true},
		{name: "wrap forward", length: 3, current: 2, delta: 1, want: 0, wantOK: true},
		{name: "wrap backward", length: 3, current: 0, delta: -1, want: 2, wantOK: true},
		{name: "single track next", length: 1, current: 0, delta: 1, want: 0, wantOK: true},
		{name: "single track prev", length: 1, current: 0, delta: -1, want: 0, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			for i := 0; i < tt.length; i++ {
				p.Append(track.New("/t.mp3"))
			}
			require.NoError(t, p.SetCurrentIndex(tt.current))

			got, ok := p.Step(tt.delta)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlaylist_Step_Cycles(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for start := 0; start < n; start++ {
			p := New()
			for i := 0; i < n; i++ {
				p.Append(track.New("/t.mp3"))
			}
			require.NoError(t, p.SetCurrentIndex(start))

			for i := 0; i < n; i++ {
				next, ok := p.Step(1)
				require.True(t, ok)
				require.NoError(t, p.SetCurrentIndex(next))
			}
			assert.Equal(t, start, p.CurrentIndex(), "n=%d start=%d", n, start)
		}
	}
}

func TestPlaylist_Tracks_ReturnsCopy(t *testing.T) {
	p := newPlaylist("/a.mp3")

	tracks := p.Tracks()
	tracks[0].Path = "/changed.mp3"

	got, err := p.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "/a.mp3", got.Path)
}

func TestPlaylist_TotalDuration(t *testing.T) {
	p := New()
	p.Append(
		track.Track{Path: "/a.mp3", Duration: 2 * time.Minute},
		track.Track{Path: "/b.mp3", Duration: 3*time.Minute + 30*time.Second},
		track.Track{Path: "/c.mp3"},
	)

	assert.Equal(t, 5*time.Minute+30*time.Second, p.TotalDuration())
}

func TestPlaylist_SetDuration(t *testing.T) {
	p := newPlaylist("/a.mp3", "/b.mp3")
	assert.Equal(t, time.Duration(0), p.TotalDuration())

	require.NoError(t, p.SetDuration(1, 90*time.Second))
	got, err := p.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, got.Duration)
	assert.Equal(t, 90*time.Second, p.TotalDuration())

	assert.True(t, errors.Is(p.SetDuration(2, time.Second), ErrOutOfRange))
	assert.True(t, errors.Is(p.SetDuration(NoIndex, time.Second), ErrOutOfRange))
}
