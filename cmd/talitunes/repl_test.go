package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/talitunes/internal/app/library"
	"github.com/osa030/talitunes/internal/app/playback"
	"github.com/osa030/talitunes/internal/app/playback/playbacktest"
)

type sliceReader struct {
	lines   []string
	prompts []string
	err     error
}

func (r *sliceReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		if r.err != nil {
			return "", r.err
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *sliceReader) SetPrompt(prompt string) { r.prompts = append(r.prompts, prompt) }

func (r *sliceReader) Close() error { return nil }

type shellFixture struct {
	shell  *Shell
	ctrl   *playback.Controller
	engine *playbacktest.Engine
	out    *bytes.Buffer
}

func newShellFixture(t *testing.T, confirmClear bool) *shellFixture {
	t.Helper()

	eng := playbacktest.NewEngine()
	eng.SetDuration("/music/a.mp3", 3*time.Minute)
	eng.SetDuration("/music/b.mp3", 4*time.Minute)
	ctrl, err := playback.NewController(eng, nil, playback.Config{Volume: 70, ProgressInterval: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close() })

	adder := func(_ context.Context, args []string) (library.ScanResult, int, error) {
		var result library.ScanResult
		for _, a := range args {
			if strings.HasSuffix(a, ".mp3") {
				result.Paths = append(result.Paths, a)
			} else {
				result.Rejected = append(result.Rejected, library.Rejection{Path: a, Code: library.CodeExtension})
			}
		}
		return result, ctrl.AddFiles(result.Paths), nil
	}

	out := &bytes.Buffer{}
	return &shellFixture{
		shell:  NewShell(ctrl, adder, out, confirmClear),
		ctrl:   ctrl,
		engine: eng,
		out:    out,
	}
}

func (f *shellFixture) exec(t *testing.T, line string) string {
	t.Helper()
	f.out.Reset()
	assert.False(t, f.shell.Execute(context.Background(), line))
	return f.out.String()
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{name: "empty", line: "   "},
		{name: "words", line: "add  a.mp3\tb.mp3", want: []string{"add", "a.mp3", "b.mp3"}},
		{name: "double quotes", line: `add "My Music/a b.mp3"`, want: []string{"add", "My Music/a b.mp3"}},
		{name: "single quotes keep backslash", line: `add 'C:\music'`, want: []string{"add", `C:\music`}},
		{name: "escaped space", line: `add a\ b.mp3`, want: []string{"add", "a b.mp3"}},
		{name: "empty quoted arg", line: `add ""`, want: []string{"add", ""}},
		{name: "unterminated quote", line: `add "a.mp3`, wantErr: true},
		{name: "trailing backslash", line: `add a\`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"play", "play", true},
		{"PLAY", "play", true},
		{"ls", "list", true},
		{"n", "next", true},
		{"p", "prev", true},
		{"volume", "vol", true},
		{"?", "help", true},
		{"exit", "quit", true},
		{"rewind", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, ok := lookupCommand(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, cmd.name)
		})
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----------]", progressBar(0, 0, 10))
	assert.Equal(t, "[----------]", progressBar(0, 1000, 10))
	assert.Equal(t, "[=====-----]", progressBar(500, 1000, 10))
	assert.Equal(t, "[==========]", progressBar(2000, 1000, 10))
}

func TestShell_AddListPlay(t *testing.T) {
	f := newShellFixture(t, false)

	out := f.exec(t, "add /music/a.mp3 /music/b.mp3 /music/notes.txt")
	assert.Contains(t, out, "skipped /music/notes.txt (unsupported_extension)")
	assert.Contains(t, out, "added 2 track(s), 2 in playlist")

	out = f.exec(t, "play 2")
	assert.Equal(t, "/music/b.mp3", f.engine.Loaded())
	assert.Contains(t, out, "[playing] Now Playing: b.mp3")
	assert.Contains(t, out, "00:00 / 04:00")

	out = f.exec(t, "list")
	assert.Contains(t, out, "    1. a.mp3")
	assert.Contains(t, out, "*   2. b.mp3 [04:00]\n")
	assert.Contains(t, out, "2 track(s), 04:00 loaded so far")

	out = f.exec(t, "pause")
	assert.Equal(t, playback.StatePaused, f.ctrl.GetState())
	assert.Contains(t, out, "[paused]")

	out = f.exec(t, "pause")
	assert.Equal(t, "not playing\n", out)

	f.exec(t, "play")
	assert.Equal(t, playback.StatePlaying, f.ctrl.GetState())

	f.exec(t, "next")
	assert.Equal(t, 0, f.ctrl.GetCurrentIndex())
	f.exec(t, "prev")
	assert.Equal(t, 1, f.ctrl.GetCurrentIndex())

	out = f.exec(t, "seek 1:30")
	assert.Contains(t, out, "01:30 / 04:00")

	f.exec(t, "stop")
	assert.Equal(t, playback.StateStopped, f.ctrl.GetState())
}

func TestShell_Errors(t *testing.T) {
	f := newShellFixture(t, false)
	f.exec(t, "add /music/a.mp3")

	tests := []struct {
		line string
		want string
	}{
		{"play 5", "error: "},
		{"play x", "usage: play [n]"},
		{"play 1 2", "usage: play [n]"},
		{"seek", "usage: seek"},
		{"seek soon", "error: "},
		{"vol loud", "usage: vol"},
		{"add", "usage: add"},
		{"rewind", "unknown command: rewind"},
		{`add "x`, "error: invalid command line"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Contains(t, f.exec(t, tt.line), tt.want)
		})
	}
}

func TestShell_Volume(t *testing.T) {
	f := newShellFixture(t, false)

	assert.Equal(t, "volume 70\n", f.exec(t, "vol"))
	assert.Equal(t, "volume 100\n", f.exec(t, "vol 150"))
	assert.Equal(t, "volume 0\n", f.exec(t, "volume -3"))
	assert.Equal(t, 0, f.ctrl.GetVolume())
}

func TestShell_ClearConfirmation(t *testing.T) {
	tests := []struct {
		name         string
		confirmClear bool
		answers      []string
		wantTracks   int
	}{
		{name: "no confirmation", confirmClear: false, wantTracks: 0},
		{name: "confirmed", confirmClear: true, answers: []string{"y"}, wantTracks: 0},
		{name: "confirmed yes", confirmClear: true, answers: []string{" YES "}, wantTracks: 0},
		{name: "declined", confirmClear: true, answers: []string{"n"}, wantTracks: 1},
		{name: "default is no", confirmClear: true, answers: []string{""}, wantTracks: 1},
		{name: "no answer", confirmClear: true, wantTracks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newShellFixture(t, tt.confirmClear)
			f.exec(t, "add /music/a.mp3")

			reader := &sliceReader{lines: tt.answers}
			f.shell.reader = reader

			out := f.exec(t, "clear")
			assert.Len(t, f.ctrl.GetTracks(), tt.wantTracks)
			if tt.wantTracks > 0 {
				assert.Contains(t, out, "cancelled")
			} else {
				assert.Contains(t, out, "Playlist cleared")
			}
			if tt.confirmClear {
				assert.Equal(t, []string{"Clear the playlist? [y/N] ", defaultPrompt}, reader.prompts)
			}
		})
	}
}

func TestShell_Run(t *testing.T) {
	tests := []struct {
		name    string
		reader  *sliceReader
		wantErr bool
	}{
		{name: "quit", reader: &sliceReader{lines: []string{"add /music/a.mp3", "status", "quit", "play 1"}}},
		{name: "end of input", reader: &sliceReader{lines: []string{"add /music/a.mp3"}}},
		{name: "interrupt", reader: &sliceReader{lines: []string{"add /music/a.mp3"}, err: readline.ErrInterrupt}},
		{name: "read error", reader: &sliceReader{err: errors.New("tty gone")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newShellFixture(t, false)

			err := f.shell.Run(context.Background(), tt.reader)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, f.ctrl.GetTracks(), 1)
			assert.Equal(t, playback.StateStopped, f.ctrl.GetState(), "commands after quit are not run")
		})
	}
}

func TestShell_RunStopsOnCancelledContext(t *testing.T) {
	f := newShellFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &sliceReader{lines: []string{"add /music/a.mp3"}}
	require.NoError(t, f.shell.Run(ctx, reader))
	assert.Empty(t, f.ctrl.GetTracks())
}

func TestShell_Help(t *testing.T) {
	f := newShellFixture(t, false)

	out := f.exec(t, "help")
	for _, c := range shellCommands {
		assert.Contains(t, out, c.usage)
	}
	assert.True(t, f.shell.Execute(context.Background(), "q"))
}

func TestRenderView(t *testing.T) {
	var buf bytes.Buffer
	renderView(&buf, playback.View{
		NowPlaying:  "Now Playing: a.mp3",
		Status:      "Added 1 tracks",
		Elapsed:     "01:30",
		Total:       "03:00",
		SliderMax:   180000,
		SliderValue: 90000,
		Volume:      70,
		StateName:   "playing",
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[playing] Now Playing: a.mp3  ["+strings.Repeat("=", 15)+strings.Repeat("-", 15)+"] 01:30 / 03:00  vol 70", lines[0])
	assert.Equal(t, "  Added 1 tracks", lines[1])
}
