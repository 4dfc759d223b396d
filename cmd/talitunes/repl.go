package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-shellwords"
	"golang.org/x/term"

	"github.com/osa030/talitunes/internal/app/library"
	"github.com/osa030/talitunes/internal/app/playback"
	"github.com/osa030/talitunes/internal/domain/track"
)

const (
	defaultPrompt = "talitunes> "
	progressWidth = 30
)

// Player is the playback surface driven by the shell.
type Player interface {
	PlayIndex(index int) error
	TogglePlay() error
	Stop() error
	Next() error
	Prev() error
	Seek(pos time.Duration) error
	SetVolume(v int) int
	ClearPlaylist()
	Refresh() error
	GetView() playback.View
	GetState() playback.State
	GetVolume() int
	GetCurrentIndex() int
	GetTracks() []track.Track
	GetTotalDuration() time.Duration
}

// AddFunc expands paths and appends the accepted files to the playlist.
type AddFunc func(ctx context.Context, args []string) (library.ScanResult, int, error)

// LineReader reads shell input one line at a time.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// scannerReader reads lines from a non-interactive input.
type scannerReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

func (r *scannerReader) Readline() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scannerReader) SetPrompt(string) {}

func (r *scannerReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// newLineReader uses readline with completion on a terminal and a plain scanner otherwise.
func newLineReader(in *os.File, out io.Writer) (LineReader, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return &scannerReader{scanner: bufio.NewScanner(in)}, nil
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(shellCommands))
	for _, c := range shellCommands {
		items = append(items, readline.PcItem(c.name))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       defaultPrompt,
		Stdout:       out,
		AutoComplete: readline.NewPrefixCompleter(items...),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize readline")
	}
	return rl, nil
}

type shellCommand struct {
	name    string
	aliases []string
	usage   string
	help    string
}

var shellCommands = []shellCommand{
	{name: "add", usage: "add <path>...", help: "Add files, directories or glob patterns"},
	{name: "list", aliases: []string{"ls"}, usage: "list", help: "Show the playlist"},
	{name: "play", usage: "play [n]", help: "Play track n (1-based), or toggle play/pause"},
	{name: "toggle", usage: "toggle", help: "Toggle play/pause"},
	{name: "pause", usage: "pause", help: "Pause the playing track"},
	{name: "stop", usage: "stop", help: "Stop playback"},
	{name: "next", aliases: []string{"n"}, usage: "next", help: "Play the next track"},
	{name: "prev", aliases: []string{"p"}, usage: "prev", help: "Play the previous track"},
	{name: "seek", usage: "seek <mm:ss|seconds>", help: "Move within the current track"},
	{name: "vol", aliases: []string{"volume"}, usage: "vol [0-100]", help: "Show or set the volume"},
	{name: "clear", usage: "clear", help: "Clear the playlist"},
	{name: "refresh", usage: "refresh", help: "Stop, reset the display and reinitialize audio"},
	{name: "status", aliases: []string{"st"}, usage: "status", help: "Show the player status"},
	{name: "help", aliases: []string{"?"}, usage: "help", help: "Show this help"},
	{name: "quit", aliases: []string{"exit", "q"}, usage: "quit", help: "Exit the player"},
}

// lookupCommand resolves a command name or alias.
func lookupCommand(name string) (shellCommand, bool) {
	name = strings.ToLower(name)
	for _, c := range shellCommands {
		if c.name == name {
			return c, true
		}
		for _, a := range c.aliases {
			if a == name {
				return c, true
			}
		}
	}
	return shellCommand{}, false
}

// Shell is the interactive front end of the player.
type Shell struct {
	player       Player
	adder        AddFunc
	out          io.Writer
	confirmClear bool
	reader       LineReader
}

// NewShell creates a shell writing to out.
func NewShell(player Player, adder AddFunc, out io.Writer, confirmClear bool) *Shell {
	return &Shell{
		player:       player,
		adder:        adder,
		out:          out,
		confirmClear: confirmClear,
	}
}

// Run reads commands from r until quit, end of input, an interrupt or ctx is done.
func (s *Shell) Run(ctx context.Context, r LineReader) error {
	s.reader = r
	fmt.Fprintln(s.out, `talitunes ready. Type "help" for commands.`)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return nil
			}
			return errors.Wrap(err, "failed to read command")
		}
		if s.Execute(ctx, line) {
			return nil
		}
	}
}

// Execute runs a single command line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	args, err := splitArgs(line)
	if err != nil {
		s.printError(err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	cmd, ok := lookupCommand(args[0])
	if !ok {
		fmt.Fprintf(s.out, "unknown command: %s (type \"help\")\n", args[0])
		return false
	}
	args = args[1:]

	switch cmd.name {
	case "quit":
		return true
	case "help":
		s.printHelp()
	case "add":
		if len(args) == 0 {
			s.printUsage(cmd)
			return false
		}
		s.add(ctx, args)
	case "list":
		s.printPlaylist()
	case "play":
		s.play(cmd, args)
	case "toggle":
		s.do(s.player.TogglePlay())
	case "pause":
		if s.player.GetState() != playback.StatePlaying {
			fmt.Fprintln(s.out, "not playing")
			return false
		}
		s.do(s.player.TogglePlay())
	case "stop":
		s.do(s.player.Stop())
	case "next":
		s.do(s.player.Next())
	case "prev":
		s.do(s.player.Prev())
	case "seek":
		if len(args) != 1 {
			s.printUsage(cmd)
			return false
		}
		pos, err := playback.ParsePosition(args[0])
		if err != nil {
			s.printError(err)
			return false
		}
		s.do(s.player.Seek(pos))
	case "vol":
		s.volume(cmd, args)
	case "clear":
		s.clear()
	case "refresh":
		s.do(s.player.Refresh())
	case "status":
		renderView(s.out, s.player.GetView())
	}
	return false
}

func (s *Shell) add(ctx context.Context, args []string) {
	result, added, err := s.adder(ctx, args)
	if err != nil {
		s.printError(err)
		return
	}
	for _, r := range result.Rejected {
		fmt.Fprintf(s.out, "  skipped %s (%s)\n", r.Path, r.Code)
	}
	fmt.Fprintf(s.out, "added %d track(s), %d in playlist\n", added, len(s.player.GetTracks()))
}

func (s *Shell) play(cmd shellCommand, args []string) {
	switch len(args) {
	case 0:
		s.do(s.player.TogglePlay())
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			s.printUsage(cmd)
			return
		}
		s.do(s.player.PlayIndex(n - 1))
	default:
		s.printUsage(cmd)
	}
}

func (s *Shell) volume(cmd shellCommand, args []string) {
	switch len(args) {
	case 0:
		fmt.Fprintf(s.out, "volume %d\n", s.player.GetVolume())
	case 1:
		v, err := strconv.Atoi(args[0])
		if err != nil {
			s.printUsage(cmd)
			return
		}
		fmt.Fprintf(s.out, "volume %d\n", s.player.SetVolume(v))
	default:
		s.printUsage(cmd)
	}
}

func (s *Shell) clear() {
	if s.confirmClear && !s.confirm("Clear the playlist? [y/N] ") {
		fmt.Fprintln(s.out, "cancelled")
		return
	}
	s.player.ClearPlaylist()
	renderView(s.out, s.player.GetView())
}

// confirm asks a yes/no question on the shell's reader. No reader means no.
func (s *Shell) confirm(prompt string) bool {
	if s.reader == nil {
		return false
	}
	fmt.Fprint(s.out, prompt)
	s.reader.SetPrompt(prompt)
	defer s.reader.SetPrompt(defaultPrompt)

	line, err := s.reader.Readline()
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// do prints err or the view after a successful command.
func (s *Shell) do(err error) {
	if err != nil {
		s.printError(err)
		return
	}
	renderView(s.out, s.player.GetView())
}

func (s *Shell) printError(err error) {
	fmt.Fprintf(s.out, "error: %v\n", err)
}

func (s *Shell) printUsage(cmd shellCommand) {
	fmt.Fprintf(s.out, "usage: %s\n", cmd.usage)
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	for _, c := range shellCommands {
		name := c.usage
		if len(c.aliases) > 0 {
			name += " (" + strings.Join(c.aliases, ", ") + ")"
		}
		fmt.Fprintf(s.out, "  %-36s %s\n", name, c.help)
	}
}

func (s *Shell) printPlaylist() {
	tracks := s.player.GetTracks()
	if len(tracks) == 0 {
		fmt.Fprintln(s.out, "playlist is empty")
		return
	}
	current := s.player.GetCurrentIndex()
	for i, t := range tracks {
		marker := " "
		if i == current {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %3d. %s", marker, i+1, t.Name)
		if t.HasDuration() {
			fmt.Fprintf(s.out, " [%s]", playback.FormatDuration(t.Duration))
		}
		fmt.Fprintln(s.out)
	}
	fmt.Fprintf(s.out, "%d track(s), %s loaded so far\n", len(tracks), playback.FormatDuration(s.player.GetTotalDuration()))
}

// renderView prints the player projection as two lines.
func renderView(w io.Writer, v playback.View) {
	fmt.Fprintf(w, "[%s] %s  %s %s / %s  vol %d\n",
		v.StateName, v.NowPlaying, progressBar(v.SliderValue, v.SliderMax, progressWidth), v.Elapsed, v.Total, v.Volume)
	if v.Status != "" {
		fmt.Fprintf(w, "  %s\n", v.Status)
	}
}

// progressBar draws value/total as a fixed-width bar.
func progressBar(value, total int64, width int) string {
	filled := 0
	if total > 0 && value > 0 {
		filled = int(value * int64(width) / total)
		if filled > width {
			filled = width
		}
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

// splitArgs splits a command line into words with shell quoting rules.
func splitArgs(line string) ([]string, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return nil, errors.Wrap(err, "invalid command line")
	}
	return args, nil
}
