// Package main provides the talitunes player entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/app/library"
	"github.com/osa030/talitunes/internal/app/playback"
	"github.com/osa030/talitunes/internal/app/session"
	"github.com/osa030/talitunes/internal/infra/audio"
	"github.com/osa030/talitunes/internal/infra/config"
	"github.com/osa030/talitunes/internal/infra/logger"
)

var (
	app        = kingpin.New("talitunes", "talitunes playlist audio player")
	configPath = app.Flag("config", "Path to config file (defaults are used when it does not exist)").Default("talitunes.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()
	engineName = app.Flag("engine", "Audio engine (overrides config)").String()
	httpAddr   = app.Flag("http", "Serve the control API on this address (overrides config)").String()

	// play command (default)
	playCmd   = app.Command("play", "Start the player (default)").Default()
	playPaths = playCmd.Arg("paths", "Files, directories or glob patterns to add").Strings()
	autoplay  = playCmd.Flag("autoplay", "Start playing the first track").Bool()

	// probe command
	probeCmd   = app.Command("probe", "Print format and duration of audio files")
	probePaths = probeCmd.Arg("files", "Audio files").Required().ExistingFiles()

	// engines command
	enginesCmd = app.Command("engines", "List available audio engines and exit")

	// filters command
	filtersCmd = app.Command("filters", "List optional library filters and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case enginesCmd.FullCommand():
		printEngines(os.Stdout)
		return
	case filtersCmd.FullCommand():
		printFilters(os.Stdout)
		return
	case probeCmd.FullCommand():
		if failed := probeFiles(os.Stdout, *probePaths); failed > 0 {
			os.Exit(1)
		}
		return
	}

	cfg, loaded, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	closer, err := logger.Init(logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	if loaded {
		zlog.Info().Msgf("Loaded config from %s", *configPath)
	} else {
		zlog.Info().Msgf("Config %s not found, using defaults", *configPath)
	}

	// Run player (defer ensures the stop hook is called)
	if err := run(cfg, *playPaths); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// applyFlags overrides config values with command-line flags.
func applyFlags(cfg *config.Config) {
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logfile != "" {
		cfg.Log.Output = *logfile
	}
	if *engineName != "" {
		cfg.Audio.Engine = *engineName
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
}

// run executes the player. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, paths []string) error {
	mgr, err := session.NewManager(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			zlog.Error().Msgf("Failed to close session: %v", err)
		}
		executeHooks(cfg.Hooks.OnStopped, "on_stopped")
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start session")
	}
	if addr := mgr.ServerAddr(); addr != "" {
		zlog.Info().Msgf("Control API listening: addr=%s", addr)
	}

	shell := NewShell(mgr.Controller(), mgr.AddPaths, os.Stdout, cfg.Player.ConfirmClear)

	if len(paths) > 0 {
		shell.add(ctx, paths)
		if *autoplay && len(mgr.Controller().GetTracks()) > 0 {
			if err := mgr.Controller().PlayIndex(0); err != nil {
				zlog.Warn().Msgf("Autoplay failed: %v", err)
			}
		}
	}

	executeHooks(cfg.Hooks.OnStarted, "on_started")

	reader, err := newLineReader(os.Stdin, os.Stdout)
	if err != nil {
		return errors.Wrap(err, "failed to open terminal")
	}

	replDone := make(chan error, 1)
	go func() {
		replDone <- shell.Run(ctx, reader)
	}()

	select {
	case <-ctx.Done():
		zlog.Info().Msg("Received shutdown signal...")
	case <-mgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-replDone:
		if err != nil {
			zlog.Error().Msgf("Shell error: %v", err)
		}
	}
	reader.Close()

	return nil
}

// printEngines prints the registered audio engines.
func printEngines(w io.Writer) {
	fmt.Fprintln(w, "Available Engines:")
	for _, name := range audio.Names() {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

// printFilters prints the optional library filters.
func printFilters(w io.Writer) {
	fmt.Fprintln(w, "Available Filters:")
	registered := library.GetRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := registered[name]()
		fmt.Fprintf(w, "  %-30s - %s\n", f.Name(), f.Description())
	}
}

// probeFiles prints probe results and returns the number of failures.
func probeFiles(w io.Writer, paths []string) int {
	failed := 0
	for _, path := range paths {
		res, err := audio.Probe(path)
		if err != nil {
			fmt.Fprintf(w, "%s: error: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "%s: %s %d Hz %d ch", res.Path, res.Format, res.SampleRate, res.Channels)
		if res.BitDepth > 0 {
			fmt.Fprintf(w, " %d-bit", res.BitDepth)
		}
		fmt.Fprintf(w, " %s\n", playback.FormatDuration(res.Duration))
	}
	return failed
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// sh -c allows redirection and pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
