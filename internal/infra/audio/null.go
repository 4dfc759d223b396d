package audio

import (
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/app/playback"
)

var _ playback.Engine = (*NullEngine)(nil)

// NullConfig holds the settings of the null engine.
type NullConfig struct {
	// FallbackDurationMs is used for files whose duration cannot be probed. Zero rejects them.
	FallbackDurationMs int `mapstructure:"fallback_duration_ms" default:"0" validate:"min=0"`
}

// NullEngine is a silent engine driven by the wall clock.
// It reports real durations and fires the end callback when a track's duration has elapsed.
type NullEngine struct {
	mu     sync.Mutex
	config NullConfig
	probe  func(path string) (time.Duration, error)
	now    func() time.Time
	ready  bool

	loaded    string
	duration  time.Duration
	onEnd     func()
	playing   bool
	startTime time.Time     // Wall time the current run started
	offset    time.Duration // Position at startTime
	timer     *time.Timer
	run       uint64 // Bumped whenever the timer is replaced
}

// NewNullEngine creates a null engine from its settings map.
func NewNullEngine(settings map[string]any) (*NullEngine, error) {
	var config NullConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	return &NullEngine{
		config: config,
		probe:  ProbeDuration,
		now:    time.Now,
	}, nil
}

func (e *NullEngine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = true
	return nil
}

func (e *NullEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
	e.ready = false
	return nil
}

func (e *NullEngine) Load(path string, onEnd func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return ErrNotInitialized
	}
	e.releaseLocked()

	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	duration, err := e.durationLocked(path)
	if err != nil {
		return err
	}

	e.loaded = path
	e.duration = duration
	e.onEnd = onEnd
	zlog.Debug().Msgf("audio: null engine loaded %s: duration=%v", path, duration)
	return nil
}

func (e *NullEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded == "" {
		return ErrNoTrack
	}
	e.offset = 0
	e.startLocked()
	return nil
}

func (e *NullEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded == "" {
		return ErrNoTrack
	}
	if !e.playing {
		return nil
	}
	e.offset = e.positionLocked()
	e.playing = false
	e.stopTimerLocked()
	return nil
}

func (e *NullEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded == "" {
		return ErrNoTrack
	}
	if e.playing {
		return nil
	}
	e.startLocked()
	return nil
}

func (e *NullEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
	return nil
}

func (e *NullEngine) SetVolume(float64) error {
	return nil
}

func (e *NullEngine) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded == "" {
		return ErrNoTrack
	}
	if pos < 0 {
		pos = 0
	}
	if pos > e.duration {
		pos = e.duration
	}
	e.offset = pos
	if e.playing {
		e.startLocked()
	}
	return nil
}

func (e *NullEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *NullEngine) Duration(path string) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationLocked(path)
}

// durationLocked probes path, falling back to the configured duration.
// Must be called with lock held.
func (e *NullEngine) durationLocked(path string) (time.Duration, error) {
	duration, err := e.probe(path)
	if err == nil {
		return duration, nil
	}
	if e.config.FallbackDurationMs > 0 {
		zlog.Debug().Msgf("audio: probe failed, using fallback duration: path=%s err=%v", path, err)
		return time.Duration(e.config.FallbackDurationMs) * time.Millisecond, nil
	}
	return 0, err
}

// startLocked starts a run from the current offset and arms the end timer.
// Must be called with lock held.
func (e *NullEngine) startLocked() {
	e.stopTimerLocked()
	e.playing = true
	e.startTime = e.now()

	remaining := e.duration - e.offset
	if remaining < 0 {
		remaining = 0
	}
	onEnd := e.onEnd
	run := e.run
	e.timer = time.AfterFunc(remaining, func() {
		e.mu.Lock()
		if e.run != run || !e.playing {
			e.mu.Unlock()
			return
		}
		e.offset = e.duration
		e.playing = false
		e.timer = nil
		e.mu.Unlock()

		if onEnd != nil {
			onEnd()
		}
	})
}

// positionLocked returns the current position.
// Must be called with lock held.
func (e *NullEngine) positionLocked() time.Duration {
	if e.loaded == "" {
		return 0
	}
	pos := e.offset
	if e.playing {
		pos += e.now().Sub(e.startTime)
	}
	if pos > e.duration {
		pos = e.duration
	}
	return pos
}

func (e *NullEngine) stopTimerLocked() {
	e.run++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *NullEngine) releaseLocked() {
	e.stopTimerLocked()
	e.loaded = ""
	e.duration = 0
	e.onEnd = nil
	e.playing = false
	e.offset = 0
}
