package audio

import (
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/app/playback"
)

var _ playback.Engine = (*BeepEngine)(nil)

// ErrNotInitialized is returned when the speaker has not been initialized.
var ErrNotInitialized = errors.New("audio output not initialized")

// ErrNoTrack is returned by transport commands when nothing is loaded.
var ErrNoTrack = errors.New("no track loaded")

// BeepConfig holds the speaker settings of the beep engine.
type BeepConfig struct {
	SampleRate      int `mapstructure:"sample_rate" default:"44100" validate:"min=8000,max=192000"`
	BufferMs        int `mapstructure:"buffer_ms" default:"100" validate:"min=10,max=1000"`
	ResampleQuality int `mapstructure:"resample_quality" default:"4" validate:"min=1,max=64"`
}

// BeepEngine plays local files through the system speaker.
// The speaker is process-wide, so only one BeepEngine should be initialized at a time.
type BeepEngine struct {
	mu     sync.Mutex
	config BeepConfig
	rate   beep.SampleRate
	ready  bool

	stream beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	gain   *effects.Volume
	onEnd  func()
	level  float64
}

// NewBeepEngine creates a beep engine from its settings map.
func NewBeepEngine(settings map[string]any) (*BeepEngine, error) {
	var config BeepConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("audio: beep engine config: %+v", config)

	return &BeepEngine{
		config: config,
		rate:   beep.SampleRate(config.SampleRate),
		level:  1,
	}, nil
}

func (e *BeepEngine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready {
		return nil
	}
	bufferSize := e.rate.N(time.Duration(e.config.BufferMs) * time.Millisecond)
	if err := speaker.Init(e.rate, bufferSize); err != nil {
		return errors.Wrap(err, "failed to initialize speaker")
	}
	e.ready = true
	zlog.Info().Msgf("audio: speaker initialized: sample_rate=%d buffer=%d", e.config.SampleRate, bufferSize)
	return nil
}

func (e *BeepEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return nil
	}
	err := e.releaseLocked()
	speaker.Close()
	e.ready = false
	zlog.Debug().Msg("audio: speaker closed")
	return err
}

// Load decodes path and prepares it for playback. onEnd is called on its own
// goroutine when the track plays to its end.
func (e *BeepEngine) Load(path string, onEnd func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return ErrNotInitialized
	}
	if err := e.releaseLocked(); err != nil {
		zlog.Warn().Msgf("audio: failed to release previous track: %v", err)
	}

	stream, format, err := openStream(path)
	if err != nil {
		return err
	}

	var source beep.Streamer = stream
	if format.SampleRate != e.rate {
		source = beep.Resample(e.config.ResampleQuality, format.SampleRate, e.rate, stream)
	}

	e.stream = stream
	e.format = format
	e.ctrl = &beep.Ctrl{Streamer: source, Paused: true}
	e.gain = &effects.Volume{Streamer: e.ctrl, Base: 2}
	e.onEnd = onEnd
	e.applyLevelLocked()

	zlog.Debug().Msgf("audio: loaded %s: sample_rate=%d channels=%d length=%v",
		path, format.SampleRate, format.NumChannels, format.SampleRate.D(stream.Len()))
	return nil
}

func (e *BeepEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return ErrNoTrack
	}

	onEnd := e.onEnd
	speaker.Clear()
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	speaker.Play(beep.Seq(e.gain, beep.Callback(func() {
		// Runs under the speaker lock.
		if onEnd != nil {
			go onEnd()
		}
	})))
	return nil
}

func (e *BeepEngine) Pause() error {
	return e.setPaused(true)
}

func (e *BeepEngine) Resume() error {
	return e.setPaused(false)
}

func (e *BeepEngine) setPaused(paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return ErrNoTrack
	}
	speaker.Lock()
	e.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

func (e *BeepEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.releaseLocked()
}

// SetVolume maps v in [0.0, 1.0] onto a base-2 gain; 0 is silence.
func (e *BeepEngine) SetVolume(v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.level = math.Max(0, math.Min(1, v))
	if e.gain != nil {
		speaker.Lock()
		e.applyLevelLocked()
		speaker.Unlock()
	}
	return nil
}

func (e *BeepEngine) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return ErrNoTrack
	}

	n := e.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if last := e.stream.Len() - 1; n > last && last >= 0 {
		n = last
	}

	speaker.Lock()
	defer speaker.Unlock()
	if err := e.stream.Seek(n); err != nil {
		return errors.Wrapf(err, "failed to seek to %v", pos)
	}
	return nil
}

func (e *BeepEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return 0
	}
	speaker.Lock()
	n := e.stream.Position()
	speaker.Unlock()
	return e.format.SampleRate.D(n)
}

func (e *BeepEngine) Duration(path string) (time.Duration, error) {
	return ProbeDuration(path)
}

// releaseLocked stops output and closes the loaded stream.
// Must be called with lock held.
func (e *BeepEngine) releaseLocked() error {
	if e.stream == nil {
		return nil
	}
	if e.ready {
		speaker.Clear()
	}
	err := e.stream.Close()
	e.stream = nil
	e.ctrl = nil
	e.gain = nil
	e.onEnd = nil
	if err != nil {
		return errors.Wrap(err, "failed to close stream")
	}
	return nil
}

// applyLevelLocked pushes the volume level into the gain stage.
// Must be called with lock held.
func (e *BeepEngine) applyLevelLocked() {
	if e.gain == nil {
		return
	}
	if e.level <= 0 {
		e.gain.Silent = true
		e.gain.Volume = 0
		return
	}
	e.gain.Silent = false
	e.gain.Volume = math.Log2(e.level)
}
