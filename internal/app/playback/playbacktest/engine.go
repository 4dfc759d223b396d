// Package playbacktest provides test doubles for the playback package.
package playbacktest

import (
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/talitunes/internal/app/playback"
)

var _ playback.Engine = (*Engine)(nil)

// ErrUnknownDuration is returned by Duration for paths without a configured duration.
var ErrUnknownDuration = errors.New("unknown duration")

// Engine is an in-memory playback.Engine that records every command.
// Position queries are counted but not recorded.
type Engine struct {
	mu sync.Mutex

	calls         []string
	initErr       error
	loadErrs      map[string]error
	playErr       error
	durations     map[string]time.Duration
	position      time.Duration
	positionCalls int
	volume        float64

	loaded  string
	onEnd   func()
	playing bool
	paused  bool
	ready   bool
}

// NewEngine creates a fake engine.
func NewEngine() *Engine {
	return &Engine{
		loadErrs:  make(map[string]error),
		durations: make(map[string]time.Duration),
	}
}

func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("init")
	if e.initErr != nil {
		return e.initErr
	}
	e.ready = true
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("close")
	e.ready = false
	e.reset()
	return nil
}

func (e *Engine) Load(path string, onEnd func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("load " + path)
	if err := e.loadErrs[path]; err != nil {
		return err
	}
	e.reset()
	e.loaded = path
	e.onEnd = onEnd
	return nil
}

func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("play")
	if e.playErr != nil {
		return e.playErr
	}
	e.playing = true
	e.paused = false
	return nil
}

func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("pause")
	e.paused = true
	return nil
}

func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("resume")
	e.paused = false
	return nil
}

func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("stop")
	e.reset()
	return nil
}

func (e *Engine) SetVolume(v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record(fmt.Sprintf("volume %.2f", v))
	e.volume = v
	return nil
}

func (e *Engine) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("seek " + pos.String())
	e.position = pos
	return nil
}

func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.positionCalls++
	return e.position
}

func (e *Engine) Duration(path string) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("duration " + path)
	d, ok := e.durations[path]
	if !ok {
		return 0, errors.Wrap(ErrUnknownDuration, path)
	}
	return d, nil
}

// FailInit makes subsequent Init calls return err. A nil err clears the failure.
func (e *Engine) FailInit(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initErr = err
}

// FailLoad makes loading path return err.
func (e *Engine) FailLoad(path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadErrs[path] = err
}

// FailPlay makes subsequent Play calls return err.
func (e *Engine) FailPlay(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playErr = err
}

// SetDuration sets the duration reported for path.
func (e *Engine) SetDuration(path string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.durations[path] = d
}

// SetPosition sets the position reported by Position.
func (e *Engine) SetPosition(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = d
}

// Finish simulates the loaded track playing to its end.
// The end callback runs on the caller's goroutine.
func (e *Engine) Finish() {
	e.mu.Lock()
	onEnd := e.onEnd
	e.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
}

// EndCallback returns the end callback of the current load.
func (e *Engine) EndCallback() func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.onEnd
}

// Calls returns the recorded commands.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([]string, len(e.calls))
	copy(result, e.calls)
	return result
}

// ResetCalls clears the recorded commands.
func (e *Engine) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

// PositionCalls returns how many times Position was called.
func (e *Engine) PositionCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionCalls
}

// Volume returns the last volume set.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Loaded returns the loaded path.
func (e *Engine) Loaded() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Ready reports whether Init succeeded and Close has not been called since.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *Engine) record(call string) {
	e.calls = append(e.calls, call)
}

func (e *Engine) reset() {
	e.loaded = ""
	e.onEnd = nil
	e.playing = false
	e.paused = false
	e.position = 0
}
