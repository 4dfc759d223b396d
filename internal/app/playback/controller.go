package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/domain/playlist"
	"github.com/osa030/talitunes/internal/domain/track"
)

// Errors
var (
	ErrInvalidIndex      = errors.New("invalid playlist index")
	ErrLoad              = errors.New("failed to load track")
	ErrEngineUnavailable = errors.New("audio engine unavailable")
)

// Volume bounds.
const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 70
)

const (
	statusReady     = "Ready"
	statusStopped   = "Playback stopped"
	statusCleared   = "Playlist cleared"
	statusRefreshed = "App refreshed"
	noTrackText     = "No track selected"
	zeroTime        = "00:00"
)

// Config holds controller configuration.
type Config struct {
	Volume           int           // Initial volume (0-100)
	ProgressInterval time.Duration // Progress pump cadence
}

// Controller owns the playback state machine, the playlist and the audio engine.
// All methods are serialized by a single mutex; the progress pump and the engine's
// end-of-track callback go through the same mutex.
type Controller struct {
	mu sync.Mutex

	engine      Engine
	engineReady bool
	loaded      bool   // Engine holds a track
	generation  uint64 // Bumped on every load/stop; guards end-of-track callbacks

	playlist *playlist.Playlist
	current  *track.Track // Loaded track with its duration, nil when stopped
	state    State
	volume   int

	pump      *Pump
	view      View
	publisher Publisher
	closed    bool
}

// NewController creates a controller and initializes the engine.
func NewController(engine Engine, publisher Publisher, config Config) (*Controller, error) {
	if publisher == nil {
		publisher = discardPublisher{}
	}

	c := &Controller{
		engine:    engine,
		playlist:  playlist.New(),
		state:     StateStopped,
		volume:    ClampVolume(config.Volume),
		publisher: publisher,
	}
	c.pump = NewPump(config.ProgressInterval, c.onTick)
	c.resetViewLocked()
	c.view.Status = statusReady

	if err := engine.Init(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to initialize audio engine"), ErrEngineUnavailable)
	}
	c.engineReady = true

	return c, nil
}

// PlayIndex loads and plays the track at index.
func (c *Controller) PlayIndex(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playIndexLocked(index)
}

// TogglePlay pauses, resumes or starts playback depending on the current state.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePlaying:
		if err := c.engine.Pause(); err != nil {
			err = errors.Wrap(err, "pause failed")
			c.failLocked(err)
			return err
		}
		c.pump.Stop()
		c.state = StatePaused
		c.view.ShowPause = false
		c.publishLocked(EventStateChanged)
		return nil

	case StatePaused:
		if err := c.engine.Resume(); err != nil {
			err = errors.Wrap(err, "resume failed")
			c.failLocked(err)
			return err
		}
		c.state = StatePlaying
		c.pump.Start()
		c.view.ShowPause = true
		c.publishLocked(EventStateChanged)
		return nil

	default:
		if c.playlist.IsEmpty() {
			return nil
		}
		index := c.playlist.CurrentIndex()
		if index == playlist.NoIndex {
			index = 0
		}
		return c.playIndexLocked(index)
	}
}

// Stop stops playback. The current index is kept so that TogglePlay replays it.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.stopLocked()
	c.setStatusLocked(statusStopped)
	return nil
}

// Next plays the following track, wrapping to the first one.
// It is a no-op on an empty playlist.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stepLocked(1)
}

// Prev plays the preceding track, wrapping to the last one.
// It is a no-op on an empty playlist.
func (c *Controller) Prev() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stepLocked(-1)
}

// Seek moves the playback position of the loaded track.
// It is a no-op while stopped.
func (c *Controller) Seek(pos time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Active() || !c.loaded {
		return nil
	}

	if pos < 0 {
		pos = 0
	}
	if c.current != nil && c.current.HasDuration() && pos > c.current.Duration {
		pos = c.current.Duration
	}

	if err := c.engine.Seek(pos); err != nil {
		err = errors.Wrapf(err, "seek to %s failed", FormatDuration(pos))
		c.failLocked(err)
		return err
	}

	c.view.SliderValue = pos.Milliseconds()
	c.view.Elapsed = FormatDuration(pos)
	c.publishLocked(EventSeeked)
	return nil
}

// SetVolume sets the volume, clamped to [MinVolume, MaxVolume], and returns the applied value.
func (c *Controller) SetVolume(v int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = ClampVolume(v)
	if c.loaded {
		if err := c.engine.SetVolume(EngineVolume(c.volume)); err != nil {
			zlog.Warn().Msgf("playback: failed to apply volume %d: %v", c.volume, err)
		}
	}
	c.publishLocked(EventVolumeChanged)
	return c.volume
}

// AddFiles appends tracks for the given paths. Playback is not affected.
func (c *Controller) AddFiles(paths []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(paths) == 0 {
		return 0
	}

	c.playlist.Append(track.FromPaths(paths)...)
	zlog.Debug().Msgf("playback: added %d tracks: total=%d", len(paths), c.playlist.Len())

	c.publishLocked(EventPlaylistChanged)
	c.setStatusLocked(fmt.Sprintf("Added %d tracks", len(paths)))
	return len(paths)
}

// ClearPlaylist stops playback and removes every track.
// Callers are expected to confirm with the user first.
func (c *Controller) ClearPlaylist() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.playlist.Clear()
	c.resetViewLocked()
	c.publishLocked(EventPlaylistChanged)
	c.setStatusLocked(statusCleared)
}

// Refresh stops playback, clears the playlist and reinitializes the engine.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.Wrap(ErrEngineUnavailable, "controller is closed")
	}

	// stopLocked stops the pump, so no tick reaches the engine while it is torn down.
	c.stopLocked()
	c.playlist.Clear()
	c.resetViewLocked()
	c.publishLocked(EventReset)

	if c.engineReady {
		if err := c.engine.Close(); err != nil {
			zlog.Warn().Msgf("playback: failed to close audio engine: %v", err)
		}
		c.engineReady = false
	}

	if err := c.engine.Init(); err != nil {
		err = errors.Mark(errors.Wrap(err, "failed to reinitialize audio engine"), ErrEngineUnavailable)
		c.failLocked(err)
		return err
	}
	c.engineReady = true

	zlog.Info().Msg("playback: audio engine reinitialized")
	c.setStatusLocked(statusRefreshed)
	return nil
}

// Close stops playback and releases the engine. The controller is unusable afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.stopLocked()
	c.closed = true

	if !c.engineReady {
		return nil
	}
	c.engineReady = false
	if err := c.engine.Close(); err != nil {
		return errors.Wrap(err, "failed to close audio engine")
	}
	return nil
}

// GetState returns the current playback state.
func (c *Controller) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetVolume returns the current volume.
func (c *Controller) GetVolume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// GetCurrentIndex returns the current playlist index, or -1.
func (c *Controller) GetCurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist.CurrentIndex()
}

// GetTracks returns a copy of the playlist tracks.
func (c *Controller) GetTracks() []track.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist.Tracks()
}

// GetTotalDuration returns the summed duration of the tracks loaded so far.
func (c *Controller) GetTotalDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist.TotalDuration()
}

// GetView returns a snapshot of the UI projection.
func (c *Controller) GetView() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncViewLocked()
	return c.view
}

// ClampVolume clamps v to [MinVolume, MaxVolume].
func ClampVolume(v int) int {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// EngineVolume converts a 0-100 volume to the engine's 0.0-1.0 scale.
func EngineVolume(v int) float64 {
	return float64(ClampVolume(v)) / MaxVolume
}

// playIndexLocked loads and plays the track at index.
// Must be called with lock held.
func (c *Controller) playIndexLocked(index int) error {
	if err := c.checkEngineLocked(); err != nil {
		return err
	}

	t, err := c.playlist.Get(index)
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "cannot play track %d", index), ErrInvalidIndex)
		c.failLocked(err)
		return err
	}

	c.pump.Stop()
	if c.loaded {
		if err := c.engine.Stop(); err != nil {
			zlog.Warn().Msgf("playback: failed to stop previous track: %v", err)
		}
		c.loaded = false
	}

	c.generation++
	gen := c.generation
	// index was validated by Get above
	_ = c.playlist.SetCurrentIndex(index)

	if err := c.engine.Load(t.Path, func() { c.onTrackEnd(gen) }); err != nil {
		return c.loadFailedLocked(t, err)
	}
	c.loaded = true

	if err := c.engine.SetVolume(EngineVolume(c.volume)); err != nil {
		zlog.Warn().Msgf("playback: failed to apply volume %d: %v", c.volume, err)
	}
	if err := c.engine.Play(); err != nil {
		if stopErr := c.engine.Stop(); stopErr != nil {
			zlog.Warn().Msgf("playback: failed to release track after play error: %v", stopErr)
		}
		c.loaded = false
		return c.loadFailedLocked(t, err)
	}

	c.state = StatePlaying
	c.pump.Start()

	duration, err := c.engine.Duration(t.Path)
	if err != nil {
		zlog.Warn().Msgf("playback: duration unknown: track=%s err=%v", t.Name, err)
		duration = 0
	}
	t.Duration = duration
	c.current = &t
	if duration > 0 {
		// index was validated by Get above
		_ = c.playlist.SetDuration(index, duration)
	}

	c.view.NowPlaying = "Now Playing: " + t.Name
	c.view.ShowPause = true
	c.view.SliderMax = duration.Milliseconds()
	c.view.SliderValue = 0
	c.view.Total = FormatDuration(duration)
	c.view.Elapsed = zeroTime

	zlog.Debug().Msgf("playback: track started: index=%d track=%s duration=%v", index, t.Name, duration)
	c.publishLocked(EventTrackStarted)
	return nil
}

// loadFailedLocked leaves the controller stopped on the failing track.
// Must be called with lock held.
func (c *Controller) loadFailedLocked(t track.Track, cause error) error {
	prev := c.state
	c.state = StateStopped
	c.current = nil
	c.view.ShowPause = false
	c.view.NowPlaying = noTrackText
	c.view.SliderMax = 0
	c.view.SliderValue = 0
	c.view.Elapsed = zeroTime
	c.view.Total = zeroTime

	err := errors.Wrapf(cause, "%s", t.Name)
	if !errors.Is(cause, ErrEngineUnavailable) {
		err = errors.Mark(err, ErrLoad)
	}

	if prev != StateStopped {
		c.publishLocked(EventStateChanged)
	}
	c.failLocked(err)
	return err
}

// stepLocked plays the track delta positions away from the current one.
// Must be called with lock held.
func (c *Controller) stepLocked(delta int) error {
	index, ok := c.playlist.Step(delta)
	if !ok {
		return nil
	}
	return c.playIndexLocked(index)
}

// stopLocked stops the engine and the pump.
// Must be called with lock held.
func (c *Controller) stopLocked() {
	c.pump.Stop()

	if c.loaded {
		if err := c.engine.Stop(); err != nil {
			zlog.Warn().Msgf("playback: failed to stop engine: %v", err)
		}
		c.loaded = false
	}
	c.generation++
	c.current = nil

	prev := c.state
	c.state = StateStopped
	c.view.ShowPause = false
	if prev != StateStopped {
		c.publishLocked(EventStateChanged)
	}
}

// onTrackEnd is called by the engine when a track plays to its end.
func (c *Controller) onTrackEnd(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation || !c.state.Active() {
		return
	}

	if c.current != nil {
		zlog.Debug().Msgf("playback: track ended: track=%s", c.current.Name)
	}
	c.publishLocked(EventTrackEnded)

	if c.playlist.IsEmpty() {
		c.stopLocked()
		return
	}
	// Errors are already reported through the status message.
	_ = c.stepLocked(1)
}

// onTick is the progress pump callback.
func (c *Controller) onTick(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying || !c.loaded || !c.pump.Current(token) {
		return
	}

	pos := c.engine.Position()
	if pos < 0 {
		pos = 0
	}
	c.view.SliderValue = pos.Milliseconds()
	c.view.Elapsed = FormatDuration(pos)
	c.publishLocked(EventPosition)
}

// checkEngineLocked reports ErrEngineUnavailable when the engine cannot be driven.
// Must be called with lock held.
func (c *Controller) checkEngineLocked() error {
	if c.closed {
		err := errors.Wrap(ErrEngineUnavailable, "controller is closed")
		c.failLocked(err)
		return err
	}
	if !c.engineReady {
		err := errors.Wrap(ErrEngineUnavailable, "audio engine is not initialized, refresh to retry")
		c.failLocked(err)
		return err
	}
	return nil
}

// failLocked converts err into a status message.
// Must be called with lock held.
func (c *Controller) failLocked(err error) {
	zlog.Warn().Msgf("playback: %v", err)
	c.view.Status = "Error: " + err.Error()
	c.syncViewLocked()
	c.publisher.Publish(c.eventLocked(EventError, err))
}

// setStatusLocked updates the status message.
// Must be called with lock held.
func (c *Controller) setStatusLocked(status string) {
	c.view.Status = status
	c.publishLocked(EventStatus)
}

// resetViewLocked restores the projection fields shown when nothing is selected.
// Must be called with lock held.
func (c *Controller) resetViewLocked() {
	c.current = nil
	c.view.NowPlaying = noTrackText
	c.view.Elapsed = zeroTime
	c.view.Total = zeroTime
	c.view.SliderMax = 0
	c.view.SliderValue = 0
	c.view.ShowPause = false
	c.syncViewLocked()
}

// syncViewLocked copies controller state into the projection.
// Must be called with lock held.
func (c *Controller) syncViewLocked() {
	c.view.State = c.state
	c.view.StateName = c.state.String()
	c.view.Index = c.playlist.CurrentIndex()
	c.view.Tracks = c.playlist.Len()
	c.view.Volume = c.volume
}

// publishLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) publishLocked(t EventType) {
	c.syncViewLocked()
	c.publisher.Publish(c.eventLocked(t, nil))
}

func (c *Controller) eventLocked(t EventType, err error) Event {
	e := Event{
		Type:  t,
		State: c.state,
		Index: c.playlist.CurrentIndex(),
		View:  c.view,
		Err:   err,
	}
	if c.current != nil {
		cur := *c.current
		e.Track = &cur
	}
	return e
}
