// Package session wires the player components together.
package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/api/rest"
	"github.com/osa030/talitunes/internal/app/library"
	"github.com/osa030/talitunes/internal/app/notification"
	"github.com/osa030/talitunes/internal/app/playback"
	"github.com/osa030/talitunes/internal/infra/audio"
	"github.com/osa030/talitunes/internal/infra/config"
	"github.com/osa030/talitunes/internal/infra/metrics"
)

var (
	ErrSessionClosed  = errors.New("session is closed")
	ErrSessionStarted = errors.New("session already started")
)

// Buffer sizes for internal subscribers.
const (
	metricsBufferSize  = 256
	eventLogBufferSize = 64
)

// Manager owns the player components built from configuration.
type Manager struct {
	mu sync.RWMutex

	config *config.Config

	// Components
	engine     playback.Engine
	controller *playback.Controller
	hub        *notification.Hub
	scanner    *library.Scanner
	recorder   *metrics.Recorder
	server     *rest.Server

	subscriptions []string

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
	closed  bool
}

// NewManager builds the engine named by cfg.Audio.Engine and the components around it.
func NewManager(cfg *config.Config) (*Manager, error) {
	engine, err := audio.New(cfg.Audio.Engine, cfg.Audio.Settings)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create audio engine")
	}
	return NewManagerWithEngine(cfg, engine)
}

// NewManagerWithEngine builds the components around an existing engine.
func NewManagerWithEngine(cfg *config.Config, engine playback.Engine) (*Manager, error) {
	recorder := metrics.NewRecorder()
	hub := notification.NewHub()
	hub.OnDrop(recorder.ObserveDrop)

	controller, err := playback.NewController(engine, hub, playback.Config{
		Volume:           cfg.Player.Volume,
		ProgressInterval: cfg.Player.ProgressInterval(),
	})
	if err != nil {
		hub.Close()
		return nil, errors.Wrap(err, "failed to create playback controller")
	}

	filters := make(map[string]library.FilterConfig, len(cfg.Library.Filters))
	for name, fc := range cfg.Library.Filters {
		filters[name] = library.FilterConfig{Enabled: fc.Enabled, Settings: fc.Settings}
	}

	scanner, err := library.NewScanner(library.Options{
		Extensions:    cfg.Library.Extensions,
		Recursive:     cfg.Library.Recursive,
		IncludeHidden: cfg.Library.IncludeHidden,
		Filters:       filters,
		Prober:        audio.ProbeDuration,
		Source:        controller,
	})
	if err != nil {
		_ = controller.Close()
		hub.Close()
		return nil, errors.Wrap(err, "failed to create library scanner")
	}

	m := &Manager{
		config:     cfg,
		engine:     engine,
		controller: controller,
		hub:        hub,
		scanner:    scanner,
		recorder:   recorder,
		done:       make(chan struct{}),
	}

	if cfg.HTTPEnabled() {
		handlers := rest.NewHandlers(controller, scanner)
		m.server = rest.NewServer(cfg.HTTP.Addr, rest.NewRouter(handlers, m.recorder))
	}

	return m, nil
}

// Start subscribes the observers and starts the control API when configured.
// Listen errors are returned; serve errors end the session.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSessionClosed
	}
	if m.started {
		return ErrSessionStarted
	}

	if m.server != nil {
		if err := m.server.Listen(); err != nil {
			return err
		}
	}

	m.ctx, m.cancel = context.WithCancel(ctx)

	metricsID, metricsCh := m.hub.Subscribe(metricsBufferSize)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.recorder.Run(m.ctx, metricsCh)
	}()

	logID, logCh := m.hub.Subscribe(eventLogBufferSize)
	m.subscriptions = append(m.subscriptions, metricsID, logID)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.eventLoop(logCh)
	}()

	if m.server != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.server.Serve(); err != nil {
				zlog.Error().Err(err).Msg("session: control API stopped")
				m.cancel()
			}
		}()
	}

	go func() {
		<-m.ctx.Done()
		close(m.done)
	}()

	m.started = true
	zlog.Info().Msgf("session: started: engine=%s, http=%t, subscribers=%d",
		m.config.Audio.Engine, m.server != nil, m.hub.SubscriberCount())
	return nil
}

// Done is closed when the session context ends.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// AddPaths expands args through the scanner and appends the accepted files to the playlist.
func (m *Manager) AddPaths(ctx context.Context, args []string) (library.ScanResult, int, error) {
	result, err := m.scanner.Expand(ctx, args)
	if err != nil {
		return result, 0, err
	}
	added := m.controller.AddFiles(result.Paths)
	return result, added, nil
}

// Controller returns the playback controller.
func (m *Manager) Controller() *playback.Controller {
	return m.controller
}

// Hub returns the event hub.
func (m *Manager) Hub() *notification.Hub {
	return m.hub
}

// Scanner returns the library scanner.
func (m *Manager) Scanner() *library.Scanner {
	return m.scanner
}

// Recorder returns the metrics recorder.
func (m *Manager) Recorder() *metrics.Recorder {
	return m.recorder
}

// ServerAddr returns the control API address, or "" when disabled.
func (m *Manager) ServerAddr() string {
	if m.server == nil {
		return ""
	}
	return m.server.Addr()
}

// eventLoop logs controller events.
func (m *Manager) eventLoop(ch <-chan playback.Event) {
	for {
		select {
		case <-m.ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			m.logEvent(e)
		}
	}
}

func (m *Manager) logEvent(e playback.Event) {
	switch e.Type {
	case playback.EventPosition:
		// Too frequent for the log.
	case playback.EventTrackStarted:
		if e.Track != nil {
			zlog.Info().Msgf("session: now playing: index=%d, name=%s", e.Index, e.Track.Name)
		}
	case playback.EventError:
		zlog.Warn().Err(e.Err).Msgf("session: command failed: status=%s", e.View.Status)
	default:
		zlog.Debug().Msgf("session: event: seq=%d, type=%s, state=%s", e.Seq, e.Type, e.State)
	}
}

// Close stops playback, releases the engine, shuts the control API down and closes the hub.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	started := m.started
	subscriptions := m.subscriptions
	m.mu.Unlock()

	var errs error
	if err := m.controller.Close(); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrap(err, "failed to close controller"))
	}

	if m.server != nil && started {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.HTTP.ShutdownTimeout())
		if err := m.server.Shutdown(ctx); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
		cancel()
	}

	for _, id := range subscriptions {
		m.hub.Unsubscribe(id)
	}
	m.hub.Close()
	if started {
		m.cancel()
		m.wg.Wait()
	} else {
		close(m.done)
	}

	zlog.Info().Msg("session: closed")
	return errs
}
