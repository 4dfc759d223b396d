// Package audio provides the audio output engines and the duration probe.
package audio

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/app/playback"
)

// Engine names.
const (
	EngineBeep = "beep"
	EngineNull = "null"
)

// ErrUnknownEngine is returned by New for an unregistered engine name.
var ErrUnknownEngine = errors.New("unknown audio engine")

// Factory creates an engine from its settings map.
type Factory func(settings map[string]any) (playback.Engine, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func init() {
	Register(EngineBeep, func(settings map[string]any) (playback.Engine, error) {
		return NewBeepEngine(settings)
	})
	Register(EngineNull, func(settings map[string]any) (playback.Engine, error) {
		return NewNullEngine(settings)
	})
}

// Register registers an engine factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Names returns the registered engine names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the engine registered under name.
func New(name string, settings map[string]any) (playback.Engine, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.Mark(errors.Newf("unsupported engine type: %s (available: %v)", name, Names()), ErrUnknownEngine)
	}

	zlog.Debug().Msgf("audio: creating engine: type=%s settings=%+v", name, settings)
	engine, err := factory(settings)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create engine (type %s)", name)
	}
	return engine, nil
}

// decodeSettings decodes a settings map into out, applies defaults and validates the result.
func decodeSettings(settings map[string]any, out any) error {
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := mapstructure.WeakDecode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
