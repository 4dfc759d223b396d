// Package library expands user supplied paths into playlist entries.
package library

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/talitunes/internal/domain/track"
)

// Rejection codes.
const (
	CodeExtension   = "unsupported_extension"
	CodeHidden      = "hidden_file"
	CodeDuration    = "duration_limit_exceeded"
	CodeDuplicate   = "duplicate_track"
	CodeNotFound    = "not_found"
	CodeProbeFailed = "probe_failed"
	CodeNotRegular  = "not_regular_file"
)

var errNoProber = errors.New("no duration prober configured")

// Prober returns the duration of an audio file.
type Prober func(path string) (time.Duration, error)

// Candidate is a file considered for the playlist.
type Candidate struct {
	Path     string
	Name     string
	Explicit bool // Named directly by the user rather than found by a scan

	prober   Prober
	probed   bool
	duration time.Duration
	probeErr error
}

// NewCandidate creates a candidate for path.
func NewCandidate(path string, explicit bool, prober Prober) *Candidate {
	return &Candidate{
		Path:     path,
		Name:     track.DisplayName(path),
		Explicit: explicit,
		prober:   prober,
	}
}

// Duration probes the file once and caches the result.
func (c *Candidate) Duration() (time.Duration, error) {
	if !c.probed {
		c.probed = true
		if c.prober == nil {
			c.probeErr = errNoProber
		} else {
			c.duration, c.probeErr = c.prober(c.Path)
		}
	}
	return c.duration, c.probeErr
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for scan filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ValidateConfig validates and applies the filter configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesToExplicit reports whether paths named by the user are checked too.
	AppliesToExplicit() bool
	// Check performs the filter check.
	Check(ctx context.Context, c *Candidate) Result
}

// registry holds registered filter factories for optional filters.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}

// RegisteredNames returns the registered filter names in sorted order.
func RegisteredNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
