package library

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// DurationLimitConfig represents the configuration for DurationLimitFilter.
type DurationLimitConfig struct {
	MinSeconds float64 `yaml:"min_seconds" mapstructure:"min_seconds" default:"0" validate:"gte=0"`
	MaxSeconds float64 `yaml:"max_seconds" mapstructure:"max_seconds" validate:"gte=0"`
}

// DurationLimitFilter checks if a file's duration is within allowed limits.
// Files whose duration cannot be probed are rejected.
type DurationLimitFilter struct {
	config *DurationLimitConfig
}

// NewDurationLimitFilter creates a new duration limit filter.
func NewDurationLimitFilter() *DurationLimitFilter {
	return &DurationLimitFilter{}
}

func (f *DurationLimitFilter) Name() string {
	return "duration_limit_filter"
}

func (f *DurationLimitFilter) Description() string {
	return "Skips files shorter or longer than the configured limits"
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	// Zero max_seconds means no upper limit
	if config.MaxSeconds > 0 && config.MinSeconds > config.MaxSeconds {
		return errors.New("min_seconds cannot be greater than max_seconds")
	}
	f.config = &config
	zlog.Debug().Msgf("library: duration limit filter config: %+v", config)
	return nil
}

func (f *DurationLimitFilter) AppliesToExplicit() bool {
	return true
}

func (f *DurationLimitFilter) Check(_ context.Context, c *Candidate) Result {
	if f.config == nil {
		return Accept()
	}

	d, err := c.Duration()
	if err != nil {
		zlog.Debug().Msgf("library: probe failed: path=%s err=%v", c.Path, err)
		return Reject(CodeProbeFailed)
	}

	seconds := d.Seconds()
	if seconds < f.config.MinSeconds {
		return Reject(CodeDuration)
	}
	if f.config.MaxSeconds > 0 && seconds > f.config.MaxSeconds {
		return Reject(CodeDuration)
	}
	return Accept()
}

func init() {
	Register("duration_limit_filter", func() Filter {
		return NewDurationLimitFilter()
	})
}
