package playback

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		expected string
	}{
		{name: "zero", seconds: 0, expected: "00:00"},
		{name: "fractional truncated", seconds: 125.7, expected: "02:05"},
		{name: "just under a minute", seconds: 59.999, expected: "00:59"},
		{name: "exact minute", seconds: 60, expected: "01:00"},
		{name: "over an hour", seconds: 3725, expected: "62:05"},
		{name: "negative clamped", seconds: -5, expected: "00:00"},
		{name: "NaN clamped", seconds: math.NaN(), expected: "00:00"},
		{name: "infinity clamped", seconds: math.Inf(1), expected: "00:00"},
		{name: "huge finite clamped", seconds: 1e300, expected: "153722867:16"},
		{name: "duration limit", seconds: maxSeconds, expected: "153722867:16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTime(tt.seconds))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "03:30", FormatDuration(3*time.Minute+30*time.Second+400*time.Millisecond))
	assert.Equal(t, "00:00", FormatDuration(-time.Second))
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "minutes and seconds", input: "02:05", want: 2*time.Minute + 5*time.Second},
		{name: "single digit minutes", input: "1:30", want: 90 * time.Second},
		{name: "plain seconds", input: "42", want: 42 * time.Second},
		{name: "fractional seconds", input: "1.5", want: 1500 * time.Millisecond},
		{name: "surrounding spaces", input: " 0:10 ", want: 10 * time.Second},
		{name: "empty", input: "", wantErr: true},
		{name: "seconds overflow", input: "1:75", wantErr: true},
		{name: "negative", input: "-3", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
		{name: "huge seconds", input: "1e300", wantErr: true},
		{name: "huge minutes", input: "999999999999:00", wantErr: true},
		{name: "minutes beyond int", input: "99999999999999999999:00", wantErr: true},
		{name: "largest position", input: "153722867:16", want: 9223372036 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePosition(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
