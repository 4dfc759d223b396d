package playback

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// maxSeconds is the largest whole number of seconds a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// FormatTime formats seconds as MM:SS. Negative and non-finite input is clamped to zero,
// values beyond the time.Duration range to maxSeconds.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	if seconds > maxSeconds {
		seconds = maxSeconds
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatDuration formats d as MM:SS.
func FormatDuration(d time.Duration) string {
	return FormatTime(d.Seconds())
}

// ParsePosition parses "MM:SS" or a plain number of seconds.
func ParsePosition(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty position")
	}

	if mins, secs, ok := strings.Cut(s, ":"); ok {
		m, err := strconv.Atoi(mins)
		if err != nil || m < 0 {
			return 0, errors.Newf("invalid minutes in %q", s)
		}
		sec, err := strconv.ParseFloat(secs, 64)
		if err != nil || sec < 0 || sec >= 60 {
			return 0, errors.Newf("invalid seconds in %q", s)
		}
		if float64(m)*60+sec > maxSeconds {
			return 0, errors.Newf("position %q out of range", s)
		}
		return time.Duration(m)*time.Minute + time.Duration(sec*float64(time.Second)), nil
	}

	sec, err := strconv.ParseFloat(s, 64)
	if err != nil || sec < 0 || math.IsInf(sec, 0) {
		return 0, errors.Newf("invalid position %q", s)
	}
	if sec > maxSeconds {
		return 0, errors.Newf("position %q out of range", s)
	}
	return time.Duration(sec * float64(time.Second)), nil
}
