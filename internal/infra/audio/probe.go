package audio

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/osa030/talitunes/internal/domain/track"
)

// ProbeResult describes an audio file without playing it.
type ProbeResult struct {
	Path       string
	Format     string // Container extension
	SampleRate int
	Channels   int
	BitDepth   int // Zero when the decoder does not report it
	Duration   time.Duration
}

// Probe reads the header (or decodes the stream) of path to determine its duration.
func Probe(path string) (ProbeResult, error) {
	if track.Ext(path) == "wav" {
		return probeWAV(path)
	}
	return probeStream(path)
}

// ProbeDuration returns only the duration of path.
func ProbeDuration(path string) (time.Duration, error) {
	r, err := Probe(path)
	if err != nil {
		return 0, err
	}
	return r.Duration, nil
}

func probeWAV(path string) (ProbeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ProbeResult{}, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return ProbeResult{}, errors.Mark(errors.Newf("%s: invalid wav file", path), ErrUnsupportedFormat)
	}

	duration, err := d.Duration()
	if err != nil {
		return ProbeResult{}, errors.Wrapf(err, "failed to read duration of %s", path)
	}

	result := ProbeResult{
		Path:     path,
		Format:   "wav",
		BitDepth: int(d.BitDepth),
		Duration: duration,
	}
	applyFormat(&result, d.Format())
	return result, nil
}

func applyFormat(r *ProbeResult, f *goaudio.Format) {
	if f == nil {
		return
	}
	r.SampleRate = f.SampleRate
	r.Channels = f.NumChannels
}

func probeStream(path string) (ProbeResult, error) {
	stream, format, err := openStream(path)
	if err != nil {
		return ProbeResult{}, err
	}
	defer stream.Close()

	return ProbeResult{
		Path:       path,
		Format:     track.Ext(path),
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
		BitDepth:   format.Precision * 8,
		Duration:   format.SampleRate.D(stream.Len()),
	}, nil
}
