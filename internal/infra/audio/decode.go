package audio

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	beepwav "github.com/faiface/beep/wav"

	"github.com/osa030/talitunes/internal/domain/track"
)

// ErrUnsupportedFormat is returned for files whose extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// fileStream closes the underlying file together with the decoder.
type fileStream struct {
	beep.StreamSeekCloser
	file *os.File
}

func (s *fileStream) Close() error {
	err := s.StreamSeekCloser.Close()
	if cerr := s.file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}

// openStream opens path and decodes it according to its extension.
func openStream(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := track.Ext(path)
	switch ext {
	case "mp3", "wav", "flac", "ogg":
	default:
		return nil, beep.Format{}, errors.Mark(errors.Newf("%s: .%s", path, ext), ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, errors.Wrapf(err, "failed to open %s", path)
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch ext {
	case "mp3":
		stream, format, err = mp3.Decode(f)
	case "wav":
		stream, format, err = beepwav.Decode(f)
	case "flac":
		stream, format, err = flac.Decode(f)
	case "ogg":
		stream, format, err = vorbis.Decode(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, errors.Wrapf(err, "failed to decode %s", path)
	}

	return &fileStream{StreamSeekCloser: stream, file: f}, format, nil
}
