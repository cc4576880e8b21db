// Package decode turns WAV and FLAC files into de-interleaved float PCM for
// sample assets.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/vst3sampler/pkg/sampler"
)

// ErrDecode is returned for unknown, unsupported or corrupt input.
var ErrDecode = errors.New("cannot decode audio")

// Format identifies a container
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatFLAC
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatFLAC:
		return "flac"
	default:
		return "unknown"
	}
}

// Extensions lists the file extensions the library scans for
var Extensions = []string{".wav", ".flac"}

// IsSupported reports whether path has a decodable extension
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Sniff detects the container from the first bytes of a file
func Sniff(header []byte) Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case len(header) >= 4 && bytes.Equal(header[0:4], []byte("fLaC")):
		return FormatFLAC
	default:
		return FormatUnknown
	}
}

// Decode reads a whole WAV or FLAC stream into memory
func Decode(r io.ReadSeeker) (*sampler.PCM, error) {
	header := make([]byte, 12)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: reading header: %v", ErrDecode, err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: rewinding: %v", ErrDecode, err)
	}

	var pcm *sampler.PCM
	switch Sniff(header[:n]) {
	case FormatWAV:
		pcm, err = decodeWAV(r)
	case FormatFLAC:
		pcm, err = decodeFLAC(r)
	default:
		return nil, fmt.Errorf("%w: unrecognized container", ErrDecode)
	}
	if err != nil {
		return nil, err
	}

	if pcm.Frames() == 0 {
		return nil, fmt.Errorf("%w: no audio data", ErrDecode)
	}
	return pcm, nil
}

// DecodeFile opens and decodes path
func DecodeFile(path string) (*sampler.PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample: %w", err)
	}
	defer f.Close()

	pcm, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return pcm, nil
}

// audioDivisor returns the full-scale value for a PCM bit depth
func audioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, bitDepth)
	}
}

// deinterleave splits interleaved integer samples into per-channel floats
func deinterleave(data []int, channels int, divisor float32) [][]float32 {
	frames := len(data) / channels
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[ch][i] = float32(data[i*channels+ch]) / divisor
		}
	}
	return out
}
