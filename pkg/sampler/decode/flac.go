package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tphakala/flac"

	"github.com/justyntemme/vst3sampler/pkg/sampler"
)

func decodeFLAC(r io.Reader) (*sampler.PCM, error) {
	decoder, err := flac.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid FLAC stream: %v", ErrDecode, err)
	}

	channels := decoder.NChannels
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: unsupported number of channels: %d", ErrDecode, channels)
	}

	bits := decoder.BitsPerSample
	divisor, err := audioDivisor(bits)
	if err != nil {
		return nil, err
	}
	width := bits / 8

	out := make([][]float32, channels)
	if total := int(decoder.TotalSamples); total > 0 {
		for ch := range out {
			out[ch] = make([]float32, 0, total)
		}
	}

	// Process FLAC frames
	for {
		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: FLAC frame: %v", ErrDecode, err)
		}

		for i := 0; i+width*channels <= len(frame); i += width * channels {
			for ch := 0; ch < channels; ch++ {
				out[ch] = append(out[ch], float32(sampleAt(frame[i+ch*width:], bits))/divisor)
			}
		}
	}

	return &sampler.PCM{Channels: out, SampleRate: float64(decoder.SampleRate)}, nil
}

// sampleAt reads one little-endian signed sample
func sampleAt(b []byte, bits int) int32 {
	switch bits {
	case 16:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		// sign extend
		return v << 8 >> 8
	default:
		return int32(binary.LittleEndian.Uint32(b))
	}
}
