package decode

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/justyntemme/vst3sampler/pkg/sampler"
)

const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) (*sampler.PCM, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file", ErrDecode)
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV format %d is not integer PCM", ErrDecode, decoder.WavAudioFormat)
	}

	channels := int(decoder.NumChans)
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: unsupported number of channels: %d", ErrDecode, channels)
	}

	divisor, err := audioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: reading WAV data: %v", ErrDecode, err)
	}

	return &sampler.PCM{
		Channels:   deinterleave(buf.Data, channels, divisor),
		SampleRate: float64(decoder.SampleRate),
	}, nil
}

// EncodeWAV writes pcm as integer WAV at bitDepth (16 or 24). Samples are
// clipped to -1..1.
func EncodeWAV(w io.WriteSeeker, pcm *sampler.PCM, bitDepth int) error {
	channels := pcm.NumChannels()
	if channels == 0 {
		return fmt.Errorf("encode WAV: no channels")
	}
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("encode WAV: unsupported bit depth %d", bitDepth)
	}

	scale := float64(int(1)<<(bitDepth-1)) - 1
	frames := pcm.Frames()
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := float64(pcm.Channels[ch][i])
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			data[i*channels+ch] = int(s * scale)
		}
	}

	rate := int(pcm.SampleRate)
	enc := wav.NewEncoder(w, rate, bitDepth, channels, wavFormatPCM)
	if err := enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	return enc.Close()
}
