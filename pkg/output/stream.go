// Package output plays the engine live. A Stream renders blocks on its own
// goroutine into a byte ring; device backends drain the ring from their
// callbacks as interleaved float32 little-endian frames.
package output

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/justyntemme/vst3sampler/pkg/framework/process"
)

const bytesPerSample = 4

// DefaultBufferedBlocks is how many blocks the ring holds
const DefaultBufferedBlocks = 4

// Renderer renders one block into the context's output buffers
type Renderer interface {
	ProcessAudio(ctx *process.Context)
}

// StreamConfig describes the rendered audio
type StreamConfig struct {
	SampleRate     int
	Channels       int
	BlockSize      int
	BufferedBlocks int
}

func (c StreamConfig) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	case c.Channels < 1 || c.Channels > 2:
		return fmt.Errorf("invalid channel count %d", c.Channels)
	case c.BlockSize <= 0:
		return fmt.Errorf("invalid block size %d", c.BlockSize)
	}
	return nil
}

// Stream is the render goroutine plus the ring a device reads from. Run is
// the only caller of the renderer; Read may be called from any one device
// goroutine.
type Stream struct {
	cfg      StreamConfig
	renderer Renderer
	rb       *ringbuffer.RingBuffer

	ctx    *process.Context
	frames []float32
	bytes  []byte
	period time.Duration

	wake      chan struct{}
	underruns atomic.Uint64
	blocks    atomic.Uint64
	observe   func(time.Duration)
}

// NewStream creates a stream rendering through r
func NewStream(r Renderer, cfg StreamConfig) (*Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.BufferedBlocks <= 0 {
		cfg.BufferedBlocks = DefaultBufferedBlocks
	}

	blockBytes := cfg.BlockSize * cfg.Channels * bytesPerSample
	return &Stream{
		cfg:      cfg,
		renderer: r,
		rb:       ringbuffer.New(blockBytes * cfg.BufferedBlocks),
		ctx:      process.NewContext(cfg.Channels, cfg.BlockSize, float64(cfg.SampleRate)),
		frames:   make([]float32, cfg.BlockSize*cfg.Channels),
		bytes:    make([]byte, blockBytes),
		period:   time.Duration(float64(time.Second) * float64(cfg.BlockSize) / float64(cfg.SampleRate)),
		wake:     make(chan struct{}, 1),
	}, nil
}

// Config returns the stream format
func (s *Stream) Config() StreamConfig {
	return s.cfg
}

// OnBlock registers a callback receiving each block's render time. Set it
// before Run.
func (s *Stream) OnBlock(fn func(time.Duration)) {
	s.observe = fn
}

// Underruns counts reads that found too little rendered audio
func (s *Stream) Underruns() uint64 {
	return s.underruns.Load()
}

// Blocks counts rendered blocks
func (s *Stream) Blocks() uint64 {
	return s.blocks.Load()
}

// Buffered returns the rendered bytes waiting to be read
func (s *Stream) Buffered() int {
	return s.rb.Length()
}

// Run keeps the ring full until ctx is done
func (s *Stream) Run(ctx context.Context) error {
	if err := s.fill(); err != nil {
		return err
	}

	ticker := time.NewTicker(max(s.period/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		case <-ticker.C:
		}
		if err := s.fill(); err != nil {
			return err
		}
	}
}

// fill renders blocks while a whole block fits. Run is the only writer, so
// free space can only grow between the check and the write.
func (s *Stream) fill() error {
	for s.rb.Free() >= len(s.bytes) {
		start := time.Now()
		s.ctx.Begin(s.cfg.BlockSize)
		s.renderer.ProcessAudio(s.ctx)
		if s.observe != nil {
			s.observe(time.Since(start))
		}

		n := s.ctx.Interleave(s.frames)
		for i, v := range s.frames[:n] {
			binary.LittleEndian.PutUint32(s.bytes[i*bytesPerSample:], math.Float32bits(v))
		}
		if _, err := s.rb.Write(s.bytes[:n*bytesPerSample]); err != nil {
			return fmt.Errorf("writing rendered block: %w", err)
		}
		s.blocks.Add(1)
	}
	return nil
}

// Read fills p with rendered frames. A shortfall is padded with silence
// and counted as an underrun; Read never blocks and always fills p.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.rb.Read(p)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return 0, err
	}
	if n < len(p) {
		clear(p[n:])
		s.underruns.Add(1)
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return len(p), nil
}
