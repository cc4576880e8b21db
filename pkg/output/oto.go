package output

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoBackend plays through oto. oto allows one context per process.
type OtoBackend struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

// Name implements Backend
func (b *OtoBackend) Name() string { return "oto" }

// Start implements Backend
func (b *OtoBackend) Start(s *Stream) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player != nil {
		return errors.New("oto backend already started")
	}

	cfg := s.Config()
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(float64(time.Second) * float64(cfg.BlockSize) / float64(cfg.SampleRate)),
	})
	if err != nil {
		return fmt.Errorf("oto context: %w", err)
	}
	<-ready

	b.ctx = ctx
	b.player = ctx.NewPlayer(s)
	b.player.Play()
	return nil
}

// Close implements Backend
func (b *OtoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return nil
	}
	err := b.player.Close()
	b.player = nil
	if b.ctx != nil {
		err = errors.Join(err, b.ctx.Suspend())
	}
	return err
}
