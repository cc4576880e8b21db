package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrUnknownBackend is returned for backend names NewBackend does not know
var ErrUnknownBackend = errors.New("unknown output backend")

// Backend pulls audio from a stream into a device
type Backend interface {
	Name() string
	Start(s *Stream) error
	Close() error
}

// Backends lists the names NewBackend accepts
var Backends = []string{"oto", "malgo", "null"}

// NewBackend creates the named backend
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "oto":
		return &OtoBackend{}, nil
	case "malgo":
		return &MalgoBackend{}, nil
	case "null", "none":
		return &NullBackend{}, nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownBackend, name, strings.Join(Backends, ", "))
}

// NullBackend reads the stream at real-time pace and discards it, for
// headless runs.
type NullBackend struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Name implements Backend
func (b *NullBackend) Name() string { return "null" }

// Start implements Backend
func (b *NullBackend) Start(s *Stream) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return errors.New("null backend already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	cfg := s.Config()
	buf := make([]byte, cfg.BlockSize*cfg.Channels*bytesPerSample)
	period := time.Duration(float64(time.Second) * float64(cfg.BlockSize) / float64(cfg.SampleRate))

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(max(period, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.Read(buf)
			}
		}
	}()
	return nil
}

// Close implements Backend
func (b *NullBackend) Close() error {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		b.wg.Wait()
	}
	return nil
}
