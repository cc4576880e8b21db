package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoBackend plays through miniaudio's default playback device
type MalgoBackend struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// Name implements Backend
func (b *MalgoBackend) Name() string { return "malgo" }

// Start implements Backend
func (b *MalgoBackend) Start(s *Stream) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil {
		return errors.New("malgo backend already started")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("malgo context init: %w", err)
	}

	cfg := s.Config()
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BlockSize)
	deviceConfig.Alsa.NoMMap = 1

	frameBytes := uint32(cfg.Channels * bytesPerSample)
	onSamples := func(pOutput, _ []byte, frameCount uint32) {
		_, _ = s.Read(pOutput[:frameCount*frameBytes])
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("malgo device init: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("malgo device start: %w", err)
	}

	b.ctx = ctx
	b.device = device
	return nil
}

// Close implements Backend
func (b *MalgoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return nil
	}

	err := b.device.Stop()
	b.device.Uninit()
	b.device = nil

	err = errors.Join(err, b.ctx.Uninit())
	b.ctx.Free()
	b.ctx = nil
	return err
}
