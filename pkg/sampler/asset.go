// Package sampler implements sample playback: immutable decoded sample
// assets, the voices that play them and the fixed-size voice pool that the
// render context drives.
package sampler

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// DefaultMaxLength is the longest sample kept, in seconds. Longer input is
// truncated.
const DefaultMaxLength = 10.0

// ErrInvalidAsset is returned when PCM data or metadata cannot form an asset.
var ErrInvalidAsset = errors.New("invalid sample asset")

// PCM is decoded, de-interleaved audio in the -1..1 range.
type PCM struct {
	Channels   [][]float32
	SampleRate float64
}

// NumChannels returns the channel count
func (p *PCM) NumChannels() int {
	return len(p.Channels)
}

// Frames returns the number of sample frames (the shortest channel)
func (p *PCM) Frames() int {
	if len(p.Channels) == 0 {
		return 0
	}
	n := len(p.Channels[0])
	for _, ch := range p.Channels[1:] {
		n = min(n, len(ch))
	}
	return n
}

// Duration returns the length in seconds
func (p *PCM) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Frames()) / p.SampleRate
}

// Metadata describes how an asset maps onto the keyboard.
type Metadata struct {
	Name      string
	RootNote  uint8
	LowNote   uint8
	HighNote  uint8
	Attack    float64 // envelope hint, seconds
	Release   float64 // envelope hint, seconds
	MaxLength float64 // seconds, 0 selects DefaultMaxLength
}

// FullRange is the note range covering the whole keyboard
func FullRange(name string, root uint8) Metadata {
	return Metadata{Name: name, RootNote: root, LowNote: 0, HighNote: 127}
}

var versions atomic.Uint64

// Asset is an immutable, reference-counted sample ready for playback.
//
// The creator holds the first reference. Every holder (pending slot, pool
// binding, playing voice) retains its own reference and releases it when done.
// Retain and Release are single atomic operations and may be called from the
// render context.
type Asset struct {
	name       string
	data       [][]float32
	frames     int
	sampleRate float64
	root       uint8
	low, high  uint8
	attack     float64
	release    float64
	version    uint64

	refs     atomic.Int32
	released atomic.Bool
}

// NewAsset validates pcm and meta and builds an asset holding one reference.
// PCM longer than the max length is truncated; the channel slices are shared,
// not copied, and must not be modified afterwards.
func NewAsset(pcm PCM, meta Metadata) (*Asset, error) {
	channels := pcm.NumChannels()
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidAsset, channels)
	}
	if pcm.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidAsset, pcm.SampleRate)
	}
	frames := pcm.Frames()
	if frames == 0 {
		return nil, fmt.Errorf("%w: no sample frames", ErrInvalidAsset)
	}
	if meta.RootNote > 127 || meta.HighNote > 127 || meta.LowNote > meta.HighNote {
		return nil, fmt.Errorf("%w: note mapping root %d range [%d,%d]",
			ErrInvalidAsset, meta.RootNote, meta.LowNote, meta.HighNote)
	}
	if meta.Attack < 0 || meta.Release < 0 {
		return nil, fmt.Errorf("%w: negative envelope hint", ErrInvalidAsset)
	}

	maxLength := meta.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if limit := int(maxLength * pcm.SampleRate); limit > 0 && frames > limit {
		frames = limit
	}

	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = pcm.Channels[ch][:frames:frames]
	}

	a := &Asset{
		name:       meta.Name,
		data:       data,
		frames:     frames,
		sampleRate: pcm.SampleRate,
		root:       meta.RootNote,
		low:        meta.LowNote,
		high:       meta.HighNote,
		attack:     meta.Attack,
		release:    meta.Release,
		version:    versions.Add(1),
	}
	a.refs.Store(1)
	return a, nil
}

// Name returns the sample name
func (a *Asset) Name() string { return a.name }

// Channels returns 1 or 2
func (a *Asset) Channels() int { return len(a.data) }

// Frames returns the playable length in frames
func (a *Asset) Frames() int { return a.frames }

// SampleRate returns the native sample rate
func (a *Asset) SampleRate() float64 { return a.sampleRate }

// RootNote returns the note that plays back at native pitch
func (a *Asset) RootNote() uint8 { return a.root }

// NoteRange returns the lowest and highest playable notes
func (a *Asset) NoteRange() (low, high uint8) { return a.low, a.high }

// Covers reports whether note is within the playable range
func (a *Asset) Covers(note uint8) bool { return note >= a.low && note <= a.high }

// Envelope returns the attack and release hint baked in at load
func (a *Asset) Envelope() (attack, release float64) { return a.attack, a.release }

// Version is a process-wide unique, increasing identity tag
func (a *Asset) Version() uint64 { return a.version }

// Data returns the channel data. Callers must treat it as read-only.
func (a *Asset) Data() [][]float32 { return a.data }

// Retain adds a reference
func (a *Asset) Retain() {
	a.refs.Add(1)
}

// Release drops a reference and reports whether it was the last one. The
// count never goes negative; extra releases are ignored.
func (a *Asset) Release() bool {
	for {
		n := a.refs.Load()
		if n <= 0 {
			return false
		}
		if a.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				a.released.Store(true)
				return true
			}
			return false
		}
	}
}

// RefCount returns the current number of references
func (a *Asset) RefCount() int32 {
	return a.refs.Load()
}

// Released reports whether the last reference has been dropped
func (a *Asset) Released() bool {
	return a.released.Load()
}

func (a *Asset) String() string {
	return fmt.Sprintf("%s v%d (%d ch, %d frames @ %.0f Hz, root %d)",
		a.name, a.version, len(a.data), a.frames, a.sampleRate, a.root)
}
