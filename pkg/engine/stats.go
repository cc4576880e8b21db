package engine

import (
	"math"
	"sync/atomic"
)

// Stats are counters the render context updates with single atomic
// operations. Any goroutine may read them.
type Stats struct {
	BlocksRendered atomic.Uint64
	FramesRendered atomic.Uint64
	NotesStarted   atomic.Uint64
	NotesIgnored   atomic.Uint64
	NotesStolen    atomic.Uint64
	AssetSwaps     atomic.Uint64
	DecodeFailures atomic.Uint64
	ReverbResets   atomic.Uint64
	EventsDropped  atomic.Uint64 // host events past the per-block limit
	ActiveVoices   atomic.Int32
	AssetVersion   atomic.Uint64

	peak atomic.Uint32 // float32 bits of the last block's peak
}

// StatsSnapshot is a plain copy of Stats
type StatsSnapshot struct {
	BlocksRendered uint64  `json:"blocks_rendered"`
	FramesRendered uint64  `json:"frames_rendered"`
	NotesStarted   uint64  `json:"notes_started"`
	NotesIgnored   uint64  `json:"notes_ignored"`
	NotesStolen    uint64  `json:"notes_stolen"`
	AssetSwaps     uint64  `json:"asset_swaps"`
	DecodeFailures uint64  `json:"decode_failures"`
	ReverbResets   uint64  `json:"reverb_resets"`
	EventsDropped  uint64  `json:"events_dropped"`
	ActiveVoices   int32   `json:"active_voices"`
	AssetVersion   uint64  `json:"asset_version"`
	PeakLevel      float32 `json:"peak_level"`
}

// SetPeak records the peak level of the last block
func (s *Stats) SetPeak(v float32) {
	s.peak.Store(math.Float32bits(v))
}

// Peak returns the peak level of the last block
func (s *Stats) Peak() float32 {
	return math.Float32frombits(s.peak.Load())
}

// Snapshot copies every counter. Counters are read one by one, so a
// snapshot taken while rendering may mix adjacent blocks.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		BlocksRendered: s.BlocksRendered.Load(),
		FramesRendered: s.FramesRendered.Load(),
		NotesStarted:   s.NotesStarted.Load(),
		NotesIgnored:   s.NotesIgnored.Load(),
		NotesStolen:    s.NotesStolen.Load(),
		AssetSwaps:     s.AssetSwaps.Load(),
		DecodeFailures: s.DecodeFailures.Load(),
		ReverbResets:   s.ReverbResets.Load(),
		EventsDropped:  s.EventsDropped.Load(),
		ActiveVoices:   s.ActiveVoices.Load(),
		AssetVersion:   s.AssetVersion.Load(),
		PeakLevel:      s.Peak(),
	}
}
