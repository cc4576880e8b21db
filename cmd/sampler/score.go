package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/justyntemme/vst3sampler/pkg/engine"
	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/framework/process"
	"github.com/justyntemme/vst3sampler/pkg/midi"
	"github.com/justyntemme/vst3sampler/pkg/sampler"
)

// Score is an offline performance. Times are in seconds.
//
//	sample: guitar
//	params:
//	  roomSize: 0.9
//	notes:
//	  - {at: 0, note: 60, velocity: 100, length: 0.5}
//	length: 2
type Score struct {
	Sample string         `yaml:"sample"`
	Params map[string]any `yaml:"params"`
	Notes  []ScoreNote    `yaml:"notes"`
	CC     []ScoreCC      `yaml:"cc"`
	Length float64        `yaml:"length"`
}

// ScoreNote is a note on at At and, when Length is positive, a note off
// Length seconds later
type ScoreNote struct {
	At       float64 `yaml:"at"`
	Note     int     `yaml:"note"`
	Velocity int     `yaml:"velocity"`
	Length   float64 `yaml:"length"`
	Channel  int     `yaml:"channel"`
}

// ScoreCC is a control change at At
type ScoreCC struct {
	At         float64 `yaml:"at"`
	Controller int     `yaml:"controller"`
	Value      int     `yaml:"value"`
	Channel    int     `yaml:"channel"`
}

// timedEvent is an event at an absolute frame
type timedEvent struct {
	frame int64
	ev    midi.Event
}

func inMIDIRange(v int) bool { return v >= 0 && v <= 127 }

// LoadScore decodes a YAML score, rejecting unknown fields
func LoadScore(r io.Reader) (*Score, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Score
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding score: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScoreFile reads a score from path
func LoadScoreFile(path string) (*Score, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadScore(f)
}

// Validate reports every out-of-range note and controller
func (s *Score) Validate() error {
	var errs []error
	if s.Length < 0 {
		errs = append(errs, fmt.Errorf("length %g is negative", s.Length))
	}
	for i, n := range s.Notes {
		if n.At < 0 || n.Length < 0 {
			errs = append(errs, fmt.Errorf("note %d: negative time", i))
		}
		if !inMIDIRange(n.Note) || !inMIDIRange(n.Velocity) || n.Channel < 0 || n.Channel > 15 {
			errs = append(errs, fmt.Errorf("note %d: note %d velocity %d channel %d out of range", i, n.Note, n.Velocity, n.Channel))
		}
	}
	for i, c := range s.CC {
		if c.At < 0 {
			errs = append(errs, fmt.Errorf("cc %d: negative time", i))
		}
		if !inMIDIRange(c.Controller) || !inMIDIRange(c.Value) || c.Channel < 0 || c.Channel > 15 {
			errs = append(errs, fmt.Errorf("cc %d: controller %d value %d channel %d out of range", i, c.Controller, c.Value, c.Channel))
		}
	}
	return errors.Join(errs...)
}

func toFrame(seconds, sampleRate float64) int64 {
	return int64(math.Round(seconds * sampleRate))
}

// events flattens the score into frame-stamped events. Note offs sort
// before note ons at the same frame so a repeated note retriggers.
func (s *Score) events(sampleRate float64) []timedEvent {
	out := make([]timedEvent, 0, 2*len(s.Notes)+len(s.CC))
	for _, n := range s.Notes {
		ch, note := uint8(n.Channel), uint8(n.Note)
		out = append(out, timedEvent{toFrame(n.At, sampleRate), midi.NoteOn(ch, note, uint8(n.Velocity), 0)})
		if n.Length > 0 {
			out = append(out, timedEvent{toFrame(n.At+n.Length, sampleRate), midi.NoteOff(ch, note, 0, 0)})
		}
	}
	for _, c := range s.CC {
		out = append(out, timedEvent{toFrame(c.At, sampleRate), midi.ControlChange(uint8(c.Channel), uint8(c.Controller), uint8(c.Value), 0)})
	}
	slices.SortStableFunc(out, func(a, b timedEvent) int {
		if a.frame != b.frame {
			if a.frame < b.frame {
				return -1
			}
			return 1
		}
		return boolRank(a.ev.IsNoteOn()) - boolRank(b.ev.IsNoteOn())
	})
	return out
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// frames is the rendered length: Length when set, otherwise the last event
// plus tail frames
func (s *Score) frames(sampleRate float64, tail int64) int64 {
	if s.Length > 0 {
		return toFrame(s.Length, sampleRate)
	}
	var last int64
	for _, te := range s.events(sampleRate) {
		last = max(last, te.frame)
	}
	return last + tail
}

// renderScore drives e block by block, placing each event at its frame
// offset inside the block that contains it. prof may be nil.
func renderScore(e *engine.Engine, s *Score, block int, prof *debug.RenderProfiler) *sampler.PCM {
	sr := e.SampleRate()
	channels := int(e.GetBuses().OutputChannels())
	total := s.frames(sr, int64(e.GetTailSamples()))

	pcm := &sampler.PCM{SampleRate: sr, Channels: make([][]float32, channels)}
	for ch := range pcm.Channels {
		pcm.Channels[ch] = make([]float32, 0, total)
	}

	ctx := process.NewContext(channels, block, sr)
	events := s.events(sr)
	next := 0

	for pos := int64(0); pos < total; {
		n := int(min(int64(block), total-pos))
		ctx.Begin(n)
		for next < len(events) && events[next].frame < pos+int64(n) {
			ev := events[next].ev
			ev.Offset = int32(max(events[next].frame-pos, 0))
			if !ctx.AddEvent(ev) {
				// Full block: the rest go into the next one
				break
			}
			next++
		}

		var done func()
		if prof != nil {
			done = prof.Start(n)
		}
		e.ProcessAudio(ctx)
		if done != nil {
			done()
		}

		for ch := range pcm.Channels {
			pcm.Channels[ch] = append(pcm.Channels[ch], ctx.Output[ch]...)
		}
		pos += int64(n)
	}
	return pcm
}
