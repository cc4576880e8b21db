package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/framework/param"
	"github.com/justyntemme/vst3sampler/pkg/sampler"
)

// ErrClosed is returned by loads attempted after the loader closed
var ErrClosed = errors.New("loader closed")

const noRequest = -1

// SampleSource decodes library entries into assets
type SampleSource interface {
	Load(index int, attack, release float64) (*sampler.Asset, error)
	Len() int
}

// Loader turns currentSample changes into decoded assets published to the
// engine. Requests made while a decode is running coalesce: only the
// latest index is loaded next.
type Loader struct {
	engine *Engine
	source SampleSource
	log    *debug.Logger

	pending atomic.Int64
	loaded  atomic.Int64
	closed  atomic.Bool
	notify  chan struct{}

	unsubscribe func()
}

// NewLoader subscribes to the engine's currentSample parameter and queues
// the current selection.
func NewLoader(e *Engine, source SampleSource) *Loader {
	l := &Loader{
		engine: e,
		source: source,
		log:    debug.Module("loader"),
		notify: make(chan struct{}, 1),
	}
	l.pending.Store(noRequest)
	l.loaded.Store(noRequest)

	l.unsubscribe = e.GetParameters().Subscribe(func(p *param.Parameter) {
		if p.ID == ParamCurrentSample {
			l.Request(p.Index())
		}
	})
	l.Request(e.CurrentSample())
	return l
}

// SetLogger replaces the loader's logger
func (l *Loader) SetLogger(log *debug.Logger) {
	if log != nil {
		l.log = log
	}
}

// Request queues index for loading, replacing any queued request
func (l *Loader) Request(index int) {
	if l.closed.Load() {
		return
	}
	l.pending.Store(int64(index))
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Loaded returns the index of the last published asset, or -1
func (l *Loader) Loaded() int {
	return int(l.loaded.Load())
}

// Run loads requested samples until ctx is done
func (l *Loader) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if index := l.pending.Swap(noRequest); index != noRequest {
			// Failures are logged and counted; the previous asset stays bound
			_ = l.Load(int(index))
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.notify:
		}
	}
}

// Load decodes index on the calling goroutine and publishes it. The asset
// carries the current attack and release as its envelope hint.
func (l *Loader) Load(index int) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if index < 0 || index >= l.source.Len() {
		l.engine.stats.DecodeFailures.Add(1)
		l.log.Warn("sample index out of range", "index", index, "samples", l.source.Len())
		return fmt.Errorf("sample index %d out of range [0,%d)", index, l.source.Len())
	}

	attack, release := l.engine.EnvelopeHint()
	a, err := l.source.Load(index, attack, release)
	if err != nil {
		l.engine.stats.DecodeFailures.Add(1)
		l.log.ErrorIf(err, "sample load failed, keeping previous sample", "index", index)
		return err
	}

	l.engine.Coordinator().PublishSample(a)
	l.loaded.Store(int64(index))
	l.log.Info("sample published", "index", index, "asset", a.String())
	return nil
}

// Close stops listening for parameter changes. A Run in progress keeps
// going until its context is done.
func (l *Loader) Close() {
	if l.closed.Swap(true) {
		return
	}
	l.unsubscribe()
}
