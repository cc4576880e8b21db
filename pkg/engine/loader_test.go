package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/framework/process"
	"github.com/justyntemme/vst3sampler/pkg/sampler"
)

var errBroken = errors.New("broken file")

// fakeSource builds tiny assets named after testNames
type fakeSource struct {
	mu      sync.Mutex
	calls   []int
	hints   [][2]float64
	failing map[int]bool

	// When set, Load signals started and waits on gate
	started chan int
	gate    chan struct{}
}

func (s *fakeSource) Len() int { return len(testNames) }

func (s *fakeSource) Load(index int, attack, release float64) (*sampler.Asset, error) {
	s.mu.Lock()
	s.calls = append(s.calls, index)
	s.hints = append(s.hints, [2]float64{attack, release})
	fail := s.failing[index]
	s.mu.Unlock()

	if s.started != nil {
		s.started <- index
		<-s.gate
	}
	if fail {
		return nil, errBroken
	}

	meta := sampler.FullRange(testNames[index], 60)
	meta.Attack, meta.Release = attack, release
	return sampler.NewAsset(sampler.PCM{Channels: [][]float32{make([]float32, 64)}, SampleRate: testRate}, meta)
}

func (s *fakeSource) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

func newTestLoader(t *testing.T, e *Engine, src SampleSource) *Loader {
	t.Helper()
	l := NewLoader(e, src)
	l.SetLogger(debug.Discard())
	t.Cleanup(l.Close)
	return l
}

func currentName(e *Engine) string {
	if a := e.pool.Current(); a != nil {
		return a.Name()
	}
	return ""
}

func TestLoaderLoadsCurrentSelection(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newTestEngine(t)
	src := &fakeSource{}
	l := newTestLoader(t, e, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Loaded() == 3 }, time.Second, time.Millisecond)
	pc := process.NewContext(2, testBlock, testRate)
	render(e, pc)
	assert.Equal(t, "singing", currentName(e))

	require.NoError(t, e.GetParameters().SetString(KeyCurrentSample, "guitar"))
	require.Eventually(t, func() bool { return l.Loaded() == 1 }, time.Second, time.Millisecond)
	render(e, pc)
	assert.Equal(t, "guitar", currentName(e))
	assert.Equal(t, uint64(2), e.Stats().AssetSwaps.Load())

	cancel()
	assert.NoError(t, <-done)
}

func TestLoaderCoalescesRequests(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newTestEngine(t)
	src := &fakeSource{started: make(chan int), gate: make(chan struct{})}
	l := newTestLoader(t, e, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	// The initial selection is decoding; three more requests arrive meanwhile
	assert.Equal(t, 3, <-src.started)
	reg := e.GetParameters()
	for _, i := range []float64{0, 1, 2} {
		require.NoError(t, reg.Set(KeyCurrentSample, i))
	}
	src.gate <- struct{}{}

	assert.Equal(t, 2, <-src.started)
	src.gate <- struct{}{}

	require.Eventually(t, func() bool { return l.Loaded() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []int{3, 2}, src.Calls())

	render(e, process.NewContext(2, testBlock, testRate))
	assert.Equal(t, "laser", currentName(e))

	cancel()
	assert.NoError(t, <-done)
}

func TestLoaderKeepsPreviousSampleOnFailure(t *testing.T) {
	e := newTestEngine(t)
	src := &fakeSource{failing: map[int]bool{1: true}}
	l := newTestLoader(t, e, src)
	pc := process.NewContext(2, testBlock, testRate)

	require.NoError(t, l.Load(3))
	render(e, pc)
	assert.Equal(t, "singing", currentName(e))

	err := l.Load(1)
	assert.ErrorIs(t, err, errBroken)
	render(e, pc)
	assert.Equal(t, "singing", currentName(e))
	assert.Equal(t, 3, l.Loaded())
	assert.Equal(t, uint64(1), e.Stats().DecodeFailures.Load())

	assert.Error(t, l.Load(9))
	assert.Equal(t, uint64(2), e.Stats().DecodeFailures.Load())
}

func TestLoaderPassesEnvelopeHint(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.GetParameters().Set(KeyAttack, 0.25))
	require.NoError(t, e.GetParameters().Set(KeyRelease, 0.6))

	src := &fakeSource{}
	l := newTestLoader(t, e, src)
	require.NoError(t, l.Load(0))

	render(e, process.NewContext(2, testBlock, testRate))
	attack, release := e.pool.Current().Envelope()
	assert.InDelta(t, 0.25, attack, 1e-12)
	assert.InDelta(t, 0.6, release, 1e-12)
}

func TestLoaderClose(t *testing.T) {
	e := newTestEngine(t)
	src := &fakeSource{}
	l := NewLoader(e, src)
	l.SetLogger(debug.Discard())
	l.Close()
	l.Close()

	assert.ErrorIs(t, l.Load(0), ErrClosed)
	require.NoError(t, e.GetParameters().Set(KeyCurrentSample, 1))
	assert.Empty(t, src.Calls())
}

func TestLoaderStopsWhenCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newTestEngine(t)
	l := newTestLoader(t, e, &fakeSource{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, l.Run(ctx))
}
