// Package library indexes a directory of bundled samples and turns them
// into playable assets. Decoded PCM is cached per file.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/sampler"
	"github.com/justyntemme/vst3sampler/pkg/sampler/decode"
)

// ErrNoSamples is returned when a directory holds no decodable files.
var ErrNoSamples = errors.New("no samples found")

// DefaultCacheTTL is how long decoded PCM stays cached after its last load.
const DefaultCacheTTL = 10 * time.Minute

// Entry is one sample file in the library.
type Entry struct {
	Name     string // file name without extension
	Path     string
	RootNote uint8
}

// Library is the sorted list of sample files in a directory.
//
// A Library is safe for concurrent use. Load decodes on the calling
// goroutine and must not be called from the render context.
type Library struct {
	dir     string
	entries []Entry
	pcm     *cache.Cache
	log     *debug.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Open scans dir for .wav and .flac files. A ttl of zero or less caches
// decoded PCM forever and starts no cleanup goroutine.
func Open(dir string, ttl time.Duration) (*Library, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading sample directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !decode.IsSupported(f.Name()) {
			continue
		}
		name := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		entries = append(entries, Entry{
			Name:     name,
			Path:     filepath.Join(dir, f.Name()),
			RootNote: RootNoteFor(name),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoSamples)
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Name, b.Name)
	})

	var pcm *cache.Cache
	if ttl > 0 {
		pcm = cache.New(ttl, ttl*2)
	} else {
		pcm = cache.New(cache.NoExpiration, 0)
	}

	l := &Library{
		dir:     dir,
		entries: entries,
		pcm:     pcm,
		log:     debug.Module("library"),
	}
	l.log.Info("sample library opened", "dir", dir, "samples", len(entries))
	return l, nil
}

// SetLogger replaces the library's logger.
func (l *Library) SetLogger(log *debug.Logger) {
	if log != nil {
		l.log = log
	}
}

// Dir returns the scanned directory
func (l *Library) Dir() string { return l.dir }

// Len returns the number of samples
func (l *Library) Len() int { return len(l.entries) }

// Entries returns a copy of all entries, sorted by name.
func (l *Library) Entries() []Entry {
	return slices.Clone(l.entries)
}

// Names returns the sample names in index order. This is the choice list of
// the currentSample parameter.
func (l *Library) Names() []string {
	names := make([]string, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.Name
	}
	return names
}

// Entry returns the entry at index.
func (l *Library) Entry(index int) (Entry, bool) {
	if index < 0 || index >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[index], true
}

// Index finds a sample by name.
func (l *Library) Index(name string) (int, bool) {
	for i, e := range l.entries {
		if e.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Load decodes (or fetches from cache) the sample at index and wraps it in a
// new asset covering the whole keyboard. attack and release become the
// asset's envelope hint. The caller owns the returned asset's first
// reference.
func (l *Library) Load(index int, attack, release float64) (*sampler.Asset, error) {
	e, ok := l.Entry(index)
	if !ok {
		return nil, fmt.Errorf("sample index %d out of range [0,%d)", index, len(l.entries))
	}

	pcm, err := l.decode(e)
	if err != nil {
		return nil, err
	}

	meta := sampler.FullRange(e.Name, e.RootNote)
	meta.Attack = attack
	meta.Release = release
	meta.MaxLength = sampler.DefaultMaxLength

	return sampler.NewAsset(*pcm, meta)
}

func (l *Library) decode(e Entry) (*sampler.PCM, error) {
	if cached, found := l.pcm.Get(e.Path); found {
		l.hits.Add(1)
		return cached.(*sampler.PCM), nil
	}
	l.misses.Add(1)

	start := time.Now()
	pcm, err := decode.DecodeFile(e.Path)
	if err != nil {
		return nil, err
	}
	l.log.Debug("sample decoded",
		"sample", e.Name,
		"channels", pcm.NumChannels(),
		"frames", pcm.Frames(),
		"rate", pcm.SampleRate,
		"elapsed", time.Since(start))

	l.pcm.Set(e.Path, pcm, cache.DefaultExpiration)
	return pcm, nil
}

// CacheStats returns cache hit and miss counts and the number of cached files.
func (l *Library) CacheStats() (hits, misses uint64, cached int) {
	return l.hits.Load(), l.misses.Load(), l.pcm.ItemCount()
}

// FlushCache drops all decoded PCM.
func (l *Library) FlushCache() {
	l.pcm.Flush()
}

// RootNoteFor maps a sample name to the MIDI note it was recorded at.
// Unknown names play unshifted at middle C.
func RootNoteFor(name string) uint8 {
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "cowbell"):
		return 75
	case strings.Contains(name, "guitar"):
		return 74
	case strings.Contains(name, "laser"):
		return 74
	case strings.Contains(name, "singing"):
		return 65
	default:
		return 60
	}
}
