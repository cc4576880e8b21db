// Package state saves and restores parameter values: the XML state blob a
// host stores with a project, and human-editable YAML presets.
package state

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/framework/param"
)

// ErrMalformedState is returned when a state blob cannot be parsed. The
// registry has been reset to defaults when it is returned.
var ErrMalformedState = errors.New("malformed state")

type paramTree struct {
	XMLName xml.Name     `xml:"PARAMETERS"`
	Params  []paramEntry `xml:"PARAM"`
}

type paramEntry struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

// Manager handles plugin state saving and loading
type Manager struct {
	registry *param.Registry
	log      *debug.Logger
}

// NewManager creates a new state manager
func NewManager(registry *param.Registry) *Manager {
	return &Manager{
		registry: registry,
		log:      debug.Module("state"),
	}
}

// SetLogger replaces the manager's logger.
func (m *Manager) SetLogger(log *debug.Logger) {
	if log != nil {
		m.log = log
	}
}

// Save writes every parameter as <PARAM id=".." value=".."/> under a
// PARAMETERS root. Values are plain: seconds, levels, choice indexes.
func (m *Manager) Save(w io.Writer) error {
	tree := paramTree{}
	for _, p := range m.registry.All() {
		tree.Params = append(tree.Params, paramEntry{
			ID:    p.Key,
			Value: strconv.FormatFloat(p.GetPlainValue(), 'g', -1, 64),
		})
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return enc.Flush()
}

// Load applies a saved state. Known ids are set through the registry, so
// values are clamped and listeners fire; unknown ids are skipped. A blob
// that does not parse resets every parameter to its default and returns an
// error wrapping ErrMalformedState.
func (m *Manager) Load(r io.Reader) error {
	var tree paramTree
	if err := xml.NewDecoder(r).Decode(&tree); err != nil {
		return m.fallback(err)
	}

	// Parse everything before touching the registry
	values := make([]float64, len(tree.Params))
	for i, e := range tree.Params {
		v, err := strconv.ParseFloat(e.Value, 64)
		if err != nil {
			return m.fallback(fmt.Errorf("parameter %q: %w", e.ID, err))
		}
		values[i] = v
	}

	applied := 0
	for i, e := range tree.Params {
		if err := m.registry.Set(e.ID, values[i]); err != nil {
			m.log.Debug("skipping unknown parameter", "id", e.ID)
			continue
		}
		applied++
	}
	m.log.Info("state loaded", "applied", applied, "skipped", len(tree.Params)-applied)
	return nil
}

func (m *Manager) fallback(cause error) error {
	m.registry.ResetAll()
	m.log.Warn("state blob rejected, parameters reset to defaults", "error", cause)
	return fmt.Errorf("%w: %v", ErrMalformedState, cause)
}
