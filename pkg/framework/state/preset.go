package state

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/justyntemme/vst3sampler/pkg/framework/param"
)

// Preset is a named set of parameter values. Numbers are plain values,
// toggles are booleans and choices are option names, for example:
//
//	name: Big Hall
//	params:
//	  roomSize: 0.9
//	  reverbEnabled: true
//	  currentSample: singing
type Preset struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// Snapshot captures the current value of every parameter.
func (m *Manager) Snapshot(name string) Preset {
	p := Preset{Name: name, Params: make(map[string]any)}
	for _, prm := range m.registry.All() {
		switch {
		case prm.IsToggle():
			p.Params[prm.Key] = prm.Bool()
		case prm.IsChoice():
			p.Params[prm.Key] = prm.FormatValue(prm.GetValue())
		default:
			p.Params[prm.Key] = prm.GetPlainValue()
		}
	}
	return p
}

// Apply sets every value in the preset, in key order. Parameters the preset
// does not mention keep their value. Every failing entry is reported; the
// others are still applied.
func (m *Manager) Apply(p Preset) error {
	keys := make([]string, 0, len(p.Params))
	for k := range p.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var errs []error
	for _, key := range keys {
		if err := m.applyValue(key, p.Params[key]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	m.log.Info("preset applied", "preset", p.Name, "params", len(keys))
	return nil
}

func (m *Manager) applyValue(key string, value any) error {
	switch v := value.(type) {
	case bool:
		if v {
			return m.registry.Set(key, 1)
		}
		return m.registry.Set(key, 0)
	case int:
		return m.registry.Set(key, float64(v))
	case float64:
		return m.registry.Set(key, v)
	case string:
		return m.registry.SetString(key, v)
	default:
		if _, err := m.registry.Lookup(key); err != nil {
			return err
		}
		return fmt.Errorf("parameter %q: unsupported value %v (%T)", key, value, value)
	}
}

// SavePreset writes a preset as YAML
func SavePreset(w io.Writer, p Preset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding preset: %w", err)
	}
	return enc.Close()
}

// LoadPreset reads a YAML preset
func LoadPreset(r io.Reader) (Preset, error) {
	var p Preset
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("decoding preset: %w", err)
	}
	if p.Params == nil {
		p.Params = map[string]any{}
	}
	return p, nil
}

// SavePresetFile writes a preset to path
func SavePresetFile(path string, p Preset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := SavePreset(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadPresetFile reads a preset from path
func LoadPresetFile(path string) (Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Preset{}, err
	}
	defer f.Close()
	return LoadPreset(f)
}

// Registry returns the registry the manager reads and writes.
func (m *Manager) Registry() *param.Registry {
	return m.registry
}
