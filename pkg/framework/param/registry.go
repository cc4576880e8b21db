package param

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnknownParameter is returned for lookups of undeclared keys.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrFrozen is returned when declaring parameters after Freeze.
	ErrFrozen = errors.New("parameter registry is frozen")
	// ErrDuplicate is returned when a key or ID is declared twice.
	ErrDuplicate = errors.New("duplicate parameter")
)

// Listener is notified after a parameter value has been committed. It runs on
// the goroutine that made the change and must never be called from the
// render context.
type Listener func(p *Parameter)

// Registry manages plugin parameters.
//
// Declaration and listener bookkeeping are guarded by a mutex. Value reads and
// writes go straight to the atomic in each Parameter, so code holding a
// *Parameter never touches the lock.
type Registry struct {
	params map[uint32]*Parameter
	keys   map[string]*Parameter
	order  []uint32 // Maintain order for indexed access
	mu     sync.RWMutex
	frozen bool

	version atomic.Uint64

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	return &Registry{
		params:    make(map[uint32]*Parameter),
		keys:      make(map[string]*Parameter),
		order:     make([]uint32, 0),
		listeners: make(map[int]Listener),
	}
}

// Add registers new parameters
func (r *Registry) Add(params ...*Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}

	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			return fmt.Errorf("%w: id %d", ErrDuplicate, p.ID)
		}
		if p.Key == "" {
			return fmt.Errorf("parameter %d (%s) has no key", p.ID, p.Name)
		}
		if _, exists := r.keys[p.Key]; exists {
			return fmt.Errorf("%w: key %q", ErrDuplicate, p.Key)
		}
		r.params[p.ID] = p
		r.keys[p.Key] = p
		r.order = append(r.order, p.ID)
	}

	return nil
}

// Freeze closes the registry to further declarations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Get retrieves a parameter by ID
func (r *Registry) Get(id uint32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.params[id]
}

// Lookup retrieves a parameter by key
func (r *Registry) Lookup(key string) (*Parameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.keys[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	return p, nil
}

// MustLookup is Lookup for keys declared by the caller itself.
func (r *Registry) MustLookup(key string) *Parameter {
	p, err := r.Lookup(key)
	if err != nil {
		panic(err)
	}
	return p
}

// Value returns the plain value of a parameter.
func (r *Registry) Value(key string) (float64, error) {
	p, err := r.Lookup(key)
	if err != nil {
		return 0, err
	}
	return p.GetPlainValue(), nil
}

// Set stores a plain value, clamped to the parameter's range, and notifies
// listeners.
func (r *Registry) Set(key string, plain float64) error {
	p, err := r.Lookup(key)
	if err != nil {
		return err
	}
	p.SetPlainValue(plain)
	r.commit(p)
	return nil
}

// SetNormalized stores a normalized (0-1) value and notifies listeners.
func (r *Registry) SetNormalized(key string, normalized float64) error {
	p, err := r.Lookup(key)
	if err != nil {
		return err
	}
	p.SetValue(normalized)
	r.commit(p)
	return nil
}

// SetString parses a display string (e.g. a choice name) and stores it.
func (r *Registry) SetString(key, str string) error {
	p, err := r.Lookup(key)
	if err != nil {
		return err
	}
	normalized, err := p.ParseValue(str)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", key, err)
	}
	p.SetValue(normalized)
	r.commit(p)
	return nil
}

// ResetAll restores every parameter to its default and notifies listeners.
func (r *Registry) ResetAll() {
	for _, p := range r.All() {
		p.Reset()
		r.commit(p)
	}
}

// Version increases by one for every committed change.
func (r *Registry) Version() uint64 {
	return r.version.Load()
}

// Subscribe registers a listener and returns a function that removes it.
func (r *Registry) Subscribe(l Listener) (unsubscribe func()) {
	r.listenersMu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	r.listenersMu.Unlock()

	return func() {
		r.listenersMu.Lock()
		delete(r.listeners, id)
		r.listenersMu.Unlock()
	}
}

func (r *Registry) commit(p *Parameter) {
	r.version.Add(1)

	r.listenersMu.Lock()
	listeners := make([]Listener, 0, len(r.listeners))
	// Notify in subscription order
	for next := 0; next < r.nextID; next++ {
		if l, ok := r.listeners[next]; ok {
			listeners = append(listeners, l)
		}
	}
	r.listenersMu.Unlock()

	for _, l := range listeners {
		l(p)
	}
}

// GetByIndex retrieves a parameter by index
func (r *Registry) GetByIndex(index int32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= int32(len(r.order)) {
		return nil
	}

	id := r.order[index]
	return r.params[id]
}

// Count returns the number of parameters
func (r *Registry) Count() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int32(len(r.order))
}

// All returns all parameters in order
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Parameter, len(r.order))
	for i, id := range r.order {
		result[i] = r.params[id]
	}

	return result
}
