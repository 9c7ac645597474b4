package variant

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores variants by name and alias.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Variant
	aliases  map[string]string
	fallback string
}

// NewRegistry creates an empty registry. Resolve falls back to the variant
// named Default once one is registered.
func NewRegistry() *Registry {
	return &Registry{
		variants: make(map[string]Variant),
		aliases:  make(map[string]string),
		fallback: Default,
	}
}

// NewDefaultRegistry returns a registry holding the built-in variants.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, v := range Builtins() {
		r.MustRegister(v)
	}
	return r
}

// Register adds a variant under its normalised name and aliases. Duplicate
// names or aliases return an error.
func (r *Registry) Register(v Variant) error {
	name := Normalize(v.Name)
	if name == "" {
		return fmt.Errorf("variant: name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(name) {
		return fmt.Errorf("variant: %q already registered", name)
	}
	aliases := make([]string, 0, len(v.Aliases))
	for _, alias := range v.Aliases {
		a := Normalize(alias)
		if a == "" || a == name {
			continue
		}
		if r.taken(a) {
			return fmt.Errorf("variant: alias %q already registered", a)
		}
		aliases = append(aliases, a)
	}

	v.Name = name
	r.variants[name] = v
	for _, a := range aliases {
		r.aliases[a] = name
	}
	return nil
}

func (r *Registry) taken(key string) bool {
	if _, ok := r.variants[key]; ok {
		return true
	}
	_, ok := r.aliases[key]
	return ok
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(v Variant) {
	if err := r.Register(v); err != nil {
		panic(err)
	}
}

// Get retrieves a variant by name or alias.
func (r *Registry) Get(name string) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.lookup(Normalize(name))
	if !ok {
		return Variant{}, fmt.Errorf("variant: %q not found", name)
	}
	return v, nil
}

// Resolve returns the variant for a category, falling back to the default
// variant (or an empty variant of that name) for unknown categories.
func (r *Registry) Resolve(category string) Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if v, ok := r.lookup(Normalize(category)); ok {
		return v
	}
	if v, ok := r.variants[r.fallback]; ok {
		return v
	}
	return Variant{Name: r.fallback}
}

func (r *Registry) lookup(key string) (Variant, bool) {
	if target, ok := r.aliases[key]; ok {
		key = target
	}
	v, ok := r.variants[key]
	return v, ok
}

// List returns the sorted variant names, aliases excluded.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.variants))
	for name := range r.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name or alias is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.lookup(Normalize(name))
	return ok
}
