package factory

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/katalvlaran/lvfit/fitfunc"
)

// Kind describes how to build the kernel of one registered function name.
type Kind struct {
	// Attributes lists the attribute names New accepts.
	Attributes []string
	// New builds a kernel from attribute values keyed by name. Missing
	// attributes are absent from the map.
	New func(attrs map[string]string) (fitfunc.Kernel, error)
}

// Registry maps function names to kinds. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds kind under name. Registering an empty name, a nil
// constructor or the same name twice is a programming error and panics.
func (r *Registry) Register(name string, kind Kind) {
	if name == "" || kind.New == nil {
		panic("factory: Register needs a name and a constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[name]; exists {
		panic(fmt.Sprintf("factory: function %q already registered", name))
	}
	slog.Debug("Registering fit function.", "name", name)
	r.kinds[name] = kind
}

// Names returns the registered names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (r *Registry) kind(name string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}

	return k, nil
}

// CreateOption configures Create.
type CreateOption func(*createOptions)

type createOptions struct {
	attrs map[string]string
}

// WithAttribute sets attribute name before the kernel is built.
func WithAttribute(name, value string) CreateOption {
	return func(o *createOptions) {
		o.attrs[name] = value
	}
}

// Create builds a leaf of kind name and sets the given initial parameter
// values. Unknown parameter names fail with fitfunc.ErrUnknownParameter.
func (r *Registry) Create(name string, params map[string]float64, opts ...CreateOption) (*fitfunc.Leaf, error) {
	o := createOptions{attrs: make(map[string]string)}
	for _, opt := range opts {
		opt(&o)
	}
	leaf, err := r.newLeaf(name, o.attrs)
	if err != nil {
		return nil, err
	}
	// Apply in declared order so errors are deterministic.
	for _, p := range leaf.ParameterNames() {
		if v, ok := params[p]; ok {
			if err := leaf.SetParameter(p, v); err != nil {
				return nil, err
			}
		}
	}
	for p := range params {
		if !leaf.HasParameter(p) {
			return nil, fmt.Errorf("%s: %w: %q", name, fitfunc.ErrUnknownParameter, p)
		}
	}

	return leaf, nil
}

func (r *Registry) newLeaf(name string, attrs map[string]string) (*fitfunc.Leaf, error) {
	k, err := r.kind(name)
	if err != nil {
		return nil, err
	}
	for a := range attrs {
		if !slices.Contains(k.Attributes, a) {
			return nil, fmt.Errorf("%w: %s has no attribute %q", ErrInvalidAttribute, name, a)
		}
	}
	kernel, err := k.New(attrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return fitfunc.NewLeaf(kernel)
}

var defaultRegistry = newBuiltinRegistry()

// Default returns the registry holding the built-in functions.
func Default() *Registry { return defaultRegistry }

// Create builds a leaf from the default registry.
func Create(name string, params map[string]float64, opts ...CreateOption) (*fitfunc.Leaf, error) {
	return defaultRegistry.Create(name, params, opts...)
}

// Parse parses an init string against the default registry.
func Parse(init string) (fitfunc.Function, error) {
	return defaultRegistry.Parse(init)
}

// Names lists the functions of the default registry.
func Names() []string { return defaultRegistry.Names() }
