package capability

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// #region types

// Result is the uniform outcome of one capability invocation.
type Result struct {
	Success bool
	Data    map[string]any
	Err     string
}

// Descriptor is the static metadata the registry exposes per capability.
type Descriptor struct {
	Name           string
	DefaultTimeout time.Duration
	Fallback       string // empty = no fallback capability
}

// #endregion types

// #region registry-interface

// Registry is the uniform invoke surface for external capabilities
// (stats lookup, model calls, audio synthesis, screenshot capture, ...).
type Registry interface {
	Invoke(ctx context.Context, name string, input map[string]any) (Result, error)
	Describe(name string) (Descriptor, bool)
}

// #endregion registry-interface

// #region func-registry

// InvokeFunc is a single in-process capability implementation.
type InvokeFunc func(ctx context.Context, input map[string]any) (Result, error)

// FuncRegistry backs the Registry interface with local functions. Used by
// tests and the replay harness.
type FuncRegistry struct {
	mu          sync.RWMutex
	funcs       map[string]InvokeFunc
	descriptors map[string]Descriptor
}

// NewFuncRegistry creates an empty in-process registry.
func NewFuncRegistry() *FuncRegistry {
	return &FuncRegistry{
		funcs:       make(map[string]InvokeFunc),
		descriptors: make(map[string]Descriptor),
	}
}

// Register adds a capability with its descriptor.
func (r *FuncRegistry) Register(desc Descriptor, fn InvokeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[desc.Name] = fn
	r.descriptors[desc.Name] = desc
}

// Invoke runs the named capability.
func (r *FuncRegistry) Invoke(ctx context.Context, name string, input map[string]any) (Result, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("capability %q not registered", name)
	}
	return fn(ctx, input)
}

// Describe returns the descriptor for a capability name.
func (r *FuncRegistry) Describe(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// #endregion func-registry
