package host

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/wasm-hostbridge/errors"
)

// Host is the interface for struct-based host libraries.
// All exported methods (except Namespace) are registered as host functions.
type Host interface {
	// Namespace returns the import module name (e.g., "env").
	Namespace() string
}

// ExplicitRegistrar allows hosts to provide exact import names when the
// automatic PascalCase-to-snake_case conversion doesn't apply
// (e.g., "fd_write" vs "__log").
type ExplicitRegistrar interface {
	Register() map[string]any
}

// Registry maps namespace -> function name -> Callable.
type Registry struct {
	funcs map[string]map[string]Callable
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]map[string]Callable),
	}
}

// Register adds a single host function. fn is a Callable, a
// func(context.Context, ...any) (any, error), or a Go function accepted
// by Typed. An existing entry under the same key is replaced.
func (r *Registry) Register(namespace, name string, fn any) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}

	c, err := AsCallable(fn)
	if err != nil {
		return errors.Registration(errors.PhaseHost, namespace, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.funcs[namespace] == nil {
		r.funcs[namespace] = make(map[string]Callable)
	}
	r.funcs[namespace][name] = c
	return nil
}

// RegisterHost registers every exported method of h under h.Namespace().
func (r *Registry) RegisterHost(h Host) error {
	if h == nil {
		return errors.InvalidInput(errors.PhaseHost, "host cannot be nil")
	}
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}

	funcs := make(map[string]Callable)

	if er, ok := h.(ExplicitRegistrar); ok {
		for name, handler := range er.Register() {
			c, err := AsCallable(handler)
			if err != nil {
				return errors.Registration(errors.PhaseHost, ns, name, err)
			}
			funcs[name] = c
		}
	} else {
		rv := reflect.ValueOf(h)
		rt := rv.Type()

		for i := 0; i < rt.NumMethod(); i++ {
			method := rt.Method(i)
			if !method.IsExported() || method.Name == "Namespace" {
				continue
			}

			name := toSnakeCase(method.Name)
			c, err := AsCallable(rv.Method(i).Interface())
			if err != nil {
				return errors.Registration(errors.PhaseHost, ns, name, err)
			}
			funcs[name] = c
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.funcs[ns] == nil {
		r.funcs[ns] = make(map[string]Callable)
	}
	for name, c := range funcs {
		r.funcs[ns][name] = c
	}
	return nil
}

// Lookup returns the callable registered under (namespace, name).
func (r *Registry) Lookup(namespace, name string) (Callable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.funcs[namespace][name]
	return c, ok
}

// Namespaces returns the registered namespaces in sorted order.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.funcs)
}

// Functions returns the function names of a namespace in sorted order.
func (r *Registry) Functions(namespace string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.funcs[namespace])
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, fns := range r.funcs {
		n += len(fns)
	}
	return n
}

// Map is a plain nested mapping namespace -> name -> Callable. It is the
// read-only counterpart of Registry for one-off instantiations.
type Map map[string]map[string]Callable

func (m Map) Lookup(namespace, name string) (Callable, bool) {
	c, ok := m[namespace][name]
	return c, ok
}

func (m Map) Namespaces() []string {
	return sortedKeys(m)
}

func (m Map) Functions(namespace string) []string {
	return sortedKeys(m[namespace])
}

// AsCallable converts a registration handler to a Callable.
func AsCallable(fn any) (Callable, error) {
	switch h := fn.(type) {
	case nil:
		return nil, errors.InvalidInput(errors.PhaseHost, "handler cannot be nil")
	case Callable:
		if IsNil(h) {
			return nil, errors.InvalidInput(errors.PhaseHost, "handler cannot be nil")
		}
		return h, nil
	case func(context.Context, ...any) (any, error):
		if h == nil {
			return nil, errors.InvalidInput(errors.PhaseHost, "handler cannot be nil")
		}
		return Func(h), nil
	}
	return Typed(fn)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toSnakeCase converts PascalCase to snake_case.
// An uppercase run is one word: GetHTTPURL -> get_httpurl, HTTPServer -> http_server.
func toSnakeCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if !unicode.IsUpper(r) {
			result.WriteRune(r)
			continue
		}

		end := i + 1
		for end < len(runes) && unicode.IsUpper(runes[end]) {
			end++
		}
		// Last uppercase before lowercase starts the next word
		if end > i+1 && end < len(runes) && unicode.IsLower(runes[end]) {
			end--
		}

		if i > 0 {
			result.WriteByte('_')
		}
		for j := i; j < end; j++ {
			result.WriteRune(unicode.ToLower(runes[j]))
		}
		i = end - 1
	}
	return result.String()
}
