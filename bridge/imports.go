package bridge

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-hostbridge/errors"
	"github.com/wippyai/wasm-hostbridge/host"
	"github.com/wippyai/wasm-hostbridge/value"
)

// SignatureTable is the engine's view of a compiled module's function
// imports.
type SignatureTable interface {
	ImportedFunctions() []ImportKey
	DeclaredSignature(namespace, name string) (value.Signature, bool)
}

// Source supplies host callables by import key. host.Registry and
// host.Map implement it.
type Source interface {
	Lookup(namespace, name string) (host.Callable, bool)
	Namespaces() []string
	Functions(namespace string) []string
}

// ImportTable maps namespace -> name -> Trampoline for one instantiation.
type ImportTable struct {
	entries map[string]map[string]*Trampoline
	n       int
}

func newImportTable() *ImportTable {
	return &ImportTable{entries: make(map[string]map[string]*Trampoline)}
}

func (t *ImportTable) insert(tr *Trampoline) {
	ns := tr.key.Namespace
	if t.entries[ns] == nil {
		t.entries[ns] = make(map[string]*Trampoline)
	}
	if _, dup := t.entries[ns][tr.key.Name]; !dup {
		t.n++
	}
	t.entries[ns][tr.key.Name] = tr
}

// Namespaces returns the namespaces in sorted order.
func (t *ImportTable) Namespaces() []string {
	out := make([]string, 0, len(t.entries))
	for ns := range t.entries {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Functions returns the function names of a namespace in sorted order.
func (t *ImportTable) Functions(namespace string) []string {
	fns := t.entries[namespace]
	out := make([]string, 0, len(fns))
	for name := range fns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (t *ImportTable) Lookup(namespace, name string) (*Trampoline, bool) {
	tr, ok := t.entries[namespace][name]
	return tr, ok
}

// Len returns the number of trampolines.
func (t *ImportTable) Len() int {
	return t.n
}

// Retained holds the callables an instance may call into. The owner
// releases it once the instance is closed and no further guest code runs.
type Retained struct {
	callables []host.Callable
	mu        sync.Mutex
	released  bool
}

func (r *Retained) add(c host.Callable) {
	r.mu.Lock()
	r.callables = append(r.callables, c)
	r.mu.Unlock()
}

func (r *Retained) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.callables)
}

// Callables returns a copy of the retained callables.
func (r *Retained) Callables() []host.Callable {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]host.Callable(nil), r.callables...)
}

// Release drops every reference. Calling it more than once is a no-op.
func (r *Retained) Release() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callables = nil
	r.released = true
}

func (r *Retained) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// Build assembles the import table for a module. Every declared function
// import must have a callable in src; the first resolution failure aborts
// and no partial table is returned. Callables in src that the module does
// not import are ignored.
func Build(table SignatureTable, src Source, opts ...Option) (*ImportTable, *Retained, error) {
	if table == nil {
		return nil, nil, errors.InvalidInput(errors.PhaseResolve, "signature table cannot be nil")
	}
	if src == nil {
		src = host.Map{}
	}
	o := newOptions(opts)

	keys := sortedKeys(table.ImportedFunctions())
	declared := make(map[ImportKey]bool, len(keys))
	for _, k := range keys {
		declared[k] = true
	}

	var missing []ImportKey
	for _, k := range keys {
		if _, ok := src.Lookup(k.Namespace, k.Name); !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, k := range missing {
			names[i] = k.String()
		}
		return nil, nil, errors.New(errors.PhaseResolve, errors.KindSignature).
			Import(missing[0].Namespace, missing[0].Name).
			Reason(errors.ReasonUnresolvedImport).
			Cause(errors.NewMissingImportsError(names)).
			Detail("%d declared import(s) have no host callable", len(missing)).
			Build()
	}

	for _, ns := range src.Namespaces() {
		for _, name := range src.Functions(ns) {
			if !declared[ImportKey{Namespace: ns, Name: name}] {
				if ce := o.logger.Check(zap.DebugLevel, "ignoring host function not imported by module"); ce != nil {
					ce.Write(zap.String("namespace", ns), zap.String("name", name))
				}
			}
		}
	}

	imports := newImportTable()
	retained := &Retained{}
	for _, k := range keys {
		c, _ := src.Lookup(k.Namespace, k.Name)

		var sigp *value.Signature
		if sig, ok := table.DeclaredSignature(k.Namespace, k.Name); ok {
			sigp = &sig
		}

		sig, err := Resolve(k, sigp, c)
		if err != nil {
			return nil, nil, err
		}

		tr, err := NewTrampoline(k, sig, c, opts...)
		if err != nil {
			return nil, nil, err
		}
		imports.insert(tr)
		retained.add(c)
	}

	o.logger.Debug("import table built",
		zap.Int("imports", imports.Len()),
		zap.Int("namespaces", len(imports.entries)))

	return imports, retained, nil
}

// sortedKeys dedupes and orders keys by namespace, then name.
func sortedKeys(keys []ImportKey) []ImportKey {
	seen := make(map[ImportKey]bool, len(keys))
	out := make([]ImportKey, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out
}
