package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-hostbridge/bridge"
	"github.com/wippyai/wasm-hostbridge/errors"
	"github.com/wippyai/wasm-hostbridge/value"
)

// ExternKind names the kind of an import or export.
type ExternKind string

const (
	ExternFunction ExternKind = "function"
	ExternMemory   ExternKind = "memory"
)

// Limits describes a memory in 64 KiB pages.
type Limits struct {
	Max *uint32
	Min uint32
}

// ImportDesc describes one import of a compiled module. Signature is set
// for function imports whose types the bridge can express; Memory is set
// for memory imports.
type ImportDesc struct {
	Signature *value.Signature
	Memory    *Limits
	Namespace string
	Name      string
	Kind      ExternKind
}

// ExportDesc describes one export of a compiled module.
type ExportDesc struct {
	Signature *value.Signature
	Memory    *Limits
	Name      string
	Kind      ExternKind
}

// Module is a compiled module. It is the bridge's SignatureTable.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	sigs     map[bridge.ImportKey]value.Signature
	imports  []ImportDesc
	exports  []ExportDesc
	keys     []bridge.ImportKey
}

func newModule(e *Engine, compiled wazero.CompiledModule) *Module {
	m := &Module{
		engine:   e,
		compiled: compiled,
		sigs:     make(map[bridge.ImportKey]value.Signature),
	}

	for _, def := range compiled.ImportedFunctions() {
		ns, name, _ := def.Import()
		key := bridge.ImportKey{Namespace: ns, Name: name}
		desc := ImportDesc{Namespace: ns, Name: name, Kind: ExternFunction}

		if sig, err := signatureOf(def); err == nil {
			desc.Signature = &sig
			if _, seen := m.sigs[key]; !seen {
				m.sigs[key] = sig
			}
		} else {
			Logger().Debug("import signature not expressible",
				zap.String("import", key.String()), zap.Error(err))
		}
		m.keys = append(m.keys, key)
		m.imports = append(m.imports, desc)
	}
	for _, def := range compiled.ImportedMemories() {
		ns, name, _ := def.Import()
		m.imports = append(m.imports, ImportDesc{
			Namespace: ns,
			Name:      name,
			Kind:      ExternMemory,
			Memory:    limitsOf(def),
		})
	}

	for name, def := range compiled.ExportedFunctions() {
		desc := ExportDesc{Name: name, Kind: ExternFunction}
		if sig, err := signatureOf(def); err == nil {
			desc.Signature = &sig
		}
		m.exports = append(m.exports, desc)
	}
	for name, def := range compiled.ExportedMemories() {
		m.exports = append(m.exports, ExportDesc{Name: name, Kind: ExternMemory, Memory: limitsOf(def)})
	}
	sort.Slice(m.exports, func(i, j int) bool {
		if m.exports[i].Kind != m.exports[j].Kind {
			return m.exports[i].Kind == ExternFunction
		}
		return m.exports[i].Name < m.exports[j].Name
	})

	return m
}

func signatureOf(def api.FunctionDefinition) (value.Signature, error) {
	params, err := value.FromAPIs(def.ParamTypes())
	if err != nil {
		return value.Signature{}, err
	}
	results, err := value.FromAPIs(def.ResultTypes())
	if err != nil {
		return value.Signature{}, err
	}
	return value.Signature{Params: params, Results: results}, nil
}

func limitsOf(def api.MemoryDefinition) *Limits {
	l := &Limits{Min: def.Min()}
	if maxPages, ok := def.Max(); ok {
		l.Max = &maxPages
	}
	return l
}

// ImportedFunctions returns the keys of every function import in
// declaration order.
func (m *Module) ImportedFunctions() []bridge.ImportKey {
	return append([]bridge.ImportKey(nil), m.keys...)
}

// DeclaredSignature returns the signature the module declares for an
// import. It is false for unknown keys and for imports using types the
// bridge cannot carry (reference types).
func (m *Module) DeclaredSignature(namespace, name string) (value.Signature, bool) {
	sig, ok := m.sigs[bridge.ImportKey{Namespace: namespace, Name: name}]
	if !ok {
		return value.Signature{}, false
	}
	return sig.Clone(), true
}

// Imports returns descriptors of every import: functions first, then
// memories.
func (m *Module) Imports() []ImportDesc {
	return append([]ImportDesc(nil), m.imports...)
}

// Exports returns descriptors of every export: functions then memories,
// each sorted by name.
func (m *Module) Exports() []ExportDesc {
	return append([]ExportDesc(nil), m.exports...)
}

// Name returns the module name from the binary's name section, if any.
func (m *Module) Name() string {
	return m.compiled.Name()
}

// Instantiate links the module against an import table. One host module
// is created per namespace in the table; the guest is instantiated last.
// retained is released when the instance closes.
func (m *Module) Instantiate(ctx context.Context, table *bridge.ImportTable, retained *bridge.Retained, name string) (*Instance, error) {
	for _, imp := range m.imports {
		if imp.Kind == ExternMemory {
			return nil, errors.Unsupported(errors.PhaseInstantiate,
				fmt.Sprintf("memory import %s.%s", imp.Namespace, imp.Name))
		}
	}

	e := m.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	inst := &Instance{module: m, retained: retained}

	if table != nil {
		for _, ns := range table.Namespaces() {
			if e.Bound(ns) {
				inst.closeHosts(ctx)
				return nil, errors.Instantiation(fmt.Sprintf("namespace %q is already bound in this engine", ns), nil)
			}

			builder := e.runtime.NewHostModuleBuilder(ns)
			for _, fn := range table.Functions(ns) {
				tr, _ := table.Lookup(ns, fn)
				sig := tr.Signature()
				builder.NewFunctionBuilder().
					WithGoModuleFunction(tr.GoModuleFunc(), value.APIs(sig.Params), value.APIs(sig.Results)).
					WithName(fn).
					Export(fn)
			}

			hostMod, err := builder.Instantiate(ctx)
			if err != nil {
				inst.closeHosts(ctx)
				return nil, errors.Instantiation(fmt.Sprintf("host module %q", ns), err)
			}
			inst.hosts = append(inst.hosts, hostMod)
		}
	}

	guest, err := e.runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		inst.closeHosts(ctx)
		return nil, errors.Instantiation("guest module", err)
	}
	inst.guest = guest

	Logger().Debug("module instantiated",
		zap.String("name", name),
		zap.Int("host_modules", len(inst.hosts)))

	return inst, nil
}

// Close releases the compiled module. Live instances are unaffected.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
