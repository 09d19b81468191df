package wasm

// ValType is a core value type encoding.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	}
	return "unknown"
}

// Module is a core module reduced to what import bridging needs:
// function types, function and memory imports, function bodies,
// memories and exports.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // Type indices for declared functions
	Memories []Limits
	Exports  []Export
	Start    *uint32
	Code     []FuncBody
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is a function import (Memory == nil) or a memory import.
type Import struct {
	Memory  *Limits
	Module  string
	Name    string
	TypeIdx uint32
}

// Kind returns KindFunc or KindMemory.
func (i Import) Kind() byte {
	if i.Memory != nil {
		return KindMemory
	}
	return KindFunc
}

// Limits bounds a memory in 64 KiB pages.
type Limits struct {
	Max *uint32
	Min uint32
}

// Export names a function or memory by index.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// LocalEntry declares Count locals of one type.
type LocalEntry struct {
	Count uint32
	Type  ValType
}

// FuncBody is a function's locals and expression. Code must end with OpEnd.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte
}

// AddType appends a function type, reusing an identical existing one,
// and returns its index.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, existing := range m.Types {
		if sameTypes(existing.Params, ft.Params) && sameTypes(existing.Results, ft.Results) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// ImportFunc declares a function import and returns its function index.
// Function imports must be declared before any AddFunc call.
func (m *Module) ImportFunc(module, name string, ft FuncType) uint32 {
	m.Imports = append(m.Imports, Import{Module: module, Name: name, TypeIdx: m.AddType(ft)})
	return m.numImportedFuncs() - 1
}

// AddFunc defines a function, optionally exports it, and returns its
// function index.
func (m *Module) AddFunc(export string, ft FuncType, body FuncBody) uint32 {
	m.Funcs = append(m.Funcs, m.AddType(ft))
	m.Code = append(m.Code, body)
	idx := m.numImportedFuncs() + uint32(len(m.Funcs)) - 1
	if export != "" {
		m.Exports = append(m.Exports, Export{Name: export, Kind: KindFunc, Idx: idx})
	}
	return idx
}

// AddMemory defines a memory and optionally exports it.
func (m *Module) AddMemory(export string, limits Limits) uint32 {
	m.Memories = append(m.Memories, limits)
	idx := uint32(len(m.Memories) - 1)
	if export != "" {
		m.Exports = append(m.Exports, Export{Name: export, Kind: KindMemory, Idx: idx})
	}
	return idx
}

func (m *Module) numImportedFuncs() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Kind() == KindFunc {
			n++
		}
	}
	return n
}

func sameTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
