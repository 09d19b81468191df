// Package wasm builds small WebAssembly core modules in memory.
//
// It covers the subset of the binary format that import bridging
// exercises: function types, function and memory imports, function
// bodies, memories and exports. Integers are LEB128-encoded.
//
// # Building a module
//
//	var m wasm.Module
//	add := wasm.FuncType{
//		Params:  []wasm.ValType{wasm.ValI32, wasm.ValI32},
//		Results: []wasm.ValType{wasm.ValI32},
//	}
//	host := m.ImportFunc("env", "add", add)
//	m.AddFunc("run", add, wasm.FuncBody{
//		Code: wasm.NewCode().LocalGet(0).LocalGet(1).Call(host).End(),
//	})
//	bin := m.Encode()
package wasm
