// Package engine runs core WebAssembly modules on wazero with imports
// served by bridge trampolines.
//
// # Architecture
//
// The package provides three main types:
//
//	Engine   - owns a wazero runtime and its module namespace
//	Module   - a compiled module; exposes declared import signatures and
//	           import/export descriptors (a bridge.SignatureTable)
//	Instance - a running module plus the host modules serving its imports
//
// # Instantiation Flow
//
//  1. Engine.Compile() decodes and validates the binary
//  2. bridge.Build() resolves every declared import against host callables
//  3. Module.Instantiate() creates one wazero host module per namespace
//     from the import table, then instantiates the guest
//  4. Instance.Call() invokes exports with tagged values
//
// # Traps
//
// A trampoline that fails panics with its error. wazero recovers the
// panic and returns it, wrapped, from the guest call that reached the
// import; errors.As still finds the bridge error. The instance remains
// usable afterwards.
//
// # Namespaces
//
// wazero keeps a single module namespace per runtime, so only one live
// instance per Engine may bind a given import namespace. Instantiating a
// second one fails with an instantiation error until the first is closed.
// Use one Engine per concurrently live instance when modules share
// namespaces.
package engine
