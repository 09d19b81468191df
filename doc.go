// Package hostbridge lets core WebAssembly modules import functions
// implemented in Go.
//
// A module's function imports are matched by (namespace, name) against
// Go callables. Each callable gets a trampoline that converts engine
// values to Go values, calls the host, and converts the result back to
// the import's declared type. Every import must resolve before the
// module is instantiated.
//
// # Architecture Overview
//
//	hostbridge/
//	├── runtime/         High-level API: register hosts, load, instantiate, call
//	├── engine/          wazero integration: compile, host modules, instances
//	├── bridge/          Signature resolver, trampolines, import table assembly
//	├── host/            Callables, type annotations, registries, exec lock
//	├── value/           Value types, tagged values, stack codec, marshalling
//	├── config/          YAML configuration for the CLI
//	├── wasm/            Minimal core module encoder
//	├── errors/          Structured error types for debugging
//	└── cmd/hostbridge/  CLI: inspect, run, interactive TUI
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	rt.RegisterFunc("env", "add", func(a, b int32) int32 { return a + b })
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	result, err := inst.Call(ctx, "run", 40, 2)
//
// # Type Annotations
//
// Callables may carry annotations that narrow the accepted types for
// each parameter and the result. Annotations are value.Type constants,
// tokens such as "i32", "int" or "float", WIT primitive names
// ("s32", "u64", "f64"), or Go reflect types. Typed Go functions are
// annotated automatically from their parameter and result types.
// Conflicts with the declared signature fail at resolution time.
//
// # Error Handling
//
// All errors are *errors.Error values carrying a phase, a kind and, for
// import failures, the offending namespace and name:
//
//	if errors.IsSignature(err) { ... }      // unresolved or mistyped import
//	if errors.IsTypeCoercion(err) { ... }   // value did not fit its type
//	if errors.IsHostFailure(err) { ... }    // host callable failed
//
// A failing host call traps the guest call that reached it; the instance
// remains usable.
package hostbridge
