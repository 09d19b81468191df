// Package runtime provides the high-level API for running core
// WebAssembly modules whose imports are implemented by Go callables.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// Register a host function for the import env.add
//	rt.RegisterFunc("env", "add", func(a, b int32) int32 { return a + b })
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	result, err := inst.Call(ctx, "run", 40, 2)
//	fmt.Println(result) // int32(42)
//
// # Host Functions
//
// Three shapes are accepted by RegisterFunc:
//
//	host.Callable                                  - full control
//	func(context.Context, ...any) (any, error)     - untyped, uses the
//	                                                 import's declared signature
//	func([ctx,] int32, float64, ...) (T, error)    - typed; Go types become
//	                                                 annotations checked
//	                                                 against the import
//
// Struct hosts register every exported method under their namespace:
//
//	type EnvHost struct{}
//	func (EnvHost) Namespace() string      { return "env" }
//	func (EnvHost) LogValue(v int32)       { ... }   // env.log_value
//
// # Import Resolution
//
// Every function import the module declares must have a callable.
// Missing imports, annotation conflicts and unsupported types fail with a
// signature error before the module is instantiated. Callables the module
// does not import are ignored.
//
// # Values
//
// Guests see i32, i64, f32, f64 and v128. Host callables receive int32,
// int64, float32, float64 and value.Uint128 and may return any Go number;
// results are range-checked against the import's result type under the
// configured overflow policy (fail by default).
//
// # Concurrency
//
// Instances are not safe for concurrent calls. WithExecLock serializes
// guest execution and host callables through a reentrant lock, so host
// callables may call back into guest exports with the context they
// received.
package runtime
