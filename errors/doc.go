// Package errors provides structured error types for the host bridge.
//
// Errors are categorized by Phase (where the error occurred), Kind (error
// category) and an optional Reason. Import failures also carry the
// namespace and name of the import. The Error type includes a value path,
// Go/wasm type names and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeCoercion).
//		Reason(errors.ReasonOverflow).
//		Path("[1]").
//		GoType("int64").
//		WasmType("i32").
//		Detail("value out of range").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Signature("env", "add", errors.ReasonTypeConflict, "param_0 is f64")
//	err := errors.HostFailure("env", "add", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is matches on Kind, and on Phase and Reason when the target sets them.
package errors
