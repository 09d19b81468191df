package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile     Phase = "compile"     // module compilation
	PhaseResolve     Phase = "resolve"     // import signature resolution
	PhaseMarshal     Phase = "marshal"     // host <-> engine value conversion
	PhaseCall        Phase = "call"        // live trampoline invocation
	PhaseInstantiate Phase = "instantiate" // instance creation
	PhaseRuntime     Phase = "runtime"     // runtime operations
	PhaseHost        Phase = "host"        // host function registration
	PhaseConfig      Phase = "config"      // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	// KindSignature is raised while building an import table.
	KindSignature Kind = "signature"
	// KindTypeCoercion is raised when a host value cannot be narrowed to a
	// WebAssembly type, or when a callable returns the wrong arity.
	KindTypeCoercion Kind = "type_coercion"
	// KindHostFailure wraps an error returned (or panic raised) by a host callable.
	KindHostFailure Kind = "host_failure"
	// KindInternal marks a broken invariant. These are defects.
	KindInternal Kind = "internal"

	KindCompile       Kind = "compile"
	KindInstantiation Kind = "instantiation"
	KindRegistration  Kind = "registration"
	KindNotFound      Kind = "not_found"
	KindInvalidInput  Kind = "invalid_input"
	KindUnsupported   Kind = "unsupported"
)

// Reason refines a Kind with the specific failure.
type Reason string

const (
	ReasonMissingSignature  Reason = "missing_signature"
	ReasonUnresolvedImport  Reason = "unresolved_import"
	ReasonTypeConflict      Reason = "type_conflict"
	ReasonPartialAnnotation Reason = "partial_annotation"
	ReasonMultipleResults   Reason = "multiple_results"
	ReasonUnknownToken      Reason = "unknown_token"
	ReasonNotCallable       Reason = "not_callable"
	ReasonKindMismatch      Reason = "kind_mismatch"
	ReasonOverflow          Reason = "overflow"
	ReasonArity             Reason = "arity"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Reason    Reason
	Namespace string
	Name      string
	GoType    string
	WasmType  string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteByte('/')
		b.WriteString(string(e.Reason))
	}

	if e.Namespace != "" || e.Name != "" {
		b.WriteString(" for ")
		b.WriteString(e.Namespace)
		b.WriteByte('.')
		b.WriteString(e.Name)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.WasmType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.WasmType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", wasm type ")
			b.WriteString(e.WasmType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("wasm type ")
			b.WriteString(e.WasmType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.WasmType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target with an empty
// Phase matches on Kind (and Reason, when set) alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	return e.Kind == t.Kind
}

// Key returns the import key the error refers to, if any.
func (e *Error) Key() (namespace, name string) {
	return e.Namespace, e.Name
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Reason sets the failure reason
func (b *Builder) Reason(r Reason) *Builder {
	b.err.Reason = r
	return b
}

// Import sets the import key
func (b *Builder) Import(namespace, name string) *Builder {
	b.err.Namespace = namespace
	b.err.Name = name
	return b
}

// Path sets the position path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WasmType sets the WebAssembly type name
func (b *Builder) WasmType(t string) *Builder {
	b.err.WasmType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Signature creates a construction-time signature error for an import.
func Signature(namespace, name string, reason Reason, detail string, args ...any) *Error {
	return New(PhaseResolve, KindSignature).
		Import(namespace, name).
		Reason(reason).
		Detail(detail, args...).
		Build()
}

// Coercion creates a type coercion error for a host value.
func Coercion(reason Reason, goType, wasmType string, value any) *Error {
	detail := fmt.Sprintf("cannot convert %v to %s", value, wasmType)
	if reason == ReasonOverflow {
		detail = fmt.Sprintf("value %v overflows %s", value, wasmType)
	}
	return &Error{
		Phase:    PhaseMarshal,
		Kind:     KindTypeCoercion,
		Reason:   reason,
		GoType:   goType,
		WasmType: wasmType,
		Value:    value,
		Detail:   detail,
	}
}

// Arity creates a result arity error for a live call.
func Arity(namespace, name string, want, got int) *Error {
	return New(PhaseCall, KindTypeCoercion).
		Import(namespace, name).
		Reason(ReasonArity).
		Detail("callable returned %d value(s), signature declares %d", got, want).
		Build()
}

// HostFailure wraps an error signalled by a host callable.
func HostFailure(namespace, name string, cause error) *Error {
	return &Error{
		Phase:     PhaseCall,
		Kind:      KindHostFailure,
		Namespace: namespace,
		Name:      name,
		Detail:    "host callable failed",
		Cause:     cause,
	}
}

// Internal creates an invariant violation error.
func Internal(detail string, args ...any) *Error {
	return New(PhaseRuntime, KindInternal).Detail(detail, args...).Build()
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindRegistration,
		Namespace: namespace,
		Name:      name,
		Detail:    "register host function",
		Cause:     cause,
	}
}

// Compile creates a module compilation error
func Compile(cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindCompile,
		Detail: "compile module",
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// IsSignature reports whether err carries a SignatureError.
func IsSignature(err error) bool {
	return hasKind(err, KindSignature)
}

// IsTypeCoercion reports whether err carries a TypeCoercionError.
func IsTypeCoercion(err error) bool {
	return hasKind(err, KindTypeCoercion)
}

// IsHostFailure reports whether err carries a HostCallableFailure.
func IsHostFailure(err error) bool {
	return hasKind(err, KindHostFailure)
}

func hasKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Namespace string // e.g., "env"
	Function  string // e.g., "log"
}

// MissingImportsError lists module imports with no host callable.
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "namespace.function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		ns, fn := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Namespace: ns,
			Function:  fn,
		})
	}
	return result
}

// parseImportKey splits on the last dot so namespaces may contain dots.
func parseImportKey(key string) (namespace, function string) {
	i := strings.LastIndexByte(key, '.')
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "missing_import: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d host function(s):\n", len(e.Imports)))

	// Group by namespace for cleaner output
	byNS := make(map[string][]string)
	var nsOrder []string
	for _, imp := range e.Imports {
		if _, exists := byNS[imp.Namespace]; !exists {
			nsOrder = append(nsOrder, imp.Namespace)
		}
		byNS[imp.Namespace] = append(byNS[imp.Namespace], imp.Function)
	}
	sort.Strings(nsOrder)

	for _, ns := range nsOrder {
		b.WriteString("\n  ")
		b.WriteString(ns)
		b.WriteString(":\n")
		for _, fn := range byNS[ns] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
