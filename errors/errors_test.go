package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseResolve,
				Kind:      KindSignature,
				Reason:    ReasonTypeConflict,
				Namespace: "env",
				Name:      "add",
				Path:      []string{"param_1"},
				GoType:    "string",
				WasmType:  "i32",
				Detail:    "cannot convert",
			},
			contains: []string{"[resolve]", "signature/type_conflict", "env.add", "param_1", "string", "i32", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseCall,
				Kind:  KindHostFailure,
			},
			contains: []string{"[call]", "host_failure"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindInternal,
				Detail: "nil callable",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[runtime]", "internal", "nil callable", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := HostFailure("env", "boom", cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause")
	}
}

func TestError_Is(t *testing.T) {
	err := Signature("env", "log", ReasonUnresolvedImport, "no callable")

	if !errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindSignature}) {
		t.Error("expected match on phase and kind")
	}
	if !errors.Is(err, &Error{Kind: KindSignature}) {
		t.Error("expected match on kind alone")
	}
	if !errors.Is(err, &Error{Kind: KindSignature, Reason: ReasonUnresolvedImport}) {
		t.Error("expected match on kind and reason")
	}
	if errors.Is(err, &Error{Kind: KindSignature, Reason: ReasonTypeConflict}) {
		t.Error("unexpected match on different reason")
	}
	if errors.Is(err, &Error{Phase: PhaseCall, Kind: KindSignature}) {
		t.Error("unexpected match on different phase")
	}
	if errors.Is(err, errors.New("other")) {
		t.Error("unexpected match on foreign error")
	}
}

func TestPredicates(t *testing.T) {
	sig := Signature("env", "add", ReasonPartialAnnotation, "partial")
	coerce := Coercion(ReasonKindMismatch, "string", "f64", "pi")
	host := HostFailure("env", "boom", errors.New("oops"))

	wrapped := fmt.Errorf("instantiate: %w", sig)
	if !IsSignature(wrapped) || IsTypeCoercion(wrapped) || IsHostFailure(wrapped) {
		t.Errorf("signature predicates wrong for %v", wrapped)
	}
	if !IsTypeCoercion(coerce) || IsSignature(coerce) {
		t.Errorf("coercion predicates wrong for %v", coerce)
	}
	if !IsHostFailure(host) || IsTypeCoercion(host) {
		t.Errorf("host predicates wrong for %v", host)
	}

	// A coercion error nested under a different kind is still found.
	nested := Wrap(PhaseCall, KindInternal, coerce, "outer")
	if !IsTypeCoercion(nested) {
		t.Error("expected nested coercion to be found")
	}
	if IsSignature(nil) {
		t.Error("nil is not a signature error")
	}
}

func TestCoercion_Detail(t *testing.T) {
	err := Coercion(ReasonOverflow, "int64", "i32", int64(1)<<40)
	if !strings.Contains(err.Error(), "overflows i32") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if err.Phase != PhaseMarshal || err.Kind != KindTypeCoercion {
		t.Errorf("unexpected phase/kind %s/%s", err.Phase, err.Kind)
	}
}

func TestArity(t *testing.T) {
	err := Arity("env", "pair", 1, 2)
	if err.Reason != ReasonArity || err.Kind != KindTypeCoercion {
		t.Errorf("unexpected error %v", err)
	}
	ns, name := err.Key()
	if ns != "env" || name != "pair" {
		t.Errorf("Key() = %q, %q", ns, name)
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseResolve, KindSignature).
		Import("env", "add").
		Reason(ReasonUnknownToken).
		Path("param_0").
		GoType("string").
		WasmType("i32").
		Value("str").
		Detail("token %q", "str").
		Cause(errors.New("cause")).
		Build()

	if err.Namespace != "env" || err.Name != "add" {
		t.Errorf("import not set: %+v", err)
	}
	if err.Detail != `token "str"` {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Value != "str" || err.GoType != "string" || err.WasmType != "i32" {
		t.Errorf("fields not set: %+v", err)
	}
	if len(err.Path) != 1 || err.Path[0] != "param_0" {
		t.Errorf("Path = %v", err.Path)
	}
}

func TestMissingImportsError(t *testing.T) {
	err := NewMissingImportsError([]string{"env.log", "wasi.io.write", "env.abort"})

	if len(err.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %d", len(err.Imports))
	}
	if err.Imports[1].Namespace != "wasi.io" || err.Imports[1].Function != "write" {
		t.Errorf("unexpected split: %+v", err.Imports[1])
	}

	msg := err.Error()
	for _, s := range []string{"missing 3 host function(s)", "env:", "- log", "- abort", "wasi.io:", "- write"} {
		if !strings.Contains(msg, s) {
			t.Errorf("message %q does not contain %q", msg, s)
		}
	}

	if !errors.Is(err, &MissingImportsError{}) {
		t.Error("expected Is to match type")
	}

	empty := &MissingImportsError{}
	if !strings.Contains(empty.Error(), "no imports") {
		t.Errorf("unexpected empty message %q", empty.Error())
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err   *Error
		phase Phase
		kind  Kind
	}{
		{Unsupported(PhaseMarshal, "externref"), PhaseMarshal, KindUnsupported},
		{NotFound(PhaseRuntime, "export", "run"), PhaseRuntime, KindNotFound},
		{InvalidInput(PhaseHost, "empty namespace"), PhaseHost, KindInvalidInput},
		{Registration(PhaseHost, "env", "x", errors.New("bad")), PhaseHost, KindRegistration},
		{Compile(errors.New("bad magic")), PhaseCompile, KindCompile},
		{Instantiation("instantiate", errors.New("bad")), PhaseInstantiate, KindInstantiation},
		{Internal("nil callable"), PhaseRuntime, KindInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if tt.err.Phase != tt.phase || tt.err.Kind != tt.kind {
				t.Errorf("got %s/%s, want %s/%s", tt.err.Phase, tt.err.Kind, tt.phase, tt.kind)
			}
		})
	}
}
