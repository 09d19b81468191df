package bridge

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-hostbridge/errors"
	"github.com/wippyai/wasm-hostbridge/host"
	"github.com/wippyai/wasm-hostbridge/value"
)

// ImportKey identifies a function import by module namespace and name.
type ImportKey struct {
	Namespace string
	Name      string
}

func (k ImportKey) String() string {
	return k.Namespace + "." + k.Name
}

// hintClass is the set of value types an annotation accepts.
type hintClass struct {
	token string
	types []value.Type
}

func (h hintClass) accepts(t value.Type) bool {
	return slices.Contains(h.types, t)
}

var (
	integerClass = []value.Type{value.I32, value.I64}
	floatClass   = []value.Type{value.F32, value.F64}
)

// Resolve checks a callable's annotations against the declared signature
// of its import and returns the effective signature. The declared
// signature always wins: annotations can only confirm it or fail.
func Resolve(key ImportKey, declared *value.Signature, c host.Callable) (value.Signature, error) {
	if declared == nil {
		return value.Signature{}, errors.Signature(key.Namespace, key.Name, errors.ReasonMissingSignature,
			"no declared signature for import")
	}
	if host.IsNil(c) {
		return value.Signature{}, errors.Signature(key.Namespace, key.Name, errors.ReasonNotCallable,
			"registered value is not callable")
	}
	if err := declared.Validate(); err != nil {
		return value.Signature{}, errors.New(errors.PhaseResolve, errors.KindSignature).
			Import(key.Namespace, key.Name).
			Cause(err).
			Detail("declared signature %s cannot be bridged", declared).
			Build()
	}

	anns := host.AnnotationsOf(c)
	if len(anns) == 0 {
		// A typed func() has no hints but still has a fixed shape.
		if f, ok := c.(host.Fixed); ok {
			params, results := f.Arity()
			if params != len(declared.Params) || results != len(declared.Results) {
				return value.Signature{}, errors.Signature(key.Namespace, key.Name, errors.ReasonTypeConflict,
					"handler takes %d parameter(s) and returns %d result(s), import declares %s",
					params, results, declared)
			}
		}
		return declared.Clone(), nil
	}

	returns := 0
	for _, a := range anns {
		if a.IsReturn() {
			returns++
		}
	}
	if returns > 1 {
		return value.Signature{}, errors.Signature(key.Namespace, key.Name, errors.ReasonMultipleResults,
			"%d return annotations", returns)
	}

	positions := declared.Positions()
	nParams := len(declared.Params)
	switch {
	case len(anns) > len(positions):
		return value.Signature{}, errors.Signature(key.Namespace, key.Name, errors.ReasonTypeConflict,
			"%d annotations for signature %s with %d position(s)", len(anns), declared, len(positions))
	case len(anns) < len(positions):
		return value.Signature{}, errors.Signature(key.Namespace, key.Name, errors.ReasonPartialAnnotation,
			"%d annotations for signature %s with %d position(s)", len(anns), declared, len(positions))
	}

	for i, a := range anns {
		want := positions[i]
		onResult := i >= nParams
		if a.IsReturn() != onResult {
			where := "parameter"
			if onResult {
				where = "result"
			}
			return value.Signature{}, errors.New(errors.PhaseResolve, errors.KindSignature).
				Import(key.Namespace, key.Name).
				Reason(errors.ReasonTypeConflict).
				Path(annotationName(a, i)).
				WasmType(want.String()).
				Detail("annotation %q lands on %s position %d", a.Name, where, i).
				Build()
		}

		class, err := classify(a.Hint)
		if err != nil {
			return value.Signature{}, errors.New(errors.PhaseResolve, errors.KindSignature).
				Import(key.Namespace, key.Name).
				Reason(errors.ReasonUnknownToken).
				Path(annotationName(a, i)).
				Cause(err).
				Detail("unrecognized type hint %v", a.Hint).
				Build()
		}
		if !class.accepts(want) {
			return value.Signature{}, errors.New(errors.PhaseResolve, errors.KindSignature).
				Import(key.Namespace, key.Name).
				Reason(errors.ReasonTypeConflict).
				Path(annotationName(a, i)).
				WasmType(want.String()).
				Detail("annotation %s conflicts with declared %s", class.token, want).
				Build()
		}
	}

	return declared.Clone(), nil
}

func annotationName(a host.Annotation, i int) string {
	if a.Name != "" {
		return a.Name
	}
	return fmt.Sprintf("#%d", i)
}

// classify turns a type hint into the set of value types it accepts.
func classify(hint any) (hintClass, error) {
	switch h := hint.(type) {
	case nil:
		return hintClass{}, fmt.Errorf("nil hint")
	case value.Type:
		if !h.Valid() {
			return hintClass{}, fmt.Errorf("invalid value type %#x", byte(h))
		}
		return hintClass{token: h.String(), types: []value.Type{h}}, nil
	case string:
		return classifyToken(h)
	case wit.Type:
		return classifyWIT(h)
	case reflect.Type:
		if h == nil {
			return hintClass{}, fmt.Errorf("nil reflect type")
		}
		token, ok := host.HintFor(h)
		if !ok {
			return hintClass{}, fmt.Errorf("go type %s has no wasm equivalent", h)
		}
		return classifyToken(token)
	}
	return hintClass{}, fmt.Errorf("unsupported hint of type %T", hint)
}

func classifyToken(s string) (hintClass, error) {
	token := strings.TrimSpace(s)
	switch strings.ToLower(token) {
	case "i32":
		return hintClass{token: "i32", types: []value.Type{value.I32}}, nil
	case "i64":
		return hintClass{token: "i64", types: []value.Type{value.I64}}, nil
	case "f32":
		return hintClass{token: "f32", types: []value.Type{value.F32}}, nil
	case "f64":
		return hintClass{token: "f64", types: []value.Type{value.F64}}, nil
	case "v128":
		return hintClass{token: "v128", types: []value.Type{value.V128}}, nil
	case "int", "integer":
		return hintClass{token: "int", types: integerClass}, nil
	case "float", "number":
		return hintClass{token: "float", types: floatClass}, nil
	case "":
		return hintClass{}, fmt.Errorf("empty token")
	}

	wt, err := wit.ParseType(token)
	if err != nil {
		return hintClass{}, fmt.Errorf("unknown type token %q: %w", token, err)
	}
	return classifyWIT(wt)
}

// classifyWIT maps WIT primitives to their flattened core type.
func classifyWIT(t wit.Type) (hintClass, error) {
	switch t.(type) {
	case wit.Bool, wit.S8, wit.U8, wit.S16, wit.U16, wit.S32, wit.U32, wit.Char:
		return hintClass{token: witName(t), types: []value.Type{value.I32}}, nil
	case wit.S64, wit.U64:
		return hintClass{token: witName(t), types: []value.Type{value.I64}}, nil
	case wit.F32:
		return hintClass{token: "f32", types: []value.Type{value.F32}}, nil
	case wit.F64:
		return hintClass{token: "f64", types: []value.Type{value.F64}}, nil
	}
	return hintClass{}, fmt.Errorf("wit type %T does not flatten to a single core value", t)
}

func witName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S8:
		return "s8"
	case wit.U8:
		return "u8"
	case wit.S16:
		return "s16"
	case wit.U16:
		return "u16"
	case wit.S32:
		return "s32"
	case wit.U32:
		return "u32"
	case wit.Char:
		return "char"
	case wit.S64:
		return "s64"
	case wit.U64:
		return "u64"
	}
	return fmt.Sprintf("%T", t)
}
