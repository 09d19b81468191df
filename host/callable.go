package host

import (
	"context"
	"reflect"
)

// Callable is a host function that WebAssembly code can call through an
// import. Arguments arrive as int32, int64, float32, float64 or
// value.Uint128 according to the import's declared parameter types.
//
// The return value is normalized by the caller: Results (or []any) is a
// sequence, nil is the empty sequence, anything else is a single value.
type Callable interface {
	Call(ctx context.Context, args []any) (any, error)
}

// Func adapts an ordinary function to Callable.
type Func func(ctx context.Context, args ...any) (any, error)

func (f Func) Call(ctx context.Context, args []any) (any, error) {
	return f(ctx, args...)
}

// Results is an explicit sequence of returned values.
type Results []any

// Normalize turns a callable's return value into a result sequence.
// A single non-sequence value becomes a one-element sequence.
func Normalize(ret any) []any {
	switch r := ret.(type) {
	case nil:
		return nil
	case Results:
		return r
	case []any:
		return r
	}
	return []any{ret}
}

// Annotation is an optional type hint for one position of a callable.
// Name is "return" for the result; any other name is a parameter.
type Annotation struct {
	Hint any
	Name string
}

// ReturnName is the annotation name of the result position.
const ReturnName = "return"

// IsReturn reports whether the annotation targets the result.
func (a Annotation) IsReturn() bool {
	return a.Name == ReturnName
}

// Param annotates a parameter position.
func Param(name string, hint any) Annotation {
	return Annotation{Name: name, Hint: hint}
}

// Return annotates the result position.
func Return(hint any) Annotation {
	return Annotation{Name: ReturnName, Hint: hint}
}

// Annotated is implemented by callables that carry type hints. The
// order of Annotations is the declaration order: parameters first, then
// the return hint.
type Annotated interface {
	Callable
	Annotations() []Annotation
}

type annotated struct {
	Callable
	annotations []Annotation
}

func (a *annotated) Annotations() []Annotation {
	return a.annotations
}

// Annotate attaches type hints to c. Hints replace any c already carries.
func Annotate(c Callable, annotations ...Annotation) Annotated {
	if inner, ok := c.(*annotated); ok {
		c = inner.Callable
	}
	return &annotated{
		Callable:    c,
		annotations: append([]Annotation(nil), annotations...),
	}
}

// Fixed is implemented by callables whose Go shape fixes how many
// parameters and results they take. Typed callables implement it.
type Fixed interface {
	Arity() (params, results int)
}

// AnnotationsOf returns the hints of c, or nil when it carries none.
func AnnotationsOf(c Callable) []Annotation {
	if a, ok := c.(Annotated); ok {
		return a.Annotations()
	}
	return nil
}

// IsNil reports whether c is nil or a typed nil.
func IsNil(c Callable) bool {
	if c == nil {
		return true
	}
	rv := reflect.ValueOf(c)
	switch rv.Kind() {
	case reflect.Func, reflect.Ptr, reflect.Map, reflect.Interface, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
