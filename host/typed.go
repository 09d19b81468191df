package host

import (
	"context"
	"fmt"
	"reflect"

	"github.com/wippyai/wasm-hostbridge/errors"
	"github.com/wippyai/wasm-hostbridge/value"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	uint128Type = reflect.TypeOf(value.Uint128{})
)

// typedFunc calls a Go function through reflection.
type typedFunc struct {
	fn          reflect.Value
	params      []reflect.Type
	annotations []Annotation
	hasCtx      bool
	hasResult   bool
	hasErr      bool
}

// Typed wraps a Go function so its parameter and result types become
// annotations. Accepted shapes:
//
//	func([ctx context.Context,] p0, p1, ...) [r] [error]
//
// where every p and r is int32, uint32, int64, uint64, int, uint,
// float32, float64 or value.Uint128. int and uint are generic integers
// and match either i32 or i64.
func Typed(fn any) (Annotated, error) {
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseHost, "handler cannot be nil")
	}
	rv := reflect.ValueOf(fn)
	rt := rv.Type()
	if rt.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseHost, errors.KindRegistration).
			GoType(rt.String()).
			Detail("handler must be a function").
			Build()
	}
	if rv.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseHost, "handler cannot be nil")
	}
	if rt.IsVariadic() {
		return nil, errors.New(errors.PhaseHost, errors.KindRegistration).
			GoType(rt.String()).
			Detail("variadic handlers are not supported").
			Build()
	}

	tf := &typedFunc{fn: rv}

	start := 0
	if rt.NumIn() > 0 && rt.In(0) == contextType {
		tf.hasCtx = true
		start = 1
	}
	for i := start; i < rt.NumIn(); i++ {
		pt := rt.In(i)
		hint, ok := HintFor(pt)
		if !ok {
			return nil, errors.New(errors.PhaseHost, errors.KindRegistration).
				GoType(pt.String()).
				Path(fmt.Sprintf("param_%d", i-start)).
				Detail("unsupported parameter type").
				Build()
		}
		tf.params = append(tf.params, pt)
		tf.annotations = append(tf.annotations, Param(fmt.Sprintf("param_%d", i-start), hint))
	}

	numOut := rt.NumOut()
	if numOut > 0 && rt.Out(numOut-1) == errorType {
		tf.hasErr = true
		numOut--
	}
	switch numOut {
	case 0:
	case 1:
		hint, ok := HintFor(rt.Out(0))
		if !ok {
			return nil, errors.New(errors.PhaseHost, errors.KindRegistration).
				GoType(rt.Out(0).String()).
				Path(ReturnName).
				Detail("unsupported result type").
				Build()
		}
		tf.hasResult = true
		tf.annotations = append(tf.annotations, Return(hint))
	default:
		return nil, errors.New(errors.PhaseHost, errors.KindRegistration).
			GoType(rt.String()).
			Detail("handler returns %d values, at most one result is supported", numOut).
			Build()
	}

	return tf, nil
}

// HintFor maps a Go type to an annotation token.
func HintFor(t reflect.Type) (string, bool) {
	if t == uint128Type {
		return "v128", true
	}
	switch t.Kind() {
	case reflect.Int32, reflect.Uint32:
		return "i32", true
	case reflect.Int64, reflect.Uint64:
		return "i64", true
	case reflect.Int, reflect.Uint:
		return "int", true
	case reflect.Float32:
		return "f32", true
	case reflect.Float64:
		return "f64", true
	}
	return "", false
}

func (tf *typedFunc) Annotations() []Annotation {
	return tf.annotations
}

func (tf *typedFunc) Arity() (params, results int) {
	if tf.hasResult {
		results = 1
	}
	return len(tf.params), results
}

func (tf *typedFunc) Call(ctx context.Context, args []any) (any, error) {
	if len(args) != len(tf.params) {
		return nil, errors.New(errors.PhaseCall, errors.KindTypeCoercion).
			Reason(errors.ReasonArity).
			Detail("handler takes %d argument(s), got %d", len(tf.params), len(args)).
			Build()
	}

	in := make([]reflect.Value, 0, len(args)+1)
	if tf.hasCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, arg := range args {
		av := reflect.ValueOf(arg)
		pt := tf.params[i]
		if !av.IsValid() || !convertible(av.Type(), pt) {
			return nil, errors.New(errors.PhaseCall, errors.KindTypeCoercion).
				Reason(errors.ReasonKindMismatch).
				GoType(fmt.Sprintf("%T", arg)).
				Path(fmt.Sprintf("param_%d", i)).
				Detail("cannot pass as %s", pt).
				Build()
		}
		in = append(in, av.Convert(pt))
	}

	out := tf.fn.Call(in)

	if tf.hasErr {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}
	if tf.hasResult {
		return out[0].Interface(), nil
	}
	return nil, nil
}

// convertible limits reflect conversion to numeric kinds so strings
// never turn into integers.
func convertible(from, to reflect.Type) bool {
	if from == to {
		return true
	}
	if from == uint128Type || to == uint128Type {
		return false
	}
	return isNumeric(from.Kind()) && isNumeric(to.Kind()) && from.ConvertibleTo(to)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
