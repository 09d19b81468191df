package value

import (
	"fmt"
	"math"
	"math/big"
	"reflect"

	"github.com/wippyai/wasm-hostbridge/errors"
)

// Policy decides what happens when a host number does not fit the
// target type. It never applies to kind mismatches (a string is never
// narrowed to an i32).
type Policy uint8

const (
	// OverflowFail rejects out-of-range values with a coercion error.
	OverflowFail Policy = iota
	// OverflowSaturate clamps integers to the signed range of i32/i64
	// (positive overflow becomes MaxInt32/MaxInt64) and v128 to
	// [0, 2^128-1]. Floats clamp to the largest finite f32.
	OverflowSaturate
	// OverflowWrap keeps the low bits (two's complement). Floats that
	// exceed the f32/f64 range become infinities.
	OverflowWrap
)

func (p Policy) String() string {
	switch p {
	case OverflowFail:
		return "fail"
	case OverflowSaturate:
		return "saturate"
	case OverflowWrap:
		return "wrap"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ParsePolicy parses "fail", "saturate" or "wrap". The empty string is fail.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fail":
		return OverflowFail, nil
	case "saturate":
		return OverflowSaturate, nil
	case "wrap":
		return OverflowWrap, nil
	}
	return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown overflow policy %q", s))
}

// ToHost converts an engine value to its host form: int32, int64,
// float32, float64 or Uint128.
func ToHost(v Value) any {
	switch v.typ {
	case I32:
		return v.I32()
	case I64:
		return v.I64()
	case F32:
		return v.F32()
	case F64:
		return v.F64()
	case V128:
		return v.V128()
	}
	return nil
}

// ToHostAll converts a list of engine values.
func ToHostAll(vs []Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = ToHost(v)
	}
	return out
}

// Integer ranges accepted without overflow. i32 and i64 accept both the
// signed and the unsigned reading of their bit pattern; v128 is unsigned.
var (
	minI32  = big.NewInt(math.MinInt32)
	maxI32  = new(big.Int).SetUint64(math.MaxUint32)
	minI64  = big.NewInt(math.MinInt64)
	maxI64  = new(big.Int).SetUint64(math.MaxUint64)
	minV128 = big.NewInt(0)
	maxV128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	// Saturation clamps positive overflow to the signed maximum.
	satI32 = big.NewInt(math.MaxInt32)
	satI64 = big.NewInt(math.MaxInt64)
)

// FromHost converts a host value to an engine value of type t.
func FromHost(v any, t Type, policy Policy) (Value, error) {
	if tagged, ok := v.(Value); ok {
		if tagged.typ != t {
			return Value{}, errors.Coercion(errors.ReasonKindMismatch, "value."+tagged.typ.String(), t.String(), tagged)
		}
		return tagged, nil
	}

	switch t {
	case I32:
		if i, ok := fastInt(v); ok && i >= math.MinInt32 && i <= math.MaxUint32 {
			return ValueI32(int32(uint32(i))), nil
		}
		lo, _, err := narrowInteger(v, t, minI32, maxI32, satI32, 32, policy)
		if err != nil {
			return Value{}, err
		}
		return ValueI32(int32(uint32(lo))), nil

	case I64:
		if i, ok := fastInt(v); ok {
			return ValueI64(i), nil
		}
		lo, _, err := narrowInteger(v, t, minI64, maxI64, satI64, 64, policy)
		if err != nil {
			return Value{}, err
		}
		return ValueI64(int64(lo)), nil

	case V128:
		if u, ok := v.(Uint128); ok {
			return ValueV128(u), nil
		}
		lo, hi, err := narrowInteger(v, t, minV128, maxV128, maxV128, 128, policy)
		if err != nil {
			return Value{}, err
		}
		return ValueV128(Uint128{Lo: lo, Hi: hi}), nil

	case F32:
		f, err := toFloat(v, t, policy)
		if err != nil {
			return Value{}, err
		}
		if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			switch policy {
			case OverflowSaturate:
				return ValueF32(float32(math.Copysign(math.MaxFloat32, f))), nil
			case OverflowWrap:
				return ValueF32(float32(math.Inf(int(math.Copysign(1, f))))), nil
			default:
				return Value{}, errors.Coercion(errors.ReasonOverflow, goTypeName(v), t.String(), v)
			}
		}
		return ValueF32(float32(f)), nil

	case F64:
		f, err := toFloat(v, t, policy)
		if err != nil {
			return Value{}, err
		}
		return ValueF64(f), nil
	}

	return Value{}, errors.Unsupported(errors.PhaseMarshal, "value type "+t.String())
}

// FromHostAll converts host values against a list of types.
func FromHostAll(vs []any, ts []Type, policy Policy) ([]Value, error) {
	if len(vs) != len(ts) {
		return nil, errors.New(errors.PhaseMarshal, errors.KindTypeCoercion).
			Reason(errors.ReasonArity).
			Detail("got %d value(s), want %d", len(vs), len(ts)).
			Build()
	}
	out := make([]Value, len(vs))
	for i, v := range vs {
		val, err := FromHost(v, ts[i], policy)
		if err != nil {
			if e, ok := err.(*errors.Error); ok {
				e.Path = append(e.Path, fmt.Sprintf("[%d]", i))
			}
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// fastInt handles the common integer kinds that fit an int64.
func fastInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

// integerOf converts any integral host number to a big integer. Floats
// qualify only when finite and integral.
func integerOf(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return new(big.Int).Set(n), true
	case Uint128:
		return n.Big(), true
	case bool, string, nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, false
		}
		b, _ := big.NewFloat(f).Int(nil)
		return b, true
	}
	return nil, false
}

// narrowInteger range-checks v against [lower, upper] under policy and returns
// the two's complement bit pattern truncated to bits. Saturation clamps to
// lower or satUpper.
func narrowInteger(v any, t Type, lower, upper, satUpper *big.Int, bits uint, policy Policy) (lo, hi uint64, err error) {
	n, ok := integerOf(v)
	if !ok {
		return 0, 0, errors.Coercion(errors.ReasonKindMismatch, goTypeName(v), t.String(), v)
	}

	if n.Cmp(lower) < 0 || n.Cmp(upper) > 0 {
		switch policy {
		case OverflowSaturate:
			if n.Sign() < 0 {
				n.Set(lower)
			} else {
				n.Set(satUpper)
			}
		case OverflowWrap:
		default:
			return 0, 0, errors.Coercion(errors.ReasonOverflow, goTypeName(v), t.String(), v)
		}
	}

	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
	n.And(n, mask)

	word := new(big.Int).SetUint64(math.MaxUint64)
	lo = new(big.Int).And(n, word).Uint64()
	hi = new(big.Int).Rsh(n, 64).Uint64()
	return lo, hi, nil
}

// toFloat accepts host floats and integers exactly representable in t.
func toFloat(v any, t Type, policy Policy) (float64, error) {
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	}

	rv := reflect.ValueOf(v)
	if v != nil && (rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64) {
		return rv.Float(), nil
	}

	n, ok := integerOf(v)
	if !ok {
		return 0, errors.Coercion(errors.ReasonKindMismatch, goTypeName(v), t.String(), v)
	}

	bf := new(big.Float).SetInt(n)
	var f float64
	var exact bool
	if t == F32 {
		f32, acc := bf.Float32()
		f, exact = float64(f32), acc == big.Exact
	} else {
		f64, acc := bf.Float64()
		f, exact = f64, acc == big.Exact
	}
	if exact {
		return f, nil
	}

	switch policy {
	case OverflowSaturate:
		limit := math.MaxFloat64
		if t == F32 {
			limit = math.MaxFloat32
		}
		if math.IsInf(f, 0) {
			return math.Copysign(limit, f), nil
		}
		return f, nil
	case OverflowWrap:
		return f, nil
	}
	return 0, errors.Coercion(errors.ReasonOverflow, goTypeName(v), t.String(), v)
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
