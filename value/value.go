package value

import (
	"fmt"
	"math"
	"math/big"
)

// Uint128 is the host view of a v128 value: an unsigned 128-bit integer.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

var two64 = new(big.Int).Lsh(big.NewInt(1), 64)

// Big returns v as a non-negative big integer.
func (v Uint128) Big() *big.Int {
	b := new(big.Int).SetUint64(v.Hi)
	b.Mul(b, two64)
	return b.Add(b, new(big.Int).SetUint64(v.Lo))
}

// Uint128FromBig converts b, which must be in [0, 2^128).
func Uint128FromBig(b *big.Int) (Uint128, bool) {
	if b == nil || b.Sign() < 0 || b.BitLen() > 128 {
		return Uint128{}, false
	}
	hi, lo := new(big.Int).QuoRem(b, two64, new(big.Int))
	return Uint128{Lo: lo.Uint64(), Hi: hi.Uint64()}, true
}

func (v Uint128) String() string {
	return fmt.Sprintf("0x%016x%016x", v.Hi, v.Lo)
}

// Value is a tagged WebAssembly value: a type plus its bit pattern.
type Value struct {
	typ Type
	lo  uint64
	hi  uint64
}

// ValueI32 tags an i32.
func ValueI32(v int32) Value { return Value{typ: I32, lo: uint64(uint32(v))} }

// ValueI64 tags an i64.
func ValueI64(v int64) Value { return Value{typ: I64, lo: uint64(v)} }

// ValueF32 tags an f32.
func ValueF32(v float32) Value { return Value{typ: F32, lo: uint64(math.Float32bits(v))} }

// ValueF64 tags an f64.
func ValueF64(v float64) Value { return Value{typ: F64, lo: math.Float64bits(v)} }

// ValueV128 tags a v128.
func ValueV128(v Uint128) Value { return Value{typ: V128, lo: v.Lo, hi: v.Hi} }

func (v Value) Type() Type { return v.typ }

func (v Value) I32() int32 { return int32(uint32(v.lo)) }

func (v Value) I64() int64 { return int64(v.lo) }

func (v Value) F32() float32 { return math.Float32frombits(uint32(v.lo)) }

func (v Value) F64() float64 { return math.Float64frombits(v.lo) }

func (v Value) V128() Uint128 { return Uint128{Lo: v.lo, Hi: v.hi} }

// Zero returns the zero value of t.
func Zero(t Type) Value {
	return Value{typ: t}
}

// Equal compares tag and bit pattern, so NaN payloads compare equal to
// themselves.
func (v Value) Equal(o Value) bool {
	return v.typ == o.typ && v.lo == o.lo && v.hi == o.hi
}

func (v Value) String() string {
	switch v.typ {
	case I32:
		return fmt.Sprintf("i32:%d", v.I32())
	case I64:
		return fmt.Sprintf("i64:%d", v.I64())
	case F32:
		return fmt.Sprintf("f32:%g", v.F32())
	case F64:
		return fmt.Sprintf("f64:%g", v.F64())
	case V128:
		return "v128:" + v.V128().String()
	default:
		return "invalid"
	}
}

// Types returns the tags of vs.
func Types(vs []Value) []Type {
	out := make([]Type, len(vs))
	for i, v := range vs {
		out[i] = v.typ
	}
	return out
}
