package value

import (
	"math"
	"math/big"
	"testing"

	"github.com/tetratelabs/wazero/api"
)

func TestType_String(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{I32, "i32"},
		{I64, "i64"},
		{F32, "f32"},
		{F64, "f64"},
		{V128, "v128"},
		{Type(0), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%#x.String() = %q, want %q", byte(tt.typ), got, tt.want)
		}
	}
}

func TestType_API(t *testing.T) {
	for _, typ := range []Type{I32, I64, F32, F64, V128} {
		back, err := FromAPI(typ.API())
		if err != nil {
			t.Fatalf("FromAPI(%s): %v", typ, err)
		}
		if back != typ {
			t.Errorf("round trip %s -> %s", typ, back)
		}
	}
	if _, err := FromAPI(api.ValueTypeExternref); err == nil {
		t.Error("expected externref to be unsupported")
	}
	if I32.API() != api.ValueTypeI32 || F64.API() != api.ValueTypeF64 {
		t.Error("API() does not match wazero constants")
	}
}

func TestSignature(t *testing.T) {
	sig := NewSignature([]Type{I32, I32}, I32)
	if got := sig.String(); got != "(i32, i32) -> i32" {
		t.Errorf("String() = %q", got)
	}
	if err := sig.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	void := NewSignature([]Type{I64})
	if got := void.String(); got != "(i64) -> ()" {
		t.Errorf("String() = %q", got)
	}
	if _, ok := void.Result(); ok {
		t.Error("void signature should have no result")
	}

	multi := Signature{Results: []Type{I32, I32}}
	if err := multi.Validate(); err == nil {
		t.Error("expected multi-value results to be rejected")
	}

	bad := Signature{Params: []Type{Type(0x6f)}}
	if err := bad.Validate(); err == nil {
		t.Error("expected invalid param type to be rejected")
	}

	clone := sig.Clone()
	clone.Params[0] = F64
	if sig.Params[0] != I32 {
		t.Error("Clone shares backing array")
	}
	if sig.Equal(clone) {
		t.Error("Equal should detect differing params")
	}
	if !sig.Equal(NewSignature([]Type{I32, I32}, I32)) {
		t.Error("Equal should match identical signatures")
	}

	pos := sig.Positions()
	if len(pos) != 3 || pos[2] != I32 {
		t.Errorf("Positions() = %v", pos)
	}
}

func TestValue_Accessors(t *testing.T) {
	if v := ValueI32(-5); v.I32() != -5 || v.Type() != I32 {
		t.Errorf("i32 accessor: %v", v)
	}
	if v := ValueI64(math.MinInt64); v.I64() != math.MinInt64 {
		t.Errorf("i64 accessor: %v", v)
	}
	if v := ValueF32(1.5); v.F32() != 1.5 {
		t.Errorf("f32 accessor: %v", v)
	}
	if v := ValueF64(math.Pi); v.F64() != math.Pi {
		t.Errorf("f64 accessor: %v", v)
	}
	u := Uint128{Lo: 1, Hi: 2}
	if v := ValueV128(u); v.V128() != u {
		t.Errorf("v128 accessor: %v", v)
	}
	if got := ValueI32(7).String(); got != "i32:7" {
		t.Errorf("String() = %q", got)
	}
	if !Zero(F64).Equal(ValueF64(0)) {
		t.Error("Zero(F64) should equal f64 0")
	}
}

func TestValue_EqualNaN(t *testing.T) {
	nan := ValueF64(math.NaN())
	if !nan.Equal(nan) {
		t.Error("NaN should equal itself by bit pattern")
	}
	if ValueI32(0).Equal(ValueI64(0)) {
		t.Error("values with different tags must differ")
	}
}

func TestUint128_Big(t *testing.T) {
	u := Uint128{Lo: math.MaxUint64, Hi: 1}
	b := u.Big()
	want := new(big.Int).Lsh(big.NewInt(1), 65)
	want.Sub(want, big.NewInt(1))
	if b.Cmp(want) != 0 {
		t.Errorf("Big() = %s, want %s", b, want)
	}

	back, ok := Uint128FromBig(b)
	if !ok || back != u {
		t.Errorf("Uint128FromBig round trip = %v, %v", back, ok)
	}

	if _, ok := Uint128FromBig(big.NewInt(-1)); ok {
		t.Error("negative values must be rejected")
	}
	if _, ok := Uint128FromBig(new(big.Int).Lsh(big.NewInt(1), 128)); ok {
		t.Error("2^128 must be rejected")
	}
	if got := (Uint128{Lo: 0xff}).String(); got != "0x000000000000000000000000000000ff" {
		t.Errorf("String() = %q", got)
	}
}

func TestStack_RoundTrip(t *testing.T) {
	types := []Type{I32, V128, F32, I64, F64}
	vals := []Value{
		ValueI32(-1),
		ValueV128(Uint128{Lo: 0xdead, Hi: 0xbeef}),
		ValueF32(2.5),
		ValueI64(-42),
		ValueF64(-0.125),
	}

	stack := make([]uint64, SlotCount(types))
	if len(stack) != 6 {
		t.Fatalf("SlotCount = %d, want 6", len(stack))
	}
	if err := EncodeStack(stack, vals); err != nil {
		t.Fatalf("EncodeStack: %v", err)
	}
	if stack[0] != uint64(math.MaxUint32) {
		t.Errorf("i32 -1 should encode as 0xffffffff, got %#x", stack[0])
	}
	if stack[1] != 0xdead || stack[2] != 0xbeef {
		t.Errorf("v128 halves misplaced: %#x %#x", stack[1], stack[2])
	}

	got, err := DecodeStack(stack, types)
	if err != nil {
		t.Fatalf("DecodeStack: %v", err)
	}
	for i := range vals {
		if !got[i].Equal(vals[i]) {
			t.Errorf("slot %d: got %v, want %v", i, got[i], vals[i])
		}
	}
}

func TestStack_Short(t *testing.T) {
	if _, err := DecodeStack([]uint64{0}, []Type{V128}); err == nil {
		t.Error("expected short stack error on decode")
	}
	if err := EncodeStack(nil, []Value{ValueI32(1)}); err == nil {
		t.Error("expected short stack error on encode")
	}
	if err := EncodeStack(make([]uint64, 1), []Value{{}}); err == nil {
		t.Error("expected untagged value error")
	}
}
