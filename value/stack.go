package value

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-hostbridge/errors"
)

// DecodeStack reads values of the given types from a wazero stack.
// A v128 takes two slots, low half first.
func DecodeStack(stack []uint64, types []Type) ([]Value, error) {
	if need := SlotCount(types); len(stack) < need {
		return nil, errors.Internal("stack has %d slots, %d needed", len(stack), need)
	}
	out := make([]Value, len(types))
	pos := 0
	for i, t := range types {
		switch t {
		case I32:
			out[i] = ValueI32(api.DecodeI32(stack[pos]))
		case I64:
			out[i] = ValueI64(int64(stack[pos]))
		case F32:
			out[i] = ValueF32(api.DecodeF32(stack[pos]))
		case F64:
			out[i] = ValueF64(api.DecodeF64(stack[pos]))
		case V128:
			out[i] = ValueV128(Uint128{Lo: stack[pos], Hi: stack[pos+1]})
		default:
			return nil, errors.Internal("cannot decode type 0x%x", byte(t))
		}
		pos += t.Slots()
	}
	return out, nil
}

// EncodeStack writes values into a wazero stack starting at slot 0.
func EncodeStack(stack []uint64, values []Value) error {
	if need := SlotCount(Types(values)); len(stack) < need {
		return errors.Internal("stack has %d slots, %d needed", len(stack), need)
	}
	pos := 0
	for _, v := range values {
		switch v.typ {
		case I32:
			stack[pos] = api.EncodeI32(v.I32())
		case I64:
			stack[pos] = api.EncodeI64(v.I64())
		case F32:
			stack[pos] = api.EncodeF32(v.F32())
		case F64:
			stack[pos] = api.EncodeF64(v.F64())
		case V128:
			stack[pos] = v.lo
			stack[pos+1] = v.hi
		default:
			return errors.Internal("cannot encode untagged value")
		}
		pos += v.typ.Slots()
	}
	return nil
}
