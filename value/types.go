package value

import (
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-hostbridge/errors"
)

// Type is a WebAssembly number or vector type. Values are the binary
// format encodings, so they line up with wazero's api.ValueType.
type Type byte

const (
	I32  Type = 0x7f
	I64  Type = 0x7e
	F32  Type = 0x7d
	F64  Type = 0x7c
	V128 Type = 0x7b
)

// valueTypeV128 is not exported by wazero's api package.
const valueTypeV128 api.ValueType = 0x7b

func (t Type) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	switch t {
	case I32, I64, F32, F64, V128:
		return true
	}
	return false
}

// Slots returns how many uint64 stack slots a value of t occupies.
func (t Type) Slots() int {
	if t == V128 {
		return 2
	}
	return 1
}

// API returns the wazero value type.
func (t Type) API() api.ValueType {
	if t == V128 {
		return valueTypeV128
	}
	return api.ValueType(t)
}

// FromAPI converts a wazero value type. Reference types are unsupported.
func FromAPI(vt api.ValueType) (Type, error) {
	switch vt {
	case api.ValueTypeI32:
		return I32, nil
	case api.ValueTypeI64:
		return I64, nil
	case api.ValueTypeF32:
		return F32, nil
	case api.ValueTypeF64:
		return F64, nil
	case valueTypeV128:
		return V128, nil
	}
	return 0, errors.Unsupported(errors.PhaseResolve, "value type "+api.ValueTypeName(vt))
}

// FromAPIs converts a list of wazero value types.
func FromAPIs(vts []api.ValueType) ([]Type, error) {
	if len(vts) == 0 {
		return nil, nil
	}
	out := make([]Type, len(vts))
	for i, vt := range vts {
		t, err := FromAPI(vt)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// APIs converts a list of types to wazero value types.
func APIs(ts []Type) []api.ValueType {
	if len(ts) == 0 {
		return nil
	}
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		out[i] = t.API()
	}
	return out
}

// SlotCount sums the stack slots of ts.
func SlotCount(ts []Type) int {
	n := 0
	for _, t := range ts {
		n += t.Slots()
	}
	return n
}

// Signature is a function type with at most one result.
type Signature struct {
	Params  []Type
	Results []Type
}

// NewSignature builds a signature from parameter and result lists.
func NewSignature(params []Type, results ...Type) Signature {
	return Signature{Params: params, Results: results}
}

// Validate checks the single-result invariant and the type set.
func (s Signature) Validate() error {
	if len(s.Results) > 1 {
		return errors.Unsupported(errors.PhaseResolve, "multi-value results")
	}
	for _, t := range s.Params {
		if !t.Valid() {
			return errors.InvalidInput(errors.PhaseResolve, "invalid parameter type "+t.String())
		}
	}
	for _, t := range s.Results {
		if !t.Valid() {
			return errors.InvalidInput(errors.PhaseResolve, "invalid result type "+t.String())
		}
	}
	return nil
}

// Equal compares parameter and result lists.
func (s Signature) Equal(o Signature) bool {
	return typesEqual(s.Params, o.Params) && typesEqual(s.Results, o.Results)
}

// Clone returns a deep copy.
func (s Signature) Clone() Signature {
	var c Signature
	if len(s.Params) > 0 {
		c.Params = append([]Type(nil), s.Params...)
	}
	if len(s.Results) > 0 {
		c.Results = append([]Type(nil), s.Results...)
	}
	return c
}

// Result returns the result type, if any.
func (s Signature) Result() (Type, bool) {
	if len(s.Results) == 0 {
		return 0, false
	}
	return s.Results[0], true
}

// Positions returns params followed by results, the order annotations
// are paired in.
func (s Signature) Positions() []Type {
	out := make([]Type, 0, len(s.Params)+len(s.Results))
	out = append(out, s.Params...)
	return append(out, s.Results...)
}

func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, t := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	b.WriteString(") -> ")
	if len(s.Results) == 0 {
		b.WriteString("()")
	} else {
		b.WriteString(s.Results[0].String())
	}
	return b.String()
}

func typesEqual(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
