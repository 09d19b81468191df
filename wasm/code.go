package wasm

import (
	"encoding/binary"
	"math"

	"github.com/jcalabro/leb128"
)

// Code assembles an instruction sequence. Methods append and return the
// receiver so bodies read top to bottom:
//
//	body := wasm.NewCode().LocalGet(0).LocalGet(1).Call(0).End()
type Code struct {
	buf []byte
}

func NewCode() *Code {
	return &Code{}
}

// Op appends a bare opcode.
func (c *Code) Op(op byte) *Code {
	c.buf = append(c.buf, op)
	return c
}

func (c *Code) LocalGet(idx uint32) *Code {
	return c.withU32(OpLocalGet, idx)
}

func (c *Code) LocalSet(idx uint32) *Code {
	return c.withU32(OpLocalSet, idx)
}

func (c *Code) Call(funcIdx uint32) *Code {
	return c.withU32(OpCall, funcIdx)
}

func (c *Code) I32Const(v int32) *Code {
	c.buf = append(c.buf, OpI32Const)
	c.buf = append(c.buf, leb128.EncodeS64(int64(v))...)
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.buf = append(c.buf, OpI64Const)
	c.buf = append(c.buf, leb128.EncodeS64(v)...)
	return c
}

func (c *Code) F32Const(v float32) *Code {
	c.buf = append(c.buf, OpF32Const)
	c.buf = binary.LittleEndian.AppendUint32(c.buf, math.Float32bits(v))
	return c
}

func (c *Code) F64Const(v float64) *Code {
	c.buf = append(c.buf, OpF64Const)
	c.buf = binary.LittleEndian.AppendUint64(c.buf, math.Float64bits(v))
	return c
}

// V128Const pushes a 128-bit constant given as low and high halves.
func (c *Code) V128Const(lo, hi uint64) *Code {
	c.SIMD(SIMDV128Const)
	c.buf = binary.LittleEndian.AppendUint64(c.buf, lo)
	c.buf = binary.LittleEndian.AppendUint64(c.buf, hi)
	return c
}

// SIMD appends a 0xFD-prefixed vector instruction.
func (c *Code) SIMD(sub uint32) *Code {
	return c.withU32(OpPrefixSIMD, sub)
}

// Drop discards the top of the stack.
func (c *Code) Drop() *Code {
	return c.Op(OpDrop)
}

// End terminates the expression and returns the body bytes.
func (c *Code) End() []byte {
	return append(c.buf, OpEnd)
}

func (c *Code) withU32(op byte, v uint32) *Code {
	c.buf = append(c.buf, op)
	c.buf = append(c.buf, leb128.EncodeU64(uint64(v))...)
	return c
}
