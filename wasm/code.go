package wasm

import "encoding/binary"

const (
	opUnreachable byte = 0x00
	opBlock       byte = 0x02
	opLoop        byte = 0x03
	opIf          byte = 0x04
	opElse        byte = 0x05
	opEnd         byte = 0x0b
	opBr          byte = 0x0c
	opBrIf        byte = 0x0d
	opReturn      byte = 0x0f
	opCall        byte = 0x10
	opDrop        byte = 0x1a
	opLocalGet    byte = 0x20
	opLocalSet    byte = 0x21
	opLocalTee    byte = 0x22
	opGlobalGet   byte = 0x23
	opGlobalSet   byte = 0x24
	opI32Load     byte = 0x28
	opI64Load     byte = 0x29
	opF32Load     byte = 0x2a
	opF64Load     byte = 0x2b
	opI32Load8U   byte = 0x2d
	opI32Store    byte = 0x36
	opI64Store    byte = 0x37
	opF32Store    byte = 0x38
	opF64Store    byte = 0x39
	opI32Store8   byte = 0x3a
	opI32Const    byte = 0x41
	opI64Const    byte = 0x42
	opF32Const    byte = 0x43
	opF64Const    byte = 0x44
	opI32Eqz      byte = 0x45
	opI32Eq       byte = 0x46
	opI32Ne       byte = 0x47
	opI32LtU      byte = 0x49
	opI32Add      byte = 0x6a
	opI32Sub      byte = 0x6b
	opI32Mul      byte = 0x6c
	opI32And      byte = 0x71
	opI64Add      byte = 0x7c
	opF64Add      byte = 0xa0
	opPrefixMisc  byte = 0xfc
	opMemoryCopy  byte = 0x0a
	blockEmpty    byte = 0x40
)

// Code accumulates a function body. Methods append one instruction each and
// return the receiver for chaining.
type Code struct {
	buf []byte
}

func NewCode() *Code {
	return &Code{}
}

// Bytes returns the body without the final end.
func (c *Code) Bytes() []byte {
	return c.buf
}

func (c *Code) op(b ...byte) *Code {
	c.buf = append(c.buf, b...)
	return c
}

func (c *Code) idx(op byte, i uint32) *Code {
	c.buf = AppendLEB128u(append(c.buf, op), i)
	return c
}

// memarg writes the alignment exponent and static offset.
func (c *Code) memarg(op byte, alignExp, offset uint32) *Code {
	c.buf = append(c.buf, op)
	c.buf = AppendLEB128u(c.buf, alignExp)
	c.buf = AppendLEB128u(c.buf, offset)
	return c
}

func (c *Code) LocalGet(i uint32) *Code { return c.idx(opLocalGet, i) }
func (c *Code) LocalSet(i uint32) *Code { return c.idx(opLocalSet, i) }
func (c *Code) LocalTee(i uint32) *Code { return c.idx(opLocalTee, i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.idx(opGlobalGet, i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.idx(opGlobalSet, i) }
func (c *Code) Call(fn uint32) *Code { return c.idx(opCall, fn) }
func (c *Code) Br(depth uint32) *Code { return c.idx(opBr, depth) }
func (c *Code) BrIf(depth uint32) *Code { return c.idx(opBrIf, depth) }

func (c *Code) I32Const(v int32) *Code {
	c.buf = AppendLEB128s(append(c.buf, opI32Const), int64(v))
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.buf = AppendLEB128s(append(c.buf, opI64Const), v)
	return c
}

func (c *Code) F32Const(bits uint32) *Code {
	c.buf = binary.LittleEndian.AppendUint32(append(c.buf, opF32Const), bits)
	return c
}

func (c *Code) F64Const(bits uint64) *Code {
	c.buf = binary.LittleEndian.AppendUint64(append(c.buf, opF64Const), bits)
	return c
}

func (c *Code) I32Load(offset uint32) *Code { return c.memarg(opI32Load, 0, offset) }
func (c *Code) I64Load(offset uint32) *Code { return c.memarg(opI64Load, 0, offset) }
func (c *Code) F32Load(offset uint32) *Code { return c.memarg(opF32Load, 0, offset) }
func (c *Code) F64Load(offset uint32) *Code { return c.memarg(opF64Load, 0, offset) }
func (c *Code) I32Load8U(offset uint32) *Code { return c.memarg(opI32Load8U, 0, offset) }
func (c *Code) I32Store(offset uint32) *Code { return c.memarg(opI32Store, 0, offset) }
func (c *Code) I64Store(offset uint32) *Code { return c.memarg(opI64Store, 0, offset) }
func (c *Code) F32Store(offset uint32) *Code { return c.memarg(opF32Store, 0, offset) }
func (c *Code) F64Store(offset uint32) *Code { return c.memarg(opF64Store, 0, offset) }
func (c *Code) I32Store8(offset uint32) *Code { return c.memarg(opI32Store8, 0, offset) }

func (c *Code) I32Eqz() *Code { return c.op(opI32Eqz) }
func (c *Code) I32Eq() *Code { return c.op(opI32Eq) }
func (c *Code) I32Ne() *Code { return c.op(opI32Ne) }
func (c *Code) I32LtU() *Code { return c.op(opI32LtU) }
func (c *Code) I32Add() *Code { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code { return c.op(opI32Sub) }
func (c *Code) I32Mul() *Code { return c.op(opI32Mul) }
func (c *Code) I32And() *Code { return c.op(opI32And) }
func (c *Code) I64Add() *Code { return c.op(opI64Add) }
func (c *Code) F64Add() *Code { return c.op(opF64Add) }
func (c *Code) Drop() *Code { return c.op(opDrop) }
func (c *Code) Unreachable() *Code { return c.op(opUnreachable) }
func (c *Code) Return() *Code { return c.op(opReturn) }
func (c *Code) Block() *Code { return c.op(opBlock, blockEmpty) }
func (c *Code) Loop() *Code { return c.op(opLoop, blockEmpty) }
func (c *Code) If() *Code { return c.op(opIf, blockEmpty) }
func (c *Code) Else() *Code { return c.op(opElse) }
func (c *Code) End() *Code { return c.op(opEnd) }

// MemoryCopy copies n bytes (dst, src, n on the stack) within memory 0.
func (c *Code) MemoryCopy() *Code {
	c.buf = append(c.buf, opPrefixMisc)
	c.buf = AppendLEB128u(c.buf, uint32(opMemoryCopy))
	c.buf = append(c.buf, 0x00, 0x00)
	return c
}
