package transcoder

import (
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/transcoder/internal/abi"
)

// Buffer is one allocation reachable from a lowered value.
type Buffer struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// Buffers lists every allocation owned by the value of type t at the start
// of slots, nested buffers before the buffer that points at them, and
// reports how many slots the value used. A callee that received a by-value
// argument frees these after lifting it. Empty values own nothing.
func (d *Decoder) Buffers(t schema.Type, slots []uint64, mem Memory) ([]Buffer, int, error) {
	ct, err := d.compiler.Compile(t)
	if err != nil {
		return nil, 0, err
	}
	if ct.Kind.IsScalar() {
		if len(slots) < 1 {
			return nil, 0, missingSlots(nil, 1, len(slots))
		}
		return nil, 1, nil
	}
	if len(slots) < 2 {
		return nil, 0, missingSlots(nil, 2, len(slots))
	}

	ptr, n := api.DecodeU32(slots[0]), api.DecodeU32(slots[1])
	var out []Buffer
	w := &bufferWalker{mem: mem, out: &out}
	switch ct.Kind {
	case schema.KindString:
		w.string(ptr, n)
	case schema.KindVector:
		err = w.vector(ct, ptr, n, 0)
	default:
		err = w.record(ct, ptr, 0)
	}
	if err != nil {
		return nil, 0, err
	}
	return out, 2, nil
}

type bufferWalker struct {
	mem Memory
	out *[]Buffer
}

func (w *bufferWalker) add(ptr, size, align uint32) {
	*w.out = append(*w.out, Buffer{Ptr: ptr, Size: size, Align: align})
}

func (w *bufferWalker) string(ptr, n uint32) {
	if n > 0 {
		w.add(ptr, n, 1)
	}
}

func (w *bufferWalker) vector(ct *CompiledType, ptr, count uint32, depth int) error {
	if count == 0 {
		return nil
	}
	if err := checkDepth(errors.PhaseDecode, nil, depth); err != nil {
		return err
	}
	elem := ct.Elem
	size, ok := abi.SafeMulU32(count, elem.Width)
	if !ok {
		return errors.Overflow(errors.PhaseDecode, nil, count, "list table size")
	}
	if !elem.Kind.IsScalar() {
		buf, err := w.mem.Read(ptr, size)
		if err != nil {
			return err
		}
		for off := uint32(0); off < size; off += elem.Width {
			if err := w.element(elem, buf[off:off+elem.Width], depth+1); err != nil {
				return err
			}
		}
	}
	w.add(ptr, size, elem.Align())
	return nil
}

func (w *bufferWalker) record(ct *CompiledType, ptr uint32, depth int) error {
	rec := ct.Record
	if rec.Size == 0 {
		return nil
	}
	if err := checkDepth(errors.PhaseDecode, nil, depth); err != nil {
		return err
	}
	buf, err := w.mem.Read(ptr, rec.Size)
	if err != nil {
		return err
	}
	for _, f := range rec.Fields {
		if err := w.element(f.Type, buf[f.Offset:f.Offset+f.Width], depth+1); err != nil {
			return err
		}
	}
	w.add(ptr, rec.Size, 4)
	return nil
}

func (w *bufferWalker) element(ct *CompiledType, buf []byte, depth int) error {
	switch ct.Kind {
	case schema.KindString:
		ptr, n := readPair(buf)
		w.string(ptr, n)
	case schema.KindVector:
		ptr, n := readPair(buf)
		return w.vector(ct, ptr, n, depth)
	case schema.KindRecord:
		return w.record(ct, binary.LittleEndian.Uint32(buf), depth)
	}
	return nil
}
