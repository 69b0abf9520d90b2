package transcoder

import (
	"encoding/binary"
	"strconv"
	"unicode/utf8"
	"unsafe"

	"fortio.org/safecast"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/transcoder/internal/abi"
)

var typeName = abi.TypeName

type Encoder struct {
	compiler *Compiler
}

func NewEncoder(c *Compiler) *Encoder {
	return &Encoder{compiler: c}
}

func (e *Encoder) Compiler() *Compiler {
	return e.compiler
}

// EncodeParams lowers every argument of sig in order. Buffers written for
// borrowed arguments are reported to borrowed so the caller can free them
// after the call; buffers of by-value arguments belong to the callee from
// here on and are not reported. When any argument fails, every buffer
// written so far is freed before the error is returned.
func (e *Encoder) EncodeParams(sig *schema.FunctionSignature, values []any, mem Memory, alloc Allocator, borrowed Tracker) ([]uint64, error) {
	if len(sig.Params) != len(values) {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Path(sig.Name).
			Detail("parameter count mismatch: expected %d, got %d", len(sig.Params), len(values)).
			Build()
	}

	var written paramBuffers
	flat := make([]uint64, 0, len(values)*2)
	for i, p := range sig.Params {
		written.borrowed = p.Style.Borrowed()
		label := p.Name
		if label == "" {
			label = "param[" + strconv.Itoa(i) + "]"
		}
		slots, err := e.lower(p.Type, values[i], mem, alloc, &written, []string{sig.Name, label})
		if err != nil {
			written.free(alloc)
			return nil, err
		}
		flat = append(flat, slots...)
	}
	if borrowed != nil {
		for _, b := range written.bufs {
			if b.borrowed {
				borrowed.DeferAlloc(b.ptr, b.size, b.align)
			}
		}
	}
	return flat, nil
}

// paramBuffers records every buffer written while lowering arguments,
// tagged with whether the argument is borrowed.
type paramBuffers struct {
	bufs     []paramBuffer
	borrowed bool
}

type paramBuffer struct {
	ptr, size, align uint32
	borrowed         bool
}

func (p *paramBuffers) DeferAlloc(ptr, size, align uint32) {
	p.bufs = append(p.bufs, paramBuffer{ptr: ptr, size: size, align: align, borrowed: p.borrowed})
}

func (p *paramBuffers) free(alloc Allocator) {
	for i := len(p.bufs) - 1; i >= 0; i-- {
		b := p.bufs[i]
		alloc.Free(b.ptr, b.size, b.align)
	}
	p.bufs = nil
}

// Lower converts one value of type t into its argument slots. Every buffer
// it allocates is reported to tr when tr is non-nil.
func (e *Encoder) Lower(t schema.Type, value any, mem Memory, alloc Allocator, tr Tracker) ([]uint64, error) {
	return e.lower(t, value, mem, alloc, tr, nil)
}

// LowerResult converts a function output into its result slots: one slot
// for scalars and records, (ptr, len) for strings and vectors.
func (e *Encoder) LowerResult(t schema.Type, value any, mem Memory, alloc Allocator, tr Tracker) ([]uint64, error) {
	slots, err := e.lower(t, value, mem, alloc, tr, []string{"result"})
	if err != nil {
		return nil, err
	}
	if t.Kind() == schema.KindRecord {
		return slots[:1], nil
	}
	return slots, nil
}

func (e *Encoder) lower(t schema.Type, value any, mem Memory, alloc Allocator, tr Tracker, path []string) ([]uint64, error) {
	ct, err := e.compiler.Compile(t)
	if err != nil {
		return nil, err
	}

	if ct.Kind.IsScalar() {
		slot, err := lowerScalar(ct.Kind, value, path)
		if err != nil {
			return nil, err
		}
		return []uint64{slot}, nil
	}

	w := &writer{mem: mem, alloc: alloc, tr: tr}
	switch ct.Kind {
	case schema.KindString:
		ptr, n, err := w.string(value, path)
		if err != nil {
			return nil, err
		}
		return []uint64{api.EncodeU32(ptr), api.EncodeU32(n)}, nil
	case schema.KindVector:
		ptr, n, err := w.vector(ct, value, path, 0)
		if err != nil {
			return nil, err
		}
		return []uint64{api.EncodeU32(ptr), api.EncodeU32(n)}, nil
	default:
		ptr, err := w.record(ct, value, path, 0)
		if err != nil {
			return nil, err
		}
		return []uint64{api.EncodeU32(ptr), api.EncodeU32(ct.Record.Size)}, nil
	}
}

func lowerScalar(kind schema.Kind, value any, path []string) (uint64, error) {
	switch kind {
	case schema.KindBool:
		b, ok := abi.AsBool(value)
		if !ok {
			return 0, errors.TypeMismatch(errors.PhaseEncode, path, typeName(value), "bool")
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case schema.KindI8:
		v, err := narrowSigned[int8](value, kind, path)
		return api.EncodeI32(int32(v)), err
	case schema.KindI16:
		v, err := narrowSigned[int16](value, kind, path)
		return api.EncodeI32(int32(v)), err
	case schema.KindI32:
		v, err := narrowSigned[int32](value, kind, path)
		return api.EncodeI32(v), err
	case schema.KindI64:
		v, err := narrowSigned[int64](value, kind, path)
		return api.EncodeI64(v), err
	case schema.KindU8:
		v, err := narrowUnsigned[uint8](value, kind, path)
		return api.EncodeU32(uint32(v)), err
	case schema.KindU16:
		v, err := narrowUnsigned[uint16](value, kind, path)
		return api.EncodeU32(uint32(v)), err
	case schema.KindU32:
		v, err := narrowUnsigned[uint32](value, kind, path)
		return api.EncodeU32(v), err
	case schema.KindU64:
		return narrowUnsigned[uint64](value, kind, path)
	case schema.KindF32:
		f, ok := abi.AsFloat64(value)
		if !ok {
			return 0, errors.TypeMismatch(errors.PhaseEncode, path, typeName(value), "f32")
		}
		if v, exact := value.(float32); exact {
			return api.EncodeF32(v), nil
		}
		return api.EncodeF32(float32(f)), nil
	case schema.KindF64:
		f, ok := abi.AsFloat64(value)
		if !ok {
			return 0, errors.TypeMismatch(errors.PhaseEncode, path, typeName(value), "f64")
		}
		return api.EncodeF64(f), nil
	}
	return 0, errors.Unsupported(errors.PhaseEncode, "scalar kind "+kind.String())
}

func narrowSigned[T int8 | int16 | int32 | int64](value any, kind schema.Kind, path []string) (T, error) {
	i, ok := abi.AsInt64(value)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, path, typeName(value), kind.String())
	}
	v, err := safecast.Conv[T](i)
	if err != nil {
		return 0, errors.Overflow(errors.PhaseEncode, path, value, kind.String())
	}
	return v, nil
}

func narrowUnsigned[T uint8 | uint16 | uint32 | uint64](value any, kind schema.Kind, path []string) (T, error) {
	u, ok := abi.AsUint64(value)
	if !ok {
		if i, signed := abi.AsInt64(value); signed && i < 0 {
			return 0, errors.Overflow(errors.PhaseEncode, path, value, kind.String())
		}
		return 0, errors.TypeMismatch(errors.PhaseEncode, path, typeName(value), kind.String())
	}
	v, err := safecast.Conv[T](u)
	if err != nil {
		return 0, errors.Overflow(errors.PhaseEncode, path, value, kind.String())
	}
	return v, nil
}

// putScalar stores a lowered slot at its native width.
func putScalar(buf []byte, width uint32, slot uint64) {
	switch width {
	case 1:
		buf[0] = byte(slot)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(slot))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(slot))
	default:
		binary.LittleEndian.PutUint64(buf, slot)
	}
}

// writer carries the per-call state of one lowering.
type writer struct {
	mem   Memory
	alloc Allocator
	tr    Tracker
}

func (w *writer) allocate(size, align uint32, path []string) (uint32, error) {
	if w.alloc == nil {
		return 0, errors.New(errors.PhaseEncode, errors.KindAllocation).
			Path(path...).
			Detail("no allocator for %d byte buffer", size).
			Build()
	}
	if size > MaxAlloc {
		return 0, errors.New(errors.PhaseEncode, errors.KindOverflow).
			Path(path...).
			Detail("allocation of %d bytes exceeds maximum %d", size, MaxAlloc).
			Build()
	}
	ptr, err := w.alloc.Alloc(size, align)
	if err != nil {
		return 0, errors.New(errors.PhaseEncode, errors.KindAllocation).
			Path(path...).
			Detail("failed to allocate %d bytes", size).
			Cause(err).
			Build()
	}
	if w.tr != nil {
		w.tr.DeferAlloc(ptr, size, align)
	}
	return ptr, nil
}

func (w *writer) string(value any, path []string) (uint32, uint32, error) {
	s, ok := abi.AsString(value)
	if !ok {
		return 0, 0, errors.TypeMismatch(errors.PhaseEncode, path, typeName(value), "string")
	}
	if len(s) == 0 {
		return 0, 0, nil
	}
	if len(s) > MaxStringSize {
		return 0, 0, errors.New(errors.PhaseEncode, errors.KindOverflow).
			Path(path...).
			Detail("string size %d exceeds maximum %d", len(s), MaxStringSize).
			Build()
	}
	if !utf8.ValidString(s) {
		return 0, 0, errors.InvalidUTF8(errors.PhaseEncode, path, []byte(s))
	}

	n := uint32(len(s))
	ptr, err := w.allocate(n, 1, path)
	if err != nil {
		return 0, 0, err
	}
	// Write string bytes without allocation
	data := unsafe.Slice(unsafe.StringData(s), len(s))
	if err := w.mem.Write(ptr, data); err != nil {
		return 0, 0, err
	}
	return ptr, n, nil
}

// element stores one value of type ct into buf, which is exactly ct.Width
// bytes: scalars inline, strings and vectors as (ptr, len), records as ptr.
func (w *writer) element(ct *CompiledType, value any, buf []byte, path []string, depth int) error {
	if ct.Kind.IsScalar() {
		slot, err := lowerScalar(ct.Kind, value, path)
		if err != nil {
			return err
		}
		putScalar(buf, ct.Width, slot)
		return nil
	}

	switch ct.Kind {
	case schema.KindString:
		ptr, n, err := w.string(value, path)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(buf, ptr)
		binary.LittleEndian.PutUint32(buf[4:], n)
	case schema.KindVector:
		ptr, n, err := w.vector(ct, value, path, depth+1)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(buf, ptr)
		binary.LittleEndian.PutUint32(buf[4:], n)
	case schema.KindRecord:
		ptr, err := w.record(ct, value, path, depth+1)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(buf, ptr)
	default:
		return errors.Unsupported(errors.PhaseEncode, "element kind "+ct.Kind.String())
	}
	return nil
}

func checkDepth(phase errors.Phase, path []string, depth int) error {
	if depth > MaxDepth {
		return errors.New(phase, errors.KindOverflow).
			Path(path...).
			Detail("nesting depth exceeds %d", MaxDepth).
			Build()
	}
	return nil
}

func elemPath(path []string, i int) []string {
	return append(append([]string{}, path...), "["+strconv.Itoa(i)+"]")
}
