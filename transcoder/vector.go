package transcoder

import (
	"encoding/binary"
	"reflect"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/transcoder/internal/abi"
)

// vector writes a sequence and returns its (ptr, count). Scalar elements
// land contiguously at native width; every other element is written to its
// own buffer and referenced from a table entry.
func (w *writer) vector(ct *CompiledType, value any, path []string, depth int) (uint32, uint32, error) {
	if err := checkDepth(errors.PhaseEncode, path, depth); err != nil {
		return 0, 0, err
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return 0, 0, errors.TypeMismatch(errors.PhaseEncode, path, typeName(value), ct.Type.String())
	}

	n := rv.Len()
	if n == 0 {
		return 0, 0, nil
	}
	if n > MaxListLength {
		return 0, 0, errors.New(errors.PhaseEncode, errors.KindOverflow).
			Path(path...).
			Detail("list length %d exceeds maximum %d", n, MaxListLength).
			Build()
	}

	count := uint32(n)
	elem := ct.Elem
	size, ok := abi.SafeMulU32(count, elem.Width)
	if !ok {
		return 0, 0, errors.Overflow(errors.PhaseEncode, path, n, "u32 buffer size")
	}

	buf := make([]byte, size)
	if elem.Kind == schema.KindU8 && rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		copy(buf, rv.Bytes())
	} else {
		for i := 0; i < n; i++ {
			off := uint32(i) * elem.Width
			if err := w.element(elem, rv.Index(i).Interface(), buf[off:off+elem.Width], elemPath(path, i), depth); err != nil {
				return 0, 0, err
			}
		}
	}

	ptr, err := w.allocate(size, elem.Align(), path)
	if err != nil {
		return 0, 0, err
	}
	if err := w.mem.Write(ptr, buf); err != nil {
		return 0, 0, err
	}
	return ptr, count, nil
}

// vector reads count elements at ptr. A zero count yields an empty slice
// without touching memory.
func (r *reader) vector(ct *CompiledType, ptr, count uint32, path []string, depth int) (any, error) {
	if count == 0 {
		return reflect.MakeSlice(ct.GoType, 0, 0).Interface(), nil
	}
	if err := checkDepth(errors.PhaseDecode, path, depth); err != nil {
		return nil, err
	}
	if count > MaxListLength {
		return nil, errors.New(errors.PhaseDecode, errors.KindOverflow).
			Path(path...).
			Detail("list length %d exceeds maximum %d", count, MaxListLength).
			Build()
	}

	elem := ct.Elem
	size, ok := abi.SafeMulU32(count, elem.Width)
	if !ok {
		return nil, errors.Overflow(errors.PhaseDecode, path, count, "u32 buffer size")
	}
	data, err := r.mem.Read(ptr, size)
	if err != nil {
		return nil, err
	}

	if elem.Kind == schema.KindU8 {
		out := make([]byte, count)
		copy(out, data)
		return out, nil
	}

	out := reflect.MakeSlice(ct.GoType, int(count), int(count))
	for i := uint32(0); i < count; i++ {
		off := i * elem.Width
		v, err := r.element(elem, data[off:off+elem.Width], elemPath(path, int(i)), depth)
		if err != nil {
			return nil, err
		}
		out.Index(int(i)).Set(reflect.ValueOf(v))
	}
	return out.Interface(), nil
}

func readPair(buf []byte) (uint32, uint32) {
	return binary.LittleEndian.Uint32(buf), binary.LittleEndian.Uint32(buf[4:])
}
