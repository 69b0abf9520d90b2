package transcoder

import (
	"encoding/binary"
	"strconv"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
)

type Decoder struct {
	compiler *Compiler
}

func NewDecoder(c *Compiler) *Decoder {
	return &Decoder{compiler: c}
}

// DecodeParams lifts the arguments of sig from flat slots. Every slot must
// be consumed.
func (d *Decoder) DecodeParams(sig *schema.FunctionSignature, flat []uint64, mem Memory) ([]any, error) {
	values := make([]any, len(sig.Params))
	pos := 0
	for i, p := range sig.Params {
		label := p.Name
		if label == "" {
			label = "param[" + strconv.Itoa(i) + "]"
		}
		v, n, err := d.lift(p.Type, flat[pos:], mem, []string{sig.Name, label})
		if err != nil {
			return nil, err
		}
		values[i] = v
		pos += n
	}
	if pos != len(flat) {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(sig.Name).
			Detail("%d slots left over after %d parameters", len(flat)-pos, len(sig.Params)).
			Build()
	}
	return values, nil
}

// Lift rebuilds one value of type t from the start of slots and reports how
// many slots it consumed.
func (d *Decoder) Lift(t schema.Type, slots []uint64, mem Memory) (any, int, error) {
	return d.lift(t, slots, mem, nil)
}

// DecodeResult lifts a function output from its result slots: one slot for
// scalars and records, (ptr, len) for strings and vectors.
func (d *Decoder) DecodeResult(t schema.Type, slots []uint64, mem Memory) (any, error) {
	path := []string{"result"}
	if t.Kind() == schema.KindRecord {
		ct, err := d.compiler.Compile(t)
		if err != nil {
			return nil, err
		}
		if len(slots) < 1 {
			return nil, missingSlots(path, 1, len(slots))
		}
		r := &reader{mem: mem}
		return r.record(ct, api.DecodeU32(slots[0]), path, 0)
	}
	v, _, err := d.lift(t, slots, mem, path)
	return v, err
}

// LiftString copies the string at (ptr, n). n == 0 never reads ptr.
func (d *Decoder) LiftString(ptr, n uint32, mem Memory) (string, error) {
	r := &reader{mem: mem}
	return r.string(ptr, n, nil)
}

func (d *Decoder) lift(t schema.Type, slots []uint64, mem Memory, path []string) (any, int, error) {
	ct, err := d.compiler.Compile(t)
	if err != nil {
		return nil, 0, err
	}

	if ct.Kind.IsScalar() {
		if len(slots) < 1 {
			return nil, 0, missingSlots(path, 1, len(slots))
		}
		return liftScalar(ct.Kind, slots[0]), 1, nil
	}

	if len(slots) < 2 {
		return nil, 0, missingSlots(path, 2, len(slots))
	}
	ptr, n := api.DecodeU32(slots[0]), api.DecodeU32(slots[1])
	r := &reader{mem: mem}

	switch ct.Kind {
	case schema.KindString:
		s, err := r.string(ptr, n, path)
		return s, 2, err
	case schema.KindVector:
		v, err := r.vector(ct, ptr, n, path, 0)
		return v, 2, err
	default:
		if n != ct.Record.Size {
			return nil, 0, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Path(path...).
				TypeName(ct.Record.Name).
				Detail("record size slot is %d, layout size is %d", n, ct.Record.Size).
				Build()
		}
		rec, err := r.record(ct, ptr, path, 0)
		return rec, 2, err
	}
}

func missingSlots(path []string, want, got int) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Path(path...).
		Detail("need %d slots, have %d", want, got).
		Build()
}

func liftScalar(kind schema.Kind, slot uint64) any {
	switch kind {
	case schema.KindBool:
		return uint32(slot) != 0
	case schema.KindI8:
		return int8(api.DecodeI32(slot))
	case schema.KindI16:
		return int16(api.DecodeI32(slot))
	case schema.KindI32:
		return api.DecodeI32(slot)
	case schema.KindI64:
		return int64(slot)
	case schema.KindU8:
		return uint8(slot)
	case schema.KindU16:
		return uint16(slot)
	case schema.KindU32:
		return api.DecodeU32(slot)
	case schema.KindU64:
		return slot
	case schema.KindF32:
		return api.DecodeF32(slot)
	default:
		return api.DecodeF64(slot)
	}
}

// getScalar reads a native-width scalar as a slot value.
func getScalar(buf []byte, width uint32) uint64 {
	switch width {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	default:
		return binary.LittleEndian.Uint64(buf)
	}
}

type reader struct {
	mem Memory
}

func (r *reader) string(ptr, n uint32, path []string) (string, error) {
	if n == 0 {
		return "", nil
	}
	if n > MaxStringSize {
		return "", errors.New(errors.PhaseDecode, errors.KindOverflow).
			Path(path...).
			Detail("string size %d exceeds maximum %d", n, MaxStringSize).
			Build()
	}
	data, err := r.mem.Read(ptr, n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, path, data)
	}
	return string(data), nil
}

// element decodes one value of type ct from buf, the inverse of
// writer.element.
func (r *reader) element(ct *CompiledType, buf []byte, path []string, depth int) (any, error) {
	if ct.Kind.IsScalar() {
		return liftScalar(ct.Kind, getScalar(buf, ct.Width)), nil
	}
	switch ct.Kind {
	case schema.KindString:
		ptr, n := readPair(buf)
		return r.string(ptr, n, path)
	case schema.KindVector:
		ptr, n := readPair(buf)
		return r.vector(ct, ptr, n, path, depth+1)
	case schema.KindRecord:
		return r.record(ct, binary.LittleEndian.Uint32(buf), path, depth+1)
	}
	return nil, errors.Unsupported(errors.PhaseDecode, "element kind "+ct.Kind.String())
}
