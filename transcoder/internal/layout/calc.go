package layout

import (
	"sync"

	"fortio.org/safecast"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/transcoder/internal/abi"
)

// Info is the wire layout of one record.
type Info struct {
	Name    string
	Offsets []uint32
	Widths  []uint32
	Size    uint32
}

// Width returns the in-record byte width of a field of type t.
func Width(t schema.Type) uint32 {
	switch t.Kind() {
	case schema.KindBool, schema.KindI8, schema.KindU8:
		return 1
	case schema.KindI16, schema.KindU16:
		return 2
	case schema.KindI32, schema.KindU32, schema.KindF32:
		return 4
	case schema.KindI64, schema.KindU64, schema.KindF64:
		return 8
	case schema.KindRecord:
		return abi.PointerWidth
	default:
		return 2 * abi.PointerWidth
	}
}

// Calculator computes and caches record layouts against one registry.
// Records hold nested records by pointer, so a record's size never depends
// on another record's size and self-reference is fine.
type Calculator struct {
	reg   *schema.Registry
	cache map[string]Info
	mu    sync.RWMutex
}

func NewCalculator(reg *schema.Registry) *Calculator {
	return &Calculator{
		reg:   reg,
		cache: make(map[string]Info),
	}
}

// Record returns the layout of the named record.
func (c *Calculator) Record(name string) (Info, error) {
	c.mu.RLock()
	cached, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	rt, err := c.reg.Lookup(name)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Name:    name,
		Offsets: make([]uint32, len(rt.Fields)),
		Widths:  make([]uint32, len(rt.Fields)),
	}
	var size uint64
	for i, f := range rt.Fields {
		if f.Type.Kind() == schema.KindRecord {
			if _, err := c.reg.Lookup(f.Type.RecordName()); err != nil {
				return Info{}, errors.Reference(errors.PhaseCompile, []string{name, rt.FieldLabel(i)}, f.Type.RecordName())
			}
		}
		w := Width(f.Type)
		info.Offsets[i] = uint32(size)
		info.Widths[i] = w
		size += uint64(w)
	}
	info.Size, err = safecast.Conv[uint32](size)
	if err != nil {
		return Info{}, errors.Overflow(errors.PhaseCompile, []string{name}, size, "u32")
	}

	c.mu.Lock()
	c.cache[name] = info
	c.mu.Unlock()
	return info, nil
}

// Size is Record(name).Size.
func (c *Calculator) Size(name string) (uint32, error) {
	info, err := c.Record(name)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}
