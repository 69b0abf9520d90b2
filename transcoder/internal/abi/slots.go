package abi

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmbind/schema"
)

// ResultMode says how a function output travels back to the caller.
type ResultMode uint8

const (
	// ResultNone: the function has no output.
	ResultNone ResultMode = iota
	// ResultDirect: a scalar in the single core result slot.
	ResultDirect
	// ResultPointer: a record pointer in the single core result slot.
	ResultPointer
	// ResultRegisters: no core result; the callee stores (ptr, size) with
	// set_result_ptr/set_result_size and the caller reads them back.
	ResultRegisters
)

func (m ResultMode) String() string {
	switch m {
	case ResultDirect:
		return "direct"
	case ResultPointer:
		return "pointer"
	case ResultRegisters:
		return "registers"
	default:
		return "none"
	}
}

var pair = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}

// ScalarSlot returns the slot type of a scalar kind.
func ScalarSlot(k schema.Kind) api.ValueType {
	switch k {
	case schema.KindI64, schema.KindU64:
		return api.ValueTypeI64
	case schema.KindF32:
		return api.ValueTypeF32
	case schema.KindF64:
		return api.ValueTypeF64
	default:
		return api.ValueTypeI32
	}
}

// ArgSlots returns the raw slots an argument of type t occupies. Strings,
// vectors and records all take a (pointer, length) pair; for a record the
// length is its static size.
func ArgSlots(t schema.Type) []api.ValueType {
	if t.Kind().IsScalar() {
		return []api.ValueType{ScalarSlot(t.Kind())}
	}
	return pair
}

// ResultSlots returns the core result slots of an output and how the
// caller recovers it.
func ResultSlots(t *schema.Type) ([]api.ValueType, ResultMode) {
	if t == nil {
		return nil, ResultNone
	}
	switch k := t.Kind(); {
	case k.IsScalar():
		return []api.ValueType{ScalarSlot(k)}, ResultDirect
	case k == schema.KindRecord:
		return []api.ValueType{api.ValueTypeI32}, ResultPointer
	default:
		return nil, ResultRegisters
	}
}

// SignatureSlots flattens a whole signature into core params and results.
func SignatureSlots(sig *schema.FunctionSignature) (params, results []api.ValueType, mode ResultMode) {
	for _, p := range sig.Params {
		params = append(params, ArgSlots(p.Type)...)
	}
	results, mode = ResultSlots(sig.Output)
	return params, results, mode
}

// Names of the boundary functions.
const (
	GetResultPtr   = "get_result_ptr"
	GetResultSize  = "get_result_size"
	SetResultPtr   = "set_result_ptr"
	SetResultSize  = "set_result_size"
	ReleaseObjects = "release_objects"
)
