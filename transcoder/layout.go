package transcoder

import (
	"github.com/wippyai/wasmbind/transcoder/internal/abi"
	"github.com/wippyai/wasmbind/transcoder/internal/layout"
)

type LayoutInfo = layout.Info

type ResultMode = abi.ResultMode

const (
	ResultNone      = abi.ResultNone
	ResultDirect    = abi.ResultDirect
	ResultPointer   = abi.ResultPointer
	ResultRegisters = abi.ResultRegisters
)

// Boundary function names shared by every module speaking the protocol.
const (
	GetResultPtr   = abi.GetResultPtr
	GetResultSize  = abi.GetResultSize
	SetResultPtr   = abi.SetResultPtr
	SetResultSize  = abi.SetResultSize
	ReleaseObjects = abi.ReleaseObjects
)

// Safety limits applied while lowering and lifting.
const (
	MaxStringSize = abi.MaxStringSize
	MaxListLength = abi.MaxListLength
	MaxAlloc      = abi.MaxAlloc
	MaxDepth      = abi.MaxDepth
)

var (
	ArgSlots       = abi.ArgSlots
	ResultSlots    = abi.ResultSlots
	SignatureSlots = abi.SignatureSlots
	FieldWidth     = layout.Width
)
