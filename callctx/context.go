package callctx

import (
	"go.uber.org/zap"

	wasmbind "github.com/wippyai/wasmbind"
	"github.com/wippyai/wasmbind/errors"
)

// Context is the call context of one module instance: result registers
// plus the pending-release list. It replaces process-wide registers; each
// instance owns exactly one.
type Context struct {
	*Pending
	resultPtr  uint32
	resultSize uint32
	// open is set when a result is announced and cleared by ReleaseAll.
	open bool
}

func New(alloc wasmbind.Allocator) *Context {
	return &Context{Pending: NewPending(alloc)}
}

func (c *Context) SetResultPtr(ptr uint32) {
	c.resultPtr = ptr
	c.open = true
}

func (c *Context) SetResultSize(size uint32) {
	c.resultSize = size
	c.open = true
}

func (c *Context) ResultPtr() uint32  { return c.resultPtr }
func (c *Context) ResultSize() uint32 { return c.resultSize }

// Open reports whether a result was produced and not yet released.
func (c *Context) Open() bool {
	return c.open || c.Len() > 0
}

// Begin must be called before a value-producing call. It fails while the
// previous result is unreleased.
func (c *Context) Begin() error {
	if c.Open() {
		Logger().Warn("call issued before previous result was released",
			zap.Int("pending", c.Len()),
			zap.Uint32("result_ptr", c.resultPtr))
		return errors.Ordering(c.Len())
	}
	return nil
}

// ReleaseAll drains the pending list and clears the registers.
func (c *Context) ReleaseAll() error {
	err := c.Pending.ReleaseAll()
	c.resultPtr, c.resultSize = 0, 0
	c.open = false
	return err
}
