package callctx

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	wasmbind "github.com/wippyai/wasmbind"
	"github.com/wippyai/wasmbind/errors"
)

// Releaser is implemented by deferred objects that need explicit cleanup.
type Releaser interface {
	Release() error
}

type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// Pending keeps objects and guest buffers alive until ReleaseAll.
// It is not safe for concurrent use; an instance is driven by one caller
// at a time.
type Pending struct {
	alloc   wasmbind.Allocator
	objects []any
	allocs  []Allocation
}

// NewPending creates a list that returns deferred buffers to alloc.
// alloc may be nil when only objects are deferred.
func NewPending(alloc wasmbind.Allocator) *Pending {
	return &Pending{
		alloc:  alloc,
		allocs: make([]Allocation, 0, 8),
	}
}

// Defer keeps obj alive until the next ReleaseAll.
func (p *Pending) Defer(obj any) {
	if obj == nil {
		return
	}
	p.objects = append(p.objects, obj)
}

// DeferAlloc keeps a guest buffer alive until the next ReleaseAll, which
// frees it.
func (p *Pending) DeferAlloc(ptr, size, align uint32) {
	p.allocs = append(p.allocs, Allocation{
		Ptr:   ptr,
		Size:  size,
		Align: align,
	})
}

// Len returns the number of deferred entries.
func (p *Pending) Len() int {
	return len(p.objects) + len(p.allocs)
}

// ReleaseAll drains the list. Objects are released in reverse order of
// deferral, then buffers are freed. Every entry is dropped even when some
// fail; the failures are combined. Calling it on an empty list is a no-op.
func (p *Pending) ReleaseAll() error {
	if p.Len() == 0 {
		return nil
	}

	var err error
	for i := len(p.objects) - 1; i >= 0; i-- {
		err = multierr.Append(err, release(p.objects[i]))
		p.objects[i] = nil
	}
	p.objects = p.objects[:0]

	if p.alloc != nil {
		for _, a := range p.allocs {
			if a.Ptr != 0 {
				p.alloc.Free(a.Ptr, a.Size, a.Align)
			}
		}
	} else if len(p.allocs) > 0 {
		Logger().Warn("dropping deferred buffers without an allocator", zap.Int("count", len(p.allocs)))
	}
	p.allocs = p.allocs[:0]

	if err != nil {
		Logger().Warn("release failed", zap.Error(err))
	}
	return err
}

func release(obj any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseRuntime, errors.KindTrap).
				GoType(fmt.Sprintf("%T", obj)).
				Detail("release panicked: %v", r).
				Build()
		}
	}()
	switch o := obj.(type) {
	case Releaser:
		return o.Release()
	case io.Closer:
		return o.Close()
	case func():
		o()
	case func() error:
		return o()
	}
	return nil
}
