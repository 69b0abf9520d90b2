package callctx

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasmbind/errors"
)

type countingAlloc struct {
	freed []uint32
}

func (a *countingAlloc) Alloc(size, align uint32) (uint32, error) { return 0, nil }
func (a *countingAlloc) Free(ptr, size, align uint32)             { a.freed = append(a.freed, ptr) }

type object struct {
	err   error
	order *[]string
	name  string
}

func (o *object) Release() error {
	*o.order = append(*o.order, o.name)
	return o.err
}

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestPending_ReleaseAllIdempotent(t *testing.T) {
	alloc := &countingAlloc{}
	p := NewPending(alloc)
	var order []string

	p.Defer(&object{name: "a", order: &order})
	p.Defer(&object{name: "b", order: &order})
	p.DeferAlloc(64, 8, 4)
	p.DeferAlloc(0, 0, 1)
	if p.Len() != 4 {
		t.Fatalf("Len = %d, want 4", p.Len())
	}

	if err := p.ReleaseAll(); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 0 {
		t.Errorf("Len after ReleaseAll = %d", p.Len())
	}
	if diff := cmp.Diff([]string{"b", "a"}, order); diff != "" {
		t.Errorf("release order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{64}, alloc.freed); diff != "" {
		t.Errorf("freed (-want +got):\n%s", diff)
	}

	if err := p.ReleaseAll(); err != nil {
		t.Fatalf("second ReleaseAll: %v", err)
	}
	if len(order) != 2 || len(alloc.freed) != 1 {
		t.Error("second ReleaseAll must be a no-op")
	}
}

func TestPending_CombinesErrors(t *testing.T) {
	p := NewPending(nil)
	var order []string
	errA, errB := stderrors.New("a failed"), stderrors.New("b failed")
	c := &closer{}

	p.Defer(&object{name: "a", order: &order, err: errA})
	p.Defer(c)
	p.Defer(&object{name: "b", order: &order, err: errB})
	p.Defer(func() { panic("boom") })
	p.Defer(nil)

	err := p.ReleaseAll()
	if !stderrors.Is(err, errA) || !stderrors.Is(err, errB) {
		t.Errorf("combined error = %v", err)
	}
	if !c.closed {
		t.Error("io.Closer not closed")
	}
	if p.Len() != 0 {
		t.Errorf("failed entries must still be dropped, Len = %d", p.Len())
	}
}

type panicky struct{}

func (panicky) Release() error { panic("release exploded") }

func TestPending_PanicIsClassified(t *testing.T) {
	tests := []struct {
		name string
		obj  any
		want string
	}{
		{"releaser", panicky{}, "callctx.panicky"},
		{"func", func() { panic("boom") }, "func()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := &countingAlloc{}
			p := NewPending(alloc)
			p.DeferAlloc(32, 8, 4)
			p.Defer(tt.obj)

			err := p.ReleaseAll()
			if !errors.HasKind(err, errors.KindTrap) {
				t.Fatalf("err = %v, want a trap", err)
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseRuntime || e.GoType != tt.want {
				t.Errorf("err = %#v", e)
			}
			if diff := cmp.Diff([]uint32{32}, alloc.freed); diff != "" {
				t.Errorf("buffers must still be freed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestContext_Ordering(t *testing.T) {
	alloc := &countingAlloc{}
	c := New(alloc)

	if err := c.Begin(); err != nil {
		t.Fatalf("fresh context: %v", err)
	}

	// call: the callee announces a result and defers its buffer
	c.SetResultPtr(128)
	c.SetResultSize(3)
	c.DeferAlloc(128, 3, 1)

	// a second call before release is rejected
	err := c.Begin()
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindOrdering {
		t.Fatalf("expected ordering error, got %v", err)
	}

	// read
	if c.ResultPtr() != 128 || c.ResultSize() != 3 {
		t.Errorf("registers = (%d, %d)", c.ResultPtr(), c.ResultSize())
	}

	// release
	if err := c.ReleaseAll(); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 || c.Open() {
		t.Error("context should be drained")
	}
	if c.ResultPtr() != 0 || c.ResultSize() != 0 {
		t.Error("registers should be cleared")
	}
	if err := c.Begin(); err != nil {
		t.Errorf("after release: %v", err)
	}
	if err := c.ReleaseAll(); err != nil {
		t.Errorf("idempotent release: %v", err)
	}
}

func TestContext_EmptyResultStillNeedsRelease(t *testing.T) {
	c := New(nil)
	c.SetResultPtr(0)
	c.SetResultSize(0)
	if c.Begin() == nil {
		t.Error("an announced result must be released even when empty")
	}
	_ = c.ReleaseAll()
	if c.Begin() != nil {
		t.Error("release should reopen the context")
	}
}
