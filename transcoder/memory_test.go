package transcoder

import (
	"encoding/binary"
	"testing"

	"github.com/wippyai/wasmbind/errors"
)

// testMem implements Memory over a byte slice with bounds checks.
type testMem struct {
	data []byte
}

func newTestMem(size int) *testMem {
	return &testMem{data: make([]byte, size)}
}

func (m *testMem) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return errors.OutOfBounds(errors.PhaseRuntime, nil, offset, length)
	}
	return nil
}

func (m *testMem) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *testMem) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *testMem) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *testMem) ReadU16(offset uint32) (uint16, error) {
	if err := m.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

func (m *testMem) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *testMem) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *testMem) WriteU8(offset uint32, value uint8) error {
	return m.Write(offset, []byte{value})
}

func (m *testMem) WriteU16(offset uint32, value uint16) error {
	return m.Write(offset, binary.LittleEndian.AppendUint16(nil, value))
}

func (m *testMem) WriteU32(offset uint32, value uint32) error {
	return m.Write(offset, binary.LittleEndian.AppendUint32(nil, value))
}

func (m *testMem) WriteU64(offset uint32, value uint64) error {
	return m.Write(offset, binary.LittleEndian.AppendUint64(nil, value))
}

// mustReadU32 reads or fails test
func (m *testMem) mustReadU32(t *testing.T, offset uint32) uint32 {
	t.Helper()
	v, err := m.ReadU32(offset)
	if err != nil {
		t.Fatalf("ReadU32 failed: %v", err)
	}
	return v
}

// poisonMem fails the test on any access.
type poisonMem struct {
	t *testing.T
}

func (m poisonMem) fail(op string, offset uint32) {
	m.t.Helper()
	m.t.Fatalf("unexpected %s at %#x", op, offset)
}

func (m poisonMem) Read(offset uint32, _ uint32) ([]byte, error) {
	m.fail("Read", offset)
	return nil, nil
}
func (m poisonMem) Write(offset uint32, _ []byte) error { m.fail("Write", offset); return nil }
func (m poisonMem) ReadU8(offset uint32) (uint8, error) {
	m.fail("ReadU8", offset)
	return 0, nil
}
func (m poisonMem) ReadU16(offset uint32) (uint16, error) {
	m.fail("ReadU16", offset)
	return 0, nil
}
func (m poisonMem) ReadU32(offset uint32) (uint32, error) {
	m.fail("ReadU32", offset)
	return 0, nil
}
func (m poisonMem) ReadU64(offset uint32) (uint64, error) {
	m.fail("ReadU64", offset)
	return 0, nil
}
func (m poisonMem) WriteU8(offset uint32, _ uint8) error   { m.fail("WriteU8", offset); return nil }
func (m poisonMem) WriteU16(offset uint32, _ uint16) error { m.fail("WriteU16", offset); return nil }
func (m poisonMem) WriteU32(offset uint32, _ uint32) error { m.fail("WriteU32", offset); return nil }
func (m poisonMem) WriteU64(offset uint32, _ uint64) error { m.fail("WriteU64", offset); return nil }

// testAlloc implements Allocator for testing
type testAlloc struct {
	freed  map[uint32]uint32
	offset uint32
	calls  int
}

func newTestAlloc(start uint32) *testAlloc {
	return &testAlloc{offset: start, freed: make(map[uint32]uint32)}
}

func (a *testAlloc) Alloc(size, align uint32) (uint32, error) {
	a.calls++
	if align > 1 {
		a.offset = (a.offset + align - 1) &^ (align - 1)
	}
	addr := a.offset
	a.offset += size
	return addr, nil
}

func (a *testAlloc) Free(ptr, size, align uint32) {
	a.freed[ptr] = size
}

// tracked records what the encoder reported.
type tracked struct {
	allocs []uint32
}

func (tr *tracked) DeferAlloc(ptr, size, align uint32) {
	tr.allocs = append(tr.allocs, ptr)
}
