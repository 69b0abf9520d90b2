package wasm

import (
	"bytes"
	"testing"
)

func TestLEB128u(t *testing.T) {
	tests := []struct {
		value uint32
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
		{0xffffffff, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	}
	for _, tt := range tests {
		got := AppendLEB128u(nil, tt.value)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("AppendLEB128u(%d) = %x, want %x", tt.value, got, tt.want)
		}
		var buf bytes.Buffer
		WriteLEB128u(&buf, tt.value)
		back, err := ReadLEB128u(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("ReadLEB128u(%x): %v", buf.Bytes(), err)
		}
		if back != tt.value {
			t.Errorf("round trip %d -> %d", tt.value, back)
		}
	}
}

func TestReadLEB128u_Overflow(t *testing.T) {
	for _, in := range [][]byte{
		{0xff, 0xff, 0xff, 0xff, 0x1f},
		{0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
	} {
		if _, err := ReadLEB128u(bytes.NewReader(in)); err != ErrOverflow {
			t.Errorf("ReadLEB128u(%x) err = %v, want ErrOverflow", in, err)
		}
	}
	if _, err := ReadLEB128u(bytes.NewReader([]byte{0x80})); err == nil {
		t.Error("truncated input should fail")
	}
}

func TestAppendLEB128s(t *testing.T) {
	tests := []struct {
		value int64
		want  []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-64, []byte{0x40}},
		{-65, []byte{0xbf, 0x7f}},
		{-123456, []byte{0xc0, 0xbb, 0x78}},
	}
	for _, tt := range tests {
		if got := AppendLEB128s(nil, tt.value); !bytes.Equal(got, tt.want) {
			t.Errorf("AppendLEB128s(%d) = %x, want %x", tt.value, got, tt.want)
		}
	}
}
