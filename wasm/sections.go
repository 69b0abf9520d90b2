package wasm

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/wasmbind/errors"
)

var preamble = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Section IDs
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionCode     byte = 10
	SectionData     byte = 11
)

// Section is one top-level section. Start and End delimit the whole
// section including its id and size header.
type Section struct {
	Data  []byte
	Start int
	End   int
	ID    byte
}

// CustomSection is a named opaque payload.
type CustomSection struct {
	Name string
	Data []byte
}

func invalid(format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Detail(format, args...).
		Build()
}

// Sections lists the top-level sections of a core module.
func Sections(bin []byte) ([]Section, error) {
	if len(bin) < len(preamble) || !bytes.Equal(bin[:4], preamble[:4]) {
		return nil, invalid("not a WebAssembly module")
	}
	if !bytes.Equal(bin[4:8], preamble[4:]) {
		return nil, invalid("unsupported binary version %x (components are not supported)", bin[4:8])
	}

	var out []Section
	pos := len(preamble)
	for pos < len(bin) {
		start := pos
		id := bin[pos]
		r := bytes.NewReader(bin[pos+1:])
		size, err := ReadLEB128u(r)
		if err != nil {
			return nil, invalid("section at offset %d: bad size: %v", start, err)
		}
		headerLen := 1 + (len(bin) - pos - 1 - r.Len())
		dataStart := pos + headerLen
		dataEnd := dataStart + int(size)
		if dataEnd > len(bin) || dataEnd < dataStart {
			return nil, invalid("section %d at offset %d overruns module (%d bytes)", id, start, size)
		}
		out = append(out, Section{
			ID:    id,
			Data:  bin[dataStart:dataEnd],
			Start: start,
			End:   dataEnd,
		})
		pos = dataEnd
	}
	return out, nil
}

// ParseCustomSection splits a custom section payload into name and data.
func ParseCustomSection(payload []byte) (CustomSection, error) {
	r := bytes.NewReader(payload)
	n, err := ReadLEB128u(r)
	if err != nil {
		return CustomSection{}, invalid("custom section name: %v", err)
	}
	off := len(payload) - r.Len()
	if uint64(off)+uint64(n) > uint64(len(payload)) {
		return CustomSection{}, invalid("custom section name overruns payload")
	}
	name := payload[off : off+int(n)]
	if !utf8.Valid(name) {
		return CustomSection{}, invalid("custom section name is not UTF-8")
	}
	return CustomSection{
		Name: string(name),
		Data: payload[off+int(n):],
	}, nil
}

// CustomSections returns every custom section in module order.
func CustomSections(bin []byte) ([]CustomSection, error) {
	sections, err := Sections(bin)
	if err != nil {
		return nil, err
	}
	var out []CustomSection
	for _, s := range sections {
		if s.ID != SectionCustom {
			continue
		}
		cs, err := ParseCustomSection(s.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

// EncodeCustomSection returns a complete custom section.
func EncodeCustomSection(name string, data []byte) []byte {
	payload := AppendLEB128u(nil, uint32(len(name)))
	payload = append(payload, name...)
	payload = append(payload, data...)

	out := []byte{SectionCustom}
	out = AppendLEB128u(out, uint32(len(payload)))
	return append(out, payload...)
}

// AppendCustomSection returns a copy of bin with a custom section added at
// the end.
func AppendCustomSection(bin []byte, name string, data []byte) []byte {
	out := make([]byte, 0, len(bin)+len(name)+len(data)+12)
	out = append(out, bin...)
	return append(out, EncodeCustomSection(name, data)...)
}

// StripCustomSections returns a copy of bin without the custom sections
// whose name starts with prefix, and how many were removed.
func StripCustomSections(bin []byte, prefix string) ([]byte, int, error) {
	sections, err := Sections(bin)
	if err != nil {
		return nil, 0, err
	}
	out := make([]byte, 0, len(bin))
	out = append(out, bin[:len(preamble)]...)
	removed := 0
	for _, s := range sections {
		if s.ID == SectionCustom {
			cs, err := ParseCustomSection(s.Data)
			if err != nil {
				return nil, 0, err
			}
			if strings.HasPrefix(cs.Name, prefix) {
				removed++
				continue
			}
		}
		out = append(out, bin[s.Start:s.End]...)
	}
	return out, removed, nil
}
