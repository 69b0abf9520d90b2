package embed

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/wasm"
)

// Options configures a Writer or Reader. A nil *Options means defaults.
type Options struct {
	// Codec serializes payloads. Default: MsgpackCodec.
	Codec Codec
	// Prefix starts every section name. Default: DefaultPrefix.
	Prefix string
}

func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Codec == nil {
		out.Codec = MsgpackCodec{}
	}
	if out.Prefix == "" {
		out.Prefix = DefaultPrefix
	}
	return out
}

// Writer turns a bundle into custom sections.
type Writer struct {
	opts Options
}

func NewWriter(opts *Options) *Writer {
	return &Writer{opts: opts.withDefaults()}
}

// Sections encodes every declaration of b, records first. The bundle is
// validated so a module never carries a dangling record reference.
func (w *Writer) Sections(b *schema.Bundle) ([]wasm.CustomSection, error) {
	if b == nil {
		return nil, errors.InvalidInput(errors.PhaseEmbed, "nil bundle")
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	var out []wasm.CustomSection
	seen := make(map[string]string)
	add := func(kind Kind, name string, doc any) error {
		section := SectionName(w.opts.Prefix, kind, name)
		if prev, ok := seen[section]; ok {
			return errors.New(errors.PhaseEmbed, errors.KindDuplicate).
				Path(section).
				Detail("%q and %q map to the same section", prev, name).
				Build()
		}
		seen[section] = name
		data, err := w.opts.Codec.Marshal(doc)
		if err != nil {
			return errors.Wrap(errors.PhaseEmbed, errors.KindInvalidData, err, "marshal "+section)
		}
		out = append(out, wasm.CustomSection{Name: section, Data: data})
		return nil
	}

	for _, r := range b.Records.Records() {
		if err := add(KindRecord, r.Name, recordToDoc(r)); err != nil {
			return nil, err
		}
	}
	for _, f := range b.Functions {
		if err := add(KindFunction, f.Name, functionToDoc(f)); err != nil {
			return nil, err
		}
	}
	for _, e := range b.Externs {
		if err := add(KindExtern, e.Namespace, externToDoc(e)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Embed returns a copy of bin carrying the sections of b. Sections with
// the writer's prefix already present are replaced.
func (w *Writer) Embed(bin []byte, b *schema.Bundle) ([]byte, error) {
	sections, err := w.Sections(b)
	if err != nil {
		return nil, err
	}
	out, removed, err := wasm.StripCustomSections(bin, w.opts.Prefix)
	if err != nil {
		return nil, err
	}
	for _, s := range sections {
		out = wasm.AppendCustomSection(out, s.Name, s.Data)
	}
	Logger().Debug("embedded schema sections",
		zap.Int("written", len(sections)),
		zap.Int("replaced", removed),
		zap.String("prefix", w.opts.Prefix))
	return out, nil
}

// Reader rebuilds a bundle from custom sections.
type Reader struct {
	opts Options
}

func NewReader(opts *Options) *Reader {
	return &Reader{opts: opts.withDefaults()}
}

// Extract reads the sections of bin. It returns a KindNotFound error when
// the module carries none.
func (r *Reader) Extract(bin []byte) (*schema.Bundle, error) {
	sections, err := wasm.CustomSections(bin)
	if err != nil {
		return nil, err
	}
	return r.FromSections(sections)
}

// FromSections rebuilds a bundle from already separated custom sections.
// Sections without the reader's prefix are ignored. Records are
// registered before any function is resolved against them.
func (r *Reader) FromSections(sections []wasm.CustomSection) (*schema.Bundle, error) {
	var (
		records []*schema.RecordType
		funcs   []*schema.FunctionSignature
		externs []*schema.ExternModule
		found   int
	)
	for _, s := range sections {
		kind, sanitized, ok := splitSectionName(r.opts.Prefix, s.Name)
		if !ok {
			continue
		}
		found++
		switch kind {
		case KindRecord:
			var doc recordDoc
			if err := r.decode(s, &doc, &doc.Version); err != nil {
				return nil, err
			}
			if err := checkName(s.Name, sanitized, doc.Name); err != nil {
				return nil, err
			}
			rec, err := doc.record()
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		case KindFunction:
			var doc functionDoc
			if err := r.decode(s, &doc, &doc.Version); err != nil {
				return nil, err
			}
			if err := checkName(s.Name, sanitized, doc.Name); err != nil {
				return nil, err
			}
			sig, err := doc.signature(schema.BoundaryExport)
			if err != nil {
				return nil, err
			}
			funcs = append(funcs, sig)
		case KindExtern:
			var doc externDoc
			if err := r.decode(s, &doc, &doc.Version); err != nil {
				return nil, err
			}
			if err := checkName(s.Name, sanitized, doc.Namespace); err != nil {
				return nil, err
			}
			ext, err := doc.extern()
			if err != nil {
				return nil, err
			}
			externs = append(externs, ext)
		default:
			Logger().Debug("skipping section of unknown kind", zap.String("section", s.Name))
			found--
		}
	}
	if found == 0 {
		return nil, errors.NotFound(errors.PhaseEmbed, "schema sections with prefix", r.opts.Prefix)
	}

	b := schema.NewBundle("")
	for _, rec := range records {
		if err := b.Records.Add(rec); err != nil {
			return nil, err
		}
	}
	for _, f := range funcs {
		if err := b.AddFunction(f); err != nil {
			return nil, err
		}
	}
	for _, e := range externs {
		if err := b.AddExtern(e); err != nil {
			return nil, err
		}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	Logger().Debug("extracted schema sections",
		zap.Int("records", len(records)),
		zap.Int("functions", len(funcs)),
		zap.Int("externs", len(externs)))
	return b, nil
}

func (r *Reader) decode(s wasm.CustomSection, doc any, version *uint16) error {
	if err := r.opts.Codec.Unmarshal(s.Data, doc); err != nil {
		return errors.New(errors.PhaseEmbed, errors.KindInvalidData).
			Path(s.Name).
			Cause(err).
			Detail("unmarshal payload").
			Build()
	}
	return checkVersion(s.Name, *version)
}

func checkName(section, sanitized, declared string) error {
	if Sanitize(declared) != sanitized {
		return errors.InvalidData(errors.PhaseEmbed, []string{section},
			"payload declares "+declared)
	}
	return nil
}
