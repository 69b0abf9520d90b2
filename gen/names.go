package gen

import (
	"go/token"
	"strconv"
	"strings"
	"unicode"
)

// exportName turns a declared name such as "make-point", "host:io/log" or
// "0" into an exported Go identifier.
func exportName(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		out = "F" + out
	}
	return out
}

// reservedLocals are identifiers generated method bodies use themselves.
var reservedLocals = map[string]bool{
	"c": true, "ctx": true, "res": true, "err": true, "out": true, "v": true, "ok": true, "impl": true,
	"context": true, "errors": true, "runtime": true, "schema": true, "transcoder": true, "embed": true,
}

// paramName returns an unexported identifier for a parameter.
func paramName(s string, pos int) string {
	if s == "" {
		return "p" + strconv.Itoa(pos)
	}
	e := []rune(exportName(s))
	e[0] = unicode.ToLower(e[0])
	name := string(e)
	if token.IsKeyword(name) || reservedLocals[name] || isPredeclared(name) {
		name += "Arg"
	}
	return name
}

func isPredeclared(name string) bool {
	switch name {
	case "bool", "string", "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64",
		"float32", "float64", "byte", "rune", "error", "any", "len", "cap", "make", "new", "nil", "true", "false":
		return true
	}
	return false
}
