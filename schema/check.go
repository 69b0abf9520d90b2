package schema

import (
	"fmt"
	"strings"

	"github.com/wippyai/wasmbind/errors"
)

// Position is where a declaration crosses (or does not cross) the boundary.
type Position uint8

const (
	PositionArgument Position = iota // exported function argument
	PositionReturn                   // exported function output
	PositionField                    // record field
	PositionImport                   // argument or output of an extern import
)

// FieldRefPolicy decides whether record fields get the argument check.
type FieldRefPolicy uint8

const (
	// FieldRefsStrict applies the exported-argument rule to every field.
	FieldRefsStrict FieldRefPolicy = iota
	// FieldRefsRelaxed skips the check for fields.
	FieldRefsRelaxed
)

func (p FieldRefPolicy) String() string {
	if p == FieldRefsRelaxed {
		return "relaxed"
	}
	return "strict"
}

// ParseFieldRefPolicy accepts "strict", "relaxed" or "" (strict).
func ParseFieldRefPolicy(s string) (FieldRefPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return FieldRefsStrict, nil
	case "relaxed":
		return FieldRefsRelaxed, nil
	default:
		return FieldRefsStrict, errors.InvalidInput(errors.PhaseParse,
			fmt.Sprintf("unknown record field reference policy %q", s))
	}
}

// maxArgRefDepth is the deepest list nesting a borrowed element may sit at
// in an argument: list<&string> is fine, list<list<&string>> is not.
const maxArgRefDepth = 1

// Check validates the reference markers of d for use at pos.
func (d TypeDecl) Check(pos Position, policy FieldRefPolicy, path ...string) error {
	switch pos {
	case PositionImport:
		return nil
	case PositionField:
		if policy == FieldRefsRelaxed {
			return nil
		}
		fallthrough
	case PositionArgument:
		if depth := d.MaxRefDepth(); depth > maxArgRefDepth {
			return errors.Schema(path, d.Expr,
				fmt.Sprintf("reference nested %d levels inside a sequence cannot be proven to outlive the call", depth))
		}
	case PositionReturn:
		if d.Style != ByValue {
			return errors.Schema(path, d.Expr, "a returned reference cannot be proven to outlive the call")
		}
		if len(d.Refs) > 0 {
			return errors.Schema(path, d.Expr, "a returned sequence cannot hold references")
		}
	}
	return nil
}
