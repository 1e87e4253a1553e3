package matcher

import (
	"strings"

	"github.com/bclement/redline/core"
)

// literalShow matches an exact literal string shown by one operator,
// `(target) Tj` or `(target) '`.
type literalShow struct {
	operator string
}

func (m literalShow) Name() string { return "literal " + m.operator }

func (m literalShow) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	seen := 0
	for _, op := range s.Ops {
		if op.Operator != m.operator || len(op.Operands) != 1 {
			continue
		}
		str, ok := op.Operands[0].Object.(core.String)
		if !ok || string(str) != target {
			continue
		}
		if seen == skip {
			operand := op.Operands[0]
			return splice(s.Payload, operand.Start, operand.End, literalBytes(replacement)), seen + 1
		}
		seen++
	}
	return nil, seen
}

// bareLiteral matches an exact literal string operand under any
// operator, catching producers that show text through operators the
// stricter strategies do not cover.
type bareLiteral struct{}

func (bareLiteral) Name() string { return "bare literal" }

func (bareLiteral) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	seen := 0
	for _, op := range s.Ops {
		for _, operand := range op.Operands {
			str, ok := operand.Object.(core.String)
			if !ok || string(str) != target {
				continue
			}
			if seen == skip {
				return splice(s.Payload, operand.Start, operand.End, literalBytes(replacement)), seen + 1
			}
			seen++
		}
	}
	return nil, seen
}

// literalSubstring matches target inside a larger literal string,
// preserving the surrounding text.
type literalSubstring struct{}

func (literalSubstring) Name() string { return "literal substring" }

func (literalSubstring) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	if target == "" {
		return nil, 0
	}

	seen := 0
	for _, op := range s.Ops {
		for _, operand := range op.Operands {
			str, ok := operand.Object.(core.String)
			if !ok {
				continue
			}
			text := string(str)

			offset := 0
			for {
				idx := strings.Index(text[offset:], target)
				if idx == -1 {
					break
				}
				idx += offset
				if seen == skip {
					rewritten := text[:idx] + replacement + text[idx+len(target):]
					return splice(s.Payload, operand.Start, operand.End, literalBytes(rewritten)), seen + 1
				}
				seen++
				offset = idx + len(target)
			}
		}
	}
	return nil, seen
}
