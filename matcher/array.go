package matcher

import (
	"bytes"
	"strings"

	"github.com/bclement/redline/contentstream"
	"github.com/bclement/redline/core"
)

// arrayConcat matches a TJ array whose literal segments concatenate to
// the target. Kerning numbers are preserved; the replacement goes into
// the first segment and the rest are emptied.
type arrayConcat struct{}

func (arrayConcat) Name() string { return "TJ concat" }

func (arrayConcat) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	seen := 0
	for _, op := range s.Ops {
		arr, operand, ok := tjArray(op)
		if !ok {
			continue
		}

		var concat strings.Builder
		segments := 0
		for _, elem := range arr {
			if str, isLit := elem.(core.String); isLit {
				concat.WriteString(string(str))
				segments++
			}
		}
		if segments == 0 || concat.String() != target {
			continue
		}

		if seen == skip {
			rewritten := rewriteLiteralSegments(arr, func(segIdx int, text string) string {
				if segIdx == 0 {
					return replacement
				}
				return ""
			})
			return splice(s.Payload, operand.Start, operand.End, rewritten), seen + 1
		}
		seen++
	}
	return nil, seen
}

// arraySubstring matches the target as a substring of a TJ array's
// concatenated literal text, possibly spanning segment boundaries.
type arraySubstring struct{}

func (arraySubstring) Name() string { return "TJ substring" }

func (arraySubstring) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	if target == "" {
		return nil, 0
	}

	seen := 0
	for _, op := range s.Ops {
		arr, operand, ok := tjArray(op)
		if !ok {
			continue
		}

		// Concatenate literal segments, remembering where each starts
		var concat strings.Builder
		var segStarts []int
		for _, elem := range arr {
			if str, isLit := elem.(core.String); isLit {
				segStarts = append(segStarts, concat.Len())
				concat.WriteString(string(str))
			}
		}
		text := concat.String()
		if len(segStarts) == 0 {
			continue
		}

		offset := 0
		for {
			idx := strings.Index(text[offset:], target)
			if idx == -1 {
				break
			}
			idx += offset
			if seen == skip {
				rewritten := rewriteSpan(arr, segStarts, idx, idx+len(target), replacement)
				return splice(s.Payload, operand.Start, operand.End, rewritten), seen + 1
			}
			seen++
			offset = idx + len(target)
		}
	}
	return nil, seen
}

// tjArray extracts the array operand of a TJ operation
func tjArray(op contentstream.Operation) (core.Array, contentstream.Operand, bool) {
	if op.Operator != "TJ" || len(op.Operands) != 1 {
		return nil, contentstream.Operand{}, false
	}
	arr, ok := op.Operands[0].Object.(core.Array)
	if !ok {
		return nil, contentstream.Operand{}, false
	}
	return arr, op.Operands[0], true
}

// rewriteLiteralSegments reserializes a TJ array, passing each literal
// segment through edit (segIdx counts literal segments only). Numbers
// and hex segments pass through unchanged.
func rewriteLiteralSegments(arr core.Array, edit func(segIdx int, text string) string) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	segIdx := 0
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(' ')
		}
		switch v := elem.(type) {
		case core.String:
			buf.Write(literalBytes(edit(segIdx, string(v))))
			segIdx++
		case core.HexString:
			buf.Write(hexBytes([]byte(v)))
		default:
			buf.Write(numberBytes(elem))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// rewriteSpan reserializes a TJ array with concat range [from, to)
// replaced. The replacement lands in the first affected segment; later
// affected segments keep only their text outside the span.
func rewriteSpan(arr core.Array, segStarts []int, from, to int, replacement string) []byte {
	first := true
	return rewriteLiteralSegments(arr, func(segIdx int, text string) string {
		segStart := segStarts[segIdx]
		segEnd := segStart + len(text)
		if segEnd <= from || segStart >= to {
			return text
		}

		var out strings.Builder
		if from > segStart {
			out.WriteString(text[:from-segStart])
		}
		if first {
			out.WriteString(replacement)
			first = false
		}
		if to < segEnd {
			out.WriteString(text[to-segStart:])
		}
		return out.String()
	})
}
