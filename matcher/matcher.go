package matcher

import (
	"bytes"
	"strconv"

	"github.com/bclement/redline/contentstream"
	"github.com/bclement/redline/core"
	"github.com/bclement/redline/font"
	"github.com/bclement/redline/model"
)

// Context carries the resources strategies draw on: the page's font maps
// and the optional caller rectangle for position-based deletion.
type Context struct {
	Fonts []*font.FontMap
	Rect  *model.BBox
}

// Stream is one candidate payload with its parsed operations
type Stream struct {
	Payload []byte
	Ops     []contentstream.Operation
}

// NewStream parses a payload into a matchable stream
func NewStream(payload []byte) *Stream {
	ops, _ := contentstream.NewParser(payload).Parse()
	return &Stream{Payload: payload, Ops: ops}
}

// Strategy is one way of finding target text in a content stream. Apply
// scans the stream in source order; when more than skip matches exist it
// rewrites match number skip (0-based) and returns the new payload.
// seen is the total number of matches in this stream either way, which
// is what lets occurrence counting carry across streams.
type Strategy interface {
	Name() string
	Apply(s *Stream, target, replacement string, skip int, ctx *Context) (edited []byte, seen int)
}

// Chain returns the strategies in the order they are tried. First
// strategy to produce an edit anywhere wins; later strategies only run
// when every stream has been exhausted by the earlier ones.
func Chain() []Strategy {
	return []Strategy{
		literalShow{operator: "Tj"},
		literalShow{operator: "'"},
		bareLiteral{},
		arrayConcat{},
		hexSingleByte{},
		hexWide{},
		hexArray{},
		fontEncodedLiteral{},
		fontEncodedArray{},
		charSequence{},
		literalSubstring{},
		arraySubstring{},
		positionDelete{},
	}
}

// Match runs the strategy chain over candidate streams in source order.
// It returns the index of the edited stream and its rewritten payload.
// The occurrence is 0-based and counts matches per strategy across all
// streams; 0 edits the first match.
func Match(streams []*Stream, target, replacement string, occurrence int, ctx *Context) (int, []byte, bool) {
	return MatchWith(streams, target, replacement, occurrence, ctx, nil)
}

// MatchWith is Match with an acceptance check. When accept returns false
// for an edit, the edit is discarded and the search moves on to the next
// strategy, which lets the caller veto rewrites that cannot be written
// back into the stream's byte budget.
func MatchWith(streams []*Stream, target, replacement string, occurrence int, ctx *Context, accept func(stream int, edited []byte) bool) (int, []byte, bool) {
	if occurrence < 0 {
		occurrence = 0
	}

	for _, strategy := range Chain() {
		skip := occurrence
		for i, s := range streams {
			edited, seen := strategy.Apply(s, target, replacement, skip, ctx)
			if edited != nil {
				if accept == nil || accept(i, edited) {
					return i, edited, true
				}
				break
			}
			skip -= seen
		}
	}
	return 0, nil, false
}

// splice replaces payload[start:end] with replacement bytes
func splice(payload []byte, start, end int, replacement []byte) []byte {
	out := make([]byte, 0, len(payload)-(end-start)+len(replacement))
	out = append(out, payload[:start]...)
	out = append(out, replacement...)
	out = append(out, payload[end:]...)
	return out
}

// literalBytes serializes s as a literal string token, escaping the
// characters that cannot appear raw.
func literalBytes(s string) []byte {
	var buf bytes.Buffer
	buf.WriteByte('(')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
	return buf.Bytes()
}

// hexBytes serializes raw bytes as a hex string token
func hexBytes(data []byte) []byte {
	const digits = "0123456789ABCDEF"
	out := make([]byte, 0, len(data)*2+2)
	out = append(out, '<')
	for _, b := range data {
		out = append(out, digits[b>>4], digits[b&0x0F])
	}
	out = append(out, '>')
	return out
}

// numberBytes serializes a numeric operand the way content streams
// write numbers.
func numberBytes(obj core.Object) []byte {
	switch v := obj.(type) {
	case core.Int:
		return []byte(strconv.FormatInt(int64(v), 10))
	case core.Real:
		return []byte(strconv.FormatFloat(float64(v), 'f', -1, 64))
	}
	return []byte("0")
}

// stringOperand extracts the raw bytes of a string operand of either
// notation. The second result distinguishes hex from literal form.
func stringOperand(obj core.Object) ([]byte, bool, bool) {
	switch v := obj.(type) {
	case core.String:
		return []byte(v), false, true
	case core.HexString:
		return []byte(v), true, true
	}
	return nil, false, false
}

// showStringOperand returns the editable string operand of a show
// operation: the sole operand of Tj and ', the third of ".
func showStringOperand(op contentstream.Operation) (contentstream.Operand, bool) {
	switch op.Operator {
	case "Tj", "'":
		if len(op.Operands) == 1 {
			return op.Operands[0], true
		}
	case "\"":
		if len(op.Operands) == 3 {
			return op.Operands[2], true
		}
	}
	return contentstream.Operand{}, false
}
