package contentstream

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/bclement/redline/core"
)

// Operand is a single operand together with the byte range it occupies
// in the source payload. Ranges are what allow a string operand to be
// rewritten in place without disturbing the rest of the stream.
type Operand struct {
	Object core.Object
	Start  int
	End    int
}

// Operation represents one content stream operation: an operator, its
// operands, and the source range from the first operand through the end
// of the operator token.
type Operation struct {
	Operator string
	Operands []Operand
	Start    int
	End      int
}

// Operand0 returns the first operand's object, or nil
func (op Operation) Operand0() core.Object {
	if len(op.Operands) == 0 {
		return nil
	}
	return op.Operands[0].Object
}

// Parser parses a content stream payload into a sequence of operations
type Parser struct {
	data  []byte
	pos   int
	ops   []Operation
	stack []Operand
}

// NewParser creates a content stream parser over payload bytes
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Parse parses the whole payload and returns its operations in order.
// Unparsable trailing bytes end the scan without error; the operations
// recovered so far are still usable.
func (p *Parser) Parse() ([]Operation, error) {
	for p.pos < len(p.data) {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			break
		}
		if err := p.parseNext(); err != nil {
			// A damaged tail should not discard everything parsed so
			// far; stream edits only need the operations they can see.
			break
		}
	}
	return p.ops, nil
}

// parseNext parses one token: an operand is pushed, an operator closes
// the pending operation.
func (p *Parser) parseNext() error {
	c := p.data[p.pos]

	if isLetter(c) || c == '\'' || c == '"' {
		return p.parseOperator()
	}

	start := p.pos
	operand, err := p.parseOperand()
	if err != nil {
		return fmt.Errorf("at position %d: %w", start, err)
	}
	p.stack = append(p.stack, Operand{Object: operand, Start: start, End: p.pos})
	return nil
}

// parseOperator reads an operator token and emits an operation from the
// pending operand stack.
func (p *Parser) parseOperator() error {
	start := p.pos

	var op bytes.Buffer
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isLetter(c) || isDigit(c) || c == '\'' || c == '"' || c == '*' {
			op.WriteByte(c)
			p.pos++
		} else {
			break
		}
	}

	operator := op.String()
	if operator == "" {
		return fmt.Errorf("empty operator at position %d", start)
	}

	// Keyword operands lex like operators
	switch operator {
	case "true":
		p.stack = append(p.stack, Operand{Object: core.Bool(true), Start: start, End: p.pos})
		return nil
	case "false":
		p.stack = append(p.stack, Operand{Object: core.Bool(false), Start: start, End: p.pos})
		return nil
	case "null":
		p.stack = append(p.stack, Operand{Object: core.Null{}, Start: start, End: p.pos})
		return nil
	}

	opStart := start
	if len(p.stack) > 0 {
		opStart = p.stack[0].Start
	}

	operation := Operation{
		Operator: operator,
		Operands: p.stack,
		Start:    opStart,
		End:      p.pos,
	}
	p.ops = append(p.ops, operation)
	p.stack = nil

	// Inline image data is raw binary; skip to its EI terminator
	if operator == "ID" {
		p.skipInlineImage()
	}

	return nil
}

// skipInlineImage advances past raw inline image bytes to the EI
// operator.
func (p *Parser) skipInlineImage() {
	for {
		idx := bytes.Index(p.data[p.pos:], []byte("EI"))
		if idx == -1 {
			p.pos = len(p.data)
			return
		}
		abs := p.pos + idx
		// EI must be delimited on both sides to count
		before := abs == 0 || isWhitespace(p.data[abs-1])
		after := abs+2 >= len(p.data) || isWhitespace(p.data[abs+2]) || isDelimiter(p.data[abs+2])
		if before && after {
			p.pos = abs + 2
			return
		}
		p.pos = abs + 2
	}
}

// parseOperand parses a single operand
func (p *Parser) parseOperand() (core.Object, error) {
	p.skipWhitespace()
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("unexpected end of stream")
	}

	c := p.data[p.pos]

	switch {
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.parseNumber()
	case c == '(':
		return p.parseString()
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.parseDict()
	case c == '<':
		return p.parseHexString()
	case c == '/':
		return p.parseName()
	case c == '[':
		return p.parseArray()
	}

	return nil, fmt.Errorf("unexpected character: %c", c)
}

// parseNumber parses an integer or real operand
func (p *Parser) parseNumber() (core.Object, error) {
	start := p.pos
	hasDecimal := false

	if p.data[p.pos] == '+' || p.data[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isDigit(c) {
			p.pos++
		} else if c == '.' && !hasDecimal {
			hasDecimal = true
			p.pos++
		} else {
			break
		}
	}

	numStr := string(p.data[start:p.pos])
	if hasDecimal {
		val, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number %q: %w", numStr, err)
		}
		return core.Real(val), nil
	}
	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q: %w", numStr, err)
	}
	return core.Int(val), nil
}

// parseString parses a literal string with escapes and nesting
func (p *Parser) parseString() (core.Object, error) {
	p.pos++ // skip '('

	var result bytes.Buffer
	depth := 1

	for p.pos < len(p.data) && depth > 0 {
		c := p.data[p.pos]

		switch {
		case c == '\\' && p.pos+1 < len(p.data):
			p.pos++
			next := p.data[p.pos]
			switch next {
			case 'n':
				result.WriteByte('\n')
				p.pos++
			case 'r':
				result.WriteByte('\r')
				p.pos++
			case 't':
				result.WriteByte('\t')
				p.pos++
			case 'b':
				result.WriteByte('\b')
				p.pos++
			case 'f':
				result.WriteByte('\f')
				p.pos++
			case '(', ')', '\\':
				result.WriteByte(next)
				p.pos++
			case '\r':
				// Line continuation
				p.pos++
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
				p.pos++
			case '0', '1', '2', '3', '4', '5', '6', '7':
				octalVal := int(next - '0')
				p.pos++
				for i := 0; i < 2 && p.pos < len(p.data); i++ {
					digit := p.data[p.pos]
					if digit < '0' || digit > '7' {
						break
					}
					octalVal = octalVal*8 + int(digit-'0')
					p.pos++
				}
				result.WriteByte(byte(octalVal & 0xFF))
			default:
				result.WriteByte(next)
				p.pos++
			}
		case c == '(':
			depth++
			result.WriteByte(c)
			p.pos++
		case c == ')':
			depth--
			if depth > 0 {
				result.WriteByte(c)
			}
			p.pos++
		default:
			result.WriteByte(c)
			p.pos++
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("unclosed string")
	}
	return core.String(result.String()), nil
}

// parseHexString parses <hex digits>, tolerating interior whitespace and
// an odd final digit.
func (p *Parser) parseHexString() (core.Object, error) {
	p.pos++ // skip '<'

	var result bytes.Buffer
	var pending byte
	havePending := false

	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == '>' {
			p.pos++
			if havePending {
				result.WriteByte(pending << 4)
			}
			return core.HexString(result.String()), nil
		}
		if isWhitespace(c) {
			p.pos++
			continue
		}
		if !isHexDigit(c) {
			return nil, fmt.Errorf("invalid hex digit: %c", c)
		}
		if havePending {
			result.WriteByte((pending << 4) | hexValue(c))
			havePending = false
		} else {
			pending = hexValue(c)
			havePending = true
		}
		p.pos++
	}
	return nil, fmt.Errorf("unclosed hex string")
}

// parseName parses /Name with # escapes
func (p *Parser) parseName() (core.Object, error) {
	p.pos++ // skip '/'

	var result bytes.Buffer
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && p.pos+2 < len(p.data) &&
			isHexDigit(p.data[p.pos+1]) && isHexDigit(p.data[p.pos+2]) {
			result.WriteByte((hexValue(p.data[p.pos+1]) << 4) | hexValue(p.data[p.pos+2]))
			p.pos += 3
			continue
		}
		result.WriteByte(c)
		p.pos++
	}
	return core.Name(result.String()), nil
}

// parseArray parses [...] of operands
func (p *Parser) parseArray() (core.Object, error) {
	p.pos++ // skip '['

	var arr core.Array
	for p.pos < len(p.data) {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
	return nil, fmt.Errorf("unclosed array")
}

// parseDict parses <<...>> (rare in content streams)
func (p *Parser) parseDict() (core.Object, error) {
	p.pos += 2 // skip '<<'

	dict := make(core.Dict)
	for p.pos < len(p.data) {
		p.skipWhitespace()
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			return dict, nil
		}
		if p.pos >= len(p.data) || p.data[p.pos] != '/' {
			return nil, fmt.Errorf("dictionary key must be a name")
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		value, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		dict[string(key.(core.Name))] = value
	}
	return nil, fmt.Errorf("unclosed dictionary")
}

// skipWhitespace advances past PDF whitespace and comments
func (p *Parser) skipWhitespace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) {
			p.pos++
			continue
		}
		if c == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		break
	}
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isDelimiter(c byte) bool {
	return c == '(' || c == ')' || c == '<' || c == '>' ||
		c == '[' || c == ']' || c == '{' || c == '}' ||
		c == '/' || c == '%'
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
