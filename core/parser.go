package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver is an interface for resolving indirect references.
// The parser needs one when a stream /Length is stored indirectly.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser parses PDF objects from an in-memory buffer using a Lexer for
// tokenization. It supports all PDF object types including indirect
// objects and streams.
type Parser struct {
	lexer    *Lexer
	cur      Token
	peek     Token
	resolver ReferenceResolver
}

// NewParser creates a new PDF parser over data
func NewParser(data []byte) *Parser {
	return NewParserAt(data, 0)
}

// NewParserAt creates a parser positioned at an absolute byte offset,
// which is how objects located through the xref table are read.
func NewParserAt(data []byte, offset int) *Parser {
	p := &Parser{lexer: NewLexer(data)}
	p.lexer.Seek(offset)
	// Load the two-token lookahead
	p.next()
	p.next()
	return p
}

// SetReferenceResolver sets the resolver used for indirect stream lengths
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// next shifts the lookahead window forward by one token
func (p *Parser) next() {
	p.cur = p.peek

	// Once a 'stream' keyword is current, the bytes that follow are binary
	// payload. parseStream repositions the lexer itself; reading another
	// token here would try to tokenize the binary data.
	if p.cur.Type == TokenKeyword && bytes.Equal(p.cur.Value, []byte("stream")) {
		p.peek = Token{Type: TokenEOF, Pos: p.cur.Pos}
		return
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		// Treat unlexable input as the end of parsable data
		tok = Token{Type: TokenEOF, Pos: p.lexer.Pos()}
	}
	p.peek = tok
}

// ParseObject parses and returns the next PDF object from the input.
func (p *Parser) ParseObject() (Object, error) {
	switch p.cur.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenKeyword:
		switch string(p.cur.Value) {
		case "null":
			p.next()
			return Null{}, nil
		case "true":
			p.next()
			return Bool(true), nil
		case "false":
			p.next()
			return Bool(false), nil
		default:
			return nil, fmt.Errorf("unexpected keyword %q at position %d", p.cur.Value, p.cur.Pos)
		}

	case TokenInteger:
		return p.parseNumber()

	case TokenReal:
		val, err := strconv.ParseFloat(string(p.cur.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number: %w", err)
		}
		p.next()
		return Real(val), nil

	case TokenString:
		val := string(p.cur.Value)
		p.next()
		return String(val), nil

	case TokenHexString:
		decoded := decodeHexDigits(p.cur.Value)
		p.next()
		return HexString(decoded), nil

	case TokenName:
		val := string(p.cur.Value)
		p.next()
		return Name(val), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()

	default:
		return nil, fmt.Errorf("unexpected token type %v at position %d", p.cur.Type, p.cur.Pos)
	}
}

// parseNumber parses an integer, or an indirect reference when the input
// matches the "num gen R" pattern.
func (p *Parser) parseNumber() (Object, error) {
	first, err := strconv.ParseInt(string(p.cur.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q: %w", p.cur.Value, err)
	}

	if p.peek.Type == TokenInteger {
		second, err := strconv.ParseInt(string(p.peek.Value), 10, 64)
		if err == nil {
			p.next() // now at the second integer
			if p.peek.Type == TokenKeyword && bytes.Equal(p.peek.Value, []byte("R")) {
				p.next() // at R
				p.next() // past R
				return IndirectRef{Number: int(first), Generation: int(second)}, nil
			}
			// Not a reference; the second integer stays current
			return Int(first), nil
		}
	}

	p.next()
	return Int(first), nil
}

// parseArray parses a PDF array "[obj1 obj2 ...]"
func (p *Parser) parseArray() (Object, error) {
	p.next() // consume '['

	var arr Array
	for {
		if p.cur.Type == TokenArrayEnd {
			p.next()
			return arr, nil
		}
		if p.cur.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected EOF in array")
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

// parseDict parses a PDF dictionary "<< /Key value ... >>"
func (p *Parser) parseDict() (Object, error) {
	p.next() // consume '<<'

	dict := make(Dict)
	for {
		if p.cur.Type == TokenDictEnd {
			p.next()
			return dict, nil
		}
		if p.cur.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected EOF in dictionary")
		}
		if p.cur.Type != TokenName {
			return nil, fmt.Errorf("expected name for dictionary key at position %d, got %v", p.cur.Pos, p.cur.Type)
		}
		key := string(p.cur.Value)
		p.next()

		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing dictionary value for key %q: %w", key, err)
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses an indirect object definition:
// "num gen obj <object> endobj", with an optional stream payload between
// the object dictionary and endobj.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	if p.cur.Type != TokenInteger {
		return nil, fmt.Errorf("expected object number at position %d, got %v", p.cur.Pos, p.cur.Type)
	}
	num, err := strconv.Atoi(string(p.cur.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid object number: %w", err)
	}
	p.next()

	if p.cur.Type != TokenInteger {
		return nil, fmt.Errorf("expected generation number at position %d, got %v", p.cur.Pos, p.cur.Type)
	}
	gen, err := strconv.Atoi(string(p.cur.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid generation number: %w", err)
	}
	p.next()

	if p.cur.Type != TokenKeyword || !bytes.Equal(p.cur.Value, []byte("obj")) {
		return nil, fmt.Errorf("expected 'obj' keyword at position %d", p.cur.Pos)
	}
	p.next()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("error parsing indirect object value: %w", err)
	}

	if p.cur.Type == TokenKeyword && bytes.Equal(p.cur.Value, []byte("stream")) {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream keyword must follow a dictionary, got %T", obj)
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("error parsing stream: %w", err)
		}
		obj = stream
	}

	if p.cur.Type != TokenKeyword || !bytes.Equal(p.cur.Value, []byte("endobj")) {
		return nil, fmt.Errorf("expected 'endobj' keyword at position %d", p.cur.Pos)
	}
	p.next()

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen},
		Object: obj,
	}, nil
}

// parseStream reads the binary payload that follows a 'stream' keyword.
// The payload length comes from the /Length entry; if that turns out to be
// wrong or unavailable, the payload is recovered by scanning for the
// 'endstream' keyword instead.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	data := p.lexer.data

	// The payload starts after the keyword and a single EOL (LF or CRLF)
	start := p.cur.Pos + len("stream")
	if start < len(data) && data[start] == '\r' {
		start++
	}
	if start < len(data) && data[start] == '\n' {
		start++
	}

	length, lengthOK := p.streamLength(dict)

	var payload []byte
	end := -1
	if lengthOK && start+length <= len(data) {
		candidate := data[start : start+length]
		// Trust /Length only if 'endstream' actually follows
		rest := data[start+length:]
		trimmed := skipEOL(rest)
		if bytes.HasPrefix(trimmed, []byte("endstream")) {
			payload = candidate
			end = start + length
		}
	}
	if payload == nil {
		// Recover by scanning for the terminator
		idx := bytes.Index(data[start:], []byte("endstream"))
		if idx < 0 {
			return nil, fmt.Errorf("stream at position %d has no endstream terminator", p.cur.Pos)
		}
		end = start + idx
		payload = trimTrailingEOL(data[start:end])
	}

	// Reposition the lexer after the payload and resume tokenizing
	p.lexer.Seek(end)
	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, fmt.Errorf("failed to read token after stream payload: %w", err)
	}
	if tok.Type != TokenKeyword || !bytes.Equal(tok.Value, []byte("endstream")) {
		return nil, fmt.Errorf("expected 'endstream' after payload, got %q", tok.Value)
	}

	// Reload the lookahead window
	p.next()
	p.next()

	return &Stream{Dict: dict, Data: payload, Offset: start}, nil
}

// streamLength extracts the stream length from the dictionary, resolving
// an indirect reference when a resolver is available.
func (p *Parser) streamLength(dict Dict) (int, bool) {
	switch v := dict.Get("Length").(type) {
	case Int:
		if v >= 0 {
			return int(v), true
		}
	case IndirectRef:
		if p.resolver == nil {
			return 0, false
		}
		resolved, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, false
		}
		if n, ok := resolved.(Int); ok && n >= 0 {
			return int(n), true
		}
	}
	return 0, false
}

// decodeHexDigits converts hex-string token digits to raw bytes, padding
// an odd final digit with zero per the PDF convention.
func decodeHexDigits(digits []byte) string {
	var buf bytes.Buffer
	for i := 0; i < len(digits); i += 2 {
		hi := hexValue(digits[i])
		var lo byte
		if i+1 < len(digits) {
			lo = hexValue(digits[i+1])
		}
		buf.WriteByte(hi<<4 | lo)
	}
	return buf.String()
}

// skipEOL returns data with one leading EOL (LF, CR, or CRLF) removed
func skipEOL(data []byte) []byte {
	if len(data) > 0 && data[0] == '\r' {
		data = data[1:]
	}
	if len(data) > 0 && data[0] == '\n' {
		data = data[1:]
	}
	return data
}

// trimTrailingEOL returns data with one trailing EOL removed
func trimTrailingEOL(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	if len(data) > 0 && data[len(data)-1] == '\r' {
		data = data[:len(data)-1]
	}
	return data
}
