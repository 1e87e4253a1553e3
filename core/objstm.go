package core

import (
	"fmt"
	"strconv"
)

// ObjectStream represents a PDF object stream (/Type /ObjStm, PDF 1.5+),
// which packs multiple non-stream objects into one compressed stream.
// Fonts and resource dictionaries in modern files frequently live here,
// so the reader must be able to open them.
type ObjectStream struct {
	n       int
	first   int
	decoded []byte
	offsets []objStmEntry
}

// objStmEntry pairs an object number with its offset in the decoded data
type objStmEntry struct {
	objNum int
	offset int
}

// NewObjectStream decodes a /Type /ObjStm stream and parses its header of
// (object number, offset) pairs.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if typeName, _ := stream.Dict.GetName("Type"); typeName != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream: /Type %s", typeName)
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First")
	}

	decoded, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode object stream: %w", err)
	}
	if int(first) > len(decoded) {
		return nil, fmt.Errorf("/First offset %d exceeds decoded length %d", first, len(decoded))
	}

	os := &ObjectStream{
		n:       int(n),
		first:   int(first),
		decoded: decoded,
		offsets: make([]objStmEntry, 0, n),
	}
	if err := os.parseHeader(); err != nil {
		return nil, err
	}
	return os, nil
}

// parseHeader reads the N (objNum, offset) integer pairs preceding /First
func (os *ObjectStream) parseHeader() error {
	lexer := NewLexer(os.decoded[:os.first])
	for i := 0; i < os.n; i++ {
		objNum, err := nextInt(lexer)
		if err != nil {
			return fmt.Errorf("object stream header entry %d: %w", i, err)
		}
		offset, err := nextInt(lexer)
		if err != nil {
			return fmt.Errorf("object stream header entry %d: %w", i, err)
		}
		os.offsets = append(os.offsets, objStmEntry{objNum: objNum, offset: offset})
	}
	return nil
}

// GetObjectByNumber extracts the object with the given number, or an error
// if it is not stored in this stream.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, error) {
	for i, entry := range os.offsets {
		if entry.objNum != objNum {
			continue
		}

		start := os.first + entry.offset
		end := len(os.decoded)
		if i+1 < len(os.offsets) {
			end = os.first + os.offsets[i+1].offset
		}
		if start > len(os.decoded) || end > len(os.decoded) || start > end {
			return nil, fmt.Errorf("object %d offset out of range", objNum)
		}

		parser := NewParser(os.decoded[start:end])
		obj, err := parser.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
		}
		return obj, nil
	}
	return nil, fmt.Errorf("object %d not found in object stream", objNum)
}

// nextInt reads one integer token
func nextInt(lexer *Lexer) (int, error) {
	tok, err := lexer.NextToken()
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("expected integer, got %v", tok.Type)
	}
	return strconv.Atoi(string(tok.Value))
}
