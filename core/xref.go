package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// XRefEntry represents a single cross-reference entry
type XRefEntry struct {
	Offset     int64 // Byte offset in file (for in-use objects)
	Generation int   // Generation number
	InUse      bool  // true if object is in use, false if free

	// Compressed entries (xref stream type 2) live inside an object stream
	// instead of at a byte offset.
	InObjectStream bool
	StreamNumber   int // Object number of the containing object stream
	StreamIndex    int // Index of the object within that stream
}

// XRefTable represents a PDF cross-reference table: the document-wide index
// mapping object numbers to byte offsets. In-place patching depends on this
// index staying valid, which is why the patcher never moves a byte.
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// FindStartXRef locates the byte offset of the most recent xref section by
// scanning backwards from EOF for the "startxref" keyword.
func FindStartXRef(data []byte) (int, error) {
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found")
	}

	lexer := NewLexer(tail)
	lexer.Seek(idx + len("startxref"))
	tok, err := lexer.NextToken()
	if err != nil || tok.Type != TokenInteger {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	offset, err := strconv.Atoi(string(tok.Value))
	if err != nil {
		return 0, fmt.Errorf("invalid startxref offset: %w", err)
	}
	if offset < 0 || offset >= len(data) {
		return 0, fmt.Errorf("startxref offset %d out of range", offset)
	}
	return offset, nil
}

// ParseXRefAt parses the cross-reference section at the given byte offset.
// Both classic "xref" tables (PDF 1.0-1.4) and xref streams (PDF 1.5+) are
// handled.
func ParseXRefAt(data []byte, offset int) (*XRefTable, error) {
	if offset < 0 || offset >= len(data) {
		return nil, fmt.Errorf("xref offset %d out of range", offset)
	}

	lexer := NewLexer(data)
	lexer.Seek(offset)
	tok, err := lexer.NextToken()
	if err != nil {
		return nil, fmt.Errorf("failed to read xref section: %w", err)
	}

	if tok.Type == TokenKeyword && bytes.Equal(tok.Value, []byte("xref")) {
		return parseClassicXRef(data, lexer)
	}

	// Must be an xref stream: "num gen obj << ... >> stream"
	parser := NewParserAt(data, offset)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref section is neither a table nor a stream: %w", err)
	}
	stream, ok := indObj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref object is not a stream: %T", indObj.Object)
	}
	return parseXRefStream(stream)
}

// parseClassicXRef parses subsections and the trailer after the "xref"
// keyword. Entries are "nnnnnnnnnn ggggg n|f".
func parseClassicXRef(data []byte, lexer *Lexer) (*XRefTable, error) {
	table := NewXRefTable()

	for {
		tok, err := lexer.NextToken()
		if err != nil {
			return nil, fmt.Errorf("failed to read xref subsection: %w", err)
		}

		if tok.Type == TokenKeyword && bytes.Equal(tok.Value, []byte("trailer")) {
			parser := NewParserAt(data, lexer.Pos())
			obj, err := parser.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary: %T", obj)
			}
			table.Trailer = trailer
			return table, nil
		}

		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("invalid xref subsection header at position %d", tok.Pos)
		}
		firstObjNum, err := strconv.Atoi(string(tok.Value))
		if err != nil {
			return nil, fmt.Errorf("invalid first object number: %w", err)
		}

		tok, err = lexer.NextToken()
		if err != nil || tok.Type != TokenInteger {
			return nil, fmt.Errorf("invalid xref subsection count")
		}
		count, err := strconv.Atoi(string(tok.Value))
		if err != nil {
			return nil, fmt.Errorf("invalid xref subsection count: %w", err)
		}

		for i := 0; i < count; i++ {
			entry, err := parseClassicEntry(lexer)
			if err != nil {
				return nil, fmt.Errorf("failed to parse xref entry %d: %w", firstObjNum+i, err)
			}
			table.Set(firstObjNum+i, entry)
		}
	}
}

// parseClassicEntry reads one "offset generation flag" triple
func parseClassicEntry(lexer *Lexer) (*XRefEntry, error) {
	offTok, err := lexer.NextToken()
	if err != nil || offTok.Type != TokenInteger {
		return nil, fmt.Errorf("invalid entry offset")
	}
	offset, err := strconv.ParseInt(string(offTok.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid entry offset: %w", err)
	}

	genTok, err := lexer.NextToken()
	if err != nil || genTok.Type != TokenInteger {
		return nil, fmt.Errorf("invalid entry generation")
	}
	gen, err := strconv.Atoi(string(genTok.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid entry generation: %w", err)
	}

	flagTok, err := lexer.NextToken()
	if err != nil || flagTok.Type != TokenKeyword {
		return nil, fmt.Errorf("invalid entry flag")
	}

	var inUse bool
	switch string(flagTok.Value) {
	case "n":
		inUse = true
	case "f":
		inUse = false
	default:
		return nil, fmt.Errorf("invalid entry flag %q", flagTok.Value)
	}

	return &XRefEntry{Offset: offset, Generation: gen, InUse: inUse}, nil
}

// parseXRefStream decodes a /Type /XRef stream. Entry fields are packed
// big-endian with widths from /W; /Index gives (first, count) pairs and
// defaults to [0 Size].
func parseXRefStream(stream *Stream) (*XRefTable, error) {
	typeName, _ := stream.Dict.GetName("Type")
	if typeName != "XRef" {
		return nil, fmt.Errorf("stream is not an xref stream: /Type %s", typeName)
	}

	wArr, ok := stream.Dict.GetArray("W")
	if !ok || len(wArr) < 3 {
		return nil, fmt.Errorf("xref stream missing /W array")
	}
	widths := make([]int, 3)
	for i := 0; i < 3; i++ {
		w, ok := wArr[i].(Int)
		if !ok || w < 0 || w > 8 {
			return nil, fmt.Errorf("invalid /W field %d", i)
		}
		widths[i] = int(w)
	}
	entrySize := widths[0] + widths[1] + widths[2]
	if entrySize == 0 {
		return nil, fmt.Errorf("xref stream has zero-width entries")
	}

	size, ok := stream.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}

	var index []int
	if idxArr, ok := stream.Dict.GetArray("Index"); ok {
		for _, elem := range idxArr {
			n, ok := elem.(Int)
			if !ok {
				return nil, fmt.Errorf("invalid /Index element: %T", elem)
			}
			index = append(index, int(n))
		}
	} else {
		index = []int{0, int(size)}
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("odd /Index length %d", len(index))
	}

	decoded, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict

	pos := 0
	for pair := 0; pair < len(index); pair += 2 {
		first, count := index[pair], index[pair+1]
		for i := 0; i < count; i++ {
			if pos+entrySize > len(decoded) {
				return nil, fmt.Errorf("xref stream truncated at entry %d", first+i)
			}

			// Field 1 defaults to type 1 when its width is zero
			fieldType := int64(1)
			if widths[0] > 0 {
				fieldType = readBigEndian(decoded[pos : pos+widths[0]])
			}
			f2 := readBigEndian(decoded[pos+widths[0] : pos+widths[0]+widths[1]])
			f3 := readBigEndian(decoded[pos+widths[0]+widths[1] : pos+entrySize])
			pos += entrySize

			objNum := first + i
			switch fieldType {
			case 0: // free
				table.Set(objNum, &XRefEntry{Offset: f2, Generation: int(f3), InUse: false})
			case 1: // in use at byte offset
				table.Set(objNum, &XRefEntry{Offset: f2, Generation: int(f3), InUse: true})
			case 2: // compressed, inside an object stream
				table.Set(objNum, &XRefEntry{
					InUse:          true,
					InObjectStream: true,
					StreamNumber:   int(f2),
					StreamIndex:    int(f3),
				})
			default:
				// Unknown entry types are reserved; treat like free
			}
		}
	}

	return table, nil
}

// readBigEndian decodes an unsigned big-endian integer of up to 8 bytes
func readBigEndian(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// ParseAllXRefs parses the newest xref section and every /Prev section
// behind it, returning a single merged table. Newer entries override older
// ones. Hybrid-reference files (/XRefStm) pick up their stream entries at
// lower precedence than the classic section that points to them.
func ParseAllXRefs(data []byte) (*XRefTable, error) {
	offset, err := FindStartXRef(data)
	if err != nil {
		return nil, err
	}

	merged := NewXRefTable()
	seen := make(map[int]bool)

	var visit func(offset int, newest bool) error
	visit = func(offset int, newest bool) error {
		if seen[offset] {
			return nil // Cycle guard for corrupt Prev chains
		}
		seen[offset] = true

		table, err := ParseXRefAt(data, offset)
		if err != nil {
			return err
		}

		// Recurse into older sections first so newer entries win the merge
		if prev, ok := table.Trailer.GetInt("Prev"); ok {
			if err := visit(int(prev), false); err != nil {
				return err
			}
		}
		if xrefStm, ok := table.Trailer.GetInt("XRefStm"); ok {
			if err := visit(int(xrefStm), false); err != nil {
				return err
			}
		}

		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		if newest {
			merged.Trailer = table.Trailer
		}
		return nil
	}

	if err := visit(offset, true); err != nil {
		return nil, err
	}
	return merged, nil
}
