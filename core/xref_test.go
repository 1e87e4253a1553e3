package core

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/bclement/redline/internal/filters"
)

// buildClassicPDF assembles a minimal PDF with a classic xref table and
// returns the buffer.
func buildClassicPDF(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make(map[int]int)

	offsets[1] = buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = buf.Len()
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n")

	xrefPos := buf.Len()
	buf.WriteString("xref\n0 3\n")
	buf.WriteString("0000000000 65535 f \n")
	fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[1])
	fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[2])
	buf.WriteString("trailer\n<< /Size 3 /Root 1 0 R >>\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefPos)

	return buf.Bytes()
}

// TestFindStartXRef tests locating the xref offset from the file tail
func TestFindStartXRef(t *testing.T) {
	data := buildClassicPDF(t)

	offset, err := FindStartXRef(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data[offset:], []byte("xref")) {
		t.Errorf("offset %d does not point at xref keyword", offset)
	}
}

// TestParseClassicXRef tests parsing a classic table with trailer
func TestParseClassicXRef(t *testing.T) {
	data := buildClassicPDF(t)

	table, err := ParseAllXRefs(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(table.Entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(table.Entries))
	}

	entry, ok := table.Get(0)
	if !ok || entry.InUse {
		t.Error("object 0 should be a free entry")
	}

	entry, ok = table.Get(1)
	if !ok || !entry.InUse {
		t.Fatal("object 1 should be in use")
	}
	if !bytes.HasPrefix(data[entry.Offset:], []byte("1 0 obj")) {
		t.Errorf("entry 1 offset %d does not point at the object", entry.Offset)
	}

	if root := table.Trailer.Get("Root"); root == nil {
		t.Error("trailer missing /Root")
	}
}

// TestParseXRefStream tests the PDF 1.5 xref stream form, including the
// flate codec path
func TestParseXRefStream(t *testing.T) {
	// Three entries with W [1 2 1]: free, offset 17, compressed (in
	// object stream 5 at index 2).
	raw := []byte{
		0, 0x00, 0x00, 0xFF, // type 0: free
		1, 0x00, 0x11, 0x00, // type 1: offset 17 gen 0
		2, 0x00, 0x05, 0x02, // type 2: objstm 5 index 2
	}
	encoded, err := filters.Encode(raw)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "9 0 obj\n<< /Type /XRef /Size 3 /W [1 2 1] /Filter /FlateDecode /Length %d /Root 1 0 R >>\nstream\n", len(encoded))
	buf.Write(encoded)
	buf.WriteString("\nendstream\nendobj\n")

	table, err := ParseXRefAt(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry, ok := table.Get(0); !ok || entry.InUse {
		t.Error("object 0 should be free")
	}
	if entry, ok := table.Get(1); !ok || !entry.InUse || entry.Offset != 17 {
		t.Errorf("object 1 should be in use at offset 17, got %+v", entry)
	}
	entry, ok := table.Get(2)
	if !ok || !entry.InObjectStream {
		t.Fatalf("object 2 should be compressed, got %+v", entry)
	}
	if entry.StreamNumber != 5 || entry.StreamIndex != 2 {
		t.Errorf("expected objstm 5 index 2, got %+v", entry)
	}
}

// TestIncrementalUpdateMerge tests that newer xref sections override older
// ones through the /Prev chain
func TestIncrementalUpdateMerge(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	obj1Old := buf.Len()
	buf.WriteString("1 0 obj\n<< /Version 1 >>\nendobj\n")

	xref1 := buf.Len()
	buf.WriteString("xref\n0 2\n")
	buf.WriteString("0000000000 65535 f \n")
	fmt.Fprintf(&buf, "%010d 00000 n \n", obj1Old)
	buf.WriteString("trailer\n<< /Size 2 /Root 1 0 R >>\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref1)

	// Incremental update replacing object 1
	obj1New := buf.Len()
	buf.WriteString("1 0 obj\n<< /Version 2 >>\nendobj\n")

	xref2 := buf.Len()
	buf.WriteString("xref\n1 1\n")
	fmt.Fprintf(&buf, "%010d 00000 n \n", obj1New)
	fmt.Fprintf(&buf, "trailer\n<< /Size 2 /Root 1 0 R /Prev %d >>\n", xref1)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref2)

	table, err := ParseAllXRefs(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, ok := table.Get(1)
	if !ok {
		t.Fatal("object 1 missing")
	}
	if entry.Offset != int64(obj1New) {
		t.Errorf("expected newest offset %d, got %d", obj1New, entry.Offset)
	}
}

// TestObjectStream tests object extraction from a /Type /ObjStm stream
func TestObjectStream(t *testing.T) {
	// Two objects: 3 -> << /A 1 >>, 4 -> (text)
	body := "<< /A 1 >> (text)"
	header := "3 0 4 11 "
	payload := header + body
	first := len(header)

	encoded, err := filters.Encode([]byte(payload))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	stream := &Stream{
		Dict: Dict{
			"Type":   Name("ObjStm"),
			"N":      Int(2),
			"First":  Int(first),
			"Filter": Name("FlateDecode"),
			"Length": Int(len(encoded)),
		},
		Data: encoded,
	}

	objStm, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obj, err := objStm.GetObjectByNumber(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dict, ok := obj.(Dict)
	if !ok {
		t.Fatalf("expected Dict, got %T", obj)
	}
	if a, _ := dict.GetInt("A"); a != 1 {
		t.Errorf("expected /A 1, got %v", a)
	}

	obj, err = objStm.GetObjectByNumber(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := obj.(String); !ok || s != "text" {
		t.Errorf("expected (text), got %v", obj)
	}

	if _, err := objStm.GetObjectByNumber(99); err == nil {
		t.Error("expected error for missing object")
	}
}
