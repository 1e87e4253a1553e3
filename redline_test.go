package redline

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/bclement/redline/internal/filters"
	"github.com/bclement/redline/locator"
	"github.com/bclement/redline/model"
)

// docBuilder assembles a classic-xref PDF in memory with correct byte
// offsets.
type docBuilder struct {
	buf     bytes.Buffer
	offsets []int
}

func newDocBuilder() *docBuilder {
	b := &docBuilder{}
	b.buf.WriteString("%PDF-1.4\n")
	return b
}

func (b *docBuilder) mark(num int) {
	for len(b.offsets) <= num {
		b.offsets = append(b.offsets, 0)
	}
	b.offsets[num] = b.buf.Len()
}

func (b *docBuilder) add(num int, body string) {
	b.mark(num)
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (b *docBuilder) addStream(num int, dict string, data []byte) {
	b.mark(num)
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nstream\n", num, dict)
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
}

func (b *docBuilder) finish(root int) []byte {
	start := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", len(b.offsets))
	b.buf.WriteString("0000000000 65535 f \n")
	for _, off := range b.offsets[1:] {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(b.offsets), root, start)
	return b.buf.Bytes()
}

func mustEncode(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := filters.Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	return enc
}

// buildOnePagePDF wraps one content stream in a minimal document
func buildOnePagePDF(t *testing.T, content []byte, compressed bool) []byte {
	t.Helper()
	b := newDocBuilder()
	b.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")
	if compressed {
		enc := mustEncode(t, content)
		b.addStream(4, fmt.Sprintf("<< /Length %d /Filter /FlateDecode >>", len(enc)), enc)
	} else {
		b.addStream(4, fmt.Sprintf("<< /Length %d >>", len(content)), content)
	}
	b.add(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	return b.finish(1)
}

func TestReplaceLiteral(t *testing.T) {
	content := []byte("BT /F1 12 Tf 1 0 0 1 50 50 Tm (Hello World) Tj ET")
	doc := buildOnePagePDF(t, content, false)

	out, _, err := Load(doc).Replace("Hello World", "Hi")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if len(out) != len(doc) {
		t.Fatalf("output length %d, input length %d", len(out), len(doc))
	}
	if !bytes.Contains(out, []byte("(Hi) Tj")) {
		t.Error("replacement not found in output")
	}
	if bytes.Contains(out, []byte("Hello World")) {
		t.Error("target still present in output")
	}
}

func TestRemoveKeepsOperator(t *testing.T) {
	content := []byte("BT (Hello World) Tj ET")
	doc := buildOnePagePDF(t, content, false)

	out, _, err := Load(doc).Remove("Hello World")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !bytes.Contains(out, []byte("() Tj")) {
		t.Error("expected emptied operand with operator intact")
	}
	if len(out) != len(doc) {
		t.Errorf("output length %d, input length %d", len(out), len(doc))
	}
}

func TestReplaceCompressed(t *testing.T) {
	content := []byte("BT /F1 12 Tf 1 0 0 1 50 50 Tm (Hello World) Tj " +
		"0 -20 Td (filler text filler text filler text) Tj ET")
	doc := buildOnePagePDF(t, content, true)

	out, _, err := Load(doc).Replace("Hello World", "Hi")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if len(out) != len(doc) {
		t.Fatalf("output length %d, input length %d", len(out), len(doc))
	}
	// The patched span must inflate to the edited content
	cands, _ := locator.Scan(out)
	if len(cands) != 1 {
		t.Fatalf("found %d candidates in output, want 1", len(cands))
	}
	if !bytes.Contains(cands[0].Payload, []byte("(Hi) Tj")) {
		t.Errorf("patched stream = %q", cands[0].Payload)
	}
}

func TestNotFoundLeavesInputAlone(t *testing.T) {
	doc := buildOnePagePDF(t, []byte("BT (something) Tj ET"), false)
	orig := append([]byte(nil), doc...)

	out, _, err := Load(doc).Replace("absent text", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if out != nil {
		t.Error("expected nil output on NotFound")
	}
	if !bytes.Equal(doc, orig) {
		t.Error("input buffer was mutated")
	}
}

func TestOccurrenceSelectsMatch(t *testing.T) {
	content := []byte("BT (Page) Tj (Page) Tj (Page) Tj ET")
	doc := buildOnePagePDF(t, content, false)

	// Index 1 edits the second of three identical matches; the first
	// and third stay byte-identical.
	out, _, err := Load(doc).Occurrence(1).Replace("Page", "Last")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if !bytes.Contains(out, []byte("(Page) Tj (Last) Tj (Page) Tj")) {
		t.Error("occurrence index 1 did not edit the second match")
	}
}

func TestSizeExceeded(t *testing.T) {
	content := []byte("BT (Hi) Tj ET")
	doc := buildOnePagePDF(t, content, false)

	_, warnings, err := Load(doc).Replace("Hi", "a replacement far too long for the span")
	if !errors.Is(err, ErrSizeExceeded) {
		t.Fatalf("err = %v, want ErrSizeExceeded", err)
	}
	found := false
	for _, w := range warnings {
		if w.Kind == model.WarnSizeExceeded {
			found = true
		}
	}
	if !found {
		t.Error("expected a size exceeded warning")
	}
}

func TestPageRestriction(t *testing.T) {
	b := newDocBuilder()
	b.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.add(2, "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>")
	b.add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 5 0 R >>")
	b.add(4, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 6 0 R >>")
	// Both pages show the target, in distinct streams
	first := []byte("BT (Hello) Tj (more) Tj ET")
	second := []byte("BT (Hello) Tj ET")
	b.addStream(5, fmt.Sprintf("<< /Length %d >>", len(first)), first)
	b.addStream(6, fmt.Sprintf("<< /Length %d >>", len(second)), second)
	doc := b.finish(1)

	out, _, err := Load(doc).Page(2).Replace("Hello", "Howdy")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if !bytes.Contains(out, first) {
		t.Error("page 1 stream should be untouched")
	}
	if !bytes.Contains(out, []byte("(Howdy) Tj ET")) {
		t.Error("page 2 stream should carry the replacement")
	}
}

func TestFontEncodedEndToEnd(t *testing.T) {
	// H=0001 e=0002 B=0003 y=0004 in the font's code space
	cmapData := []byte("4 beginbfchar\n" +
		"<0001> <0048>\n<0002> <0065>\n<0003> <0042>\n<0004> <0079>\n" +
		"endbfchar\n")

	b := newDocBuilder()
	b.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")
	content := []byte("BT /F1 12 Tf <00010002> Tj ET")
	b.addStream(4, fmt.Sprintf("<< /Length %d >>", len(content)), content)
	b.add(5, "<< /Type /Font /Subtype /Type0 /BaseFont /AAAAAA+Test /ToUnicode 6 0 R >>")
	b.addStream(6, fmt.Sprintf("<< /Length %d >>", len(cmapData)), cmapData)
	doc := b.finish(1)

	out, _, err := Load(doc).Replace("He", "By")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if !bytes.Contains(out, []byte("<00030004> Tj")) {
		t.Error("expected the replacement re-encoded through the font map")
	}
}

func TestDamagedDocumentFallsBack(t *testing.T) {
	// No valid header or xref, but a recognizable content stream
	doc := []byte("not a pdf at all\n" +
		"1 0 obj\n<< /Length 22 >>\nstream\n" +
		"BT (Hello World) Tj ET" +
		"\nendstream\nendobj\n")

	out, _, err := Load(doc).Replace("Hello World", "Hi")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if len(out) != len(doc) {
		t.Fatalf("output length %d, input length %d", len(out), len(doc))
	}
	if !bytes.Contains(out, []byte("(Hi) Tj")) {
		t.Error("replacement not found in output")
	}
}

func TestWithinDeletesByPosition(t *testing.T) {
	content := []byte("BT 1 0 0 1 100 700 Tm (secret) Tj 1 0 0 1 100 100 Tm (keep) Tj ET")
	doc := buildOnePagePDF(t, content, false)

	rect := model.NewBBox(90, 690, 100, 20)
	out, _, err := Load(doc).Within(rect).Remove("unfindable glyph soup")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if bytes.Contains(out, []byte("(secret)")) {
		t.Error("text inside the rectangle survived")
	}
	if !bytes.Contains(out, []byte("(keep) Tj")) {
		t.Error("text outside the rectangle was lost")
	}
}

func TestTargetNormalization(t *testing.T) {
	content := []byte("BT (caf\xc3\xa9) Tj ET") // composed form in the stream
	doc := buildOnePagePDF(t, content, false)

	// Decomposed e + combining acute, with surrounding whitespace
	out, _, err := Load(doc).Replace("  café  ", "bar")
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if !bytes.Contains(out, []byte("(bar) Tj")) {
		t.Error("normalized target did not match")
	}
}
