package matcher

import (
	"strconv"
	"strings"
	"testing"

	"github.com/bclement/redline/font"
	"github.com/bclement/redline/model"
)

func match(t *testing.T, payload, target, replacement string, occurrence int, ctx *Context) (string, bool) {
	t.Helper()
	if ctx == nil {
		ctx = &Context{}
	}
	_, edited, ok := Match([]*Stream{NewStream([]byte(payload))}, target, replacement, occurrence, ctx)
	return string(edited), ok
}

// TestLiteralTj tests the exact (target) Tj form
func TestLiteralTj(t *testing.T) {
	out, ok := match(t, "BT /F1 12 Tf 1 0 0 1 50 50 Tm (Hello World) Tj ET", "Hello World", "Hi", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT /F1 12 Tf 1 0 0 1 50 50 Tm (Hi) Tj ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestLiteralDeletion tests that deletion keeps the operator with an
// empty operand
func TestLiteralDeletion(t *testing.T) {
	out, ok := match(t, "BT (Hello World) Tj ET", "Hello World", "", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT () Tj ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestLiteralQuote tests the (target) ' form
func TestLiteralQuote(t *testing.T) {
	out, ok := match(t, "BT (line one) ' (line two) ' ET", "line two", "edited", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	if !strings.Contains(out, "(edited) '") || !strings.Contains(out, "(line one) '") {
		t.Errorf("got %q", out)
	}
}

// TestOccurrenceSelection tests 0-based occurrence indexing: index 1
// rewrites only the second of three identical matches.
func TestOccurrenceSelection(t *testing.T) {
	payload := "BT (Page) Tj (Page) Tj (Page) Tj ET"

	out, ok := match(t, payload, "Page", "First", 0, nil)
	if !ok || !strings.HasPrefix(out, "BT (First) Tj (Page) Tj (Page) Tj") {
		t.Errorf("occurrence 0: %q ok=%v", out, ok)
	}

	out, ok = match(t, payload, "Page", "Second", 1, nil)
	if !ok || !strings.Contains(out, "(Page) Tj (Second) Tj (Page) Tj") {
		t.Errorf("occurrence 1: %q ok=%v", out, ok)
	}

	out, ok = match(t, payload, "Page", "Third", 2, nil)
	if !ok || !strings.Contains(out, "(Page) Tj (Page) Tj (Third) Tj") {
		t.Errorf("occurrence 2: %q ok=%v", out, ok)
	}

	if _, ok = match(t, payload, "Page", "x", 3, nil); ok {
		t.Error("occurrence 3 should not match")
	}
}

// TestOccurrenceAcrossStreams tests that counting carries across
// candidate streams in source order
func TestOccurrenceAcrossStreams(t *testing.T) {
	s1 := NewStream([]byte("BT (Page) Tj ET"))
	s2 := NewStream([]byte("BT (Page) Tj (Page) Tj ET"))

	idx, edited, ok := Match([]*Stream{s1, s2}, "Page", "X", 2, &Context{})
	if !ok {
		t.Fatal("expected match")
	}
	if idx != 1 {
		t.Errorf("expected edit in stream 1, got %d", idx)
	}
	if string(edited) != "BT (Page) Tj (X) Tj ET" {
		t.Errorf("edited = %q", edited)
	}
}

// TestTJArrayConcat tests matching across kerned TJ segments
func TestTJArrayConcat(t *testing.T) {
	out, ok := match(t, "BT [(Hel) -20 (lo Wo) 10 (rld)] TJ ET", "Hello World", "Hi", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT [(Hi) -20 () 10 ()] TJ ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestHexSingleByte tests the single-byte hex string form
func TestHexSingleByte(t *testing.T) {
	// "Hi" as raw bytes in hex
	out, ok := match(t, "BT <4869> Tj ET", "Hi", "By", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT <4279> Tj ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestHexWide tests the UTF-16BE hex string form
func TestHexWide(t *testing.T) {
	// "Hi" as UTF-16BE
	out, ok := match(t, "BT <00480069> Tj ET", "Hi", "By", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT <00420079> Tj ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// testFontMap builds a font map covering the given characters with
// sequential two-byte codes starting at 1.
func testFontMap(t *testing.T, chars string) *font.FontMap {
	t.Helper()
	runes := []rune(chars)
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(runes)))
	b.WriteString(" beginbfchar\n")
	for i, r := range runes {
		b.WriteString("<")
		writeHex16(&b, uint16(i+1))
		b.WriteString("> <")
		writeHex16(&b, uint16(r))
		b.WriteString(">\n")
	}
	b.WriteString("endbfchar\n")
	cmap, err := font.ParseCMapData([]byte(b.String()))
	if err != nil {
		t.Fatalf("cmap parse failed: %v", err)
	}
	return font.NewFontMap("F1", "AAAAAA+Test", cmap)
}

func writeHex16(b *strings.Builder, v uint16) {
	const digits = "0123456789ABCDEF"
	b.WriteByte(digits[v>>12&0xF])
	b.WriteByte(digits[v>>8&0xF])
	b.WriteByte(digits[v>>4&0xF])
	b.WriteByte(digits[v&0xF])
}

// TestFontEncodedHex tests re-encoding the target through a font map
func TestFontEncodedHex(t *testing.T) {
	fm := testFontMap(t, "HeloWrdBy")
	ctx := &Context{Fonts: []*font.FontMap{fm}}

	// "He" in the font's code space: H=0001 e=0002
	out, ok := match(t, "BT <00010002> Tj ET", "He", "By", 0, ctx)
	if !ok {
		t.Fatal("expected match")
	}
	// B=0008, y=0009
	want := "BT <00080009> Tj ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestFontEncodedReplacementUnmappable tests that a font that cannot
// express the replacement does not serve the match
func TestFontEncodedReplacementUnmappable(t *testing.T) {
	fm := testFontMap(t, "He")
	ctx := &Context{Fonts: []*font.FontMap{fm}}

	if _, ok := match(t, "BT <00010002> Tj ET", "He", "Zz", 0, ctx); ok {
		t.Error("expected no match when replacement is not encodable")
	}
	// Deletion needs no encoding
	out, ok := match(t, "BT <00010002> Tj ET", "He", "", 0, ctx)
	if !ok {
		t.Fatal("expected deletion to match")
	}
	if out != "BT <> Tj ET" {
		t.Errorf("got %q", out)
	}
}

// TestTJHexArray tests hex segments in a TJ array decoded via font map
func TestTJHexArray(t *testing.T) {
	fm := testFontMap(t, "HeloWrdBy")
	ctx := &Context{Fonts: []*font.FontMap{fm}}

	// "Hel" split across two hex segments with kerning
	out, ok := match(t, "BT [<0001> -15 <00020003>] TJ ET", "Hel", "By", 0, ctx)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT [<00080009> -15 <>] TJ ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestCharByCharSequence tests the sliding window over per-glyph shows
func TestCharByCharSequence(t *testing.T) {
	payload := "BT (H) Tj 1 0 Td (i) Tj 1 0 Td (!) Tj ET"

	out, ok := match(t, payload, "Hi", "By", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT (By) Tj 1 0 Td () Tj 1 0 Td (!) Tj ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestCharSequenceBrokenRun tests that intervening shown text ends a
// glyph run: single-character shows separated by other text must not
// form a window, since the target never appears on the page there.
func TestCharSequenceBrokenRun(t *testing.T) {
	payload := "BT (H) Tj (zzz) Tj (i) Tj ET"

	if out, ok := match(t, payload, "Hi", "XX", 0, nil); ok {
		t.Errorf("expected no match across intervening text, got %q", out)
	}
}

// TestCharSequenceRunBrokenByTJ tests that an array show also ends a
// glyph run.
func TestCharSequenceRunBrokenByTJ(t *testing.T) {
	payload := "BT (H) Tj [(other)] TJ (i) Tj ET"

	if out, ok := match(t, payload, "Hi", "XX", 0, nil); ok {
		t.Errorf("expected no match across an array show, got %q", out)
	}
}

// TestTJHexDecodeFallsBackPastFont tests the decode priority chain:
// a font that reads the segments as the target but cannot write the
// replacement must not block the raw-byte scheme.
func TestTJHexDecodeFallsBackPastFont(t *testing.T) {
	cmapData := []byte("2 beginbfchar\n<48> <0048>\n<69> <0069>\nendbfchar\n")
	cmap, err := font.ParseCMapData(cmapData)
	if err != nil {
		t.Fatalf("cmap parse failed: %v", err)
	}
	fm := font.NewFontMap("F1", "AAAAAA+Narrow", cmap)
	ctx := &Context{Fonts: []*font.FontMap{fm}}

	// The font decodes <4869> to "Hi" but has no codes for "By"; the
	// raw-byte scheme serves the rewrite instead.
	out, ok := match(t, "BT [<4869>] TJ ET", "Hi", "By", 0, ctx)
	if !ok {
		t.Fatal("expected match via the raw-byte fallback")
	}
	want := "BT [<4279>] TJ ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestSubstringInLiteral tests replacement inside a larger string
func TestSubstringInLiteral(t *testing.T) {
	out, ok := match(t, "BT (The Hello World text) Tj ET", "Hello World", "Hi", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT (The Hi text) Tj ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestSubstringAcrossTJSegments tests a span crossing segment borders
func TestSubstringAcrossTJSegments(t *testing.T) {
	out, ok := match(t, "BT [(say Hel) -10 (lo now)] TJ ET", "Hello", "Bye", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT [(say Bye) -10 ( now)] TJ ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestPositionDelete tests the rectangle fallback for text that exists
// in no string form
func TestPositionDelete(t *testing.T) {
	payload := "BT 1 0 0 1 100 700 Tm (opaque glyphs) Tj 1 0 0 1 100 100 Tm (keep) Tj ET"
	rect := model.NewBBox(90, 690, 200, 20)
	ctx := &Context{Rect: &rect}

	// Target that matches nothing textually
	out, ok := match(t, payload, "", "", 0, ctx)
	if !ok {
		t.Fatal("expected position fallback to fire")
	}
	want := "BT 1 0 0 1 100 700 Tm () Tj 1 0 0 1 100 100 Tm (keep) Tj ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestPositionDeleteRequiresRect tests that the fallback stays off
// without a rectangle or for replacements
func TestPositionDeleteRequiresRect(t *testing.T) {
	payload := "BT 1 0 0 1 100 700 Tm (x) Tj ET"

	if _, ok := match(t, payload, "", "", 0, nil); ok {
		t.Error("expected no match without rect")
	}

	rect := model.NewBBox(0, 0, 1000, 1000)
	ctx := &Context{Rect: &rect}
	if _, ok := match(t, payload, "", "replacement", 0, ctx); ok {
		t.Error("expected no position fallback for replacement")
	}
}

// TestNoMatchLeavesNothing tests the NotFound outcome
func TestNoMatchLeavesNothing(t *testing.T) {
	if _, ok := match(t, "BT (something else) Tj ET", "absent text", "x", 0, nil); ok {
		t.Error("expected no match")
	}
}

// TestEscapedReplacement tests escaping of special characters in the
// replacement literal
func TestEscapedReplacement(t *testing.T) {
	out, ok := match(t, "BT (plain) Tj ET", "plain", "a(b)c\\d", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := `BT (a\(b\)c\\d) Tj ET`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestStrategyOrder tests that the exact Tj form wins over substring
// matching when both could apply
func TestStrategyOrder(t *testing.T) {
	payload := "BT (xHix) Tj (Hi) Tj ET"

	// Exact (Hi) Tj exists, so strategy 1 edits it even though the
	// substring strategy would have found the first operand.
	out, ok := match(t, payload, "Hi", "Yo", 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	want := "BT (xHix) Tj (Yo) Tj ET"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}
