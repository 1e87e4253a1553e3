package matcher

import (
	"strings"

	"github.com/bclement/redline/contentstream"
	"github.com/bclement/redline/font"
)

// charSequence matches text drawn one character per show operation, the
// per-glyph positioning style some producers emit. A window of
// consecutive single-character shows spelling the target is rewritten
// as a whole: the replacement lands in the first operation, the rest
// are emptied.
type charSequence struct{}

func (charSequence) Name() string { return "char sequence" }

// glyphOp is one single-character show operation
type glyphOp struct {
	operand contentstream.Operand
	char    string
	isHex   bool
	fm      *font.FontMap // nil when decoded as a raw byte
}

func (charSequence) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	targetRunes := []rune(target)
	if len(targetRunes) < 2 {
		// Single characters are literal territory; the window form only
		// pays off for multi-character targets.
		return nil, 0
	}

	seen := 0
	for _, run := range collectGlyphRuns(s.Ops, ctx) {
		for start := 0; start+len(targetRunes) <= len(run); start++ {
			window := run[start : start+len(targetRunes)]
			if !windowSpells(window, targetRunes) {
				continue
			}

			rewrite, ok := encodeForGlyph(window[0], replacement)
			if !ok {
				continue
			}
			if seen == skip {
				return rewriteWindow(s.Payload, window, rewrite), seen + 1
			}
			seen++
		}
	}
	return nil, seen
}

// collectGlyphRuns extracts runs of consecutive single-character show
// operations in source order. Any show operation that draws something
// other than one decodable character ends the current run, so windows
// never span text that would appear between the glyphs on the page.
// Positioning and state operators do not break a run.
func collectGlyphRuns(ops []contentstream.Operation, ctx *Context) [][]glyphOp {
	var runs [][]glyphOp
	var run []glyphOp
	endRun := func() {
		if len(run) > 0 {
			runs = append(runs, run)
			run = nil
		}
	}

	for _, op := range ops {
		operand, ok := showStringOperand(op)
		if !ok {
			if op.Operator == "TJ" {
				endRun()
			}
			continue
		}
		raw, isHex, ok := stringOperand(operand.Object)
		if !ok || len(raw) == 0 {
			endRun()
			continue
		}

		char, fm := decodeSingleChar(raw, isHex, ctx)
		if char == "" {
			endRun()
			continue
		}
		run = append(run, glyphOp{operand: operand, char: char, isHex: isHex, fm: fm})
	}
	endRun()
	return runs
}

// decodeSingleChar decodes operand bytes that represent exactly one
// character, trying font maps before falling back to a raw byte.
func decodeSingleChar(raw []byte, isHex bool, ctx *Context) (string, *font.FontMap) {
	if ctx != nil {
		for _, fm := range ctx.Fonts {
			decoded := fm.Decode(raw)
			if len([]rune(decoded)) == 1 && fm.CanEncode(decoded) {
				return decoded, fm
			}
		}
	}
	if len(raw) == 1 {
		return string(rune(raw[0])), nil
	}
	return "", nil
}

// windowSpells reports whether the glyph window spells the target
func windowSpells(window []glyphOp, targetRunes []rune) bool {
	for i, g := range window {
		if g.char != string(targetRunes[i]) {
			return false
		}
	}
	return true
}

// encodeForGlyph expresses the replacement in the same notation and
// encoding as the glyph operand it will overwrite.
func encodeForGlyph(g glyphOp, replacement string) ([]byte, bool) {
	if replacement == "" {
		if g.isHex {
			return hexBytes(nil), true
		}
		return literalBytes(""), true
	}

	if g.fm != nil {
		enc, ok := g.fm.Encode(replacement)
		if !ok {
			return nil, false
		}
		if g.isHex {
			return hexBytes(enc), true
		}
		return literalBytes(string(enc)), true
	}

	if g.isHex {
		return hexBytes([]byte(replacement)), true
	}
	if strings.ContainsFunc(replacement, func(r rune) bool { return r > 0xFF }) {
		return nil, false
	}
	return literalBytes(replacement), true
}

// rewriteWindow empties every glyph in the window and writes the
// replacement into the first, editing from the back so earlier ranges
// stay valid.
func rewriteWindow(payload []byte, window []glyphOp, rewrite []byte) []byte {
	out := append([]byte(nil), payload...)
	for i := len(window) - 1; i >= 0; i-- {
		g := window[i]
		var repl []byte
		if i == 0 {
			repl = rewrite
		} else if g.isHex {
			repl = hexBytes(nil)
		} else {
			repl = literalBytes("")
		}
		out = splice(out, g.operand.Start, g.operand.End, repl)
	}
	return out
}
