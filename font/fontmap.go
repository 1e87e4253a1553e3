package font

import (
	"strings"
)

// FontMap is a bidirectional character map for one page font. The forward
// direction decodes content stream string operands to Unicode; the
// reverse direction re-encodes caller-supplied text into the font's code
// space, which is what allows a replacement string to be written back in
// a subsetted font's private encoding.
type FontMap struct {
	// Name is the resource key the font is selected by (e.g. "F1")
	Name string

	// BaseFont is the /BaseFont name, kept for diagnostics
	BaseFont string

	cmap    *CMap
	reverse map[string]codePoint
}

// codePoint is one code in the font's space together with its byte width
type codePoint struct {
	code  uint32
	width int
}

// NewFontMap builds a FontMap from a parsed ToUnicode CMap
func NewFontMap(name, baseFont string, cmap *CMap) *FontMap {
	fm := &FontMap{
		Name:     name,
		BaseFont: baseFont,
		cmap:     cmap,
		reverse:  make(map[string]codePoint),
	}
	// First mapping for a given Unicode string wins; ToUnicode maps can
	// send several codes to the same character.
	cmap.Entries(func(code uint32, width int, unicode string) {
		key := NormalizeUnicode(unicode)
		if key == "" {
			return
		}
		if _, exists := fm.reverse[key]; !exists {
			fm.reverse[key] = codePoint{code: code, width: width}
		}
	})
	return fm
}

// CodeBytes returns the font's dominant code width in bytes (1 or 2)
func (fm *FontMap) CodeBytes() int {
	return fm.cmap.CodeBytes()
}

// Decode maps raw string operand bytes to Unicode text. Codes without a
// mapping are passed through as their raw byte values.
func (fm *FontMap) Decode(data []byte) string {
	var result strings.Builder
	step := fm.cmap.CodeBytes()

	i := 0
	for i < len(data) {
		if step == 2 && i+1 < len(data) {
			code := uint32(data[i])<<8 | uint32(data[i+1])
			if unicode := fm.cmap.Lookup(code); unicode != "" {
				result.WriteString(unicode)
				i += 2
				continue
			}
		}

		code := uint32(data[i])
		if unicode := fm.cmap.Lookup(code); unicode != "" {
			result.WriteString(unicode)
		} else {
			result.WriteByte(data[i])
		}
		i++
	}

	return NormalizeUnicode(result.String())
}

// Encode maps Unicode text into the font's code space. It returns false
// when any character has no code in this font, in which case the encoded
// bytes must not be used.
func (fm *FontMap) Encode(s string) ([]byte, bool) {
	s = NormalizeUnicode(s)
	out := make([]byte, 0, len(s))

	for _, r := range s {
		cp, ok := fm.reverse[string(r)]
		if !ok {
			return nil, false
		}
		switch cp.width {
		case 2:
			out = append(out, byte(cp.code>>8), byte(cp.code))
		default:
			out = append(out, byte(cp.code))
		}
	}
	return out, true
}

// CanEncode reports whether every character of s has a code in this font
func (fm *FontMap) CanEncode(s string) bool {
	_, ok := fm.Encode(s)
	return ok
}
