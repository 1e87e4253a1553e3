package matcher

import (
	"bytes"

	"github.com/bclement/redline/core"
	"github.com/bclement/redline/font"
)

// hexSingleByte matches a hex string operand whose raw bytes equal the
// target, the single-byte-code form `<74657874> Tj`.
type hexSingleByte struct{}

func (hexSingleByte) Name() string { return "hex single-byte" }

func (hexSingleByte) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	return applyHexEqual(s, []byte(target), []byte(replacement), skip)
}

// hexWide matches a hex string operand carrying the target as UTF-16BE,
// the two-byte form `<0074006500780074> Tj`.
type hexWide struct{}

func (hexWide) Name() string { return "hex wide" }

func (hexWide) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	return applyHexEqual(s, font.EncodeUTF16BE(target), font.EncodeUTF16BE(replacement), skip)
}

// applyHexEqual edits the skip-th hex string operand equal to want
func applyHexEqual(s *Stream, want, rewrite []byte, skip int) ([]byte, int) {
	if len(want) == 0 {
		return nil, 0
	}
	seen := 0
	for _, op := range s.Ops {
		operand, ok := showStringOperand(op)
		if !ok {
			continue
		}
		hs, ok := operand.Object.(core.HexString)
		if !ok || !bytes.Equal([]byte(hs), want) {
			continue
		}
		if seen == skip {
			return splice(s.Payload, operand.Start, operand.End, hexBytes(rewrite)), seen + 1
		}
		seen++
	}
	return nil, seen
}

// fontEncodedLiteral re-encodes the target through each font map and
// looks for the encoded bytes as a hex string operand. This is the form
// subsetted fonts produce, where the code bytes resemble neither the
// text nor UTF-16.
type fontEncodedLiteral struct{}

func (fontEncodedLiteral) Name() string { return "font-encoded hex" }

func (fontEncodedLiteral) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	encodings := usableEncodings(ctx, target, replacement)
	if len(encodings) == 0 {
		return nil, 0
	}

	seen := 0
	for _, op := range s.Ops {
		operand, ok := showStringOperand(op)
		if !ok {
			continue
		}
		hs, ok := operand.Object.(core.HexString)
		if !ok {
			continue
		}
		for _, enc := range encodings {
			if !bytes.Equal([]byte(hs), enc.target) {
				continue
			}
			if seen == skip {
				return splice(s.Payload, operand.Start, operand.End, hexBytes(enc.replacement)), seen + 1
			}
			seen++
			break
		}
	}
	return nil, seen
}

// hexArray matches a TJ array whose hex segments concatenate to the
// target after decoding. Decode priority: font maps, then UTF-16BE,
// then raw bytes.
type hexArray struct{}

func (hexArray) Name() string { return "TJ hex decode" }

func (hexArray) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	seen := 0
	for _, op := range s.Ops {
		arr, operand, ok := tjArray(op)
		if !ok {
			continue
		}
		concat, hexSegs := concatHexSegments(arr)
		if hexSegs == 0 {
			continue
		}

		rewrite, matched := matchDecoded(concat, target, replacement, ctx)
		if !matched {
			continue
		}
		if seen == skip {
			return splice(s.Payload, operand.Start, operand.End, rewriteHexSegments(arr, rewrite)), seen + 1
		}
		seen++
	}
	return nil, seen
}

// fontEncodedArray matches a TJ array whose hex segments concatenate to
// the target re-encoded through a font map.
type fontEncodedArray struct{}

func (fontEncodedArray) Name() string { return "TJ font-encoded" }

func (fontEncodedArray) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	encodings := usableEncodings(ctx, target, replacement)
	if len(encodings) == 0 {
		return nil, 0
	}

	seen := 0
	for _, op := range s.Ops {
		arr, operand, ok := tjArray(op)
		if !ok {
			continue
		}
		concat, hexSegs := concatHexSegments(arr)
		if hexSegs == 0 {
			continue
		}

		for _, enc := range encodings {
			if !bytes.Equal(concat, enc.target) {
				continue
			}
			if seen == skip {
				return splice(s.Payload, operand.Start, operand.End, rewriteHexSegments(arr, enc.replacement)), seen + 1
			}
			seen++
			break
		}
	}
	return nil, seen
}

// encoding pairs a target and replacement expressed in one font's code
// space.
type encoding struct {
	target      []byte
	replacement []byte
}

// usableEncodings returns the font encodings in which both the target
// and the replacement are expressible. A font that cannot encode the
// replacement cannot serve the edit, so its matches must not count.
func usableEncodings(ctx *Context, target, replacement string) []encoding {
	if ctx == nil || target == "" {
		return nil
	}
	var out []encoding
	for _, fm := range ctx.Fonts {
		encTarget, ok := fm.Encode(target)
		if !ok {
			continue
		}
		encReplacement := []byte{}
		if replacement != "" {
			encReplacement, ok = fm.Encode(replacement)
			if !ok {
				continue
			}
		}
		out = append(out, encoding{target: encTarget, replacement: encReplacement})
	}
	return out
}

// matchDecoded decodes concatenated hex bytes against the target with
// the standard priority and returns the replacement in the same scheme.
func matchDecoded(concat []byte, target, replacement string, ctx *Context) ([]byte, bool) {
	if ctx != nil {
		for _, fm := range ctx.Fonts {
			if fm.Decode(concat) != target {
				continue
			}
			if replacement == "" {
				return []byte{}, true
			}
			if enc, ok := fm.Encode(replacement); ok {
				return enc, true
			}
			// This font cannot express the replacement; the remaining
			// fonts and the wide/raw schemes may still serve.
		}
	}
	if font.DecodeUTF16BE(concat) == target {
		if replacement == "" {
			return []byte{}, true
		}
		return font.EncodeUTF16BE(replacement), true
	}
	if string(concat) == target {
		return []byte(replacement), true
	}
	return nil, false
}

// concatHexSegments joins the raw bytes of an array's hex segments
func concatHexSegments(arr core.Array) ([]byte, int) {
	var concat []byte
	segs := 0
	for _, elem := range arr {
		if hs, ok := elem.(core.HexString); ok {
			concat = append(concat, []byte(hs)...)
			segs++
		}
	}
	return concat, segs
}

// rewriteHexSegments reserializes a TJ array with the first hex segment
// replaced by rewrite and later hex segments emptied. Kerning numbers
// and literal segments pass through.
func rewriteHexSegments(arr core.Array, rewrite []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(' ')
		}
		switch v := elem.(type) {
		case core.HexString:
			if first {
				buf.Write(hexBytes(rewrite))
				first = false
			} else {
				buf.Write(hexBytes(nil))
			}
		case core.String:
			buf.Write(literalBytes(string(v)))
		default:
			buf.Write(numberBytes(elem))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
