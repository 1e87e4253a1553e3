package filters

import (
	"bytes"
	"fmt"
)

// ASCIIHexDecode decodes ASCII hexadecimal encoded data. Each pair of hex
// digits represents one byte, whitespace is ignored, and > marks end of
// data. An odd trailing digit is treated as if followed by 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	var result bytes.Buffer

	var pending byte
	havePending := false
	for _, c := range data {
		if isWhitespace(c) {
			continue
		}
		if c == '>' {
			break
		}
		v, err := hexDigit(c)
		if err != nil {
			return nil, err
		}
		if havePending {
			result.WriteByte(pending<<4 | v)
			havePending = false
		} else {
			pending = v
			havePending = true
		}
	}
	if havePending {
		result.WriteByte(pending << 4)
	}
	return result.Bytes(), nil
}

// ASCII85Decode decodes base-85 encoded data. Each group of five characters
// in '!'..'u' encodes four bytes; 'z' is shorthand for four zero bytes and
// ~> marks end of data.
func ASCII85Decode(data []byte) ([]byte, error) {
	var result bytes.Buffer

	digits := make([]byte, 0, 5)
	flush := func(n int) {
		// Pad an incomplete final group with 'u' before decoding.
		for len(digits) < 5 {
			digits = append(digits, 84)
		}
		value := uint32(0)
		for _, d := range digits {
			value = value*85 + uint32(d)
		}
		for j := 0; j < n; j++ {
			result.WriteByte(byte(value >> (24 - j*8)))
		}
		digits = digits[:0]
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		if isWhitespace(c) {
			continue
		}
		if c == '~' && i+1 < len(data) && data[i+1] == '>' {
			break
		}
		if c == 'z' && len(digits) == 0 {
			result.Write([]byte{0, 0, 0, 0})
			continue
		}
		if c < '!' || c > 'u' {
			return nil, fmt.Errorf("invalid ASCII85 character: %c", c)
		}
		digits = append(digits, c-'!')
		if len(digits) == 5 {
			flush(4)
		}
	}
	if len(digits) > 1 {
		flush(len(digits) - 1)
	}
	return result.Bytes(), nil
}

// hexDigit converts a hexadecimal character to its numeric value (0-15).
func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit: %c", c)
	}
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
