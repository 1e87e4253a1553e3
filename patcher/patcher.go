package patcher

import (
	"errors"
	"fmt"

	"github.com/bclement/redline/internal/filters"
	"github.com/bclement/redline/locator"
)

// ErrTooLarge reports that an edited payload cannot be written back into
// the byte span its original occupied.
var ErrTooLarge = errors.New("patched stream does not fit the original span")

// Encode prepares an edited payload for writing into the candidate's
// span, producing exactly SpanLen bytes. Compressed candidates are
// recompressed and zero padded; the padding sits after the terminal
// deflate block, which inflate ignores. Raw candidates are space padded,
// whitespace being insignificant between content operators.
func Encode(c locator.Candidate, payload []byte) ([]byte, error) {
	budget := c.SpanLen()

	if c.Compressed {
		enc, err := filters.Encode(payload)
		if err != nil {
			return nil, fmt.Errorf("recompressing stream at offset %d: %w", c.Start, err)
		}
		if len(enc) > budget {
			return nil, fmt.Errorf("%w: compressed to %d bytes, span holds %d", ErrTooLarge, len(enc), budget)
		}
		span := make([]byte, budget)
		copy(span, enc)
		return span, nil
	}

	if len(payload) > budget {
		return nil, fmt.Errorf("%w: payload is %d bytes, span holds %d", ErrTooLarge, len(payload), budget)
	}
	span := make([]byte, budget)
	copy(span, payload)
	for i := len(payload); i < budget; i++ {
		span[i] = ' '
	}
	return span, nil
}

// Apply splices a prepared span into a fresh copy of the document. No
// byte outside the span moves, so every cross-reference offset in the
// file stays valid and the output length equals the input length.
func Apply(data []byte, c locator.Candidate, span []byte) ([]byte, error) {
	if c.Start < 0 || c.End > len(data) || c.Start > c.End {
		return nil, fmt.Errorf("candidate span [%d, %d) outside document of %d bytes", c.Start, c.End, len(data))
	}
	if len(span) != c.SpanLen() {
		return nil, fmt.Errorf("span is %d bytes, candidate holds %d", len(span), c.SpanLen())
	}

	out := make([]byte, len(data))
	copy(out, data)
	copy(out[c.Start:c.End], span)
	return out, nil
}

// Patch encodes the payload and applies it in one step
func Patch(data []byte, c locator.Candidate, payload []byte) ([]byte, error) {
	span, err := Encode(c, payload)
	if err != nil {
		return nil, err
	}
	return Apply(data, c, span)
}
