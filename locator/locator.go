package locator

import (
	"bytes"

	"github.com/bclement/redline/internal/filters"
	"github.com/bclement/redline/model"
)

var (
	streamKeyword    = []byte("stream")
	endstreamKeyword = []byte("endstream")

	// Tokens that identify a raw span as a content stream. Uncompressed
	// spans without any of these are font programs, images, or metadata
	// and are not edit candidates.
	contentTokens = [][]byte{
		[]byte("Tf"), []byte("Tj"), []byte("TJ"), []byte("BT"),
	}
)

// prefixTolerance is the length slack allowed when matching a candidate
// against a reference stream in the targeted pass.
const prefixTolerance = 32

// Candidate is one stream span found in the raw document bytes. Start
// and End delimit the payload (exclusive of the stream/endstream
// keywords and their EOL framing), so End-Start is the exact byte budget
// a patched payload must fit into.
type Candidate struct {
	Start      int
	End        int
	Payload    []byte
	Compressed bool
}

// SpanLen returns the raw byte length the candidate occupies in the file
func (c Candidate) SpanLen() int {
	return c.End - c.Start
}

// Scan finds every content stream candidate in the document. It never
// fails; undecodable or unrecognizable spans are skipped, compressed
// spans that will not inflate produce a warning.
func Scan(data []byte) ([]Candidate, []model.Warning) {
	return scan(data, nil)
}

// ScanTargeted finds candidates whose decompressed payload approximately
// matches the reference stream. Carriage returns are ignored on both
// sides and a small length tolerance is allowed, since the same content
// stream read through the object layer and through the raw scan can
// differ in EOL framing.
func ScanTargeted(data, reference []byte) ([]Candidate, []model.Warning) {
	return scan(data, stripCR(reference))
}

func scan(data, reference []byte) ([]Candidate, []model.Warning) {
	var candidates []Candidate
	var warnings []model.Warning

	pos := 0
	for {
		idx := bytes.Index(data[pos:], streamKeyword)
		if idx == -1 {
			break
		}
		idx += pos

		// A match inside "endstream" is not a stream opener
		if isEndstreamTail(data, idx) {
			pos = idx + len(streamKeyword)
			continue
		}

		payloadStart := idx + len(streamKeyword)
		payloadStart += leadingEOL(data[payloadStart:])

		endIdx := bytes.Index(data[payloadStart:], endstreamKeyword)
		if endIdx == -1 {
			break
		}
		payloadEnd := payloadStart + endIdx
		pos = payloadEnd + len(endstreamKeyword)

		payloadEnd -= trailingEOL(data[payloadStart:payloadEnd])
		if payloadEnd <= payloadStart {
			continue
		}

		span := data[payloadStart:payloadEnd]
		candidate, warn := classify(span, payloadStart, payloadEnd)
		if warn != nil {
			warnings = append(warnings, *warn)
		}
		if candidate == nil {
			continue
		}
		if reference != nil && !matchesReference(candidate.Payload, reference) {
			continue
		}
		candidates = append(candidates, *candidate)
	}

	return candidates, warnings
}

// classify turns a raw span into a candidate, or nil when the span is
// not usable content.
func classify(span []byte, start, end int) (*Candidate, *model.Warning) {
	if filters.IsCompressed(span) {
		payload, err := filters.Decode(span)
		if err == nil {
			return &Candidate{
				Start:      start,
				End:        end,
				Payload:    payload,
				Compressed: true,
			}, nil
		}
		// Header bytes looked like zlib but inflate failed; fall
		// through to the raw checks with a warning.
		w := model.Warningf(model.WarnDecompressionFailure,
			"stream at offset %d: %v", start, err)
		if !looksLikeContent(span) {
			return nil, &w
		}
		return &Candidate{Start: start, End: end, Payload: span}, &w
	}

	if !looksLikeContent(span) {
		return nil, nil
	}
	return &Candidate{Start: start, End: end, Payload: span}, nil
}

// isEndstreamTail reports whether the "stream" match at idx is actually
// the tail of an "endstream" keyword.
func isEndstreamTail(data []byte, idx int) bool {
	return idx >= 3 && bytes.Equal(data[idx-3:idx+len(streamKeyword)], endstreamKeyword)
}

// leadingEOL returns the length of one EOL sequence at the start of data
func leadingEOL(data []byte) int {
	if len(data) >= 2 && data[0] == '\r' && data[1] == '\n' {
		return 2
	}
	if len(data) >= 1 && (data[0] == '\n' || data[0] == '\r') {
		return 1
	}
	return 0
}

// trailingEOL returns the length of one EOL sequence at the end of data
func trailingEOL(data []byte) int {
	n := len(data)
	if n >= 2 && data[n-2] == '\r' && data[n-1] == '\n' {
		return 2
	}
	if n >= 1 && (data[n-1] == '\n' || data[n-1] == '\r') {
		return 1
	}
	return 0
}

// looksLikeContent reports whether a raw span carries content stream
// operators.
func looksLikeContent(span []byte) bool {
	for _, tok := range contentTokens {
		if bytes.Contains(span, tok) {
			return true
		}
	}
	return false
}

// matchesReference compares a candidate payload against the CR-stripped
// reference.
func matchesReference(payload, reference []byte) bool {
	stripped := stripCR(payload)

	diff := len(stripped) - len(reference)
	if diff < -prefixTolerance || diff > prefixTolerance {
		return false
	}

	n := len(stripped)
	if len(reference) < n {
		n = len(reference)
	}
	return bytes.Equal(stripped[:n], reference[:n])
}

// stripCR removes carriage returns
func stripCR(data []byte) []byte {
	if !bytes.ContainsRune(data, '\r') {
		return data
	}
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b != '\r' {
			out = append(out, b)
		}
	}
	return out
}
