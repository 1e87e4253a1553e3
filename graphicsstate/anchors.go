package graphicsstate

import (
	"github.com/bclement/redline/contentstream"
	"github.com/bclement/redline/model"
)

// Vertical tolerance bounds for rectangle blanking. The tolerance scales
// with the rectangle height but is clamped so tiny rectangles still
// catch baseline rounding and tall rectangles do not swallow neighbors.
const (
	minVerticalTolerance = 0.5
	maxVerticalTolerance = 2.0
	horizontalTolerance  = 1.0
)

// Anchor pairs a show operation with its page-space text position
type Anchor struct {
	Op    contentstream.Operation
	Point model.Point
}

// CollectAnchors runs the state machine over a parsed content stream and
// returns one anchor per show operation, in source order.
func CollectAnchors(ops []contentstream.Operation) []Anchor {
	state := NewState()
	var anchors []Anchor

	for _, op := range ops {
		if IsShowOperator(op.Operator) {
			// The quote operators move to the next line before showing
			if op.Operator == "'" || op.Operator == "\"" {
				state.Apply(op)
				anchors = append(anchors, Anchor{Op: op, Point: state.Anchor()})
				continue
			}
			anchors = append(anchors, Anchor{Op: op, Point: state.Anchor()})
			continue
		}
		state.Apply(op)
	}

	return anchors
}

// BlankInRect empties the string operands of every show operation whose
// anchor falls inside rect, expanded by the blanking tolerances. Edits
// are applied in descending source order so earlier ranges stay valid.
// It returns the rewritten payload and the number of operations blanked.
func BlankInRect(payload []byte, anchors []Anchor, rect model.BBox) ([]byte, int) {
	expanded := rect.ExpandXY(horizontalTolerance, verticalTolerance(rect))

	var hits []Anchor
	for _, a := range anchors {
		if expanded.Contains(a.Point) {
			hits = append(hits, a)
		}
	}
	if len(hits) == 0 {
		return payload, 0
	}

	out := append([]byte(nil), payload...)
	for i := len(hits) - 1; i >= 0; i-- {
		out = blankOperation(out, hits[i].Op)
	}
	return out, len(hits)
}

// verticalTolerance computes the clamped height-proportional slack
func verticalTolerance(rect model.BBox) float64 {
	tol := 0.10 * rect.Height
	if tol < minVerticalTolerance {
		return minVerticalTolerance
	}
	if tol > maxVerticalTolerance {
		return maxVerticalTolerance
	}
	return tol
}

// blankOperation empties the string payload of one show operation while
// keeping the operator itself intact.
func blankOperation(payload []byte, op contentstream.Operation) []byte {
	switch op.Operator {
	case "Tj", "'":
		if len(op.Operands) == 1 {
			return spliceBytes(payload, op.Operands[0].Start, op.Operands[0].End, []byte("()"))
		}
	case "\"":
		// aw ac string: only the string operand is emptied
		if len(op.Operands) == 3 {
			return spliceBytes(payload, op.Operands[2].Start, op.Operands[2].End, []byte("()"))
		}
	case "TJ":
		if len(op.Operands) == 1 {
			return spliceBytes(payload, op.Operands[0].Start, op.Operands[0].End, []byte("[]"))
		}
	}
	return payload
}

// spliceBytes replaces payload[start:end] with replacement
func spliceBytes(payload []byte, start, end int, replacement []byte) []byte {
	out := make([]byte, 0, len(payload)-(end-start)+len(replacement))
	out = append(out, payload[:start]...)
	out = append(out, replacement...)
	out = append(out, payload[end:]...)
	return out
}
