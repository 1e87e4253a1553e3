package graphicsstate

import (
	"github.com/bclement/redline/contentstream"
	"github.com/bclement/redline/core"
	"github.com/bclement/redline/model"
)

// State tracks the subset of the PDF graphics state needed to position
// text: the current transformation matrix with its q/Q stack, and the
// text line position.
type State struct {
	ctm     model.Matrix
	stack   []model.Matrix
	line    model.Point
	leading float64
}

// NewState creates a state with an identity CTM
func NewState() *State {
	return &State{ctm: model.Identity()}
}

// CTM returns the current transformation matrix
func (s *State) CTM() model.Matrix {
	return s.ctm
}

// LinePosition returns the current text line position in text space
func (s *State) LinePosition() model.Point {
	return s.line
}

// Anchor returns the current text position in page space
func (s *State) Anchor() model.Point {
	return s.ctm.Transform(s.line)
}

// Apply updates the state for one operation. Show operators themselves
// do not move the tracked position; per-glyph advances are not needed to
// anchor an operation.
func (s *State) Apply(op contentstream.Operation) {
	switch op.Operator {
	case "q":
		s.stack = append(s.stack, s.ctm)
	case "Q":
		if n := len(s.stack); n > 0 {
			s.ctm = s.stack[n-1]
			s.stack = s.stack[:n-1]
		}
	case "cm":
		if m, ok := operandMatrix(op); ok {
			s.ctm = m.Multiply(s.ctm)
		}
	case "BT":
		s.line = model.Point{}
		s.leading = 0
	case "Tm":
		// Absolute placement; only the translation component positions
		// the line for anchoring purposes.
		if m, ok := operandMatrix(op); ok {
			s.line = m.Translation()
		}
	case "Td":
		if tx, ty, ok := operandPair(op); ok {
			s.line.X += tx
			s.line.Y += ty
		}
	case "TD":
		if tx, ty, ok := operandPair(op); ok {
			s.leading = -ty
			s.line.X += tx
			s.line.Y += ty
		}
	case "TL":
		if len(op.Operands) == 1 {
			if v, ok := core.ToNumber(op.Operands[0].Object); ok {
				s.leading = v
			}
		}
	case "T*":
		s.line.Y -= s.leading
	case "'":
		// Implicit T* before showing
		s.line.Y -= s.leading
	case "\"":
		s.line.Y -= s.leading
	}
}

// IsShowOperator reports whether op paints text
func IsShowOperator(operator string) bool {
	switch operator {
	case "Tj", "TJ", "'", "\"":
		return true
	}
	return false
}

// operandMatrix reads six numeric operands as a matrix
func operandMatrix(op contentstream.Operation) (model.Matrix, bool) {
	if len(op.Operands) != 6 {
		return model.Matrix{}, false
	}
	var m model.Matrix
	for i, operand := range op.Operands {
		v, ok := core.ToNumber(operand.Object)
		if !ok {
			return model.Matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

// operandPair reads two numeric operands
func operandPair(op contentstream.Operation) (float64, float64, bool) {
	if len(op.Operands) != 2 {
		return 0, 0, false
	}
	tx, ok1 := core.ToNumber(op.Operands[0].Object)
	ty, ok2 := core.ToNumber(op.Operands[1].Object)
	return tx, ty, ok1 && ok2
}
