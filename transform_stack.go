package g2d

import (
	"fmt"

	"github.com/gogpu/g2d/geom"
)

// TransformStack holds the accumulated transforms of nested drawing scopes.
// The bottom entry is the base, usually the camera matrix, and can never be
// popped.
type TransformStack struct {
	stack []geom.Matrix
}

// NewTransformStack returns a stack whose base is the identity.
func NewTransformStack() *TransformStack {
	s := &TransformStack{stack: make([]geom.Matrix, 1, 16)}
	s.stack[0] = geom.Identity()
	return s
}

// Current returns the top of the stack.
func (s *TransformStack) Current() geom.Matrix {
	return s.stack[len(s.stack)-1]
}

// Push composes local onto the current transform: geometry drawn afterwards
// is transformed by local first, then by the previous current matrix.
func (s *TransformStack) Push(local geom.Matrix) {
	s.stack = append(s.stack, s.Current().Multiply(local))
}

// Pop restores the transform in effect before the matching Push.
func (s *TransformStack) Pop() error {
	if len(s.stack) == 1 {
		return fmt.Errorf("%w: pop of the base transform", ErrUsage)
	}
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

// SetBase replaces the base transform and discards every pushed entry.
func (s *TransformStack) SetBase(m geom.Matrix) {
	s.stack = s.stack[:1]
	s.stack[0] = m
}

// Base returns the bottom entry.
func (s *TransformStack) Base() geom.Matrix { return s.stack[0] }

// Depth returns the number of pushed entries above the base.
func (s *TransformStack) Depth() int { return len(s.stack) - 1 }

// Reset discards every pushed entry and keeps the base.
func (s *TransformStack) Reset() { s.stack = s.stack[:1] }
