package g2d

import (
	"errors"
	"testing"

	"github.com/gogpu/g2d/geom"
)

func TestTransformStackPushComposes(t *testing.T) {
	s := NewTransformStack()
	s.SetBase(geom.Translate(100, 0))
	s.Push(geom.Scale(2, 2))
	s.Push(geom.Translate(1, 1))

	got := s.Current().TransformPoint(geom.Pt(0, 0))
	// (0,0) -> (1,1) -> (2,2) -> (102,2)
	if got != geom.Pt(102, 2) {
		t.Errorf("Current maps origin to %v, want (102,2)", got)
	}
	if s.Depth() != 2 {
		t.Errorf("Depth() = %d, want 2", s.Depth())
	}
}

func TestTransformStackPopRestores(t *testing.T) {
	s := NewTransformStack()
	before := s.Current()
	s.Push(geom.Rotate(0.3))
	if err := s.Pop(); err != nil {
		t.Fatal(err)
	}
	if s.Current() != before {
		t.Errorf("Pop did not restore: %+v != %+v", s.Current(), before)
	}
}

func TestTransformStackPopBase(t *testing.T) {
	s := NewTransformStack()
	if err := s.Pop(); !errors.Is(err, ErrUsage) {
		t.Errorf("Pop on base error = %v, want ErrUsage", err)
	}
	if s.Depth() != 0 || !s.Current().IsIdentity() {
		t.Error("failed Pop changed the stack")
	}
}

func TestTransformStackSetBaseDiscards(t *testing.T) {
	s := NewTransformStack()
	s.Push(geom.Scale(3, 3))
	s.Push(geom.Scale(3, 3))
	s.SetBase(geom.Translate(5, 5))
	if s.Depth() != 0 {
		t.Errorf("Depth() = %d after SetBase, want 0", s.Depth())
	}
	if s.Current() != geom.Translate(5, 5) || s.Base() != geom.Translate(5, 5) {
		t.Error("SetBase did not replace the base")
	}

	s.Push(geom.Scale(2, 2))
	s.Reset()
	if s.Depth() != 0 || s.Current() != geom.Translate(5, 5) {
		t.Error("Reset did not keep the base")
	}
}
