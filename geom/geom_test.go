package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func nearPoint(a, b Point) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func TestMatrixMultiplyOrder(t *testing.T) {
	// Scale first, then translate.
	m := Translate(10, 20).Multiply(Scale(2, 3))
	got := m.TransformPoint(Pt(1, 1))
	if want := Pt(12, 23); !nearPoint(got, want) {
		t.Errorf("TransformPoint = %v, want %v", got, want)
	}
}

func TestMatrixTransforms(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		in   Point
		want Point
	}{
		{"identity", Identity(), Pt(3, 4), Pt(3, 4)},
		{"translate", Translate(5, -5), Pt(1, 1), Pt(6, -4)},
		{"scale", Scale(2, 0.5), Pt(4, 4), Pt(8, 2)},
		{"rotate 90", Rotate(math.Pi / 2), Pt(1, 0), Pt(0, 1)},
		{"rotate 180", Rotate(math.Pi), Pt(1, 2), Pt(-1, -2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.TransformPoint(tt.in); !nearPoint(got, tt.want) {
				t.Errorf("TransformPoint(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatrixTransformVectorIgnoresTranslation(t *testing.T) {
	m := Translate(100, 100).Multiply(Scale(2, 2))
	if got := m.TransformVector(Pt(1, 1)); !nearPoint(got, Pt(2, 2)) {
		t.Errorf("TransformVector = %v, want (2,2)", got)
	}
}

func TestMatrixInvert(t *testing.T) {
	m := Translate(3, 4).Multiply(Rotate(0.7)).Multiply(Scale(2, 5))
	inv, ok := m.Invert()
	if !ok {
		t.Fatal("Invert reported singular matrix")
	}
	p := Pt(-7, 11)
	if got := inv.TransformPoint(m.TransformPoint(p)); !nearPoint(got, p) {
		t.Errorf("round trip = %v, want %v", got, p)
	}

	if _, ok := Scale(0, 1).Invert(); ok {
		t.Error("Invert of singular matrix reported ok")
	}
}

func TestMatrixIsIdentity(t *testing.T) {
	if !Identity().IsIdentity() {
		t.Error("Identity().IsIdentity() = false")
	}
	if Translate(1, 0).IsIdentity() {
		t.Error("Translate(1,0).IsIdentity() = true")
	}
	if (Matrix{}).IsIdentity() {
		t.Error("zero matrix reported as identity")
	}
}

func TestCameraDefaultIsPixelSpace(t *testing.T) {
	s := Screen{Width: 800, Height: 600}
	m := DefaultCamera(s).Matrix(s)
	for _, p := range []Point{Pt(0, 0), Pt(800, 600), Pt(123, 45)} {
		if got := m.TransformPoint(p); !nearPoint(got, p) {
			t.Errorf("default camera maps %v to %v", p, got)
		}
	}
}

func TestCameraMatrix(t *testing.T) {
	s := Screen{Width: 200, Height: 100}
	tests := []struct {
		name  string
		cam   Camera
		world Point
		want  Point
	}{
		{"center at origin", Camera{Zoom: 1}, Pt(0, 0), Pt(100, 50)},
		{"zoomed", Camera{Zoom: 2}, Pt(10, 5), Pt(120, 60)},
		{"panned", Camera{Center: Pt(50, 50), Zoom: 1}, Pt(50, 50), Pt(100, 50)},
		{"zero zoom treated as 1", Camera{}, Pt(10, 0), Pt(110, 50)},
		{"rotated quarter turn", Camera{Zoom: 1, Angle: math.Pi / 2}, Pt(0, 10), Pt(110, 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cam.WorldToScreen(s, tt.world); !nearPoint(got, tt.want) {
				t.Errorf("WorldToScreen(%v) = %v, want %v", tt.world, got, tt.want)
			}
			if back := tt.cam.ScreenToWorld(s, tt.want); !nearPoint(back, tt.world) {
				t.Errorf("ScreenToWorld(%v) = %v, want %v", tt.want, back, tt.world)
			}
		})
	}
}

func TestRect(t *testing.T) {
	r := R(10, 10, 20, 5)
	if r.Empty() {
		t.Error("non-empty rect reported empty")
	}
	if !R(0, 0, 0, 5).Empty() {
		t.Error("zero-width rect not empty")
	}
	if !r.Contains(Pt(10, 10)) || r.Contains(Pt(30, 10)) || r.Contains(Pt(15, 15)) {
		t.Error("Contains edge handling wrong")
	}
	if r.Max() != Pt(30, 15) {
		t.Errorf("Max() = %v, want (30,15)", r.Max())
	}
}
