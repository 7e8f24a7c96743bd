package atlas

import (
	"errors"
	"testing"
)

func overlaps(a, b Region) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

func TestPackerNoOverlap(t *testing.T) {
	p := New(Config{Width: 128, Height: 128, Padding: 1})
	sizes := [][2]int{{10, 12}, {30, 8}, {7, 7}, {12, 12}, {40, 20}, {5, 9}, {16, 16}, {9, 12}}

	var got []Region
	for _, sz := range sizes {
		r, err := p.Allocate(sz[0], sz[1])
		if err != nil {
			t.Fatalf("Allocate(%dx%d): %v", sz[0], sz[1], err)
		}
		if r.X < 0 || r.Y < 0 || r.X+r.Width > 128 || r.Y+r.Height > 128 {
			t.Errorf("%v outside the packer", r)
		}
		for _, prev := range got {
			if overlaps(r, prev) {
				t.Errorf("%v overlaps %v", r, prev)
			}
		}
		got = append(got, r)
	}
	if p.AllocCount() != len(sizes) {
		t.Errorf("AllocCount() = %d, want %d", p.AllocCount(), len(sizes))
	}
}

func TestPackerBestFitShelf(t *testing.T) {
	p := New(Config{Width: 64, Height: 64, Padding: 0})

	tall, _ := p.Allocate(10, 20)  // shelf 0, height 20
	short, _ := p.Allocate(60, 8)  // no room on shelf 0 -> shelf 1, height 8
	small, err := p.Allocate(4, 6) // fits both; shelf 1 wastes less
	if err != nil {
		t.Fatal(err)
	}
	if tall.Y != 0 || short.Y != 20 {
		t.Fatalf("unexpected shelves: tall=%v short=%v", tall, short)
	}
	if small.Y != short.Y {
		t.Errorf("small region on shelf y=%d, want best-fit shelf y=%d", small.Y, short.Y)
	}
	if small.X != 60 {
		t.Errorf("small region x=%d, want 60", small.X)
	}
}

func TestPackerFull(t *testing.T) {
	p := New(Config{Width: 64, Height: 64, Padding: 0})
	for range 4 {
		if _, err := p.Allocate(64, 16); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := p.Allocate(1, 1); !errors.Is(err, ErrFull) {
		t.Errorf("Allocate on full packer error = %v, want ErrFull", err)
	}

	p.Reset()
	if _, err := p.Allocate(64, 64); err != nil {
		t.Errorf("Allocate after Reset: %v", err)
	}
}

func TestPackerInvalidSize(t *testing.T) {
	p := New(DefaultConfig())
	tests := []struct {
		name string
		w, h int
		want error
	}{
		{"zero width", 0, 5, ErrInvalidSize},
		{"negative height", 5, -1, ErrInvalidSize},
		{"too wide", DefaultSize + 1, 5, ErrFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Allocate(tt.w, tt.h); !errors.Is(err, tt.want) {
				t.Errorf("Allocate(%d,%d) error = %v, want %v", tt.w, tt.h, err, tt.want)
			}
		})
	}
}

func TestRegionUVHalfTexelInset(t *testing.T) {
	r := Region{X: 0, Y: 0, Width: 4, Height: 2}
	u0, v0, u1, v1 := r.UV(8, 8)
	if u0 != 0.5/8 || v0 != 0.5/8 || u1 != 3.5/8 || v1 != 1.5/8 {
		t.Errorf("UV = (%v,%v,%v,%v)", u0, v0, u1, v1)
	}
}

func TestPackerUtilization(t *testing.T) {
	p := New(Config{Width: 64, Height: 64})
	if _, err := p.Allocate(32, 32); err != nil {
		t.Fatal(err)
	}
	if got := p.Utilization(); got != 0.25 {
		t.Errorf("Utilization() = %v, want 0.25", got)
	}
}
