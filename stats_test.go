package g2d

import (
	"strings"
	"testing"
	"time"
)

func TestFrameTimerSummary(t *testing.T) {
	ft := NewFrameTimer(3)
	if lo, avg, hi := ft.Summary(); lo != 0 || avg != 0 || hi != 0 {
		t.Errorf("empty Summary() = %v %v %v, want zeros", lo, avg, hi)
	}
	if ft.FPS() != 0 {
		t.Errorf("empty FPS() = %v, want 0", ft.FPS())
	}

	for _, ms := range []int{10, 20, 30} {
		ft.Record(time.Duration(ms) * time.Millisecond)
	}
	lo, avg, hi := ft.Summary()
	if lo != 10*time.Millisecond || avg != 20*time.Millisecond || hi != 30*time.Millisecond {
		t.Errorf("Summary() = %v %v %v, want 10ms 20ms 30ms", lo, avg, hi)
	}
	if got := ft.FPS(); got != 50 {
		t.Errorf("FPS() = %v, want 50", got)
	}
}

func TestFrameTimerWindowRolls(t *testing.T) {
	ft := NewFrameTimer(2)
	ft.Record(100 * time.Millisecond)
	ft.Record(2 * time.Millisecond)
	ft.Record(4 * time.Millisecond)

	lo, _, hi := ft.Summary()
	if lo != 2*time.Millisecond || hi != 4*time.Millisecond {
		t.Errorf("Summary() lo=%v hi=%v, want the oldest sample evicted", lo, hi)
	}
	if ft.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", ft.Frames())
	}

	ft.Reset()
	if ft.Frames() != 0 {
		t.Errorf("Frames() = %d after Reset, want 0", ft.Frames())
	}
	if _, avg, _ := ft.Summary(); avg != 0 {
		t.Errorf("avg = %v after Reset, want 0", avg)
	}
}

func TestNewFrameTimerDefaultWindow(t *testing.T) {
	ft := NewFrameTimer(0)
	if len(ft.samples) != defaultTimerWindow {
		t.Errorf("window = %d, want %d", len(ft.samples), defaultTimerWindow)
	}
}

func TestFrameStatsString(t *testing.T) {
	s := FrameStats{DrawCalls: 2, Runs: 2, Vertices: 7, Dropped: 1, GlyphErrors: 3}.String()
	for _, want := range []string{"draws=2", "runs=2", "verts=7", "dropped=1", "glyph_errors=3"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
