package g2d

import (
	"fmt"
	"time"
)

// FrameStats describes one completed frame.
type FrameStats struct {
	// DrawCalls issued to the GPU.
	DrawCalls int
	// StateChanges counts pipeline and bind group switches.
	StateChanges int
	// Binds counts run boundaries whose key differed from the previous run.
	Binds int
	// Runs is the number of merged runs.
	Runs int
	// Vertices and Indices uploaded for the frame.
	Vertices int
	Indices  int
	// Dropped counts draw calls rejected during the frame, including
	// requests whose resource was freed before EndFrame.
	Dropped int
	// GlyphErrors counts glyphs that failed while the rest of their text
	// was drawn.
	GlyphErrors int
	// Uploads counts buffer writes.
	Uploads int
	// CPUTime spans BeginFrame to the end of EndFrame, GPU wait included.
	CPUTime time.Duration
}

// String returns a one-line summary.
func (s FrameStats) String() string {
	return fmt.Sprintf("draws=%d runs=%d binds=%d verts=%d idx=%d dropped=%d glyph_errors=%d cpu=%v",
		s.DrawCalls, s.Runs, s.Binds, s.Vertices, s.Indices, s.Dropped, s.GlyphErrors, s.CPUTime)
}

const defaultTimerWindow = 120

// FrameTimer keeps the durations of the last frames.
type FrameTimer struct {
	samples []time.Duration
	next    int
	full    bool
	total   int
}

// NewFrameTimer returns a timer over the last window frames.
func NewFrameTimer(window int) *FrameTimer {
	if window <= 0 {
		window = defaultTimerWindow
	}
	return &FrameTimer{samples: make([]time.Duration, window)}
}

// Record adds one frame duration.
func (t *FrameTimer) Record(d time.Duration) {
	t.samples[t.next] = d
	t.next++
	t.total++
	if t.next == len(t.samples) {
		t.next = 0
		t.full = true
	}
}

// Frames returns the number of frames recorded since creation or Reset.
func (t *FrameTimer) Frames() int { return t.total }

func (t *FrameTimer) window() []time.Duration {
	if t.full {
		return t.samples
	}
	return t.samples[:t.next]
}

// Summary returns the minimum, average and maximum over the window. All
// are zero before the first Record.
func (t *FrameTimer) Summary() (lo, avg, hi time.Duration) {
	w := t.window()
	if len(w) == 0 {
		return 0, 0, 0
	}
	lo, hi = w[0], w[0]
	var sum time.Duration
	for _, d := range w {
		lo = min(lo, d)
		hi = max(hi, d)
		sum += d
	}
	return lo, sum / time.Duration(len(w)), hi
}

// FPS returns the frame rate implied by the average duration.
func (t *FrameTimer) FPS() float64 {
	_, avg, _ := t.Summary()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}

// Reset discards all samples.
func (t *FrameTimer) Reset() {
	clear(t.samples)
	t.next, t.full, t.total = 0, false, 0
}
