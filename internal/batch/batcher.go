package batch

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/gogpu/g2d/geom"
	"github.com/gogpu/g2d/resource"
)

var (
	// ErrInvalidRequest is returned for malformed geometry: index out of
	// range, a triangle list whose index count is not a multiple of three,
	// an odd number of line vertices, or a mesh too large for one run.
	ErrInvalidRequest = errors.New("batch: invalid draw request")

	// ErrUnbindable is wrapped by Device.Bind when the key of one run cannot
	// be made current but the device can still draw other runs.
	ErrUnbindable = errors.New("batch: run cannot be bound")
)

// quadIndices is the index pattern of a quad with corners in order
// top-left, top-right, bottom-right, bottom-left.
var quadIndices = [6]uint16{0, 1, 2, 2, 3, 0}

// Config tunes the batcher.
type Config struct {
	// MaxRunVertices bounds the vertices addressed by one run. Indices are
	// 16-bit and relative to the run, so values above 65536 are clamped.
	MaxRunVertices int

	// MaxRunIndices bounds the indices drawn by one call.
	MaxRunIndices int

	// InitialVertices and InitialIndices size the buffers up front.
	InitialVertices int
	InitialIndices  int
}

// DefaultConfig returns the configuration used by the canvas.
func DefaultConfig() Config {
	return Config{
		MaxRunVertices:  math.MaxUint16 + 1,
		MaxRunIndices:   3 * (math.MaxUint16 + 1),
		InitialVertices: 4096,
		InitialIndices:  6144,
	}
}

// Validator reports whether handles still refer to live resources.
type Validator interface {
	ValidTexture(resource.TextureHandle) bool
	ValidProgram(resource.ProgramHandle) bool
}

// Device receives a flushed frame.
type Device interface {
	// Upload writes the frame's geometry to the GPU. It is called at most
	// once per flush.
	Upload(vertices []Vertex, indices []uint16) error
	// Bind makes key the current draw state. Errors wrapping
	// resource.ErrInvalidHandle or ErrUnbindable skip the run; any other
	// error aborts the flush.
	Bind(key Key) error
	// DrawIndexed draws count indices starting at firstIndex, each offset
	// by baseVertex.
	DrawIndexed(firstIndex, count uint32, baseVertex int32) error
}

// Stats describes one flush.
type Stats struct {
	Runs      int
	DrawCalls int
	Binds     int
	Vertices  int
	Indices   int
	Dropped   int

	// Skipped counts requests in runs whose Bind failed. SkipErr joins
	// those failures.
	Skipped int
	SkipErr error
}

// Batcher collects requests for one frame. It is not safe for concurrent
// use.
type Batcher struct {
	cfg       Config
	validator Validator

	vertices []Vertex
	indices  []uint16
	runs     []Run
	dropped  int
}

// New creates a batcher. A nil validator accepts every handle.
func New(cfg Config, v Validator) *Batcher {
	def := DefaultConfig()
	if cfg.MaxRunVertices <= 0 || cfg.MaxRunVertices > def.MaxRunVertices {
		cfg.MaxRunVertices = def.MaxRunVertices
	}
	if cfg.MaxRunIndices <= 0 {
		cfg.MaxRunIndices = def.MaxRunIndices
	}
	// A run must hold at least one quad.
	cfg.MaxRunVertices = max(cfg.MaxRunVertices, 4)
	cfg.MaxRunIndices = max(cfg.MaxRunIndices, 6)
	if cfg.InitialVertices < 0 {
		cfg.InitialVertices = 0
	}
	if cfg.InitialIndices < 0 {
		cfg.InitialIndices = 0
	}
	return &Batcher{
		cfg:       cfg,
		validator: v,
		vertices:  make([]Vertex, 0, cfg.InitialVertices),
		indices:   make([]uint16, 0, cfg.InitialIndices),
		runs:      make([]Run, 0, 64),
	}
}

// Config returns the effective configuration.
func (b *Batcher) Config() Config { return b.cfg }

// Runs returns the pending runs in submission order. The slice is only
// valid until the next call that modifies the batcher.
func (b *Batcher) Runs() []Run { return b.runs }

// Vertices returns the pending vertices.
func (b *Batcher) Vertices() []Vertex { return b.vertices }

// Indices returns the pending run-relative indices.
func (b *Batcher) Indices() []uint16 { return b.indices }

// Dropped returns the number of requests rejected since the last Reset.
func (b *Batcher) Dropped() int { return b.dropped }

// Empty reports whether nothing is pending.
func (b *Batcher) Empty() bool { return len(b.runs) == 0 }

// Reset discards pending geometry and keeps the allocated capacity.
func (b *Batcher) Reset() {
	b.vertices = b.vertices[:0]
	b.indices = b.indices[:0]
	b.runs = b.runs[:0]
	b.dropped = 0
}

// Add appends req transformed by m. A rejected request leaves the pending
// batch untouched.
func (b *Batcher) Add(req Request, m geom.Matrix) error {
	first := len(b.runs)
	var lastIndices uint32
	if first > 0 {
		lastIndices = b.runs[first-1].IndexCount
	}
	if err := b.add(req, m); err != nil {
		b.dropped++
		return err
	}
	if first > 0 && b.runs[first-1].IndexCount != lastIndices {
		first--
	}
	for i := first; i < len(b.runs); i++ {
		b.runs[i].Requests++
	}
	return nil
}

func (b *Batcher) add(req Request, m geom.Matrix) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	key := req.key()
	if err := b.validate(key); err != nil {
		return err
	}

	switch r := req.(type) {
	case Triangles:
		return b.addTriangles(key, r, m)
	case *Triangles:
		return b.addTriangles(key, *r, m)
	case Lines:
		return b.addLines(key, r, m)
	case *Lines:
		return b.addLines(key, *r, m)
	case Sprite:
		return b.addSprite(key, r, m)
	case *Sprite:
		return b.addSprite(key, *r, m)
	case TextRun:
		return b.addText(key, r, m)
	case *TextRun:
		return b.addText(key, *r, m)
	default:
		return fmt.Errorf("%w: unsupported request %T", ErrInvalidRequest, req)
	}
}

func (b *Batcher) validate(key Key) error {
	if b.validator == nil {
		return nil
	}
	if !key.Program.IsZero() && !b.validator.ValidProgram(key.Program) {
		return fmt.Errorf("program %s: %w", key.Program, resource.ErrInvalidHandle)
	}
	if !key.Texture.IsZero() && !b.validator.ValidTexture(key.Texture) {
		return fmt.Errorf("texture %s: %w", key.Texture, resource.ErrInvalidHandle)
	}
	return nil
}

// reserve returns the run that receives nv vertices and ni indices with
// key, opening a new run when the last one has a different key or would
// grow past the configured limits.
func (b *Batcher) reserve(key Key, nv, ni int) *Run {
	if n := len(b.runs); n > 0 {
		last := &b.runs[n-1]
		if last.Key == key &&
			int(last.VertexCount)+nv <= b.cfg.MaxRunVertices &&
			int(last.IndexCount)+ni <= b.cfg.MaxRunIndices {
			return last
		}
	}
	b.runs = append(b.runs, Run{
		Key:         key,
		FirstVertex: uint32(len(b.vertices)), //nolint:gosec // buffer length fits uint32
		FirstIndex:  uint32(len(b.indices)),  //nolint:gosec // buffer length fits uint32
	})
	return &b.runs[len(b.runs)-1]
}

func (b *Batcher) fits(nv, ni int) error {
	if nv > b.cfg.MaxRunVertices || ni > b.cfg.MaxRunIndices {
		return fmt.Errorf("%w: %d vertices, %d indices exceed one run (%d, %d)",
			ErrInvalidRequest, nv, ni, b.cfg.MaxRunVertices, b.cfg.MaxRunIndices)
	}
	return nil
}

// appendMesh appends already validated geometry to the run for key.
func (b *Batcher) appendMesh(key Key, verts []Vertex, idx []uint16, m geom.Matrix) {
	run := b.reserve(key, len(verts), len(idx))
	base := uint16(run.VertexCount) //nolint:gosec // bounded by MaxRunVertices
	for _, v := range verts {
		x, y := m.Apply(float64(v.X), float64(v.Y))
		v.X, v.Y = float32(x), float32(y)
		b.vertices = append(b.vertices, v)
	}
	for _, i := range idx {
		b.indices = append(b.indices, base+i)
	}
	run.VertexCount += uint32(len(verts)) //nolint:gosec // bounded by MaxRunVertices
	run.IndexCount += uint32(len(idx))    //nolint:gosec // bounded by MaxRunIndices
}

func checkIndices(idx []uint16, nv int) error {
	for i, v := range idx {
		if int(v) >= nv {
			return fmt.Errorf("%w: index %d at %d out of range for %d vertices", ErrInvalidRequest, v, i, nv)
		}
	}
	return nil
}

func (b *Batcher) addTriangles(key Key, r Triangles, m geom.Matrix) error {
	if len(r.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d triangle indices", ErrInvalidRequest, len(r.Indices))
	}
	if err := checkIndices(r.Indices, len(r.Vertices)); err != nil {
		return err
	}
	if len(r.Indices) == 0 {
		return nil
	}
	if err := b.fits(len(r.Vertices), len(r.Indices)); err != nil {
		return err
	}
	b.appendMesh(key, r.Vertices, r.Indices, m)
	return nil
}

func (b *Batcher) addLines(key Key, r Lines, m geom.Matrix) error {
	idx := r.Indices
	if idx == nil {
		if len(r.Vertices)%2 != 0 {
			return fmt.Errorf("%w: %d line vertices", ErrInvalidRequest, len(r.Vertices))
		}
		if len(r.Vertices) > math.MaxUint16+1 {
			return b.fits(len(r.Vertices), len(r.Vertices))
		}
		idx = make([]uint16, len(r.Vertices))
		for i := range idx {
			idx[i] = uint16(i) //nolint:gosec // bounded above
		}
	} else {
		if len(idx)%2 != 0 {
			return fmt.Errorf("%w: %d line indices", ErrInvalidRequest, len(idx))
		}
		if err := checkIndices(idx, len(r.Vertices)); err != nil {
			return err
		}
	}
	if len(idx) == 0 {
		return nil
	}
	if err := b.fits(len(r.Vertices), len(idx)); err != nil {
		return err
	}
	b.appendMesh(key, r.Vertices, idx, m)
	return nil
}

// appendQuad appends a quad whose corners are already in final space.
func (b *Batcher) appendQuad(key Key, corners [4][2]float32, uv [4]float32, c Color) {
	run := b.reserve(key, 4, 6)
	base := uint16(run.VertexCount) //nolint:gosec // bounded by MaxRunVertices
	u := [4][2]float32{{uv[0], uv[1]}, {uv[2], uv[1]}, {uv[2], uv[3]}, {uv[0], uv[3]}}
	for i, p := range corners {
		b.vertices = append(b.vertices, Vertex{
			X: p[0], Y: p[1],
			R: c.R, G: c.G, B: c.B, A: c.A,
			U: u[i][0], V: u[i][1],
		})
	}
	for _, i := range quadIndices {
		b.indices = append(b.indices, base+i)
	}
	run.VertexCount += 4
	run.IndexCount += 6
}

func (b *Batcher) addSprite(key Key, r Sprite, m geom.Matrix) error {
	if r.Dst.Empty() {
		return fmt.Errorf("%w: empty sprite rectangle %v", ErrInvalidRequest, r.Dst)
	}
	w, h := float32(r.Dst.W), float32(r.Dst.H)
	ox, oy := float32(r.Origin.X), float32(r.Origin.Y)
	local := [4][2]float32{{-ox, -oy}, {w - ox, -oy}, {w - ox, h - oy}, {-ox, h - oy}}

	sin, cos := float32(0), float32(1)
	if r.Rotation != 0 {
		sin, cos = math32.Sincos(float32(r.Rotation))
	}
	px, py := r.Dst.X+r.Origin.X, r.Dst.Y+r.Origin.Y

	var corners [4][2]float32
	for i, p := range local {
		rx := p[0]*cos - p[1]*sin
		ry := p[0]*sin + p[1]*cos
		x, y := m.Apply(px+float64(rx), py+float64(ry))
		corners[i] = [2]float32{float32(x), float32(y)}
	}
	src := r.Src
	if src.Empty() {
		src = geom.R(0, 0, 1, 1)
	}
	uv := [4]float32{float32(src.X), float32(src.Y), float32(src.X + src.W), float32(src.Y + src.H)}
	b.appendQuad(key, corners, uv, r.Color)
	return nil
}

func (b *Batcher) addText(key Key, r TextRun, m geom.Matrix) error {
	for i, g := range r.Glyphs {
		if g.Dst.Empty() {
			return fmt.Errorf("%w: empty rectangle for glyph %d", ErrInvalidRequest, i)
		}
	}
	for _, g := range r.Glyphs {
		var corners [4][2]float32
		for i, p := range [4]geom.Point{g.Dst.Min(), geom.Pt(g.Dst.X+g.Dst.W, g.Dst.Y), g.Dst.Max(), geom.Pt(g.Dst.X, g.Dst.Y+g.Dst.H)} {
			x, y := m.Apply(p.X, p.Y)
			corners[i] = [2]float32{float32(x), float32(y)}
		}
		b.appendQuad(key, corners, g.UV, r.Color)
	}
	return nil
}

// Flush replays the pending runs on dev: one upload, then for each run a
// bind when its key differs from the previous run's, and one draw. A run
// whose key can no longer be bound is skipped and the remaining runs are
// still drawn. The pending batch is consumed even when dev fails.
func (b *Batcher) Flush(dev Device) (Stats, error) {
	defer b.Reset()
	st := Stats{Dropped: b.dropped}
	if len(b.runs) == 0 {
		return st, nil
	}
	if err := dev.Upload(b.vertices, b.indices); err != nil {
		return st, fmt.Errorf("upload: %w", err)
	}
	st.Vertices = len(b.vertices)
	st.Indices = len(b.indices)

	var (
		prev     Key
		bound    bool
		skipErrs []error
	)
	for i, run := range b.runs {
		if run.IndexCount == 0 {
			continue
		}
		if !bound || run.Key != prev {
			if err := dev.Bind(run.Key); err != nil {
				err = fmt.Errorf("bind %s: %w", run.Key, err)
				if !skippable(err) {
					st.SkipErr = errors.Join(skipErrs...)
					return st, err
				}
				st.Skipped += run.Requests
				skipErrs = append(skipErrs, err)
				bound = false
				continue
			}
			st.Binds++
			prev, bound = run.Key, true
		}
		if err := dev.DrawIndexed(run.FirstIndex, run.IndexCount, int32(run.FirstVertex)); err != nil { //nolint:gosec // vertex count fits int32
			st.SkipErr = errors.Join(skipErrs...)
			return st, fmt.Errorf("draw run %d: %w", i, err)
		}
		st.DrawCalls++
		st.Runs++
	}
	st.SkipErr = errors.Join(skipErrs...)
	return st, nil
}

func skippable(err error) bool {
	return errors.Is(err, resource.ErrInvalidHandle) || errors.Is(err, ErrUnbindable)
}

// ColorFrom converts a straight-alpha color in the 0..1 range to a
// premultiplied, clamped Color.
func ColorFrom(r, g, bl, a float64) Color {
	ca := clamp01(float32(a))
	return Color{
		R: clamp01(float32(r)) * ca,
		G: clamp01(float32(g)) * ca,
		B: clamp01(float32(bl)) * ca,
		A: ca,
	}
}

func clamp01(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Min(math32.Max(v, 0), 1)
}
