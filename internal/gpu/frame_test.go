package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/g2d/geom"
	"github.com/gogpu/g2d/internal/batch"
	"github.com/gogpu/g2d/resource"
)

func quadGeometry() ([]batch.Vertex, []uint16) {
	v := []batch.Vertex{
		{X: 0, Y: 0, A: 1}, {X: 10, Y: 0, A: 1}, {X: 10, Y: 10, A: 1}, {X: 0, Y: 10, A: 1},
	}
	return v, []uint16{0, 1, 2, 2, 3, 0}
}

func TestFrameProtocol(t *testing.T) {
	c := newTestContext(t)

	if err := c.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if !c.InFrame() {
		t.Fatal("InFrame() = false after BeginFrame")
	}
	if err := c.BeginFrame(); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("second BeginFrame error = %v, want ErrFrameInProgress", err)
	}

	v, idx := quadGeometry()
	if err := c.Upload(v, idx); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := c.Upload(v, idx); err == nil {
		t.Error("second Upload in one frame succeeded")
	}
	if err := c.Bind(batch.Key{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := c.DrawIndexed(0, 6, 0); err != nil {
		t.Fatalf("DrawIndexed: %v", err)
	}
	if err := c.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	st := c.Stats()
	if st.DrawCalls != 1 {
		t.Errorf("DrawCalls = %d, want 1", st.DrawCalls)
	}
	if st.Uploads != 2 {
		t.Errorf("Uploads = %d, want 2 (vertices and indices)", st.Uploads)
	}
	if c.InFrame() {
		t.Error("InFrame() = true after EndFrame")
	}
}

func TestFrameOperationsOutsideFrame(t *testing.T) {
	c := newTestContext(t)
	v, idx := quadGeometry()
	if err := c.Upload(v, idx); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Upload error = %v, want ErrNoFrame", err)
	}
	if err := c.Bind(batch.Key{}); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Bind error = %v, want ErrNoFrame", err)
	}
	if err := c.DrawIndexed(0, 6, 0); !errors.Is(err, ErrNoFrame) {
		t.Errorf("DrawIndexed error = %v, want ErrNoFrame", err)
	}
	if err := c.EndFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("EndFrame error = %v, want ErrNoFrame", err)
	}
}

func TestDrawBeforeBind(t *testing.T) {
	c := newTestContext(t)
	if err := c.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := c.DrawIndexed(0, 6, 0); !errors.Is(err, ErrNoFrame) {
		t.Errorf("DrawIndexed before Upload error = %v, want ErrNoFrame", err)
	}
	if err := c.EndFrame(); err != nil {
		t.Fatal(err)
	}
}

func TestBindStaleTexture(t *testing.T) {
	c := newTestContext(t)
	tex, err := c.CreateTexture(2, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteTexture(tex); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.EndFrame() }()
	if err := c.Bind(batch.Key{Texture: tex}); !errors.Is(err, resource.ErrInvalidHandle) {
		t.Errorf("Bind(stale) error = %v, want ErrInvalidHandle", err)
	}
}

func TestBatcherFlushThroughContext(t *testing.T) {
	c := newTestContext(t)
	tex, err := c.CreateTexture(8, 8, make([]byte, 8*8*4))
	if err != nil {
		t.Fatal(err)
	}

	b := batch.New(batch.DefaultConfig(), c)
	if err := c.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	for i := range 100 {
		s := batch.Sprite{Texture: tex, Dst: geom.R(float64(i%10)*6, float64(i/10)*6, 5, 5), Color: batch.White}
		if err := b.Add(s, geom.Identity()); err != nil {
			t.Fatal(err)
		}
	}
	bst, err := b.Flush(c)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := c.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if bst.DrawCalls != 1 || bst.Indices != 600 || bst.Vertices != 400 {
		t.Errorf("batch stats = %+v, want 1 draw, 600 indices, 400 vertices", bst)
	}
	if c.Stats().DrawCalls != 1 {
		t.Errorf("context DrawCalls = %d, want 1", c.Stats().DrawCalls)
	}
}

func TestEmptyFrame(t *testing.T) {
	c := newTestContext(t)
	before, _, _ := c.Counts()
	b := batch.New(batch.DefaultConfig(), c)

	if err := c.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Flush(c); err != nil {
		t.Fatal(err)
	}
	if err := c.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if c.Stats().DrawCalls != 0 {
		t.Errorf("DrawCalls = %d, want 0", c.Stats().DrawCalls)
	}
	after, buffers, _ := c.Counts()
	if before != after || buffers != 0 {
		t.Errorf("empty frame changed tables: textures %d -> %d, buffers %d", before, after, buffers)
	}
}

func TestViewportAndSurface(t *testing.T) {
	c := newTestContext(t)
	if err := c.SetViewport(0, 10); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetViewport(0,10) error = %v, want ErrOutOfRange", err)
	}
	if err := c.SetViewport(128, 32); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := c.SetViewport(10, 10); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("SetViewport during frame error = %v, want ErrFrameInProgress", err)
	}
	if err := c.EndFrame(); err != nil {
		t.Fatal(err)
	}

	img, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 32 {
		t.Errorf("Snapshot bounds = %v, want 128x32", b)
	}
}

func TestEncodeVertices(t *testing.T) {
	v := []batch.Vertex{{X: 1, Y: 2, R: 0.1, G: 0.2, B: 0.3, A: 0.4, U: 0.5, V: 0.6}}
	buf := encodeVertices(nil, v)
	if len(buf) != batch.VertexSize {
		t.Fatalf("len = %d, want %d", len(buf), batch.VertexSize)
	}
	read := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	if read(batch.PositionOffset) != 1 || read(batch.PositionOffset+4) != 2 {
		t.Error("position not at PositionOffset")
	}
	if read(batch.ColorOffset+12) != 0.4 {
		t.Error("alpha not at ColorOffset+12")
	}
	if read(batch.TexCoordOffset) != 0.5 || read(batch.TexCoordOffset+4) != 0.6 {
		t.Error("tex coord not at TexCoordOffset")
	}
}

func TestEncodeIndices(t *testing.T) {
	buf := encodeIndices(nil, []uint16{1, 0x0203})
	want := []byte{1, 0, 3, 2}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("encodeIndices = %v, want %v", buf, want)
		}
	}
}
