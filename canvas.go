package g2d

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"

	"github.com/gogpu/g2d/geom"
	"github.com/gogpu/g2d/internal/atlas"
	"github.com/gogpu/g2d/internal/batch"
	"github.com/gogpu/g2d/internal/gpu"
	"github.com/gogpu/g2d/resource"
)

// BlendMode selects how drawn pixels combine with the framebuffer.
type BlendMode = batch.BlendMode

// Blend modes.
const (
	BlendAlpha    = batch.BlendAlpha
	BlendAdditive = batch.BlendAdditive
	BlendMultiply = batch.BlendMultiply
	BlendOpaque   = batch.BlendOpaque
)

// Vertex is the vertex layout of DrawTriangles and DrawLines: position,
// premultiplied color and texture coordinate.
type Vertex = batch.Vertex

// Handles issued by the canvas. The zero handle selects the built-in
// white texture or sprite program where one is accepted.
type (
	TextureHandle = resource.TextureHandle
	ProgramHandle = resource.ProgramHandle
)

// SpriteOptions refine DrawSprite.
type SpriteOptions struct {
	// Src is the source rectangle in texels. Nil draws the whole texture.
	Src *geom.Rect
	// Color tints the sprite. The zero value draws it untinted.
	Color RGBA
	// Rotation in radians around Origin.
	Rotation float64
	// Origin is the pivot relative to the top-left of the destination.
	Origin geom.Point
}

// Canvas draws batched 2D geometry. All drawing happens between BeginFrame
// and EndFrame. A Canvas is not safe for concurrent use.
type Canvas struct {
	gpu     *gpu.Context
	batcher *batch.Batcher
	xf      *TransformStack

	camera       geom.Camera
	customCamera bool
	blend        BlendMode
	program      ProgramHandle
	atlasCfg     atlas.Config

	inFrame     bool
	frameStart  time.Time
	dropped     int
	glyphErrors int
	last        FrameStats
	timer       *FrameTimer
	closed      bool
}

// New creates a canvas. Without WithDevice or WithDeviceProvider it opens
// its own GPU device.
func New(opts ...Option) (*Canvas, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg := gpu.DefaultConfig()
	cfg.Width, cfg.Height = o.width, o.height
	if o.format != 0 {
		cfg.Format = o.format
	}
	cfg.ClearColor = o.clear.clearValue()
	cfg.MaxTextures = o.maxTextures
	cfg.MaxPrograms = o.maxProgs

	var (
		ctx *gpu.Context
		err error
	)
	switch {
	case o.deviceSet:
		ctx, err = gpu.New(o.device, o.queue, cfg)
	case o.provider != nil:
		if o.format == 0 {
			cfg.Format = o.provider.SurfaceFormat()
		}
		ctx, err = gpu.NewFromProvider(o.provider, cfg)
	default:
		ctx, err = gpu.Open(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("g2d: %w", err)
	}
	if o.surface != nil {
		if err := ctx.SetSurfaceTarget(o.surface, o.surfaceW, o.surfaceH); err != nil {
			ctx.Close()
			return nil, fmt.Errorf("g2d: surface target: %w", err)
		}
	}

	c := &Canvas{
		gpu: ctx,
		batcher: batch.New(batch.Config{
			MaxRunVertices:  o.maxRunVertices,
			InitialVertices: o.initialVertices,
			InitialIndices:  o.initialIndices,
		}, ctx),
		xf:       NewTransformStack(),
		atlasCfg: atlas.DefaultConfig(),
		timer:    NewFrameTimer(defaultTimerWindow),
	}
	if o.atlasWidth > 0 && o.atlasHeight > 0 {
		c.atlasCfg.Width, c.atlasCfg.Height = o.atlasWidth, o.atlasHeight
	}
	c.camera = geom.DefaultCamera(c.Screen())
	if o.camera != nil {
		c.camera = *o.camera
		c.customCamera = true
	}
	Logger().Debug("g2d: canvas created", "width", cfg.Width, "height", cfg.Height, "format", cfg.Format)
	return c, nil
}

// Close releases every GPU resource. The canvas is unusable afterwards.
func (c *Canvas) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.inFrame = false
	c.batcher.Reset()
	c.gpu.Close()
}

// check returns the error shared by every operation on a closed or lost
// canvas.
func (c *Canvas) check() error {
	if c.closed {
		return fmt.Errorf("%w: canvas is closed", ErrUsage)
	}
	if c.gpu.Lost() {
		return ErrContextLost
	}
	return nil
}

// checkFrame additionally requires an open frame.
func (c *Canvas) checkFrame() error {
	if err := c.check(); err != nil {
		return err
	}
	if !c.inFrame {
		return fmt.Errorf("%w: draw outside BeginFrame/EndFrame", ErrUsage)
	}
	return nil
}

// BeginFrame starts a frame: the target is cleared, pending geometry is
// discarded and the transform stack is reset to the camera.
func (c *Canvas) BeginFrame() error {
	if err := c.check(); err != nil {
		return err
	}
	if c.inFrame {
		return fmt.Errorf("%w: BeginFrame called twice", ErrUsage)
	}
	if err := c.gpu.BeginFrame(); err != nil {
		return err
	}
	c.inFrame = true
	c.frameStart = time.Now()
	c.dropped = 0
	c.glyphErrors = 0
	c.batcher.Reset()
	c.xf.SetBase(c.camera.Matrix(c.Screen()))
	return nil
}

// EndFrame draws the pending geometry and submits the frame. The pending
// batch is consumed even when drawing fails.
func (c *Canvas) EndFrame() (FrameStats, error) {
	if err := c.checkFrame(); err != nil {
		return FrameStats{}, err
	}
	c.inFrame = false

	bst, flushErr := c.batcher.Flush(c.gpu)
	if bst.Skipped > 0 {
		c.dropped += bst.Skipped
		Logger().Debug("g2d: runs skipped", "requests", bst.Skipped, "err", bst.SkipErr)
	}
	if c.gpu.Lost() {
		return FrameStats{}, fmt.Errorf("end frame: %w", flushErr)
	}
	if err := c.gpu.EndFrame(); err != nil {
		return FrameStats{}, err
	}
	gst := c.gpu.Stats()
	st := FrameStats{
		DrawCalls:    gst.DrawCalls,
		StateChanges: gst.StateChanges(),
		Binds:        bst.Binds,
		Runs:         bst.Runs,
		Vertices:     bst.Vertices,
		Indices:      bst.Indices,
		Dropped:      c.dropped,
		GlyphErrors:  c.glyphErrors,
		Uploads:      gst.Uploads,
		CPUTime:      time.Since(c.frameStart),
	}
	c.last = st
	c.timer.Record(st.CPUTime)
	if flushErr != nil {
		return st, fmt.Errorf("end frame: %w", flushErr)
	}
	return st, nil
}

// InFrame reports whether a frame is open.
func (c *Canvas) InFrame() bool { return c.inFrame }

// LastFrame returns the statistics of the last completed frame.
func (c *Canvas) LastFrame() FrameStats { return c.last }

// Timer returns the rolling frame timer.
func (c *Canvas) Timer() *FrameTimer { return c.timer }

// add submits one request with the current transform. Rejected requests
// are logged and counted, and the frame continues.
func (c *Canvas) add(op string, req batch.Request) error {
	if err := c.batcher.Add(req, c.xf.Current()); err != nil {
		return c.drop(op, err)
	}
	return nil
}

func (c *Canvas) drop(op string, err error) error {
	c.dropped++
	Logger().Debug("g2d: draw dropped", "op", op, "err", err)
	return fmt.Errorf("%s: %w", op, err)
}

// DrawTriangles draws an indexed triangle list sampling tex. Vertex colors
// are premultiplied; texture coordinates are normalized.
func (c *Canvas) DrawTriangles(vertices []Vertex, indices []uint16, tex TextureHandle) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	return c.add("draw triangles", batch.Triangles{
		Program:  c.program,
		Texture:  tex,
		Blend:    c.blend,
		Vertices: vertices,
		Indices:  indices,
	})
}

// DrawLines draws one-pixel line segments. Without indices, consecutive
// vertex pairs form the segments.
func (c *Canvas) DrawLines(vertices []Vertex, indices []uint16) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	return c.add("draw lines", batch.Lines{
		Program:  c.program,
		Blend:    c.blend,
		Vertices: vertices,
		Indices:  indices,
	})
}

// DrawLine draws a single segment from p0 to p1.
func (c *Canvas) DrawLine(p0, p1 geom.Point, col RGBA) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	vc := col.vertex()
	return c.add("draw line", batch.Lines{
		Program: c.program,
		Blend:   c.blend,
		Vertices: []Vertex{
			colored(p0, vc),
			colored(p1, vc),
		},
	})
}

// FillRect fills r with a solid color. A rectangle without area is
// rejected with ErrInvalidRequest.
func (c *Canvas) FillRect(r geom.Rect, col RGBA) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	return c.add("fill rect", batch.Sprite{
		Program: c.program,
		Blend:   c.blend,
		Dst:     r,
		Color:   col.vertex(),
	})
}

// StrokeRect outlines r with one-pixel lines.
func (c *Canvas) StrokeRect(r geom.Rect, col RGBA) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	vc := col.vertex()
	lo, hi := r.Min(), r.Max()
	return c.add("stroke rect", batch.Lines{
		Program: c.program,
		Blend:   c.blend,
		Vertices: []Vertex{
			colored(lo, vc),
			colored(geom.Pt(hi.X, lo.Y), vc),
			colored(hi, vc),
			colored(geom.Pt(lo.X, hi.Y), vc),
		},
		Indices: []uint16{0, 1, 1, 2, 2, 3, 3, 0},
	})
}

func colored(p geom.Point, col batch.Color) Vertex {
	return Vertex{X: float32(p.X), Y: float32(p.Y), R: col.R, G: col.G, B: col.B, A: col.A}
}

// DrawSprite draws tex, or the part of it selected by opts.Src, into dst.
// An empty dst is rejected with ErrInvalidRequest.
func (c *Canvas) DrawSprite(tex TextureHandle, dst geom.Rect, opts SpriteOptions) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	var src geom.Rect
	if opts.Src != nil {
		w, h, err := c.gpu.TextureSize(tex)
		if err != nil {
			return c.drop("draw sprite", err)
		}
		src = geom.R(opts.Src.X/float64(w), opts.Src.Y/float64(h),
			opts.Src.W/float64(w), opts.Src.H/float64(h))
	}
	tint := batch.White
	if opts.Color != (RGBA{}) {
		tint = opts.Color.vertex()
	}
	return c.add("draw sprite", batch.Sprite{
		Program:  c.program,
		Texture:  tex,
		Blend:    c.blend,
		Dst:      dst,
		Src:      src,
		Color:    tint,
		Rotation: opts.Rotation,
		Origin:   opts.Origin,
	})
}

// SetBlendMode sets the blend mode of subsequent draws. It persists
// across frames.
func (c *Canvas) SetBlendMode(m BlendMode) { c.blend = m }

// BlendMode returns the current blend mode.
func (c *Canvas) BlendMode() BlendMode { return c.blend }

// SetProgram sets the program of subsequent draws. The zero handle
// restores the built-in sprite program.
func (c *Canvas) SetProgram(p ProgramHandle) { c.program = p }

// Push composes m onto the current transform until the matching Pop.
func (c *Canvas) Push(m geom.Matrix) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	c.xf.Push(m)
	return nil
}

// Pop restores the transform in effect before the last Push.
func (c *Canvas) Pop() error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	return c.xf.Pop()
}

// Transform returns the current transform.
func (c *Canvas) Transform() geom.Matrix { return c.xf.Current() }

// CreateTexture uploads a width x height texture from premultiplied RGBA8
// pixels. Nil pixels leave it transparent.
func (c *Canvas) CreateTexture(width, height int, rgba []byte) (TextureHandle, error) {
	if err := c.check(); err != nil {
		return TextureHandle{}, err
	}
	return c.gpu.CreateTexture(width, height, rgba)
}

// CreateTextureFromImage uploads img, converting it to premultiplied RGBA.
func (c *Canvas) CreateTextureFromImage(img image.Image) (TextureHandle, error) {
	if err := c.check(); err != nil {
		return TextureHandle{}, err
	}
	rgba := toRGBA(img)
	b := rgba.Bounds()
	return c.gpu.CreateTexture(b.Dx(), b.Dy(), rgba.Pix)
}

// toRGBA returns img as a tightly packed *image.RGBA with origin (0,0).
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// UpdateTexture replaces the pixels of rect, in texels, with premultiplied
// RGBA8 data.
func (c *Canvas) UpdateTexture(h TextureHandle, rect image.Rectangle, rgba []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.gpu.UpdateTexture(h, rect, rgba)
}

// TextureSize returns the size of a live texture.
func (c *Canvas) TextureSize(h TextureHandle) (width, height int, err error) {
	if err := c.check(); err != nil {
		return 0, 0, err
	}
	return c.gpu.TextureSize(h)
}

// FreeTexture releases a texture. The handle, and any copy of it, becomes
// invalid. Draws already queued with it in the open frame are dropped at
// EndFrame; the rest of the frame is drawn.
func (c *Canvas) FreeTexture(h TextureHandle) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.gpu.DeleteTexture(h)
}

// CreateProgram compiles a WGSL vertex and fragment stage into a program.
// The vertex stage must define vs_main and the fragment stage fs_main;
// both use the bindings of the built-in program.
func (c *Canvas) CreateProgram(vertexSrc, fragmentSrc string) (ProgramHandle, error) {
	if err := c.check(); err != nil {
		return ProgramHandle{}, err
	}
	return c.gpu.CreateProgram(vertexSrc, fragmentSrc)
}

// FreeProgram releases a program. Draws already queued with it in the
// open frame are dropped at EndFrame.
func (c *Canvas) FreeProgram(h ProgramHandle) error {
	if err := c.check(); err != nil {
		return err
	}
	if h == c.program {
		c.program = ProgramHandle{}
	}
	return c.gpu.DeleteProgram(h)
}

// DefaultShaderSource returns the WGSL of the built-in sprite program, a
// starting point for custom programs.
func DefaultShaderSource() (vertex, fragment string) {
	return gpu.SpriteVertexSource(), gpu.SpriteFragmentSource()
}

// Resize changes the render target size. The default camera follows the
// new size; a camera set with SetCamera is kept.
func (c *Canvas) Resize(width, height int) error {
	if err := c.check(); err != nil {
		return err
	}
	if c.inFrame {
		return fmt.Errorf("%w: Resize during a frame", ErrUsage)
	}
	if err := c.gpu.SetViewport(width, height); err != nil {
		return err
	}
	if !c.customCamera {
		c.camera = geom.DefaultCamera(c.Screen())
	}
	return nil
}

// SetSurfaceTarget renders subsequent frames into view. A nil view returns
// to the offscreen target.
func (c *Canvas) SetSurfaceTarget(view hal.TextureView, width, height int) error {
	if err := c.check(); err != nil {
		return err
	}
	if c.inFrame {
		return fmt.Errorf("%w: SetSurfaceTarget during a frame", ErrUsage)
	}
	return c.gpu.SetSurfaceTarget(view, width, height)
}

// SetClearColor sets the color each frame starts from.
func (c *Canvas) SetClearColor(col RGBA) {
	c.gpu.SetClearColor(col.clearValue())
}

// SetCamera sets the camera used from the next BeginFrame on.
func (c *Canvas) SetCamera(cam geom.Camera) {
	c.camera = cam
	c.customCamera = true
}

// ResetCamera restores the default camera, which follows the screen size.
func (c *Canvas) ResetCamera() {
	c.camera = geom.DefaultCamera(c.Screen())
	c.customCamera = false
}

// Camera returns the current camera.
func (c *Canvas) Camera() geom.Camera { return c.camera }

// Screen returns the render target size.
func (c *Canvas) Screen() geom.Screen {
	w, h := c.gpu.Size()
	return geom.Screen{Width: w, Height: h}
}

// ScreenToWorld maps a pixel position to world coordinates through the
// current camera.
func (c *Canvas) ScreenToWorld(p geom.Point) geom.Point {
	return c.camera.ScreenToWorld(c.Screen(), p)
}

// Snapshot reads back the offscreen target after the last frame.
func (c *Canvas) Snapshot() (*image.RGBA, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.inFrame {
		return nil, fmt.Errorf("%w: Snapshot during a frame", ErrUsage)
	}
	return c.gpu.Snapshot()
}

// NotifyContextLost tells the canvas the device is gone. An open frame is
// discarded and every operation fails with ErrContextLost until Restore.
func (c *Canvas) NotifyContextLost() {
	c.gpu.MarkLost()
	c.inFrame = false
	c.batcher.Reset()
	c.xf.Reset()
}

// Restore adopts a new device after a loss. Every handle issued before,
// including those of fonts, becomes invalid; fonts rebuild their atlas on
// next use.
func (c *Canvas) Restore(device hal.Device, queue hal.Queue) error {
	if c.closed {
		return fmt.Errorf("%w: canvas is closed", ErrUsage)
	}
	c.inFrame = false
	c.batcher.Reset()
	c.program = ProgramHandle{}
	return c.gpu.Restore(device, queue)
}

// Lost reports whether the canvas is waiting for Restore.
func (c *Canvas) Lost() bool { return c.gpu.Lost() }

// Counts returns the number of live textures and programs, built-in ones
// included.
func (c *Canvas) Counts() (textures, programs int) {
	t, _, p := c.gpu.Counts()
	return t, p
}
