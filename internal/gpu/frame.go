package gpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g2d/internal/batch"
	"github.com/gogpu/g2d/resource"
)

// viewportUniformSize is the byte size of the viewport uniform:
// vec4(width, height, 1/width, 1/height).
const viewportUniformSize = 16

// frameTarget is where frames are rendered: an owned offscreen texture or
// a view supplied by the host.
type frameTarget struct {
	offscreen     hal.Texture
	offscreenView hal.TextureView
	surfaceView   hal.TextureView
	width         uint32
	height        uint32
}

// frameState is the recording state of the open frame.
type frameState struct {
	open      bool
	encoder   hal.CommandEncoder
	pass      hal.RenderPassEncoder
	uploaded  bool
	pipeline  hal.RenderPipeline
	bindGroup hal.BindGroup
}

// Size returns the render target size.
func (c *Context) Size() (width, height int) {
	return c.cfg.Width, c.cfg.Height
}

// SetViewport resizes the render target. It must not be called during a
// frame.
func (c *Context) SetViewport(width, height int) error {
	if c.frame.open {
		return ErrFrameInProgress
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrOutOfRange, width, height)
	}
	if width == c.cfg.Width && height == c.cfg.Height {
		return nil
	}
	c.cfg.Width, c.cfg.Height = width, height
	if c.target.surfaceView == nil {
		c.destroyTarget()
	}
	if !c.lost && c.device != nil {
		c.writeViewport()
	}
	return nil
}

// SetClearColor sets the color each frame starts from.
func (c *Context) SetClearColor(col gputypes.Color) {
	c.cfg.ClearColor = col
}

// SetSurfaceTarget makes subsequent frames render into view, sized
// width x height, instead of the offscreen target. A nil view switches back
// to the offscreen target.
func (c *Context) SetSurfaceTarget(view hal.TextureView, width, height int) error {
	if c.frame.open {
		return ErrFrameInProgress
	}
	c.destroyTarget()
	c.target.surfaceView = view
	if view == nil {
		return nil
	}
	return c.SetViewport(width, height)
}

func (c *Context) writeViewport() {
	w, h := float32(c.cfg.Width), float32(c.cfg.Height)
	var buf [viewportUniformSize]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(w))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(h))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(1/w))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(1/h))
	c.queue.WriteBuffer(c.uniform, 0, buf[:])
}

// ensureTarget returns the view to render into, (re)creating the offscreen
// texture when its size is stale.
func (c *Context) ensureTarget() (hal.TextureView, error) {
	if c.target.surfaceView != nil {
		return c.target.surfaceView, nil
	}
	w, h := uint32(c.cfg.Width), uint32(c.cfg.Height) //nolint:gosec // validated positive
	if c.target.offscreen != nil && c.target.width == w && c.target.height == h {
		return c.target.offscreenView, nil
	}
	c.destroyTarget()

	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "g2d_offscreen",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        c.cfg.Format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create offscreen target: %w", err)
	}
	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "g2d_offscreen_view",
		Format:        c.cfg.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		c.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create offscreen view: %w", err)
	}
	c.target.offscreen, c.target.offscreenView = tex, view
	c.target.width, c.target.height = w, h
	return view, nil
}

func (c *Context) destroyTarget() {
	if c.target.offscreen != nil && c.device != nil && !c.lost {
		c.device.DestroyTextureView(c.target.offscreenView)
		c.device.DestroyTexture(c.target.offscreen)
	}
	c.target.offscreen, c.target.offscreenView = nil, nil
	c.target.width, c.target.height = 0, 0
}

// InFrame reports whether a frame is being recorded.
func (c *Context) InFrame() bool { return c.frame.open }

// BeginFrame starts recording a render pass that clears the target.
func (c *Context) BeginFrame() error {
	if err := c.checkLost(); err != nil {
		return err
	}
	if c.frame.open {
		return ErrFrameInProgress
	}
	view, err := c.ensureTarget()
	if err != nil {
		return err
	}
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "g2d_frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("g2d_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "g2d_frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c.cfg.ClearColor,
		}},
	})
	pass.SetViewport(0, 0, float32(c.cfg.Width), float32(c.cfg.Height), 0, 1)

	c.frame = frameState{open: true, encoder: encoder, pass: pass}
	c.stats = Stats{}
	return nil
}

// Upload writes the frame geometry and binds the vertex and index buffers.
func (c *Context) Upload(vertices []batch.Vertex, indices []uint16) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	if c.frame.uploaded {
		return fmt.Errorf("%w: geometry already uploaded this frame", ErrFrameInProgress)
	}

	c.scratch = encodeVertices(c.scratch[:0], vertices)
	vb, err := c.frameBuffer(&c.vertexBuf, UsageVertex, c.scratch)
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	c.scratch = encodeIndices(c.scratch[:0], indices)
	ib, err := c.frameBuffer(&c.indexBuf, UsageIndex, c.scratch)
	if err != nil {
		return fmt.Errorf("index buffer: %w", err)
	}

	c.frame.pass.SetVertexBuffer(0, vb, 0)
	c.frame.pass.SetIndexBuffer(ib, gputypes.IndexFormatUint16, 0)
	c.frame.uploaded = true
	return nil
}

// frameBuffer uploads data into the persistent buffer *h, creating it on
// first use or after a restore.
func (c *Context) frameBuffer(h *resource.BufferHandle, usage BufferUsage, data []byte) (hal.Buffer, error) {
	if !c.buffers.Valid(*h) {
		nh, err := c.CreateBuffer(usage, len(data))
		if err != nil {
			return nil, err
		}
		*h = nh
	}
	if err := c.UploadBuffer(*h, data); err != nil {
		return nil, err
	}
	return c.halBuffer(*h)
}

// Bind makes key's pipeline and texture current. Switches that would not
// change the state are skipped.
func (c *Context) Bind(key batch.Key) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	progHandle := key.Program
	if progHandle.IsZero() {
		progHandle = c.defaultProgram
	}
	prog, err := c.programs.Get(progHandle)
	if err != nil {
		return err
	}
	texHandle := key.Texture
	if texHandle.IsZero() {
		texHandle = c.white
	}
	tex, err := c.textures.Get(texHandle)
	if err != nil {
		return err
	}
	pipeline, err := c.pipelineFor(prog, pipelineKey{blend: key.Blend, topology: key.Topology})
	if err != nil {
		return fmt.Errorf("%w: %w", batch.ErrUnbindable, err)
	}

	if pipeline != c.frame.pipeline {
		c.frame.pass.SetPipeline(pipeline)
		c.frame.pipeline = pipeline
		c.stats.PipelineBinds++
	}
	if tex.bindGroup != c.frame.bindGroup {
		c.frame.pass.SetBindGroup(0, tex.bindGroup, nil)
		c.frame.bindGroup = tex.bindGroup
		c.stats.BindGroupBinds++
	}
	return nil
}

// DrawIndexed records an indexed draw with the current binding.
func (c *Context) DrawIndexed(firstIndex, count uint32, baseVertex int32) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	if !c.frame.uploaded || c.frame.pipeline == nil {
		return fmt.Errorf("%w: draw before upload and bind", ErrNoFrame)
	}
	c.frame.pass.DrawIndexed(count, 1, firstIndex, baseVertex, 0)
	c.stats.DrawCalls++
	return nil
}

func (c *Context) checkFrame() error {
	if err := c.checkLost(); err != nil {
		return err
	}
	if !c.frame.open {
		return ErrNoFrame
	}
	return nil
}

// EndFrame ends the pass, submits it and waits for the GPU. A failed
// submit or fence wait marks the context lost.
func (c *Context) EndFrame() error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	f := c.frame
	c.frame = frameState{}
	f.pass.End()

	cmdBuf, err := f.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)
	if err := c.submitAndWait(cmdBuf); err != nil {
		return err
	}
	return nil
}

func (c *Context) submitAndWait(cmdBuf hal.CommandBuffer) error {
	fence, err := c.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer c.device.DestroyFence(fence)

	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		c.MarkLost()
		return fmt.Errorf("%w: submit: %w", ErrContextLost, err)
	}
	ok, err := c.device.Wait(fence, 1, c.cfg.FenceTimeout)
	if err != nil {
		c.MarkLost()
		return fmt.Errorf("%w: wait for GPU: %w", ErrContextLost, err)
	}
	if !ok {
		c.MarkLost()
		return fmt.Errorf("%w: GPU wait timed out after %v", ErrContextLost, c.cfg.FenceTimeout)
	}
	return nil
}

// discardFrame abandons an open frame without submitting it.
func (c *Context) discardFrame() {
	if !c.frame.open {
		return
	}
	f := c.frame
	c.frame = frameState{}
	if c.lost {
		return
	}
	f.pass.End()
	f.encoder.DiscardEncoding()
}

// Snapshot copies the offscreen target into an RGBA image. It fails while
// a frame is open or when rendering into a surface.
func (c *Context) Snapshot() (*image.RGBA, error) {
	if err := c.checkLost(); err != nil {
		return nil, err
	}
	if c.frame.open {
		return nil, ErrFrameInProgress
	}
	if c.target.surfaceView != nil {
		return nil, fmt.Errorf("%w: snapshot of a surface target", ErrOutOfRange)
	}
	if _, err := c.ensureTarget(); err != nil {
		return nil, err
	}
	w, h := c.target.width, c.target.height

	// Buffer copies need rows aligned to 256 bytes.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	aligned := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(aligned) * uint64(h)

	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "g2d_snapshot_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(staging)

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "g2d_snapshot_encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("g2d_snapshot"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: c.target.offscreen,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(c.target.offscreen, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: aligned, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: c.target.offscreen, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: c.target.offscreen,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)
	if err := c.submitAndWait(cmdBuf); err != nil {
		return nil, err
	}

	readback := make([]byte, size)
	if err := c.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	bgra := c.cfg.Format == gputypes.TextureFormatBGRA8Unorm
	for y := range int(h) {
		src := readback[y*int(aligned) : y*int(aligned)+int(bytesPerRow)]
		dst := img.Pix[y*img.Stride : y*img.Stride+int(bytesPerRow)]
		copy(dst, src)
		if bgra {
			for i := 0; i < len(dst); i += 4 {
				dst[i], dst[i+2] = dst[i+2], dst[i]
			}
		}
	}
	return img, nil
}

// encodeVertices serializes vertices in the layout described by
// vertexLayout.
func encodeVertices(dst []byte, vs []batch.Vertex) []byte {
	n := len(vs) * batch.VertexSize
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, v := range vs {
		o := i * batch.VertexSize
		for j, f := range [8]float32{v.X, v.Y, v.R, v.G, v.B, v.A, v.U, v.V} {
			binary.LittleEndian.PutUint32(dst[o+j*4:], math.Float32bits(f))
		}
	}
	return dst
}

func encodeIndices(dst []byte, idx []uint16) []byte {
	n := len(idx) * 2
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, v := range idx {
		binary.LittleEndian.PutUint16(dst[i*2:], v)
	}
	return dst
}
