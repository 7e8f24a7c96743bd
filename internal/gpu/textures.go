package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g2d/resource"
)

// CreateTexture creates an RGBA8 texture from tightly packed, premultiplied
// pixels. A nil rgba leaves the texture contents undefined.
func (c *Context) CreateTexture(width, height int, rgba []byte) (resource.TextureHandle, error) {
	if err := c.checkLost(); err != nil {
		return resource.TextureHandle{}, err
	}
	if width <= 0 || height <= 0 {
		return resource.TextureHandle{}, fmt.Errorf("%w: texture size %dx%d", ErrOutOfRange, width, height)
	}
	if rgba != nil && len(rgba) != width*height*4 {
		return resource.TextureHandle{}, fmt.Errorf("%w: %d bytes for %dx%d texture", ErrOutOfRange, len(rgba), width, height)
	}

	w, h := uint32(width), uint32(height) //nolint:gosec // checked positive
	t, err := c.newTexture(w, h)
	if err != nil {
		return resource.TextureHandle{}, err
	}
	if rgba != nil {
		c.writeTexture(t.tex, 0, 0, w, h, rgba)
	}
	handle, err := c.textures.Allocate(t)
	if err != nil {
		c.destroyTexture(t)
		return resource.TextureHandle{}, err
	}
	return handle, nil
}

func (c *Context) newTexture(w, h uint32) (*texture, error) {
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "g2d_texture",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %dx%d: %w", w, h, err)
	}
	t := &texture{tex: tex, width: w, height: h}

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "g2d_texture_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		c.destroyTexture(t)
		return nil, fmt.Errorf("create texture view: %w", err)
	}
	t.view = view

	bg, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "g2d_texture_bind_group",
		Layout: c.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: c.uniform.NativeHandle(), Offset: 0, Size: viewportUniformSize}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: gputypes.TextureViewHandle(view.NativeHandle())}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: gputypes.SamplerHandle(c.sampler.NativeHandle())}},
		},
	})
	if err != nil {
		c.destroyTexture(t)
		return nil, fmt.Errorf("create texture bind group: %w", err)
	}
	t.bindGroup = bg
	return t, nil
}

func (c *Context) writeTexture(tex hal.Texture, x, y, w, h uint32, rgba []byte) {
	c.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: x, Y: y, Z: 0},
		},
		rgba,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	c.stats.Uploads++
	c.stats.UploadBytes += uint64(len(rgba))
}

// UpdateTexture replaces the pixels inside rect with tightly packed rgba.
func (c *Context) UpdateTexture(h resource.TextureHandle, rect image.Rectangle, rgba []byte) error {
	if err := c.checkLost(); err != nil {
		return err
	}
	t, err := c.textures.Get(h)
	if err != nil {
		return err
	}
	bounds := image.Rect(0, 0, int(t.width), int(t.height))
	if rect.Empty() || !rect.In(bounds) {
		return fmt.Errorf("%w: %v outside %v", ErrOutOfRange, rect, bounds)
	}
	if len(rgba) != rect.Dx()*rect.Dy()*4 {
		return fmt.Errorf("%w: %d bytes for %v", ErrOutOfRange, len(rgba), rect)
	}
	c.writeTexture(t.tex,
		uint32(rect.Min.X), uint32(rect.Min.Y), //nolint:gosec // inside bounds
		uint32(rect.Dx()), uint32(rect.Dy()), //nolint:gosec // inside bounds
		rgba)
	return nil
}

// TextureSize returns the size of h in pixels.
func (c *Context) TextureSize(h resource.TextureHandle) (width, height int, err error) {
	t, err := c.textures.Get(h)
	if err != nil {
		return 0, 0, err
	}
	return int(t.width), int(t.height), nil
}

// DeleteTexture frees h. The built-in white texture cannot be deleted.
func (c *Context) DeleteTexture(h resource.TextureHandle) error {
	if h == c.white {
		return fmt.Errorf("white texture %s: %w", h, resource.ErrInvalidHandle)
	}
	return c.textures.Free(h)
}

func (c *Context) releaseTexture(t *texture) {
	if c.lost || c.device == nil {
		return
	}
	c.destroyTexture(t)
}

func (c *Context) destroyTexture(t *texture) {
	if t.bindGroup != nil {
		c.device.DestroyBindGroup(t.bindGroup)
		t.bindGroup = nil
	}
	if t.view != nil {
		c.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		c.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
