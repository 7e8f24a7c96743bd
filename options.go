package g2d

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g2d/geom"
)

// Option configures a Canvas during creation.
//
// Example:
//
//	// Own device, 1280x720 target
//	c, err := g2d.New(g2d.WithSize(1280, 720))
//
//	// Device shared with the host window
//	c, err := g2d.New(g2d.WithDeviceProvider(app), g2d.WithSurfaceTarget(view, w, h))
type Option func(*options)

// options holds optional configuration for Canvas creation.
type options struct {
	device    hal.Device
	queue     hal.Queue
	deviceSet bool
	provider  gpucontext.DeviceProvider

	width, height int
	format        gputypes.TextureFormat
	clear         RGBA

	surface                 hal.TextureView
	surfaceW, surfaceH      int
	maxRunVertices          int
	initialVertices         int
	initialIndices          int
	maxTextures, maxProgs   int
	camera                  *geom.Camera
	atlasWidth, atlasHeight int
}

// defaultOptions returns the default canvas options.
func defaultOptions() options {
	return options{
		width:  800,
		height: 600,
		clear:  Transparent,
	}
}

// WithDevice renders on a device owned by the caller. Close leaves the
// device alive.
func WithDevice(device hal.Device, queue hal.Queue) Option {
	return func(o *options) {
		o.device = device
		o.queue = queue
		o.deviceSet = true
	}
}

// WithDeviceProvider renders on the device of a host application, such as
// a gogpu window. The provider must also expose its HAL device and queue.
// The surface format of the provider becomes the target format.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithSize sets the initial render target size in pixels.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithFormat sets the render target format. Surface targets must match it.
func WithFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithClearColor sets the color every frame starts from.
func WithClearColor(c RGBA) Option {
	return func(o *options) {
		o.clear = c
	}
}

// WithMaxRunVertices bounds the vertices merged into a single draw call.
// Values above 65536 are clamped.
func WithMaxRunVertices(n int) Option {
	return func(o *options) {
		o.maxRunVertices = n
	}
}

// WithInitialCapacity preallocates the frame vertex and index buffers.
func WithInitialCapacity(vertices, indices int) Option {
	return func(o *options) {
		o.initialVertices = vertices
		o.initialIndices = indices
	}
}

// WithMaxResources limits the number of live textures and programs,
// built-in ones included. Zero means unbounded.
func WithMaxResources(textures, programs int) Option {
	return func(o *options) {
		o.maxTextures = textures
		o.maxProgs = programs
	}
}

// WithCamera sets the initial camera. The default camera is centered on
// the screen with zoom 1.
func WithCamera(cam geom.Camera) Option {
	return func(o *options) {
		o.camera = &cam
	}
}

// WithSurfaceTarget renders into a view supplied by the host instead of an
// offscreen texture.
func WithSurfaceTarget(view hal.TextureView, width, height int) Option {
	return func(o *options) {
		o.surface = view
		o.surfaceW = width
		o.surfaceH = height
	}
}

// WithAtlasSize sets the glyph atlas size of fonts created by the canvas.
func WithAtlasSize(width, height int) Option {
	return func(o *options) {
		o.atlasWidth = width
		o.atlasHeight = height
	}
}
