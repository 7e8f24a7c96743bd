package gpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g2d/internal/batch"
	"github.com/gogpu/g2d/resource"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Config describes a Context.
type Config struct {
	// Width and Height of the render target in pixels.
	Width, Height int

	// Format of the render target. Surface targets must match it.
	Format gputypes.TextureFormat

	// ClearColor fills the target at the start of each frame.
	ClearColor gputypes.Color

	// Table limits. Zero means unbounded.
	MaxTextures int
	MaxBuffers  int
	MaxPrograms int

	// FenceTimeout bounds the end-of-frame wait. A timeout marks the
	// context lost.
	FenceTimeout time.Duration
}

// DefaultConfig returns an 800x600 BGRA8 target cleared to transparent black.
func DefaultConfig() Config {
	return Config{
		Width:        800,
		Height:       600,
		Format:       gputypes.TextureFormatBGRA8Unorm,
		FenceTimeout: 5 * time.Second,
	}
}

// texture is a live texture table entry.
type texture struct {
	tex       hal.Texture
	view      hal.TextureView
	bindGroup hal.BindGroup
	width     uint32
	height    uint32
}

// buffer is a live buffer table entry.
type buffer struct {
	buf   hal.Buffer
	size  uint64
	usage gputypes.BufferUsage
	label string
}

// Context is the graphics context: a device, its queue, the resource
// tables and the per-frame render pass. It is not safe for concurrent use.
type Context struct {
	cfg Config

	instance       hal.Instance
	device         hal.Device
	queue          hal.Queue
	externalDevice bool
	lost           bool

	textures *resource.Table[resource.Texture, *texture]
	buffers  *resource.Table[resource.Buffer, *buffer]
	programs *resource.Table[resource.Program, *program]

	// Shared across all textures and programs.
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
	uniform    hal.Buffer

	white          resource.TextureHandle
	defaultProgram resource.ProgramHandle

	// Frame geometry, re-uploaded every frame.
	vertexBuf resource.BufferHandle
	indexBuf  resource.BufferHandle
	scratch   []byte

	target frameTarget
	frame  frameState
	stats  Stats
}

// New creates a context on a device owned by the caller. Close does not
// destroy the device.
func New(device hal.Device, queue hal.Queue, cfg Config) (*Context, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil device or queue", ErrNoDevice)
	}
	c := newContext(cfg)
	c.device, c.queue = device, queue
	c.externalDevice = true
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewFromProvider creates a context on the device of a host provider. The
// provider must expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue, as gogpu's device providers do.
func NewFromProvider(provider any, cfg Config) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrNoDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrNoDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrNoDevice)
	}
	return New(device, queue, cfg)
}

// Open creates a context on its own device, preferring a discrete or
// integrated GPU from the Vulkan backend.
func Open(cfg Config) (*Context, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoDevice)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no GPU adapters found", ErrNoDevice)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	c := newContext(cfg)
	c.instance = instance
	c.device, c.queue = openDev.Device, openDev.Queue
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}
	slogger().Info("gpu: device opened", "adapter", selected.Info.Name)
	return c, nil
}

func newContext(cfg Config) *Context {
	def := DefaultConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.Format == 0 {
		cfg.Format = def.Format
	}
	if cfg.FenceTimeout <= 0 {
		cfg.FenceTimeout = def.FenceTimeout
	}

	c := &Context{cfg: cfg}
	c.textures = resource.NewTable[resource.Texture, *texture](
		resource.WithLimit[*texture](cfg.MaxTextures),
		resource.WithLabel[*texture]("textures"),
		resource.WithRelease[*texture](c.releaseTexture),
	)
	c.buffers = resource.NewTable[resource.Buffer, *buffer](
		resource.WithLimit[*buffer](cfg.MaxBuffers),
		resource.WithLabel[*buffer]("buffers"),
		resource.WithRelease[*buffer](c.releaseBuffer),
	)
	c.programs = resource.NewTable[resource.Program, *program](
		resource.WithLimit[*program](cfg.MaxPrograms),
		resource.WithLabel[*program]("programs"),
		resource.WithRelease[*program](c.releaseProgram),
	)
	return c
}

// init creates the objects every frame depends on.
func (c *Context) init() error {
	if err := c.createShared(); err != nil {
		return err
	}
	white, err := c.CreateTexture(1, 1, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	if err != nil {
		return fmt.Errorf("create white texture: %w", err)
	}
	c.white = white
	prog, err := c.CreateProgram(spriteVertexSource, spriteFragmentSource)
	if err != nil {
		return fmt.Errorf("create default program: %w", err)
	}
	c.defaultProgram = prog
	c.writeViewport()
	return nil
}

func (c *Context) createShared() error {
	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "g2d_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	c.bindLayout = bindLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "g2d_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	c.pipeLayout = pipeLayout

	sampler, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "g2d_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	c.sampler = sampler

	uniform, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "g2d_viewport_uniform",
		Size:  viewportUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create viewport uniform: %w", err)
	}
	c.uniform = uniform
	return nil
}

func (c *Context) destroyShared() {
	if c.device == nil || c.lost {
		c.bindLayout, c.pipeLayout, c.sampler, c.uniform = nil, nil, nil, nil
		return
	}
	if c.uniform != nil {
		c.device.DestroyBuffer(c.uniform)
		c.uniform = nil
	}
	if c.sampler != nil {
		c.device.DestroySampler(c.sampler)
		c.sampler = nil
	}
	if c.pipeLayout != nil {
		c.device.DestroyPipelineLayout(c.pipeLayout)
		c.pipeLayout = nil
	}
	if c.bindLayout != nil {
		c.device.DestroyBindGroupLayout(c.bindLayout)
		c.bindLayout = nil
	}
}

// Config returns the effective configuration.
func (c *Context) Config() Config { return c.cfg }

// Device returns the HAL device in use.
func (c *Context) Device() hal.Device { return c.device }

// Lost reports whether the context is lost.
func (c *Context) Lost() bool { return c.lost }

// MarkLost puts the context in the lost state. An open frame is discarded.
func (c *Context) MarkLost() {
	if c.lost {
		return
	}
	slogger().Warn("gpu: context lost")
	c.lost = true
	c.discardFrame()
}

// Restore adopts a new device after a loss. All resource handles issued
// before are invalidated, and the built-in resources are recreated.
func (c *Context) Restore(device hal.Device, queue hal.Queue) error {
	if device == nil || queue == nil {
		return fmt.Errorf("%w: nil device or queue", ErrNoDevice)
	}
	c.discardFrame()
	c.releaseAll()
	if !c.externalDevice && !c.lost && c.device != nil {
		c.device.Destroy()
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}

	c.device, c.queue = device, queue
	c.externalDevice = true
	c.lost = false
	if err := c.init(); err != nil {
		c.lost = true
		return fmt.Errorf("restore: %w", err)
	}
	slogger().Info("gpu: context restored")
	return nil
}

// releaseAll frees every table entry and shared object. While lost, the
// GPU objects died with the device and are only dropped.
func (c *Context) releaseAll() {
	c.programs.Clear()
	c.textures.Clear()
	c.buffers.Clear()
	c.white = resource.TextureHandle{}
	c.defaultProgram = resource.ProgramHandle{}
	c.vertexBuf = resource.BufferHandle{}
	c.indexBuf = resource.BufferHandle{}
	c.destroyTarget()
	c.destroyShared()
}

// Close releases every GPU object and, when the context opened its own
// device, the device itself.
func (c *Context) Close() {
	c.discardFrame()
	c.releaseAll()
	if !c.externalDevice && c.device != nil && !c.lost {
		c.device.Destroy()
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
	c.device, c.queue = nil, nil
}

func (c *Context) checkLost() error {
	if c.lost {
		return ErrContextLost
	}
	if c.device == nil {
		return ErrNoDevice
	}
	return nil
}

// ValidTexture reports whether h refers to a live texture.
func (c *Context) ValidTexture(h resource.TextureHandle) bool { return c.textures.Valid(h) }

// ValidProgram reports whether h refers to a live program.
func (c *Context) ValidProgram(h resource.ProgramHandle) bool { return c.programs.Valid(h) }

// WhiteTexture returns the built-in 1x1 white texture.
func (c *Context) WhiteTexture() resource.TextureHandle { return c.white }

// DefaultProgram returns the built-in sprite program.
func (c *Context) DefaultProgram() resource.ProgramHandle { return c.defaultProgram }

// Counts returns the number of live textures, buffers and programs,
// built-in ones included.
func (c *Context) Counts() (textures, buffers, programs int) {
	return c.textures.Len(), c.buffers.Len(), c.programs.Len()
}

var (
	_ batch.Device    = (*Context)(nil)
	_ batch.Validator = (*Context)(nil)
)
