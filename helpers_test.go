package g2d

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop HAL device for tests.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("no noop adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// newTestCanvas creates a 64x64 canvas on a noop device.
func newTestCanvas(t *testing.T, opts ...Option) *Canvas {
	t.Helper()
	device, queue := createNoopDevice(t)
	opts = append([]Option{WithDevice(device, queue), WithSize(64, 64), WithAtlasSize(128, 128)}, opts...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// frame runs draw between BeginFrame and EndFrame and returns the stats.
func frame(t *testing.T, c *Canvas, draw func()) FrameStats {
	t.Helper()
	if err := c.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	draw()
	st, err := c.EndFrame()
	if err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	return st
}

// solidTexture creates a size x size opaque texture.
func solidTexture(t *testing.T, c *Canvas, size int) TextureHandle {
	t.Helper()
	px := make([]byte, size*size*4)
	for i := range px {
		px[i] = 0xFF
	}
	h, err := c.CreateTexture(size, size, px)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	return h
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
