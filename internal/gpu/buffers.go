package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g2d/resource"
)

// minBufferSize is the smallest buffer the context allocates.
const minBufferSize = 256

// BufferUsage selects what a buffer created with CreateBuffer is bound as.
type BufferUsage uint8

// Buffer usages.
const (
	UsageVertex BufferUsage = iota
	UsageIndex
	UsageUniform
)

func (u BufferUsage) hal() gputypes.BufferUsage {
	switch u {
	case UsageIndex:
		return gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	case UsageUniform:
		return gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	}
}

func (u BufferUsage) String() string {
	switch u {
	case UsageIndex:
		return "index"
	case UsageUniform:
		return "uniform"
	default:
		return "vertex"
	}
}

// align4 rounds n up to the 4-byte granularity queue writes require.
func align4(n uint64) uint64 { return (n + 3) &^ 3 }

// CreateBuffer allocates a GPU buffer of at least size bytes.
func (c *Context) CreateBuffer(usage BufferUsage, size int) (resource.BufferHandle, error) {
	if err := c.checkLost(); err != nil {
		return resource.BufferHandle{}, err
	}
	label := fmt.Sprintf("g2d_%s_buffer", usage)
	b, err := c.newBuffer(label, usage.hal(), uint64(max(size, 0))) //nolint:gosec // clamped non-negative
	if err != nil {
		return resource.BufferHandle{}, err
	}
	h, err := c.buffers.Allocate(b)
	if err != nil {
		c.device.DestroyBuffer(b.buf)
		return resource.BufferHandle{}, err
	}
	return h, nil
}

func (c *Context) newBuffer(label string, usage gputypes.BufferUsage, size uint64) (*buffer, error) {
	size = align4(max(size, minBufferSize))
	buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return &buffer{buf: buf, size: size, usage: usage, label: label}, nil
}

// UpdateBuffer writes data at offset. The write must fit in the buffer.
func (c *Context) UpdateBuffer(h resource.BufferHandle, offset int, data []byte) error {
	if err := c.checkLost(); err != nil {
		return err
	}
	b, err := c.buffers.Get(h)
	if err != nil {
		return err
	}
	if offset < 0 || uint64(offset)+align4(uint64(len(data))) > b.size { //nolint:gosec // offset checked non-negative
		return fmt.Errorf("%w: %d bytes at %d in %d-byte %s", ErrOutOfRange, len(data), offset, b.size, b.label)
	}
	c.writeBuffer(b.buf, uint64(offset), data) //nolint:gosec // offset checked non-negative
	return nil
}

// UploadBuffer replaces the contents of h with data, growing the buffer
// geometrically when data does not fit.
func (c *Context) UploadBuffer(h resource.BufferHandle, data []byte) error {
	if err := c.checkLost(); err != nil {
		return err
	}
	b, err := c.buffers.Get(h)
	if err != nil {
		return err
	}
	need := align4(uint64(len(data)))
	if need > b.size {
		size := b.size
		for size < need {
			size *= 2
		}
		grown, err := c.newBuffer(b.label, b.usage, size)
		if err != nil {
			return err
		}
		slogger().Debug("gpu: buffer grown", "label", b.label, "from", b.size, "to", grown.size)
		c.device.DestroyBuffer(b.buf)
		*b = *grown
	}
	c.writeBuffer(b.buf, 0, data)
	c.stats.Uploads++
	c.stats.UploadBytes += uint64(len(data))
	return nil
}

// writeBuffer pads data to a multiple of four bytes before writing it.
func (c *Context) writeBuffer(buf hal.Buffer, offset uint64, data []byte) {
	if len(data)%4 != 0 {
		padded := make([]byte, align4(uint64(len(data))))
		copy(padded, data)
		data = padded
	}
	c.queue.WriteBuffer(buf, offset, data)
}

// BufferSize returns the allocated size of h in bytes.
func (c *Context) BufferSize(h resource.BufferHandle) (int, error) {
	b, err := c.buffers.Get(h)
	if err != nil {
		return 0, err
	}
	return int(b.size), nil //nolint:gosec // buffer sizes fit int
}

// DeleteBuffer frees h.
func (c *Context) DeleteBuffer(h resource.BufferHandle) error {
	return c.buffers.Free(h)
}

func (c *Context) releaseBuffer(b *buffer) {
	if c.lost || c.device == nil || b.buf == nil {
		return
	}
	c.device.DestroyBuffer(b.buf)
}

// halBuffer resolves h for binding.
func (c *Context) halBuffer(h resource.BufferHandle) (hal.Buffer, error) {
	b, err := c.buffers.Get(h)
	if err != nil {
		return nil, err
	}
	return b.buf, nil
}
