package batch

import (
	"fmt"

	"github.com/gogpu/g2d/resource"
)

// Topology is the primitive type of a run.
type Topology uint8

const (
	// TopologyTriangles draws independent triangles.
	TopologyTriangles Topology = iota
	// TopologyLines draws independent line segments.
	TopologyLines
)

// String returns the topology name.
func (t Topology) String() string {
	switch t {
	case TopologyTriangles:
		return "triangles"
	case TopologyLines:
		return "lines"
	default:
		return fmt.Sprintf("Topology(%d)", t)
	}
}

// BlendMode selects how fragments combine with the framebuffer. Vertex
// colors are premultiplied in every mode.
type BlendMode uint8

const (
	// BlendAlpha is premultiplied source-over.
	BlendAlpha BlendMode = iota
	// BlendAdditive adds source to destination.
	BlendAdditive
	// BlendMultiply multiplies destination by source.
	BlendMultiply
	// BlendOpaque overwrites the destination.
	BlendOpaque
)

// String returns the blend mode name.
func (m BlendMode) String() string {
	switch m {
	case BlendAlpha:
		return "alpha"
	case BlendAdditive:
		return "additive"
	case BlendMultiply:
		return "multiply"
	case BlendOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("BlendMode(%d)", m)
	}
}

// Key is the GPU state a run is drawn with. Two requests can share a run
// only if their keys are equal. A zero Texture selects the built-in white
// texture and a zero Program the built-in sprite program.
type Key struct {
	Program  resource.ProgramHandle
	Texture  resource.TextureHandle
	Blend    BlendMode
	Topology Topology
}

// String returns a debug representation of the key.
func (k Key) String() string {
	return fmt.Sprintf("{program=%s texture=%s blend=%s topology=%s}", k.Program, k.Texture, k.Blend, k.Topology)
}

// Vertex is the on-GPU vertex layout: position, premultiplied color and
// texture coordinate, 32 bytes in total.
type Vertex struct {
	X, Y       float32
	R, G, B, A float32
	U, V       float32
}

// VertexSize is the byte stride of an encoded Vertex.
const VertexSize = 32

// Byte offsets of the Vertex attributes.
const (
	PositionOffset = 0
	ColorOffset    = 8
	TexCoordOffset = 24
)

// Color is a premultiplied RGBA color in the 0..1 range.
type Color struct {
	R, G, B, A float32
}

// White is opaque white.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// Run is a range of the frame buffers drawn with one draw call.
type Run struct {
	Key         Key
	FirstVertex uint32
	VertexCount uint32
	FirstIndex  uint32
	IndexCount  uint32
	// Requests counts the requests with geometry in the run.
	Requests int
}
