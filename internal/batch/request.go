package batch

import (
	"github.com/gogpu/g2d/geom"
	"github.com/gogpu/g2d/resource"
)

// Request is one drawing request. The concrete types are [Triangles],
// [Lines], [Sprite] and [TextRun].
type Request interface {
	key() Key
}

// Triangles is an indexed triangle list. Positions are in local space and
// transformed by the matrix passed to [Batcher.Add].
type Triangles struct {
	Program  resource.ProgramHandle
	Texture  resource.TextureHandle
	Blend    BlendMode
	Vertices []Vertex
	Indices  []uint16
}

func (r Triangles) key() Key {
	return Key{Program: r.Program, Texture: r.Texture, Blend: r.Blend, Topology: TopologyTriangles}
}

// Lines is a list of line segments. Without Indices, consecutive vertex
// pairs form the segments.
type Lines struct {
	Program  resource.ProgramHandle
	Blend    BlendMode
	Vertices []Vertex
	Indices  []uint16
}

func (r Lines) key() Key {
	return Key{Program: r.Program, Blend: r.Blend, Topology: TopologyLines}
}

// Sprite is a textured quad. Dst is the destination rectangle in local
// space, Src the normalized texture rectangle, and the quad is rotated by
// Rotation radians around Origin, given relative to Dst's top-left corner.
type Sprite struct {
	Program  resource.ProgramHandle
	Texture  resource.TextureHandle
	Blend    BlendMode
	Dst      geom.Rect
	Src      geom.Rect
	Color    Color
	Rotation float64
	Origin   geom.Point
}

func (r Sprite) key() Key {
	return Key{Program: r.Program, Texture: r.Texture, Blend: r.Blend, Topology: TopologyTriangles}
}

// GlyphQuad places one glyph: Dst in local space, UV its normalized atlas
// rectangle.
type GlyphQuad struct {
	Dst geom.Rect
	UV  [4]float32 // u0, v0, u1, v1
}

// TextRun is a sequence of glyph quads sampling the same atlas texture.
type TextRun struct {
	Program resource.ProgramHandle
	Texture resource.TextureHandle
	Blend   BlendMode
	Glyphs  []GlyphQuad
	Color   Color
}

func (r TextRun) key() Key {
	return Key{Program: r.Program, Texture: r.Texture, Blend: r.Blend, Topology: TopologyTriangles}
}
