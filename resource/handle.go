package resource

import "fmt"

// Handle kinds. They carry no data and only parameterize [Handle].
type (
	// Texture tags handles of GPU textures.
	Texture struct{}
	// Buffer tags handles of GPU vertex, index and uniform buffers.
	Buffer struct{}
	// Program tags handles of linked shader programs.
	Program struct{}
)

// Handle identifies an entry of a [Table]. The zero Handle is never valid.
type Handle[K any] struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle[K]) IsZero() bool {
	return h.generation == 0
}

// Index returns the slot index of h.
func (h Handle[K]) Index() uint32 { return h.index }

// Generation returns the generation h was issued with.
func (h Handle[K]) Generation() uint32 { return h.generation }

// String returns a debug representation such as "3v2".
func (h Handle[K]) String() string {
	if h.IsZero() {
		return "nil"
	}
	return fmt.Sprintf("%dv%d", h.index, h.generation)
}

// Handle aliases used across g2d.
type (
	TextureHandle = Handle[Texture]
	BufferHandle  = Handle[Buffer]
	ProgramHandle = Handle[Program]
)
