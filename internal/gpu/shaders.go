package gpu

import (
	_ "embed"
)

// Built-in sprite program. Every request that does not name a program is
// drawn with it: vertex color times the sampled texel, where solid shapes
// sample the white texture.

//go:embed shaders/sprite_vertex.wgsl
var spriteVertexSource string

//go:embed shaders/sprite_fragment.wgsl
var spriteFragmentSource string

// SpriteVertexSource returns the WGSL of the built-in vertex stage. Custom
// programs usually pair it with their own fragment stage.
func SpriteVertexSource() string { return spriteVertexSource }

// SpriteFragmentSource returns the WGSL of the built-in fragment stage.
func SpriteFragmentSource() string { return spriteFragmentSource }
