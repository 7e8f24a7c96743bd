// Package g2d is a batched 2D renderer for applications that draw every
// frame: games, simulations and visual tools.
//
// # Overview
//
// Application code describes triangles, lines, sprites and text between
// BeginFrame and EndFrame. The [Canvas] transforms each request by the
// current matrix, appends it to one frame-wide vertex and index buffer, and
// merges it with the request before it when both use the same program,
// texture, blend mode and topology. EndFrame uploads the geometry once and
// issues one draw call per run, so a frame of a thousand sprites from one
// texture costs a single draw call.
//
// # Quick Start
//
//	c, err := g2d.New(g2d.WithSize(800, 600))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	tex, _ := c.CreateTextureFromImage(img)
//	for running {
//	    _ = c.BeginFrame()
//	    _ = c.DrawSprite(tex, geom.R(10, 10, 64, 64), g2d.SpriteOptions{})
//	    _ = c.FillRect(geom.R(100, 100, 50, 20), g2d.RGB(1, 0, 0))
//	    stats, _ := c.EndFrame()
//	    _ = stats
//	}
//
// # Ordering
//
// Paint order is submission order. Requests are only merged with their
// direct predecessor; a sprite from texture B between two sprites from
// texture A produces three draw calls rather than being reordered.
//
// # Resources
//
// Textures and programs are referenced by generation-tagged handles. Using
// a handle after it was freed fails with [ErrInvalidHandle] even if its slot
// has been reused. After the host reports a lost device, every operation
// fails with [ErrContextLost] until [Canvas.Restore] succeeds; restoring
// invalidates all previously issued handles.
//
// # Coordinate System
//
// Origin at the top-left, X to the right, Y down, angles in radians. The
// [geom.Camera] set with [Canvas.SetCamera] forms the base of the transform
// stack at the start of every frame.
//
// # Logging
//
// g2d is silent by default. See [SetLogger].
package g2d
