// Package gpu owns the GPU device used by g2d and every object created on it.
//
// A [Context] wraps a gogpu/wgpu HAL device and queue. It stores textures,
// buffers and shader programs in generation-tagged resource tables so that
// callers only ever hold [resource.Handle] values, and it records one render
// pass per frame into either an owned offscreen target or a surface view
// supplied by the host.
//
// # Frame protocol
//
//	BeginFrame -> Upload -> (Bind -> DrawIndexed)* -> EndFrame
//
// Upload writes the whole frame's vertex and index data with one queue write
// each. Bind skips the pipeline or bind group switch when it is already
// current. EndFrame ends the pass, submits and waits on a fence.
//
// # Context loss
//
// Once the context is marked lost, every operation fails with
// [ErrContextLost]. [Context.Restore] adopts a new device, frees every table
// entry so all outstanding handles become stale, and rebuilds the built-in
// white texture and sprite program.
package gpu
