// Package batch accumulates a frame's draw requests into one vertex buffer,
// one index buffer and an ordered list of runs.
//
// A run is a contiguous range of indices that can be drawn with a single
// indexed draw call because every request in it shares the same [Key].
// Requests are merged only with the run directly before them, so the
// submission order of overlapping geometry is preserved. Indices are stored
// relative to the first vertex of their run and drawn with a base vertex,
// which keeps them within 16 bits regardless of the frame size.
package batch
