// Package resource provides generation-tagged handle tables for GPU objects.
//
// A [Table] hands out [Handle] values that identify a slot and the
// generation the slot had when the value was stored. Freeing a slot bumps
// its generation, so every copy of the old handle is detected as stale by
// [Table.Get] and [Table.Free] instead of silently addressing whatever
// resource reuses the slot later.
//
// Handles are typed by a phantom kind ([Texture], [Buffer], [Program]) so a
// texture handle cannot be passed where a program handle is expected.
//
// Tables are not safe for concurrent use.
package resource
