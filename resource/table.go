package resource

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidHandle is returned when a handle is zero, out of range, or
	// refers to a slot that has been freed since the handle was issued.
	ErrInvalidHandle = errors.New("resource: invalid handle")

	// ErrExhausted is returned when a table has no free slot left.
	ErrExhausted = errors.New("resource: table exhausted")
)

// firstGeneration is the generation of a slot that was never freed.
// Starting at 1 keeps the zero Handle invalid.
const firstGeneration = 1

type slot[T any] struct {
	generation uint32
	live       bool
	retired    bool
	value      T
}

// ReleaseFunc is called with the value of an entry when it is freed.
type ReleaseFunc[T any] func(T)

// Table stores values of type T behind generation-tagged handles of kind K.
type Table[K, T any] struct {
	slots   []slot[T]
	free    []uint32
	live    int
	limit   int
	release ReleaseFunc[T]
	label   string
}

// TableOption configures a [Table].
type TableOption[T any] func(*tableOptions[T])

type tableOptions[T any] struct {
	limit   int
	release ReleaseFunc[T]
	label   string
}

// WithLimit caps the number of slots a table may grow to.
// A limit <= 0 means unbounded (up to math.MaxUint32 slots).
func WithLimit[T any](n int) TableOption[T] {
	return func(o *tableOptions[T]) { o.limit = n }
}

// WithRelease registers fn to run whenever an entry is freed or cleared.
func WithRelease[T any](fn ReleaseFunc[T]) TableOption[T] {
	return func(o *tableOptions[T]) { o.release = fn }
}

// WithLabel names the table in error messages.
func WithLabel[T any](label string) TableOption[T] {
	return func(o *tableOptions[T]) { o.label = label }
}

// NewTable creates an empty table.
func NewTable[K, T any](opts ...TableOption[T]) *Table[K, T] {
	var o tableOptions[T]
	for _, opt := range opts {
		opt(&o)
	}
	if o.limit <= 0 || o.limit > math.MaxUint32 {
		o.limit = math.MaxUint32
	}
	if o.label == "" {
		o.label = "table"
	}
	return &Table[K, T]{
		limit:   o.limit,
		release: o.release,
		label:   o.label,
	}
}

// Allocate stores v in a free slot, reusing the most recently freed one
// first, and returns its handle.
func (t *Table[K, T]) Allocate(v T) (Handle[K], error) {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		s := &t.slots[idx]
		s.live = true
		s.value = v
		t.live++
		return Handle[K]{index: idx, generation: s.generation}, nil
	}
	if len(t.slots) >= t.limit {
		return Handle[K]{}, fmt.Errorf("%s: %w (%d slots)", t.label, ErrExhausted, t.limit)
	}
	idx := uint32(len(t.slots)) //nolint:gosec // bounded by limit
	t.slots = append(t.slots, slot[T]{generation: firstGeneration, live: true, value: v})
	t.live++
	return Handle[K]{index: idx, generation: firstGeneration}, nil
}

func (t *Table[K, T]) lookup(h Handle[K]) (*slot[T], error) {
	if h.generation == 0 || int(h.index) >= len(t.slots) {
		return nil, fmt.Errorf("%s: %w: %s", t.label, ErrInvalidHandle, h)
	}
	s := &t.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil, fmt.Errorf("%s: %w: %s (slot at generation %d)", t.label, ErrInvalidHandle, h, s.generation)
	}
	return s, nil
}

// Get returns the value stored under h.
func (t *Table[K, T]) Get(h Handle[K]) (T, error) {
	s, err := t.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Valid reports whether h currently refers to a live entry.
func (t *Table[K, T]) Valid(h Handle[K]) bool {
	_, err := t.lookup(h)
	return err == nil
}

// Set replaces the value stored under h.
func (t *Table[K, T]) Set(h Handle[K], v T) error {
	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	s.value = v
	return nil
}

// Free releases the entry under h. The slot's generation is incremented so
// h and all of its copies become stale.
func (t *Table[K, T]) Free(h Handle[K]) error {
	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	t.retire(h.index, s)
	return nil
}

func (t *Table[K, T]) retire(idx uint32, s *slot[T]) {
	v := s.value
	var zero T
	s.value = zero
	s.live = false
	t.live--
	if s.generation == math.MaxUint32 {
		// Reusing the slot would wrap the generation and let an
		// ancient handle match again.
		s.retired = true
	} else {
		s.generation++
		t.free = append(t.free, idx)
	}
	if t.release != nil {
		t.release(v)
	}
}

// Clear frees every live entry. Every handle issued so far becomes stale.
func (t *Table[K, T]) Clear() {
	for i := range t.slots {
		if t.slots[i].live {
			t.retire(uint32(i), &t.slots[i]) //nolint:gosec // bounded by limit
		}
	}
}

// Each calls fn for every live entry in slot order.
func (t *Table[K, T]) Each(fn func(Handle[K], T)) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.live {
			fn(Handle[K]{index: uint32(i), generation: s.generation}, s.value) //nolint:gosec // bounded by limit
		}
	}
}

// Len returns the number of live entries.
func (t *Table[K, T]) Len() int { return t.live }

// Cap returns the number of slots ever allocated, including free and
// retired ones.
func (t *Table[K, T]) Cap() int { return len(t.slots) }
