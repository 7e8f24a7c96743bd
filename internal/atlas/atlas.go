// Package atlas packs small rectangles, such as rasterized glyphs, into a
// fixed-size texture using shelves.
package atlas

import (
	"errors"
	"fmt"
)

var (
	// ErrFull is returned when a rectangle does not fit in the remaining space.
	ErrFull = errors.New("atlas: no space left")

	// ErrInvalidSize is returned for rectangles with a non-positive side.
	ErrInvalidSize = errors.New("atlas: invalid region size")
)

// Default packer settings.
const (
	DefaultSize    = 1024
	MinSize        = 64
	DefaultPadding = 1
)

// Config describes a packer.
type Config struct {
	// Width and Height of the backing texture in pixels.
	Width, Height int

	// Padding is the number of empty texels kept right of and below every
	// region so linear filtering never samples a neighbor.
	Padding int
}

// DefaultConfig returns a 1024x1024 packer with one texel of padding.
func DefaultConfig() Config {
	return Config{Width: DefaultSize, Height: DefaultSize, Padding: DefaultPadding}
}

// Region is an allocated rectangle in texel coordinates.
type Region struct {
	X, Y          int
	Width, Height int
}

// UV returns normalized texture coordinates of the region for a texture of
// the given size. The coordinates are inset by half a texel so sampling
// stays on the region's own texel centers.
func (r Region) UV(texW, texH int) (u0, v0, u1, v1 float32) {
	tw, th := float32(texW), float32(texH)
	u0 = (float32(r.X) + 0.5) / tw
	v0 = (float32(r.Y) + 0.5) / th
	u1 = (float32(r.X+r.Width) - 0.5) / tw
	v1 = (float32(r.Y+r.Height) - 0.5) / th
	return u0, v0, u1, v1
}

// String returns a debug representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// shelf is a horizontal strip of fixed height that fills left to right.
type shelf struct {
	y      int
	height int
	nextX  int
}

// Packer allocates regions with a best-fit shelf strategy: a rectangle goes
// onto the existing shelf that wastes the least height, and a new shelf is
// opened below the last one only when no shelf fits.
//
// Packer is not safe for concurrent use.
type Packer struct {
	width   int
	height  int
	padding int
	shelves []shelf
	nextY   int

	allocCount int
	usedArea   int
}

// New creates a packer. Sizes below MinSize are raised to MinSize.
func New(cfg Config) *Packer {
	if cfg.Width < MinSize {
		cfg.Width = MinSize
	}
	if cfg.Height < MinSize {
		cfg.Height = MinSize
	}
	if cfg.Padding < 0 {
		cfg.Padding = 0
	}
	return &Packer{
		width:   cfg.Width,
		height:  cfg.Height,
		padding: cfg.Padding,
		shelves: make([]shelf, 0, 16),
	}
}

// Size returns the packer dimensions.
func (p *Packer) Size() (width, height int) {
	return p.width, p.height
}

// Allocate reserves a width x height region.
func (p *Packer) Allocate(width, height int) (Region, error) {
	if width <= 0 || height <= 0 {
		return Region{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	pw, ph := width+p.padding, height+p.padding
	if pw > p.width || ph > p.height {
		return Region{}, fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrFull, width, height, p.width, p.height)
	}

	best := -1
	bestWaste := 0
	for i := range p.shelves {
		s := &p.shelves[i]
		if s.nextX+pw > p.width || ph > s.height {
			continue
		}
		if waste := s.height - ph; best < 0 || waste < bestWaste {
			best, bestWaste = i, waste
		}
	}

	if best < 0 {
		if p.nextY+ph > p.height {
			return Region{}, fmt.Errorf("%w: %dx%d", ErrFull, width, height)
		}
		p.shelves = append(p.shelves, shelf{y: p.nextY, height: ph})
		p.nextY += ph
		best = len(p.shelves) - 1
	}

	s := &p.shelves[best]
	r := Region{X: s.nextX, Y: s.y, Width: width, Height: height}
	s.nextX += pw
	p.allocCount++
	p.usedArea += width * height
	return r, nil
}

// Reset forgets every allocation.
func (p *Packer) Reset() {
	p.shelves = p.shelves[:0]
	p.nextY = 0
	p.allocCount = 0
	p.usedArea = 0
}

// AllocCount returns the number of successful allocations since the last
// Reset.
func (p *Packer) AllocCount() int { return p.allocCount }

// Utilization returns the fraction of the area covered by regions.
func (p *Packer) Utilization() float64 {
	total := p.width * p.height
	if total == 0 {
		return 0
	}
	return float64(p.usedArea) / float64(total)
}
