// Package fontsrc provides a g2d.GlyphSource for TrueType and OpenType
// fonts. Text is NFC-normalized, shaped with go-text/typesetting's HarfBuzz
// port and rasterized with golang.org/x/image.
//
// A Source is not safe for concurrent use.
package fontsrc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"unicode"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/draw"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/g2d"
)

// ErrInvalidSize is returned for a non-positive or non-finite font size.
var ErrInvalidSize = errors.New("fontsrc: invalid font size")

// Option configures a Source.
type Option func(*Source)

// WithLanguage sets the BCP 47 language used for shaping. The default is
// "en".
func WithLanguage(tag string) Option {
	return func(s *Source) {
		s.lang = language.NewLanguage(tag)
	}
}

// WithHinting sets the hinting used for metrics and outlines. The default
// is no hinting.
func WithHinting(h xfont.Hinting) Option {
	return func(s *Source) {
		s.hinting = h
	}
}

// Source shapes and rasterizes one font at one size.
type Source struct {
	outlines *sfnt.Font
	face     *gtfont.Face
	shaper   shaping.HarfbuzzShaper

	size    float64
	ppem    fixed.Int26_6
	hinting xfont.Hinting
	lang    language.Language
	metrics xfont.Metrics

	buf    sfnt.Buffer
	raster *vector.Rasterizer
}

// New parses a TrueType or OpenType font for drawing at size pixels per em.
func New(data []byte, size float64, opts ...Option) (*Source, error) {
	if !(size > 0) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	outlines, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fontsrc: parse outlines: %w", err)
	}
	face, err := gtfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fontsrc: parse for shaping: %w", err)
	}

	s := &Source{
		outlines: outlines,
		face:     face,
		size:     size,
		ppem:     fixed.Int26_6(math.Round(size * 64)),
		hinting:  xfont.HintingNone,
		lang:     language.NewLanguage("en"),
		raster:   vector.NewRasterizer(0, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics, err = outlines.Metrics(&s.buf, s.ppem, s.hinting)
	if err != nil {
		return nil, fmt.Errorf("fontsrc: metrics: %w", err)
	}
	return s, nil
}

// Size returns the font size in pixels per em.
func (s *Source) Size() float64 { return s.size }

// Name returns the family name of the font, or "" when it has none.
func (s *Source) Name() string {
	name, err := s.outlines.Name(&s.buf, sfnt.NameIDFamily)
	if err != nil {
		return ""
	}
	return name
}

// LineHeight returns the recommended distance between baselines.
func (s *Source) LineHeight() float64 {
	return fixedToFloat(s.metrics.Height)
}

// Ascent returns the distance from the baseline to the top of the line.
func (s *Source) Ascent() float64 {
	return fixedToFloat(s.metrics.Ascent)
}

// Shape converts text to positioned glyphs on a single left-to-right line.
func (s *Source) Shape(text string) []g2d.ShapedGlyph {
	if text == "" {
		return nil
	}
	runes := []rune(norm.NFC.String(text))
	out := s.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      s.face,
		Size:      s.ppem,
		Script:    detectScript(runes),
		Language:  s.lang,
	})
	if len(out.Glyphs) == 0 {
		return nil
	}

	glyphs := make([]g2d.ShapedGlyph, len(out.Glyphs))
	var pen float64
	for i, g := range out.Glyphs {
		glyphs[i] = g2d.ShapedGlyph{
			ID: g2d.GlyphID(g.GlyphID),
			X:  pen + fixedToFloat(g.XOffset),
			// Shaper offsets grow upwards.
			Y: -fixedToFloat(g.YOffset),
		}
		pen += fixedToFloat(g.Advance)
	}
	return glyphs
}

// Glyph rasterizes a glyph into an 8-bit coverage mask.
func (s *Source) Glyph(id g2d.GlyphID) (g2d.GlyphBitmap, error) {
	if id > math.MaxUint16 {
		return g2d.GlyphBitmap{}, fmt.Errorf("fontsrc: glyph %d out of range", id)
	}
	gid := sfnt.GlyphIndex(id)
	bounds, _, err := s.outlines.GlyphBounds(&s.buf, gid, s.ppem, s.hinting)
	if err != nil {
		return g2d.GlyphBitmap{}, fmt.Errorf("fontsrc: glyph %d bounds: %w", id, err)
	}
	minX, minY := bounds.Min.X.Floor(), bounds.Min.Y.Floor()
	w, h := bounds.Max.X.Ceil()-minX, bounds.Max.Y.Ceil()-minY
	if w <= 0 || h <= 0 {
		return g2d.GlyphBitmap{}, nil
	}

	segs, err := s.outlines.LoadGlyph(&s.buf, gid, s.ppem, nil)
	if err != nil {
		return g2d.GlyphBitmap{}, fmt.Errorf("fontsrc: glyph %d outline: %w", id, err)
	}

	s.raster.Reset(w, h)
	s.raster.DrawOp = draw.Src
	ox, oy := float32(minX), float32(minY)
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(p.X)/64 - ox, float32(p.Y)/64 - oy
	}
	for _, seg := range segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			s.raster.MoveTo(pt(seg.Args[0]))
		case sfnt.SegmentOpLineTo:
			s.raster.LineTo(pt(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			s.raster.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			dx, dy := pt(seg.Args[2])
			s.raster.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	s.raster.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	s.raster.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return g2d.GlyphBitmap{
		Width:    w,
		Height:   h,
		Alpha:    mask.Pix,
		BearingX: minX,
		BearingY: -minY,
	}, nil
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

var _ g2d.GlyphSource = (*Source)(nil)
