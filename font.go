package g2d

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/g2d/geom"
	"github.com/gogpu/g2d/internal/atlas"
	"github.com/gogpu/g2d/internal/batch"
)

// GlyphID identifies a glyph within its source.
type GlyphID uint32

// ShapedGlyph is one glyph of shaped text. X and Y are the pen position of
// the glyph origin relative to the text origin on the baseline, Y down.
type ShapedGlyph struct {
	ID   GlyphID
	X, Y float64
}

// GlyphBitmap is a rasterized glyph: a Width x Height coverage mask, one
// byte per texel, placed BearingX right of and BearingY above the pen
// position. Blank glyphs such as spaces have zero size.
type GlyphBitmap struct {
	Width, Height      int
	Alpha              []byte
	BearingX, BearingY int
}

// GlyphSource shapes text and rasterizes glyphs. See package fontsrc for
// an implementation backed by OpenType fonts.
type GlyphSource interface {
	Shape(text string) []ShapedGlyph
	Glyph(id GlyphID) (GlyphBitmap, error)
	LineHeight() float64
}

// FontOption configures a Font.
type FontOption func(*atlas.Config)

// WithFontAtlas sets the size of the font's glyph atlas texture.
func WithFontAtlas(width, height int) FontOption {
	return func(c *atlas.Config) {
		c.Width, c.Height = width, height
	}
}

// WithGlyphPadding sets the empty texels kept between atlas glyphs.
func WithGlyphPadding(n int) FontOption {
	return func(c *atlas.Config) {
		c.Padding = n
	}
}

type glyphEntry struct {
	uv                 [4]float32
	width, height      float64
	bearingX, bearingY float64
	blank              bool
}

// Font draws text from a GlyphSource. Glyphs are rasterized on first use
// into an atlas texture owned by the font, so a line of text is a single
// run sampling one texture.
type Font struct {
	canvas *Canvas
	src    GlyphSource
	cfg    atlas.Config
	packer *atlas.Packer
	tex    TextureHandle
	glyphs map[GlyphID]glyphEntry
	quads  []batch.GlyphQuad
	rgba   []byte
}

// NewFont creates a font drawing glyphs from src.
func (c *Canvas) NewFont(src GlyphSource, opts ...FontOption) (*Font, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil glyph source", ErrUsage)
	}
	cfg := c.atlasCfg
	for _, opt := range opts {
		opt(&cfg)
	}
	f := &Font{
		canvas: c,
		src:    src,
		cfg:    cfg,
		packer: atlas.New(cfg),
		glyphs: make(map[GlyphID]glyphEntry),
	}
	if err := f.ensureAtlas(); err != nil {
		return nil, err
	}
	return f, nil
}

// LineHeight returns the distance between consecutive baselines.
func (f *Font) LineHeight() float64 { return f.src.LineHeight() }

// Texture returns the atlas texture.
func (f *Font) Texture() TextureHandle { return f.tex }

// Cached returns the number of glyphs in the atlas.
func (f *Font) Cached() int { return len(f.glyphs) }

// ensureAtlas (re)creates the atlas texture when it is missing, which is
// the case after a context restore.
func (f *Font) ensureAtlas() error {
	if !f.tex.IsZero() && f.canvas.gpu.ValidTexture(f.tex) {
		return nil
	}
	w, h := f.packer.Size()
	tex, err := f.canvas.gpu.CreateTexture(w, h, nil)
	if err != nil {
		return fmt.Errorf("font atlas: %w", err)
	}
	f.tex = tex
	f.packer.Reset()
	clear(f.glyphs)
	return nil
}

// Reset empties the atlas. Text drawn earlier in the current frame may
// render with the wrong glyphs, so call it between frames.
func (f *Font) Reset() {
	f.packer.Reset()
	clear(f.glyphs)
}

// Close frees the atlas texture.
func (f *Font) Close() error {
	if f.tex.IsZero() {
		return nil
	}
	err := f.canvas.FreeTexture(f.tex)
	f.tex = TextureHandle{}
	clear(f.glyphs)
	return err
}

// glyph returns the cache entry of id, rasterizing and uploading it on
// first use.
func (f *Font) glyph(id GlyphID) (glyphEntry, error) {
	if e, ok := f.glyphs[id]; ok {
		return e, nil
	}
	bm, err := f.src.Glyph(id)
	if err != nil {
		return glyphEntry{}, fmt.Errorf("glyph %d: %w", id, err)
	}
	if bm.Width <= 0 || bm.Height <= 0 {
		e := glyphEntry{blank: true}
		f.glyphs[id] = e
		return e, nil
	}
	if len(bm.Alpha) < bm.Width*bm.Height {
		return glyphEntry{}, fmt.Errorf("glyph %d: %w: %d coverage bytes for %dx%d",
			id, ErrInvalidRequest, len(bm.Alpha), bm.Width, bm.Height)
	}
	region, err := f.packer.Allocate(bm.Width, bm.Height)
	if err != nil {
		return glyphEntry{}, fmt.Errorf("glyph %d: %w", id, err)
	}

	// Coverage becomes premultiplied white.
	n := bm.Width * bm.Height
	f.rgba = f.rgba[:0]
	for _, a := range bm.Alpha[:n] {
		f.rgba = append(f.rgba, a, a, a, a)
	}
	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	if err := f.canvas.gpu.UpdateTexture(f.tex, rect, f.rgba); err != nil {
		return glyphEntry{}, fmt.Errorf("glyph %d upload: %w", id, err)
	}

	tw, th := f.packer.Size()
	u0, v0, u1, v1 := region.UV(tw, th)
	e := glyphEntry{
		uv:       [4]float32{u0, v0, u1, v1},
		width:    float64(bm.Width),
		height:   float64(bm.Height),
		bearingX: float64(bm.BearingX),
		bearingY: float64(bm.BearingY),
	}
	f.glyphs[id] = e
	return e, nil
}

// DrawText draws text with its baseline origin at (x, y) in the current
// transform. Glyphs that cannot be rasterized or no longer fit in the atlas
// are skipped and reported in the returned error; the rest are drawn.
func (c *Canvas) DrawText(f *Font, text string, x, y float64, col RGBA) error {
	if err := c.checkFrame(); err != nil {
		return err
	}
	if f == nil || f.canvas != c {
		return c.drop("draw text", fmt.Errorf("%w: font of another canvas", ErrUsage))
	}
	if err := f.ensureAtlas(); err != nil {
		return c.drop("draw text", err)
	}

	var errs []error
	f.quads = f.quads[:0]
	for _, sg := range f.src.Shape(text) {
		e, err := f.glyph(sg.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if e.blank {
			continue
		}
		f.quads = append(f.quads, batch.GlyphQuad{
			Dst: geom.R(x+sg.X+e.bearingX, y+sg.Y-e.bearingY, e.width, e.height),
			UV:  e.uv,
		})
	}
	if len(f.quads) > 0 {
		if err := c.add("draw text", batch.TextRun{
			Program: c.program,
			Texture: f.tex,
			Blend:   c.blend,
			Glyphs:  f.quads,
			Color:   col.vertex(),
		}); err != nil {
			return err
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(f.quads) == 0 {
		return c.drop("draw text", errors.Join(errs...))
	}
	c.glyphErrors += len(errs)
	Logger().Debug("g2d: glyphs skipped", "count", len(errs), "err", errors.Join(errs...))
	return fmt.Errorf("draw text: %w", errors.Join(errs...))
}

// MeasureText returns the horizontal extent of the inked glyphs of text
// and the line height. Glyphs are rasterized into the atlas as a side
// effect.
func (f *Font) MeasureText(text string) (width, height float64) {
	glyphs := f.src.Shape(text)
	if len(glyphs) == 0 {
		return 0, f.src.LineHeight()
	}
	for _, g := range glyphs {
		e, err := f.glyph(g.ID)
		if err != nil || e.blank {
			continue
		}
		width = max(width, g.X+e.bearingX+e.width)
	}
	return width, f.src.LineHeight()
}
