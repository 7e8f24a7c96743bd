package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/g2d"
	"github.com/gogpu/g2d/fontsrc"
	"github.com/gogpu/g2d/geom"
)

// bench replays a scenario on a canvas.
type bench struct {
	c        *g2d.Canvas
	s        *Scenario
	layers   []layerState
	frame    int
	baseView geom.Camera
}

type layerState struct {
	Layer
	blend    g2d.BlendMode
	textures []g2d.TextureHandle
	font     *g2d.Font
	pos      []geom.Point
	vel      []geom.Point
}

func newBench(c *g2d.Canvas, s *Scenario) (*bench, error) {
	b := &bench{c: c, s: s, baseView: c.Camera()}
	if s.Camera.Zoom != 0 {
		b.baseView.Zoom = s.Camera.Zoom
		b.baseView.Angle = s.Camera.Angle
	}
	if s.Clear != "" {
		c.SetClearColor(g2d.Hex(s.Clear))
	}

	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // deterministic motion
	for i, l := range s.Layers {
		blend, err := parseBlend(l.Blend)
		if err != nil {
			return nil, err
		}
		st := layerState{Layer: l, blend: blend}
		switch l.Kind {
		case "sprites":
			for t := range l.Textures {
				h, err := c.CreateTexture(16, 16, checker(16, t))
				if err != nil {
					return nil, fmt.Errorf("layer %d texture: %w", i, err)
				}
				st.textures = append(st.textures, h)
			}
		case "text":
			src, err := fontsrc.New(goregular.TTF, l.Size)
			if err != nil {
				return nil, fmt.Errorf("layer %d font: %w", i, err)
			}
			if st.font, err = c.NewFont(src); err != nil {
				return nil, fmt.Errorf("layer %d font: %w", i, err)
			}
		}
		for range l.Count {
			st.pos = append(st.pos, geom.Pt(rng.Float64()*float64(s.Width), rng.Float64()*float64(s.Height)))
			st.vel = append(st.vel, geom.Pt(rng.Float64()*4-2, rng.Float64()*4-2))
		}
		b.layers = append(b.layers, st)
	}
	return b, nil
}

// checker returns a premultiplied two-tone checkerboard tinted by seed.
func checker(size, seed int) []byte {
	px := make([]byte, 0, size*size*4)
	tint := byte(64 + (seed*53)%192)
	for y := range size {
		for x := range size {
			v := byte(255)
			if (x/4+y/4)%2 == 0 {
				v = tint
			}
			px = append(px, v, 255-v/2, tint, 255)
		}
	}
	return px
}

// step draws one frame.
func (b *bench) step() (g2d.FrameStats, error) {
	cam := b.baseView
	cam.Angle += b.s.Camera.Spin * float64(b.frame)
	b.c.SetCamera(cam)
	b.frame++

	if err := b.c.BeginFrame(); err != nil {
		return g2d.FrameStats{}, err
	}
	w, h := float64(b.s.Width), float64(b.s.Height)
	for i := range b.layers {
		l := &b.layers[i]
		b.c.SetBlendMode(l.blend)
		col := l.color()
		for j := range l.pos {
			p := l.pos[j].Add(l.vel[j])
			p.X = math.Mod(p.X+w, w)
			p.Y = math.Mod(p.Y+h, h)
			l.pos[j] = p

			var err error
			switch l.Kind {
			case "sprites":
				tex := l.textures[j%len(l.textures)]
				err = b.c.DrawSprite(tex, geom.R(p.X, p.Y, l.Size, l.Size), g2d.SpriteOptions{
					Rotation: float64(b.frame) * 0.01,
					Origin:   geom.Pt(l.Size/2, l.Size/2),
				})
			case "rects":
				err = b.c.FillRect(geom.R(p.X, p.Y, l.Size, l.Size), col)
			case "lines":
				err = b.c.DrawLine(p, p.Add(l.vel[j].Mul(10)), col)
			case "text":
				err = b.c.DrawText(l.font, l.Text, p.X, p.Y, col)
			}
			if err != nil {
				g2d.Logger().Debug("g2dbench: draw failed", "layer", i, "err", err)
			}
		}
	}
	b.c.SetBlendMode(g2d.BlendAlpha)
	return b.c.EndFrame()
}
