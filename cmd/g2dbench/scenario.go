package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/g2d"
)

// Scenario describes a benchmark run.
type Scenario struct {
	Name   string  `yaml:"name"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Frames int     `yaml:"frames"`
	Clear  string  `yaml:"clear"`
	Camera Camera  `yaml:"camera"`
	Layers []Layer `yaml:"layers"`
}

// Camera is the scenario camera. Zero zoom keeps the default camera.
type Camera struct {
	Zoom  float64 `yaml:"zoom"`
	Angle float64 `yaml:"angle"`
	// Spin is added to Angle every frame, in radians.
	Spin float64 `yaml:"spin"`
}

// Layer is one group of draws repeated every frame.
type Layer struct {
	Kind     string  `yaml:"kind"` // sprites, rects, lines or text
	Count    int     `yaml:"count"`
	Textures int     `yaml:"textures"`
	Size     float64 `yaml:"size"`
	Blend    string  `yaml:"blend"`
	Color    string  `yaml:"color"`
	Text     string  `yaml:"text"`
}

const defaultScenario = `
name: default
width: 800
height: 600
frames: 120
clear: "#181820"
layers:
  - kind: sprites
    count: 2000
    textures: 1
    size: 12
  - kind: rects
    count: 200
    size: 6
    blend: additive
    color: "#ff804080"
  - kind: lines
    count: 100
    color: "#80ff80"
  - kind: text
    count: 20
    size: 16
    text: "g2d batched text"
    color: "#ffffff"
`

// LoadScenario reads a scenario file. An empty path yields the built-in
// scenario.
func LoadScenario(path string) (*Scenario, error) {
	if path == "" {
		return ParseScenario([]byte(defaultScenario))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	s := &Scenario{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Width <= 0 {
		s.Width = 800
	}
	if s.Height <= 0 {
		s.Height = 600
	}
	if s.Frames <= 0 {
		s.Frames = 60
	}
	for i := range s.Layers {
		l := &s.Layers[i]
		switch l.Kind {
		case "sprites", "rects", "lines", "text":
		default:
			return nil, fmt.Errorf("layer %d: unknown kind %q", i, l.Kind)
		}
		if _, err := parseBlend(l.Blend); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if l.Count <= 0 {
			l.Count = 1
		}
		if l.Textures <= 0 {
			l.Textures = 1
		}
		if l.Size <= 0 {
			l.Size = 8
		}
		if l.Kind == "text" && l.Text == "" {
			l.Text = "g2d"
		}
	}
	return s, nil
}

func parseBlend(name string) (g2d.BlendMode, error) {
	switch name {
	case "", "alpha":
		return g2d.BlendAlpha, nil
	case "additive":
		return g2d.BlendAdditive, nil
	case "multiply":
		return g2d.BlendMultiply, nil
	case "opaque":
		return g2d.BlendOpaque, nil
	default:
		return 0, fmt.Errorf("unknown blend mode %q", name)
	}
}

// color returns the layer color, white when unset.
func (l Layer) color() g2d.RGBA {
	if l.Color == "" {
		return g2d.White
	}
	return g2d.Hex(l.Color)
}
