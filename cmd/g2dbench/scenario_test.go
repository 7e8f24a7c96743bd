package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/g2d"
)

func TestDefaultScenario(t *testing.T) {
	s, err := LoadScenario("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" || s.Frames != 120 || len(s.Layers) != 4 {
		t.Errorf("default scenario = %+v", s)
	}
	if s.Layers[1].Blend != "additive" {
		t.Errorf("layer 1 blend = %q", s.Layers[1].Blend)
	}
}

func TestParseScenarioDefaults(t *testing.T) {
	s, err := ParseScenario([]byte("layers:\n  - kind: text\n"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Width != 800 || s.Height != 600 || s.Frames != 60 {
		t.Errorf("size/frames defaults = %dx%d %d", s.Width, s.Height, s.Frames)
	}
	l := s.Layers[0]
	if l.Count != 1 || l.Textures != 1 || l.Size != 8 || l.Text != "g2d" {
		t.Errorf("layer defaults = %+v", l)
	}
	if l.color() != g2d.White {
		t.Errorf("default color = %+v", l.color())
	}
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name, yaml, want string
	}{
		{"kind", "layers:\n  - kind: circles\n", "unknown kind"},
		{"blend", "layers:\n  - kind: rects\n    blend: screen\n", "unknown blend"},
		{"syntax", "layers: [", "parse scenario"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadScenarioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte("name: file\nframes: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "file" || s.Frames != 3 {
		t.Errorf("scenario = %+v", s)
	}
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestParseBlend(t *testing.T) {
	for name, want := range map[string]g2d.BlendMode{
		"": g2d.BlendAlpha, "alpha": g2d.BlendAlpha, "additive": g2d.BlendAdditive,
		"multiply": g2d.BlendMultiply, "opaque": g2d.BlendOpaque,
	} {
		got, err := parseBlend(name)
		if err != nil || got != want {
			t.Errorf("parseBlend(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
}
