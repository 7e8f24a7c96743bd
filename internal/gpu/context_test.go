package gpu

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/g2d/internal/batch"
	"github.com/gogpu/g2d/resource"
)

func TestNewCreatesBuiltins(t *testing.T) {
	c := newTestContext(t)

	textures, _, programs := c.Counts()
	if textures != 1 || programs != 1 {
		t.Errorf("Counts() = %d textures, %d programs; want 1 and 1", textures, programs)
	}
	if !c.ValidTexture(c.WhiteTexture()) {
		t.Error("white texture handle not valid")
	}
	if !c.ValidProgram(c.DefaultProgram()) {
		t.Error("default program handle not valid")
	}
	if w, h := c.Size(); w != 64 || h != 64 {
		t.Errorf("Size() = %dx%d, want 64x64", w, h)
	}
}

func TestNewNilDevice(t *testing.T) {
	if _, err := New(nil, nil, DefaultConfig()); !errors.Is(err, ErrNoDevice) {
		t.Errorf("New(nil) error = %v, want ErrNoDevice", err)
	}
}

func TestNewFromProviderRejectsNonHAL(t *testing.T) {
	if _, err := NewFromProvider(struct{}{}, DefaultConfig()); !errors.Is(err, ErrNoDevice) {
		t.Errorf("NewFromProvider error = %v, want ErrNoDevice", err)
	}
}

type fakeProvider struct {
	device, queue any
}

func (p fakeProvider) HalDevice() any { return p.device }
func (p fakeProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	c, err := NewFromProvider(fakeProvider{device: device, queue: queue}, DefaultConfig())
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	defer c.Close()
	if c.Device() != device {
		t.Error("context does not use the provider's device")
	}
}

func TestTextureLifecycle(t *testing.T) {
	c := newTestContext(t)

	h, err := c.CreateTexture(4, 2, make([]byte, 4*2*4))
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if w, ht, err := c.TextureSize(h); err != nil || w != 4 || ht != 2 {
		t.Errorf("TextureSize = %d, %d, %v; want 4, 2, nil", w, ht, err)
	}

	if err := c.UpdateTexture(h, image.Rect(1, 0, 3, 2), make([]byte, 2*2*4)); err != nil {
		t.Errorf("UpdateTexture in bounds: %v", err)
	}
	if err := c.UpdateTexture(h, image.Rect(3, 0, 5, 1), make([]byte, 2*4)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("UpdateTexture out of bounds error = %v, want ErrOutOfRange", err)
	}
	if err := c.UpdateTexture(h, image.Rect(0, 0, 1, 1), make([]byte, 3)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("UpdateTexture short data error = %v, want ErrOutOfRange", err)
	}

	if err := c.DeleteTexture(h); err != nil {
		t.Fatalf("DeleteTexture: %v", err)
	}
	if _, _, err := c.TextureSize(h); !errors.Is(err, resource.ErrInvalidHandle) {
		t.Errorf("TextureSize after delete error = %v, want ErrInvalidHandle", err)
	}
	if err := c.DeleteTexture(h); !errors.Is(err, resource.ErrInvalidHandle) {
		t.Errorf("second DeleteTexture error = %v, want ErrInvalidHandle", err)
	}

	// The slot is reused with a new generation.
	h2, err := c.CreateTexture(1, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if h2.Index() == h.Index() && h2.Generation() == h.Generation() {
		t.Errorf("reused handle %v equals stale handle %v", h2, h)
	}
	if c.ValidTexture(h) || !c.ValidTexture(h2) {
		t.Error("stale/new texture validity wrong after reuse")
	}
}

func TestCreateTextureInvalid(t *testing.T) {
	c := newTestContext(t)
	tests := []struct {
		name string
		w, h int
		data []byte
	}{
		{"zero width", 0, 4, nil},
		{"negative height", 4, -1, nil},
		{"short data", 2, 2, make([]byte, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.CreateTexture(tt.w, tt.h, tt.data); !errors.Is(err, ErrOutOfRange) {
				t.Errorf("CreateTexture error = %v, want ErrOutOfRange", err)
			}
		})
	}
}

func TestBuiltinsCannotBeDeleted(t *testing.T) {
	c := newTestContext(t)
	if err := c.DeleteTexture(c.WhiteTexture()); !errors.Is(err, resource.ErrInvalidHandle) {
		t.Errorf("DeleteTexture(white) error = %v", err)
	}
	if err := c.DeleteProgram(c.DefaultProgram()); !errors.Is(err, resource.ErrInvalidHandle) {
		t.Errorf("DeleteProgram(default) error = %v", err)
	}
}

func TestBufferLifecycle(t *testing.T) {
	c := newTestContext(t)

	h, err := c.CreateBuffer(UsageVertex, 64)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	size, err := c.BufferSize(h)
	if err != nil || size != minBufferSize {
		t.Fatalf("BufferSize = %d, %v; want %d", size, err, minBufferSize)
	}

	if err := c.UpdateBuffer(h, 16, make([]byte, 32)); err != nil {
		t.Errorf("UpdateBuffer in range: %v", err)
	}
	if err := c.UpdateBuffer(h, size-4, make([]byte, 8)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("UpdateBuffer past end error = %v, want ErrOutOfRange", err)
	}

	if err := c.UploadBuffer(h, make([]byte, 1000)); err != nil {
		t.Fatalf("UploadBuffer: %v", err)
	}
	grown, _ := c.BufferSize(h)
	if grown != 1024 {
		t.Errorf("grown size = %d, want 1024", grown)
	}

	if err := c.DeleteBuffer(h); err != nil {
		t.Fatal(err)
	}
	if err := c.UploadBuffer(h, []byte{1, 2, 3, 4}); !errors.Is(err, resource.ErrInvalidHandle) {
		t.Errorf("UploadBuffer after delete error = %v, want ErrInvalidHandle", err)
	}
}

func TestCreateProgram(t *testing.T) {
	c := newTestContext(t)
	h, err := c.CreateProgram(SpriteVertexSource(), SpriteFragmentSource())
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if !c.ValidProgram(h) {
		t.Error("program handle not valid")
	}
	if err := c.DeleteProgram(h); err != nil {
		t.Fatal(err)
	}
	if c.ValidProgram(h) {
		t.Error("program handle valid after delete")
	}
}

func TestCreateProgramErrors(t *testing.T) {
	c := newTestContext(t)
	broken := "@vertex fn vs_main( -> {"
	renamedVS := strings.Replace(SpriteVertexSource(), "fn vs_main", "fn other_main", 1)
	renamedFS := strings.Replace(SpriteFragmentSource(), "fn fs_main", "fn other_main", 1)

	tests := []struct {
		name      string
		vs, fs    string
		wantErr   error
		wantStage Stage
	}{
		{"vertex compile", broken, SpriteFragmentSource(), ErrCompile, StageVertex},
		{"fragment compile", SpriteVertexSource(), broken, ErrCompile, StageFragment},
		{"missing vertex entry", renamedVS, SpriteFragmentSource(), ErrLink, ""},
		{"missing fragment entry", SpriteVertexSource(), renamedFS, ErrLink, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateProgram(tt.vs, tt.fs)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateProgram error = %v, want %v", err, tt.wantErr)
			}
			var se *ShaderError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not *ShaderError", err)
			}
			if se.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", se.Stage, tt.wantStage)
			}
			if se.Log == "" {
				t.Error("ShaderError has empty log")
			}
		})
	}

	_, _, programs := c.Counts()
	if programs != 1 {
		t.Errorf("failed programs leaked table entries: %d programs", programs)
	}
}

func TestShaderErrorMessages(t *testing.T) {
	compile := &ShaderError{Stage: StageFragment, Log: "bad token", Err: ErrCompile}
	if got := compile.Error(); got != "fragment shader failed to compile: bad token" {
		t.Errorf("compile Error() = %q", got)
	}
	link := &ShaderError{Log: "no entry", Err: ErrLink}
	if got := link.Error(); got != "program failed to link: no entry" {
		t.Errorf("link Error() = %q", got)
	}
}

func TestBlendState(t *testing.T) {
	if blendState(batch.BlendOpaque) != nil {
		t.Error("opaque blend state should disable blending")
	}
	premul := gputypes.BlendStatePremultiplied()
	if got := blendState(batch.BlendAlpha); got == nil || *got != premul {
		t.Errorf("alpha blend state = %+v, want premultiplied", got)
	}
	add := blendState(batch.BlendAdditive)
	if add == nil || add.Color.SrcFactor != gputypes.BlendFactorOne || add.Color.DstFactor != gputypes.BlendFactorOne {
		t.Errorf("additive blend state = %+v", add)
	}
}

func TestContextLossAndRestore(t *testing.T) {
	c := newTestContext(t)
	tex, err := c.CreateTexture(2, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := c.CreateProgram(SpriteVertexSource(), SpriteFragmentSource())
	if err != nil {
		t.Fatal(err)
	}
	oldWhite := c.WhiteTexture()

	c.MarkLost()
	if !c.Lost() {
		t.Fatal("Lost() = false after MarkLost")
	}
	if _, err := c.CreateTexture(1, 1, nil); !errors.Is(err, ErrContextLost) {
		t.Errorf("CreateTexture while lost error = %v, want ErrContextLost", err)
	}
	if err := c.BeginFrame(); !errors.Is(err, ErrContextLost) {
		t.Errorf("BeginFrame while lost error = %v, want ErrContextLost", err)
	}

	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	defer c.Close()
	if err := c.Restore(device, queue); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if c.Lost() {
		t.Error("Lost() = true after Restore")
	}
	for name, valid := range map[string]bool{
		"texture":     c.ValidTexture(tex),
		"program":     c.ValidProgram(prog),
		"old white":   c.ValidTexture(oldWhite),
		"new white":   !c.ValidTexture(c.WhiteTexture()),
		"new default": !c.ValidProgram(c.DefaultProgram()),
	} {
		if valid {
			t.Errorf("%s: unexpected validity after Restore", name)
		}
	}
	if err := c.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame after Restore: %v", err)
	}
	if err := c.EndFrame(); err != nil {
		t.Fatalf("EndFrame after Restore: %v", err)
	}
}
