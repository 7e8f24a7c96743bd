package gpu

import (
	"fmt"
	"regexp"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g2d/internal/batch"
	"github.com/gogpu/g2d/resource"
)

// Entry points every program must provide.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

var (
	vertexEntryRe   = regexp.MustCompile(`@vertex\s+fn\s+` + VertexEntryPoint + `\s*\(`)
	fragmentEntryRe = regexp.MustCompile(`@fragment\s+fn\s+` + FragmentEntryPoint + `\s*\(`)
)

type pipelineKey struct {
	blend    batch.BlendMode
	topology batch.Topology
}

// program is a live program table entry. Pipelines are created on first
// use for each blend mode and topology.
type program struct {
	vertex    hal.ShaderModule
	fragment  hal.ShaderModule
	pipelines map[pipelineKey]hal.RenderPipeline
}

// compileStage validates WGSL source with naga and returns SPIR-V words.
func compileStage(stage Stage, src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, &ShaderError{Stage: stage, Log: err.Error(), Err: ErrCompile}
	}
	if len(spirvBytes) == 0 || len(spirvBytes)%4 != 0 {
		return nil, &ShaderError{Stage: stage, Log: fmt.Sprintf("invalid SPIR-V length %d", len(spirvBytes)), Err: ErrCompile}
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// CreateProgram compiles a vertex and a fragment stage written in WGSL.
// Compile failures return a *ShaderError wrapping ErrCompile with the stage
// and diagnostic. A missing vs_main or fs_main entry point, or a failure to
// create the shader modules, returns a *ShaderError wrapping ErrLink.
func (c *Context) CreateProgram(vertexSrc, fragmentSrc string) (resource.ProgramHandle, error) {
	if err := c.checkLost(); err != nil {
		return resource.ProgramHandle{}, err
	}
	vsWords, err := compileStage(StageVertex, vertexSrc)
	if err != nil {
		return resource.ProgramHandle{}, err
	}
	fsWords, err := compileStage(StageFragment, fragmentSrc)
	if err != nil {
		return resource.ProgramHandle{}, err
	}
	if !vertexEntryRe.MatchString(vertexSrc) {
		return resource.ProgramHandle{}, &ShaderError{Log: "vertex stage has no @vertex fn " + VertexEntryPoint, Err: ErrLink}
	}
	if !fragmentEntryRe.MatchString(fragmentSrc) {
		return resource.ProgramHandle{}, &ShaderError{Log: "fragment stage has no @fragment fn " + FragmentEntryPoint, Err: ErrLink}
	}

	p := &program{pipelines: make(map[pipelineKey]hal.RenderPipeline)}
	p.vertex, err = c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "g2d_vertex",
		Source: hal.ShaderSource{SPIRV: vsWords},
	})
	if err != nil {
		return resource.ProgramHandle{}, &ShaderError{Log: err.Error(), Err: ErrLink}
	}
	p.fragment, err = c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "g2d_fragment",
		Source: hal.ShaderSource{SPIRV: fsWords},
	})
	if err != nil {
		c.destroyProgram(p)
		return resource.ProgramHandle{}, &ShaderError{Log: err.Error(), Err: ErrLink}
	}

	// Build the default pipeline now so layout mismatches surface as link
	// errors instead of failing mid-frame.
	if _, err := c.pipelineFor(p, pipelineKey{blend: batch.BlendAlpha, topology: batch.TopologyTriangles}); err != nil {
		c.destroyProgram(p)
		return resource.ProgramHandle{}, &ShaderError{Log: err.Error(), Err: ErrLink}
	}

	h, err := c.programs.Allocate(p)
	if err != nil {
		c.destroyProgram(p)
		return resource.ProgramHandle{}, err
	}
	return h, nil
}

// DeleteProgram frees h and its pipelines. The built-in program cannot be
// deleted.
func (c *Context) DeleteProgram(h resource.ProgramHandle) error {
	if h == c.defaultProgram {
		return fmt.Errorf("default program %s: %w", h, resource.ErrInvalidHandle)
	}
	return c.programs.Free(h)
}

func (c *Context) releaseProgram(p *program) {
	if c.lost || c.device == nil {
		return
	}
	c.destroyProgram(p)
}

func (c *Context) destroyProgram(p *program) {
	for k, rp := range p.pipelines {
		c.device.DestroyRenderPipeline(rp)
		delete(p.pipelines, k)
	}
	if p.fragment != nil {
		c.device.DestroyShaderModule(p.fragment)
		p.fragment = nil
	}
	if p.vertex != nil {
		c.device.DestroyShaderModule(p.vertex)
		p.vertex = nil
	}
}

// blendState maps a blend mode to the color target blend. Opaque disables
// blending.
func blendState(m batch.BlendMode) *gputypes.BlendState {
	var bs gputypes.BlendState
	switch m {
	case batch.BlendOpaque:
		return nil
	case batch.BlendAdditive:
		add := gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		}
		bs = gputypes.BlendState{Color: add, Alpha: add}
	case batch.BlendMultiply:
		bs = gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorDst,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
		}
	default:
		bs = gputypes.BlendStatePremultiplied()
	}
	return &bs
}

func topology(t batch.Topology) gputypes.PrimitiveTopology {
	if t == batch.TopologyLines {
		return gputypes.PrimitiveTopologyLineList
	}
	return gputypes.PrimitiveTopologyTriangleList
}

// vertexLayout matches batch.Vertex.
var vertexLayout = []gputypes.VertexBufferLayout{{
	ArrayStride: batch.VertexSize,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: batch.PositionOffset, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x4, Offset: batch.ColorOffset, ShaderLocation: 1},
		{Format: gputypes.VertexFormatFloat32x2, Offset: batch.TexCoordOffset, ShaderLocation: 2},
	},
}}

// pipelineFor returns the cached pipeline of p for key, creating it on
// first use.
func (c *Context) pipelineFor(p *program, key pipelineKey) (hal.RenderPipeline, error) {
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}
	rp, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("g2d_pipeline_%s_%s", key.blend, key.topology),
		Layout: c.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vertex,
			EntryPoint: VertexEntryPoint,
			Buffers:    vertexLayout,
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragment,
			EntryPoint: FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    c.cfg.Format,
				Blend:     blendState(key.blend),
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topology(key.topology),
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline (%s, %s): %w", key.blend, key.topology, err)
	}
	slogger().Debug("gpu: pipeline created", "blend", key.blend, "topology", key.topology)
	p.pipelines[key] = rp
	return rp, nil
}
