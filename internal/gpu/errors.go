package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrContextLost is returned by every operation after the device was
	// lost and before Restore succeeds.
	ErrContextLost = errors.New("gpu: context lost")

	// ErrCompile marks a shader stage that failed to compile.
	ErrCompile = errors.New("gpu: shader compile failed")

	// ErrLink marks a program whose stages compiled but could not be
	// combined into a pipeline.
	ErrLink = errors.New("gpu: program link failed")

	// ErrNoFrame is returned by frame operations outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("gpu: no frame in progress")

	// ErrFrameInProgress is returned when BeginFrame is called twice.
	ErrFrameInProgress = errors.New("gpu: frame already in progress")

	// ErrOutOfRange is returned for writes past the end of a buffer or
	// texture.
	ErrOutOfRange = errors.New("gpu: write out of range")

	// ErrNoDevice is returned when no usable GPU device could be obtained.
	ErrNoDevice = errors.New("gpu: no device")
)

// Stage names a shader stage.
type Stage string

// Shader stages.
const (
	StageVertex   Stage = "vertex"
	StageFragment Stage = "fragment"
)

// ShaderError carries the diagnostic of a failed compile or link. It
// unwraps to ErrCompile or ErrLink.
type ShaderError struct {
	Stage Stage // empty for link errors
	Log   string
	Err   error
}

func (e *ShaderError) Error() string {
	if errors.Is(e.Err, ErrLink) {
		return fmt.Sprintf("program failed to link: %s", e.Log)
	}
	return fmt.Sprintf("%s shader failed to compile: %s", e.Stage, e.Log)
}

func (e *ShaderError) Unwrap() error { return e.Err }
