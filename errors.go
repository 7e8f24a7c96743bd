package g2d

import (
	"errors"

	"github.com/gogpu/g2d/internal/batch"
	"github.com/gogpu/g2d/internal/gpu"
	"github.com/gogpu/g2d/resource"
)

// ErrUsage is returned when an operation is called in the wrong state:
// drawing outside a frame, beginning a frame twice, or popping the base
// transform.
var ErrUsage = errors.New("g2d: invalid usage")

// Errors returned by the canvas, re-exported from the packages that
// produce them so callers can match with errors.Is.
var (
	// ErrInvalidHandle reports a zero, freed or foreign handle.
	ErrInvalidHandle = resource.ErrInvalidHandle
	// ErrExhausted reports a resource table at its limit.
	ErrExhausted = resource.ErrExhausted
	// ErrInvalidRequest reports malformed draw geometry.
	ErrInvalidRequest = batch.ErrInvalidRequest
	// ErrContextLost is returned by every operation between a device loss
	// and a successful Restore.
	ErrContextLost = gpu.ErrContextLost
	// ErrCompile reports a shader stage that failed to compile.
	ErrCompile = gpu.ErrCompile
	// ErrLink reports compiled stages that could not form a program.
	ErrLink = gpu.ErrLink
	// ErrNoDevice reports that no GPU device could be obtained.
	ErrNoDevice = gpu.ErrNoDevice
)

// ShaderError carries the failing stage and the compiler log of a
// CreateProgram failure.
type ShaderError = gpu.ShaderError
