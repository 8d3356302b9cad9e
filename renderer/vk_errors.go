package renderer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrDeviceLost marks conditions the renderer cannot recover from at runtime: a fence wait
// exceeding its bound or the device reporting itself lost. Callers are expected to tear down
// and exit.
var ErrDeviceLost = errors.New("device lost")

// InitError is the fatal error type of the bootstrap path. It names the creation stage that
// failed; everything created before that stage has already been destroyed again, in reverse
// order, by the time the error is returned.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("bootstrap stage %q failed: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ShaderStageError reports a failed shader stage recompilation, carrying the compiler's
// diagnostic output so it can be shown to the person editing the shader.
type ShaderStageError struct {
	Stage  string // "vertex" or "fragment"
	Output string
	Err    error
}

func (e *ShaderStageError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s shader compilation failed: %v\n%s", e.Stage, e.Err, e.Output)
	}
	return fmt.Sprintf("%s shader compilation failed: %v", e.Stage, e.Err)
}

func (e *ShaderStageError) Unwrap() error {
	return e.Err
}
