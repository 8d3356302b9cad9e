package renderer

import (
	"log"

	"github.com/pkg/errors"
)

// ReloadState tracks where a shader reload currently is. The coordinator passes through the
// states in order and always settles back on ReloadIdle, recording the terminal state of the
// last attempt separately.
type ReloadState int

const (
	ReloadIdle ReloadState = iota
	ReloadRecompiling
	ReloadRebuilding
	ReloadSwapped
	ReloadFailedRolledBack
)

func (s ReloadState) String() string {
	switch s {
	case ReloadIdle:
		return "idle"
	case ReloadRecompiling:
		return "recompiling"
	case ReloadRebuilding:
		return "rebuilding"
	case ReloadSwapped:
		return "swapped"
	case ReloadFailedRolledBack:
		return "failed, rolled back"
	default:
		return "unknown"
	}
}

// HotReloader recompiles the shader sources and swaps the graphics pipeline for a fresh one.
// The GPU-facing steps are injected as functions so the ordering rules can be tested without a
// device. The one rule everything here serves: a broken shader edit must never take down the
// renderer, the old pipeline stays live until a complete replacement exists.
type HotReloader struct {
	compiler ShaderCompiler

	// waitIdle blocks until the device has finished all in-flight work. It must be called
	// before retiring the old pipeline and at no earlier point, compiling and building must
	// not stall rendering.
	waitIdle func() error
	build    func() (*Pipeline, error)
	swap     func(next *Pipeline) (old *Pipeline)
	retire   func(old *Pipeline)

	state       ReloadState
	lastOutcome ReloadState
}

func NewHotReloader(
	compiler ShaderCompiler,
	waitIdle func() error,
	build func() (*Pipeline, error),
	swap func(*Pipeline) *Pipeline,
	retire func(*Pipeline),
) *HotReloader {
	return &HotReloader{
		compiler: compiler,
		waitIdle: waitIdle,
		build:    build,
		swap:     swap,
		retire:   retire,
		state:    ReloadIdle,
	}
}

func (h *HotReloader) State() ReloadState { return h.state }

// LastOutcome reports how the most recent reload attempt ended, ReloadSwapped or
// ReloadFailedRolledBack. ReloadIdle means no reload has run yet.
func (h *HotReloader) LastOutcome() ReloadState { return h.lastOutcome }

// Reload runs one full recompile-and-swap cycle. On any failure the current pipeline is left
// untouched and the error is returned for diagnostics only, the caller keeps rendering.
func (h *HotReloader) Reload() error {
	log.Printf("Shader reload requested")

	h.state = ReloadRecompiling
	if err := h.compiler.CompileVertex(); err != nil {
		return h.fail(err)
	}
	if err := h.compiler.CompileFragment(); err != nil {
		return h.fail(err)
	}

	h.state = ReloadRebuilding
	next, err := h.build()
	if err != nil {
		return h.fail(errors.Wrap(err, "pipeline rebuild failed"))
	}

	// Only now, with a complete replacement in hand, is it safe to touch the live pipeline.
	if err := h.waitIdle(); err != nil {
		h.retire(next)
		return h.fail(errors.Wrap(err, "device idle wait failed"))
	}
	old := h.swap(next)
	h.retire(old)

	h.state = ReloadSwapped
	h.lastOutcome = ReloadSwapped
	h.state = ReloadIdle
	log.Printf("Shader reload completed successfully")
	return nil
}

func (h *HotReloader) fail(err error) error {
	h.state = ReloadFailedRolledBack
	h.lastOutcome = ReloadFailedRolledBack
	h.state = ReloadIdle
	log.Printf("[ERROR] Hot reload failed - keeping current pipeline active: %v", err)
	return err
}
