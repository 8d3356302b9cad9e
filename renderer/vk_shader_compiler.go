package renderer

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/edeleiter/vulkanmon/config"
)

// ShaderCompiler translates the on-disk shader stage sources into the SPIR-V binaries the
// pipeline builder consumes. The compiler's exit code is the sole success signal; its textual
// output only matters for diagnostics.
type ShaderCompiler interface {
	CompileVertex() error
	CompileFragment() error
}

// GlslcCompiler shells out to glslc (or whatever binary the config names) once per stage,
// mirroring how the shaders are compiled at build time.
type GlslcCompiler struct {
	Bin         string
	VertexSrc   string
	FragmentSrc string
	VertexSpv   string
	FragmentSpv string
}

func NewGlslcCompiler(cfg config.ShaderConfig) *GlslcCompiler {
	return &GlslcCompiler{
		Bin:         cfg.CompilerBin,
		VertexSrc:   cfg.VertexSrc,
		FragmentSrc: cfg.FragmentSrc,
		VertexSpv:   cfg.VertexSpv,
		FragmentSpv: cfg.FragmentSpv,
	}
}

func (g *GlslcCompiler) CompileVertex() error {
	return g.compile("vertex", g.VertexSrc, g.VertexSpv)
}

func (g *GlslcCompiler) CompileFragment() error {
	return g.compile("fragment", g.FragmentSrc, g.FragmentSpv)
}

func (g *GlslcCompiler) compile(stage string, src string, out string) error {
	log.Printf("[SHADER] Recompiling %s shader...", stage)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return &ShaderStageError{Stage: stage, Err: err}
	}
	cmd := exec.Command(g.Bin, src, "-o", out)
	combined, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("[ERROR] %s shader compilation failed: %v", stage, err)
		log.Printf("[HINT] Check %s for syntax errors", src)
		return &ShaderStageError{Stage: stage, Output: string(combined), Err: err}
	}
	log.Printf("[SHADER] %s shader compiled successfully", stage)
	return nil
}
