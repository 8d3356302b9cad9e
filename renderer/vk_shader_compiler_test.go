package renderer

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeCompilerBin writes an executable shell script standing in for glslc. It copies its
// input to its output file when ok is true, and prints a diagnostic and exits 1 otherwise.
func fakeCompilerBin(t *testing.T, dir string, ok bool) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub compiler not supported on windows")
	}
	var script string
	if ok {
		script = "#!/bin/sh\nwhile [ $# -gt 1 ]; do [ \"$1\" = \"-o\" ] && out=$2; src=${src:-$1}; shift; done\ncp \"$src\" \"$out\"\n"
	} else {
		script = "#!/bin/sh\necho \"error: 'texSampler' : undeclared identifier\" >&2\nexit 1\n"
	}
	bin := filepath.Join(dir, "glslc")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func compilerFixture(t *testing.T, ok bool) *GlslcCompiler {
	t.Helper()
	dir := t.TempDir()
	vertSrc := filepath.Join(dir, "shader.vert")
	fragSrc := filepath.Join(dir, "shader.frag")
	for _, f := range []string{vertSrc, fragSrc} {
		if err := os.WriteFile(f, []byte("#version 450\nvoid main() {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return &GlslcCompiler{
		Bin:         fakeCompilerBin(t, dir, ok),
		VertexSrc:   vertSrc,
		FragmentSrc: fragSrc,
		VertexSpv:   filepath.Join(dir, "vert.spv"),
		FragmentSpv: filepath.Join(dir, "frag.spv"),
	}
}

func TestGlslcCompilerSuccessWritesBinaries(t *testing.T) {
	g := compilerFixture(t, true)
	if err := g.CompileVertex(); err != nil {
		t.Fatalf("CompileVertex: %v", err)
	}
	if err := g.CompileFragment(); err != nil {
		t.Fatalf("CompileFragment: %v", err)
	}
	for _, out := range []string{g.VertexSpv, g.FragmentSpv} {
		if _, err := os.Stat(out); err != nil {
			t.Errorf("expected output %s: %v", out, err)
		}
	}
}

func TestGlslcCompilerFailureReportsStageAndDiagnostics(t *testing.T) {
	g := compilerFixture(t, false)

	err := g.CompileFragment()
	if err == nil {
		t.Fatal("expected error")
	}
	var se *ShaderStageError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T, want *ShaderStageError", err)
	}
	if se.Stage != "fragment" {
		t.Errorf("Stage = %q, want fragment", se.Stage)
	}
	if !strings.Contains(se.Output, "undeclared identifier") {
		t.Errorf("compiler diagnostics not captured: %q", se.Output)
	}

	err = g.CompileVertex()
	if !errors.As(err, &se) || se.Stage != "vertex" {
		t.Errorf("vertex failure not attributed to vertex stage: %v", err)
	}
}

func TestGlslcCompilerMissingBinary(t *testing.T) {
	g := compilerFixture(t, true)
	g.Bin = filepath.Join(t.TempDir(), "no-such-compiler")
	if err := g.CompileVertex(); err == nil {
		t.Error("expected error for missing compiler binary")
	}
}
