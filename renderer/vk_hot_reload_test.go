package renderer

import (
	"errors"
	"os"
	"strings"
	"testing"
)

type fakeCompiler struct {
	vertErr  error
	fragErr  error
	vertRuns int
	fragRuns int
}

func (c *fakeCompiler) CompileVertex() error {
	c.vertRuns++
	return c.vertErr
}

func (c *fakeCompiler) CompileFragment() error {
	c.fragRuns++
	return c.fragErr
}

// reloadHarness wires a HotReloader to counters instead of a device so the ordering rules can
// be checked directly.
type reloadHarness struct {
	compiler fakeCompiler
	buildErr error
	idleErr  error

	idleWaits int
	builds    int
	current   *Pipeline
	retired   []*Pipeline
}

func (f *reloadHarness) reloader() *HotReloader {
	return NewHotReloader(
		&f.compiler,
		func() error {
			f.idleWaits++
			return f.idleErr
		},
		func() (*Pipeline, error) {
			f.builds++
			if f.buildErr != nil {
				return nil, f.buildErr
			}
			return &Pipeline{}, nil
		},
		func(next *Pipeline) *Pipeline {
			old := f.current
			f.current = next
			return old
		},
		func(old *Pipeline) {
			f.retired = append(f.retired, old)
		},
	)
}

func TestReloadSuccessSwapsExactlyOnce(t *testing.T) {
	f := &reloadHarness{current: &Pipeline{}}
	before := f.current
	h := f.reloader()

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload() returned error: %v", err)
	}
	if h.LastOutcome() != ReloadSwapped {
		t.Errorf("outcome = %v, want %v", h.LastOutcome(), ReloadSwapped)
	}
	if h.State() != ReloadIdle {
		t.Errorf("state after reload = %v, want %v", h.State(), ReloadIdle)
	}
	if f.idleWaits != 1 {
		t.Errorf("idle waits = %d, want 1", f.idleWaits)
	}
	if f.builds != 1 {
		t.Errorf("builds = %d, want 1", f.builds)
	}
	if f.current == before {
		t.Error("current pipeline was not replaced")
	}
	if len(f.retired) != 1 || f.retired[0] != before {
		t.Errorf("retired %d pipelines, want exactly the previous one", len(f.retired))
	}
}

func TestReloadCompileFailureKeepsPipeline(t *testing.T) {
	for _, tc := range []struct {
		name string
		set  func(*fakeCompiler, error)
	}{
		{"vertex", func(c *fakeCompiler, err error) { c.vertErr = err }},
		{"fragment", func(c *fakeCompiler, err error) { c.fragErr = err }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := &reloadHarness{current: &Pipeline{}}
			before := f.current
			compileErr := errors.New("undeclared identifier")
			tc.set(&f.compiler, compileErr)
			h := f.reloader()

			err := h.Reload()
			if !errors.Is(err, compileErr) {
				t.Fatalf("Reload() = %v, want compile error", err)
			}
			if h.LastOutcome() != ReloadFailedRolledBack {
				t.Errorf("outcome = %v, want %v", h.LastOutcome(), ReloadFailedRolledBack)
			}
			if f.current != before {
				t.Error("current pipeline changed on a failed compile")
			}
			// A failed compile must not have stalled or touched the device at all.
			if f.idleWaits != 0 {
				t.Errorf("idle waits = %d, want 0", f.idleWaits)
			}
			if f.builds != 0 {
				t.Errorf("builds = %d, want 0", f.builds)
			}
			if len(f.retired) != 0 {
				t.Errorf("retired %d pipelines, want 0", len(f.retired))
			}
		})
	}
}

func TestReloadVertexFailureSkipsFragment(t *testing.T) {
	f := &reloadHarness{current: &Pipeline{}}
	f.compiler.vertErr = errors.New("syntax error")
	h := f.reloader()

	if err := h.Reload(); err == nil {
		t.Fatal("Reload() = nil, want error")
	}
	if f.compiler.fragRuns != 0 {
		t.Errorf("fragment compile ran %d times after vertex failure, want 0", f.compiler.fragRuns)
	}
}

func TestReloadBuildFailureKeepsPipeline(t *testing.T) {
	f := &reloadHarness{current: &Pipeline{}}
	before := f.current
	f.buildErr = errors.New("failed to create graphics pipeline")
	h := f.reloader()

	if err := h.Reload(); err == nil {
		t.Fatal("Reload() = nil, want error")
	}
	if h.LastOutcome() != ReloadFailedRolledBack {
		t.Errorf("outcome = %v, want %v", h.LastOutcome(), ReloadFailedRolledBack)
	}
	if f.current != before {
		t.Error("current pipeline changed on a failed build")
	}
	if f.idleWaits != 0 {
		t.Errorf("idle waits = %d, want 0", f.idleWaits)
	}
	if len(f.retired) != 0 {
		t.Errorf("retired %d pipelines, want 0", len(f.retired))
	}
}

func TestReloadIdleWaitFailureRetiresOnlyReplacement(t *testing.T) {
	f := &reloadHarness{current: &Pipeline{}}
	before := f.current
	f.idleErr = errors.New("device lost")
	h := f.reloader()

	if err := h.Reload(); err == nil {
		t.Fatal("Reload() = nil, want error")
	}
	if f.current != before {
		t.Error("current pipeline changed after failed idle wait")
	}
	if len(f.retired) != 1 {
		t.Fatalf("retired %d pipelines, want the unused replacement only", len(f.retired))
	}
	if f.retired[0] == before {
		t.Error("retired the live pipeline instead of the unused replacement")
	}
}

// TestReloadWithRealCompiler runs the coordinator against the stub glslc binary end to end,
// checking that a compiler diagnostic surfaces with its stage attribution and that a working
// compiler run produces fresh binaries and a swap.
func TestReloadWithRealCompiler(t *testing.T) {
	t.Run("broken shader keeps pipeline", func(t *testing.T) {
		f := &reloadHarness{current: &Pipeline{}}
		before := f.current
		h := NewHotReloader(
			compilerFixture(t, false),
			func() error { f.idleWaits++; return nil },
			func() (*Pipeline, error) { f.builds++; return &Pipeline{}, nil },
			func(next *Pipeline) *Pipeline { old := f.current; f.current = next; return old },
			func(old *Pipeline) { f.retired = append(f.retired, old) },
		)

		err := h.Reload()
		var stageErr *ShaderStageError
		if !errors.As(err, &stageErr) {
			t.Fatalf("Reload() = %v, want *ShaderStageError", err)
		}
		if stageErr.Stage != "vertex" {
			t.Errorf("failed stage = %q, want %q", stageErr.Stage, "vertex")
		}
		if !strings.Contains(stageErr.Output, "undeclared identifier") {
			t.Errorf("diagnostic output %q does not carry the compiler message", stageErr.Output)
		}
		if f.current != before || f.idleWaits != 0 || f.builds != 0 {
			t.Error("failed compile touched the live pipeline or the device")
		}
	})

	t.Run("valid shaders swap", func(t *testing.T) {
		f := &reloadHarness{current: &Pipeline{}}
		g := compilerFixture(t, true)
		h := NewHotReloader(
			g,
			func() error { f.idleWaits++; return nil },
			func() (*Pipeline, error) { f.builds++; return &Pipeline{}, nil },
			func(next *Pipeline) *Pipeline { old := f.current; f.current = next; return old },
			func(old *Pipeline) { f.retired = append(f.retired, old) },
		)

		if err := h.Reload(); err != nil {
			t.Fatalf("Reload() returned error: %v", err)
		}
		for _, out := range []string{g.VertexSpv, g.FragmentSpv} {
			if _, err := os.Stat(out); err != nil {
				t.Errorf("expected compiled binary %s: %v", out, err)
			}
		}
		if h.LastOutcome() != ReloadSwapped {
			t.Errorf("outcome = %v, want %v", h.LastOutcome(), ReloadSwapped)
		}
		if f.idleWaits != 1 || len(f.retired) != 1 {
			t.Errorf("idle waits = %d, retired = %d, want exactly one each", f.idleWaits, len(f.retired))
		}
	})
}

func TestRepeatedReloadsLeaveOneLivePipeline(t *testing.T) {
	f := &reloadHarness{current: &Pipeline{}}
	h := f.reloader()

	const n = 5
	for i := 0; i < n; i++ {
		if err := h.Reload(); err != nil {
			t.Fatalf("reload %d failed: %v", i, err)
		}
	}
	if f.current == nil {
		t.Fatal("no live pipeline after reloads")
	}
	if len(f.retired) != n {
		t.Errorf("retired %d pipelines after %d reloads, want %d", len(f.retired), n, n)
	}
	for i, old := range f.retired {
		if old == f.current {
			t.Errorf("retired pipeline %d is still current", i)
		}
	}
}
