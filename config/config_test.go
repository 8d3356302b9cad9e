package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}
	def := Default()
	if cfg != def {
		t.Errorf("got %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vulkanmon.yaml")
	doc := "title: test window\nwidth: 640\nheight: 480\nframes_in_flight: 3\nshaders:\n  compiler_bin: glslangValidator\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Title != "test window" {
		t.Errorf("Title = %q, want %q", cfg.Title, "test window")
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("extent = %dx%d, want 640x480", cfg.Width, cfg.Height)
	}
	if cfg.FramesInFlight != 3 {
		t.Errorf("FramesInFlight = %d, want 3", cfg.FramesInFlight)
	}
	if cfg.Shaders.CompilerBin != "glslangValidator" {
		t.Errorf("CompilerBin = %q", cfg.Shaders.CompilerBin)
	}
	// Untouched fields keep their defaults
	if cfg.Shaders.VertexSpv != Default().Shaders.VertexSpv {
		t.Errorf("VertexSpv = %q, want default", cfg.Shaders.VertexSpv)
	}
}

func TestLoadClampsFramesInFlight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vulkanmon.yaml")
	if err := os.WriteFile(path, []byte("frames_in_flight: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FramesInFlight != 1 {
		t.Errorf("FramesInFlight = %d, want 1", cfg.FramesInFlight)
	}
}

func TestLoadRejectsMalformedYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vulkanmon.yaml")
	if err := os.WriteFile(path, []byte("title: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error, got nil")
	}
}
