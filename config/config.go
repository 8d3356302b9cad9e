// Package config loads the renderer's runtime configuration from an optional
// YAML file in the working directory. Every field has a default matching the
// built-in constants, so a missing file is not an error.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "vulkanmon.yaml"

type Config struct {
	Title  string `yaml:"title"`
	Width  int32  `yaml:"width"`
	Height int32  `yaml:"height"`

	// FramesInFlight bounds how far the CPU may record ahead of the GPU.
	// It is clamped to the swapchain image count during bootstrap.
	FramesInFlight int `yaml:"frames_in_flight"`

	EnableValidation bool `yaml:"enable_validation"`

	Shaders ShaderConfig `yaml:"shaders"`

	TexturePath string `yaml:"texture_path"`
}

// ShaderConfig names the on-disk shader stage sources, the compiled SPIR-V
// binaries the pipeline consumes and the external compiler binary used to
// translate between the two on hot reload.
type ShaderConfig struct {
	CompilerBin string `yaml:"compiler_bin"`
	VertexSrc   string `yaml:"vertex_src"`
	FragmentSrc string `yaml:"fragment_src"`
	VertexSpv   string `yaml:"vertex_spv"`
	FragmentSpv string `yaml:"fragment_spv"`
}

func Default() Config {
	return Config{
		Title:            "VulkanMon",
		Width:            1280,
		Height:           720,
		FramesInFlight:   2,
		EnableValidation: true,
		Shaders: ShaderConfig{
			CompilerBin: "glslc",
			VertexSrc:   "shaders/shader.vert",
			FragmentSrc: "shaders/shader.frag",
			VertexSpv:   "shaders_spv/vert.spv",
			FragmentSpv: "shaders_spv/frag.spv",
		},
		TexturePath: "textures/checker.png",
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// yields the defaults unchanged; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.FramesInFlight < 1 {
		cfg.FramesInFlight = 1
	}
	return cfg, nil
}
