package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/vulcano/engine/core"
)

// Backend names accepted in the renderer section.
const (
	BackendVulkan = "vulkan"
	BackendNull   = "null"
)

type RendererConfig struct {
	/** @brief Which backend to initialize: "vulkan" or "null". */
	Backend string `toml:"backend"`
	/** @brief Application name handed to the native API. */
	ApplicationName string `toml:"application_name"`
	/** @brief Logging verbosity: debug, info, warn, error. */
	LogLevel string `toml:"log_level"`
}

type LimitsConfig struct {
	MaxBufferCount          uint32 `toml:"max_buffer_count"`
	MaxSamplerCount         uint32 `toml:"max_sampler_count"`
	MaxTextureViewCount     uint32 `toml:"max_texture_view_count"`
	MaxBindGroupLayoutCount uint32 `toml:"max_bind_group_layout_count"`
	MaxPipelineLayoutCount  uint32 `toml:"max_pipeline_layout_count"`
	MaxBindGroupCount       uint32 `toml:"max_bind_group_count"`
	/**
	 * @brief Multiplier applied to per-layout descriptor demand when
	 * sizing native pools, leaving room for reallocation churn.
	 */
	DescriptorPoolHeadroom uint32 `toml:"descriptor_pool_headroom"`
}

type TraceConfig struct {
	/** @brief When true, every binding API call is recorded. */
	Enabled bool `toml:"enabled"`
	/** @brief Path of the trace file. Empty means stderr. */
	Path string `toml:"path"`
}

type Config struct {
	Renderer RendererConfig `toml:"renderer"`
	Limits   LimitsConfig   `toml:"limits"`
	Trace    TraceConfig    `toml:"trace"`
}

func Default() *Config {
	return &Config{
		Renderer: RendererConfig{
			Backend:         BackendVulkan,
			ApplicationName: "Vulcano",
			LogLevel:        "debug",
		},
		Limits: LimitsConfig{
			MaxBufferCount:          1000,
			MaxSamplerCount:         1000,
			MaxTextureViewCount:     1000,
			MaxBindGroupLayoutCount: 1000,
			MaxPipelineLayoutCount:  1000,
			MaxBindGroupCount:       1000,
			DescriptorPoolHeadroom:  1,
		},
		Trace: TraceConfig{},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing
// file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("no config file at `%s`, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		err = fmt.Errorf("config file `%s` is malformed: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Renderer.Backend {
	case BackendVulkan, BackendNull:
	default:
		return fmt.Errorf("unknown renderer backend `%s`", c.Renderer.Backend)
	}
	if c.Limits.DescriptorPoolHeadroom == 0 {
		return fmt.Errorf("limits.descriptor_pool_headroom must be > 0")
	}
	return nil
}
