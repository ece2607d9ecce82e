// Package assets loads what the engine reads from disk: the application
// configuration, compiled shaders and textures. The configuration file is
// watched so the log level can be changed while the engine runs.
package assets

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

// Config is the engine configuration loaded from a TOML file.
type Config struct {
	Application struct {
		Name     string `toml:"name"`
		LogLevel string `toml:"log_level"`
	} `toml:"application"`

	Window struct {
		X      uint32 `toml:"x"`
		Y      uint32 `toml:"y"`
		Width  uint32 `toml:"width"`
		Height uint32 `toml:"height"`
	} `toml:"window"`

	Renderer struct {
		FramesInFlight uint32 `toml:"frames_in_flight"`
		Validation     bool   `toml:"validation"`

		Pool struct {
			MaxSets          uint32 `toml:"max_sets"`
			Uniforms         uint32 `toml:"uniforms"`
			Samplers         uint32 `toml:"samplers"`
			InputAttachments uint32 `toml:"input_attachments"`
		} `toml:"pool"`
	} `toml:"renderer"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	c := &Config{}
	c.Application.Name = "vkr"
	c.Application.LogLevel = "info"
	c.Window.X = 100
	c.Window.Y = 100
	c.Window.Width = 1280
	c.Window.Height = 720
	c.Renderer.FramesInFlight = 3
	c.Renderer.Validation = true
	sizes := gpu.DefaultPoolSizes()
	c.Renderer.Pool.MaxSets = sizes.MaxSets
	c.Renderer.Pool.Uniforms = sizes.Uniforms
	c.Renderer.Pool.Samplers = sizes.Samplers
	c.Renderer.Pool.InputAttachments = sizes.InputAttachments
	return c
}

// LoadConfig reads the TOML configuration at path. A missing file is not
// an error: the defaults are returned so the engine can run unconfigured.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("no configuration at %s, using defaults", path)
			return DefaultConfig(), nil
		}
		err = fmt.Errorf("failed to read configuration %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		err = fmt.Errorf("failed to parse configuration %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	if config.Window.Width == 0 || config.Window.Height == 0 {
		err := fmt.Errorf("configuration %s has a zero window size", path)
		core.LogError(err.Error())
		return nil, err
	}
	return config, nil
}

// PoolSizes maps the pool table onto the renderer's sizing struct. Zero
// entries fall back to the defaults so a partial table stays usable.
func (c *Config) PoolSizes() gpu.PoolSizes {
	sizes := gpu.DefaultPoolSizes()
	if c.Renderer.Pool.MaxSets > 0 {
		sizes.MaxSets = c.Renderer.Pool.MaxSets
	}
	if c.Renderer.Pool.Uniforms > 0 {
		sizes.Uniforms = c.Renderer.Pool.Uniforms
	}
	if c.Renderer.Pool.Samplers > 0 {
		sizes.Samplers = c.Renderer.Pool.Samplers
	}
	if c.Renderer.Pool.InputAttachments > 0 {
		sizes.InputAttachments = c.Renderer.Pool.InputAttachments
	}
	return sizes
}

// Level translates the configured log level name, reporting whether the
// name was recognised. Unknown names come back as info.
func (c *Config) Level() (core.LogLevel, bool) {
	switch strings.ToLower(c.Application.LogLevel) {
	case "debug":
		return core.DebugLevel, true
	case "", "info":
		return core.InfoLevel, true
	case "warn", "warning":
		return core.WarnLevel, true
	case "error":
		return core.ErrorLevel, true
	case "fatal":
		return core.FatalLevel, true
	}
	return core.InfoLevel, false
}

// ApplyLogLevel sets the engine log level from the configured name.
func (c *Config) ApplyLogLevel() {
	level, ok := c.Level()
	if !ok {
		core.LogWarn("unknown log level %q, keeping the current one", c.Application.LogLevel)
		return
	}
	core.SetLogLevel(level)
}
