package engine

import (
	"github.com/Fahien/vkr-go/engine/assets"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

// ApplicationConfig carries the startup parameters the engine reads once at
// Initialize. Pool sizes and the image chain length are fixed for the life
// of the process; only the log level can change afterwards.
type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel core.LogLevel

	// FramesInFlight asks the driver for that many chain images. Zero
	// leaves the choice to the driver; it may hand back more either way.
	FramesInFlight uint32
	// Validation enables the driver's validation layer when available.
	Validation bool
	// PoolSizes fixes each frame slot's descriptor pool capacities.
	PoolSizes gpu.PoolSizes

	// ConfigPath remembers where the configuration was loaded from. When
	// set, the engine watches the file and re-applies the log level on
	// change.
	ConfigPath string
}

// NewApplicationConfig loads the TOML configuration at path and maps it
// onto startup parameters. A missing file yields the defaults, so shipping
// without a configuration file works.
func NewApplicationConfig(path string) (*ApplicationConfig, error) {
	config, err := assets.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	level, _ := config.Level()
	return &ApplicationConfig{
		StartPosX:      config.Window.X,
		StartPosY:      config.Window.Y,
		StartWidth:     config.Window.Width,
		StartHeight:    config.Window.Height,
		Name:           config.Application.Name,
		LogLevel:       level,
		FramesInFlight: config.Renderer.FramesInFlight,
		Validation:     config.Renderer.Validation,
		PoolSizes:      config.PoolSizes(),
		ConfigPath:     path,
	}, nil
}
