package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[application]
name = "demo"
log_level = "debug"

[window]
x = 10
y = 20
width = 800
height = 600

[renderer]
frames_in_flight = 2
validation = false

[renderer.pool]
max_sets = 128
uniforms = 64
samplers = 32
input_attachments = 8
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Application.Name != "demo" {
		t.Errorf("name is %q, want demo", config.Application.Name)
	}
	if config.Window.Width != 800 || config.Window.Height != 600 {
		t.Errorf("window is %dx%d, want 800x600", config.Window.Width, config.Window.Height)
	}
	if config.Renderer.FramesInFlight != 2 {
		t.Errorf("frames_in_flight is %d, want 2", config.Renderer.FramesInFlight)
	}
	if config.Renderer.Validation {
		t.Error("validation should be disabled")
	}

	want := gpu.PoolSizes{MaxSets: 128, Uniforms: 64, Samplers: 32, InputAttachments: 8}
	if got := config.PoolSizes(); got != want {
		t.Errorf("pool sizes are %+v, want %+v", got, want)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("a missing file should not be an error, got %v", err)
	}

	defaults := DefaultConfig()
	if config.Application.Name != defaults.Application.Name {
		t.Errorf("name is %q, want the default %q", config.Application.Name, defaults.Application.Name)
	}
	if config.Window.Width != defaults.Window.Width || config.Window.Height != defaults.Window.Height {
		t.Errorf("window is %dx%d, want the default %dx%d",
			config.Window.Width, config.Window.Height, defaults.Window.Width, defaults.Window.Height)
	}
	if config.Renderer.FramesInFlight != defaults.Renderer.FramesInFlight {
		t.Errorf("frames_in_flight is %d, want the default %d",
			config.Renderer.FramesInFlight, defaults.Renderer.FramesInFlight)
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[application]
name = "partial"
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Application.Name != "partial" {
		t.Errorf("name is %q, want partial", config.Application.Name)
	}
	defaults := DefaultConfig()
	if config.Window.Width != defaults.Window.Width {
		t.Errorf("width is %d, want the default %d", config.Window.Width, defaults.Window.Width)
	}
	if config.Renderer.FramesInFlight != defaults.Renderer.FramesInFlight {
		t.Errorf("frames_in_flight is %d, want the default %d",
			config.Renderer.FramesInFlight, defaults.Renderer.FramesInFlight)
	}
}

func TestLoadConfigRejectsBadToml(t *testing.T) {
	path := writeConfig(t, "this is not toml [")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig should fail on malformed TOML")
	}
}

func TestLoadConfigRejectsZeroWindow(t *testing.T) {
	path := writeConfig(t, `
[window]
width = 0
height = 600
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig should fail on a zero window size")
	}
}

func TestPoolSizesZeroEntriesFallBack(t *testing.T) {
	config := DefaultConfig()
	config.Renderer.Pool.MaxSets = 0
	config.Renderer.Pool.Samplers = 99

	sizes := config.PoolSizes()
	defaults := gpu.DefaultPoolSizes()
	if sizes.MaxSets != defaults.MaxSets {
		t.Errorf("MaxSets is %d, want the default %d", sizes.MaxSets, defaults.MaxSets)
	}
	if sizes.Samplers != 99 {
		t.Errorf("Samplers is %d, want 99", sizes.Samplers)
	}
}

func TestLevel(t *testing.T) {
	cases := []struct {
		name  string
		level core.LogLevel
		ok    bool
	}{
		{"debug", core.DebugLevel, true},
		{"info", core.InfoLevel, true},
		{"", core.InfoLevel, true},
		{"WARN", core.WarnLevel, true},
		{"warning", core.WarnLevel, true},
		{"error", core.ErrorLevel, true},
		{"fatal", core.FatalLevel, true},
		{"loud", core.InfoLevel, false},
	}

	for _, c := range cases {
		config := DefaultConfig()
		config.Application.LogLevel = c.name
		level, ok := config.Level()
		if level != c.level || ok != c.ok {
			t.Errorf("Level(%q) = (%v, %v), want (%v, %v)", c.name, level, ok, c.level, c.ok)
		}
	}
}
