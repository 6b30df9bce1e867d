package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Title    string         `yaml:"title,omitempty"`
	Source   SourceConfig   `yaml:"source"`
	Template TemplateConfig `yaml:"template"`
	Build    BuildConfig    `yaml:"build"`
	Render   RenderConfig   `yaml:"render"`
	Output   OutputConfig   `yaml:"output"`
	Serve    ServeConfig    `yaml:"serve"`
}

// SourceConfig locates the document tree handed to the renderer
type SourceConfig struct {
	Root string `yaml:"root"` // Defaults to the current directory
}

// TemplateConfig locates the customized template assets copied into the build tree
type TemplateConfig struct {
	Source string `yaml:"source"` // Defaults to templates/tex/custom
}

// BuildConfig controls the working build tree
type BuildConfig struct {
	Root string `yaml:"root"` // Defaults to _build
}

// RenderConfig describes how the external renderer is invoked
type RenderConfig struct {
	Command string   `yaml:"command,omitempty"` // Renderer binary, defaults to "jupyter"
	Args    []string `yaml:"args,omitempty"`    // Leading args, defaults to ["book", "build"]
}

// OutputConfig holds optional output overrides.
// Site is only honored in local mode; CI builds always use the canonical roots.
type OutputConfig struct {
	Site string `yaml:"site,omitempty"`
}

// ServeConfig holds development server settings
type ServeConfig struct {
	Port       int   `yaml:"port,omitempty"`
	DebounceMS int   `yaml:"debounce_ms,omitempty"`
	LiveReload *bool `yaml:"live_reload,omitempty"`
}

// DefaultConfigFile is the conventional config file name.
const DefaultConfigFile = "book.yaml"

// Load reads configuration from a YAML file, applying environment files and
// defaults. A missing config file is not an error: the defaults describe a
// conventional book tree and the original workflow ran without any config.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Source.Root == "" {
		cfg.Source.Root = "."
	}
	if cfg.Template.Source == "" {
		cfg.Template.Source = "templates/tex/custom"
	}
	if cfg.Build.Root == "" {
		cfg.Build.Root = "_build"
	}
	if cfg.Render.Command == "" {
		cfg.Render.Command = "jupyter"
	}
	if len(cfg.Render.Args) == 0 {
		cfg.Render.Args = []string{"book", "build"}
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = 1316
	}
	if cfg.Serve.DebounceMS == 0 {
		cfg.Serve.DebounceMS = 500
	}
}

// LiveReloadEnabled reports whether the live reload hub should run (default on).
func (c *Config) LiveReloadEnabled() bool {
	if c.Serve.LiveReload == nil {
		return true
	}
	return *c.Serve.LiveReload
}
