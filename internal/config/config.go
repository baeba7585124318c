// Configuration: defaults, an optional YAML file, then EDITOR_* environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type PromptConfig struct {
	OllamaURL string        `yaml:"ollama_url"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
}

type TransformConfig struct {
	Backend string `yaml:"backend"`
}

type FreehandConfig struct {
	BrushRadius int `yaml:"brush_radius"`
	BlurKernel  int `yaml:"blur_kernel"`
}

// Config holds the settings shared by the desktop app and the server
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Transform TransformConfig `yaml:"transform"`
	Freehand  FreehandConfig  `yaml:"freehand"`
	Debug     bool            `yaml:"debug"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":5000",
			MaxUploadMB: 20,
		},
		Prompt: PromptConfig{
			OllamaURL: "http://localhost:11434",
			Model:     "llama3.2",
			Timeout:   60 * time.Second,
		},
		Transform: TransformConfig{Backend: "opencv"},
		Freehand: FreehandConfig{
			BrushRadius: 15,
			BlurKernel:  21,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file; a missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("EDITOR_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("EDITOR_MAX_UPLOAD_MB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EDITOR_MAX_UPLOAD_MB: %w", err)
		}
		c.Server.MaxUploadMB = n
	}
	if v, ok := lookup("EDITOR_OLLAMA_URL"); ok && v != "" {
		c.Prompt.OllamaURL = v
	}
	if v, ok := lookup("EDITOR_MODEL"); ok && v != "" {
		c.Prompt.Model = v
	}
	if v, ok := lookup("EDITOR_PROMPT_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid EDITOR_PROMPT_TIMEOUT: %w", err)
		}
		c.Prompt.Timeout = d
	}
	if v, ok := lookup("EDITOR_BACKEND"); ok && v != "" {
		c.Transform.Backend = v
	}
	if v, ok := lookup("EDITOR_BRUSH_RADIUS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EDITOR_BRUSH_RADIUS: %w", err)
		}
		c.Freehand.BrushRadius = n
	}
	if v, ok := lookup("EDITOR_DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid EDITOR_DEBUG: %w", err)
		}
		c.Debug = b
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("max upload size must be positive"))
	}
	if c.Prompt.OllamaURL == "" {
		errs = append(errs, errors.New("ollama url is required"))
	}
	if c.Prompt.Timeout <= 0 {
		errs = append(errs, errors.New("prompt timeout must be positive"))
	}
	switch c.Transform.Backend {
	case "opencv", "bild":
	default:
		errs = append(errs, fmt.Errorf("unknown transform backend %q", c.Transform.Backend))
	}
	if c.Freehand.BrushRadius < 1 {
		errs = append(errs, errors.New("brush radius must be positive"))
	}
	if c.Freehand.BlurKernel < 1 || c.Freehand.BlurKernel%2 == 0 {
		errs = append(errs, errors.New("freehand blur kernel must be a positive odd number"))
	}
	return errors.Join(errs...)
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
