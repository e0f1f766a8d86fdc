package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up inside the workspace.
const ConfigFileName = "scriptforge.yaml"

// Config captures every knob shared across the scriptforge entry points.
// Keeping it as a lightweight struct makes it trivial to reuse in tests.
type Config struct {
	Workspace          string        `yaml:"workspace"`
	OllamaEndpoint     string        `yaml:"ollama_endpoint"`
	OllamaModel        string        `yaml:"ollama_model"`
	Language           string        `yaml:"language"`
	Interpreter        string        `yaml:"interpreter"`
	ScriptName         string        `yaml:"script_name"`
	GenerateTimeoutSec int           `yaml:"generate_timeout_sec"`
	ExecTimeoutSec     int           `yaml:"exec_timeout_sec"`
	MaxOutputKB        int           `yaml:"max_output_kb"`
	History            HistoryConfig `yaml:"history"`
	Logging            LoggingConfig `yaml:"logging"`
}

// GenerateTimeout is the bound on a single model call.
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSec) * time.Second
}

// ExecTimeout is the wall-clock bound on script execution.
func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSec) * time.Second
}

// HistoryConfig controls the optional run archive.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig describes log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	LLM   bool   `yaml:"llm_debug"`
}

// DefaultConfig infers sensible defaults based on the current working
// directory. Errors from os.Getwd are ignored so callers can override
// manually.
func DefaultConfig() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		Workspace:          cwd,
		OllamaEndpoint:     "http://localhost:11434",
		OllamaModel:        "codellama:7b",
		Language:           "python",
		ScriptName:         "generated_script.py",
		GenerateTimeoutSec: 180,
		ExecTimeoutSec:     60,
		MaxOutputKB:        1024,
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// LoadConfig reads the workspace config file, falling back to defaults when
// it is missing. Explicit keys override defaults; absent keys keep them.
func LoadConfig(path, workspace string) (Config, error) {
	cfg := DefaultConfig()
	if workspace != "" {
		cfg.Workspace = workspace
	}
	if path == "" {
		path = filepath.Join(cfg.Workspace, ConfigFileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if workspace != "" {
		cfg.Workspace = workspace
	}
	return cfg, nil
}

// Normalize ensures every filesystem path is absolute and fills missing
// defaults so the CLI never has to re-check the same invariants.
func (c *Config) Normalize() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace path required")
	}
	absWorkspace, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	c.Workspace = absWorkspace
	if c.Language == "" {
		c.Language = "python"
	}
	if c.Interpreter == "" {
		c.Interpreter = defaultInterpreter(c.Language)
	}
	if c.ScriptName == "" {
		c.ScriptName = defaultScriptName(c.Language)
	}
	if c.OllamaEndpoint == "" {
		c.OllamaEndpoint = "http://localhost:11434"
	}
	if c.OllamaModel == "" {
		c.OllamaModel = "codellama:7b"
	}
	if c.GenerateTimeoutSec <= 0 {
		c.GenerateTimeoutSec = 180
	}
	if c.ExecTimeoutSec <= 0 {
		c.ExecTimeoutSec = 60
	}
	if c.MaxOutputKB <= 0 {
		c.MaxOutputKB = 1024
	}
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.Workspace, ".scriptforge", "history.db")
	}
	if !filepath.IsAbs(c.History.Path) {
		c.History.Path = filepath.Join(c.Workspace, c.History.Path)
	}
	return nil
}

func defaultInterpreter(language string) string {
	switch language {
	case "python":
		return "python3"
	case "sh", "shell", "bash":
		return "sh"
	default:
		return language
	}
}

func defaultScriptName(language string) string {
	switch language {
	case "python":
		return "generated_script.py"
	case "sh", "shell", "bash":
		return "generated_script.sh"
	default:
		return "generated_script." + language
	}
}
