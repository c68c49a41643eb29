package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

// DefaultEndPromptString is appended after every rendered prompt.
const DefaultEndPromptString = "# OUTPUT"

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	Agent       AgentConfig       `yaml:"agent"`
	Logging     LoggingConfig     `yaml:"logging"`
	AI          AIConfig          `yaml:"ai,omitempty"`
	PromptBuild PromptBuildConfig `yaml:"promptbuild,omitempty"`
	Persist     PersistConfig     `yaml:"persist,omitempty"`
	Schedules   []ScheduleConfig  `yaml:"schedules,omitempty"`
}

// AgentConfig holds the per-agent settings plus the files that declare its
// providers and output shape.
type AgentConfig struct {
	Name            string `yaml:"name,omitempty"`
	EndPromptString string `yaml:"end_prompt_string"`
	Model           string `yaml:"model"`
	Debug           bool   `yaml:"debug"`
	// SystemPrompt seeds the system stream (always rendered first).
	SystemPrompt string `yaml:"system_prompt,omitempty"`
	// BasePrompt seeds the prompt stream (always rendered first).
	BasePrompt string `yaml:"base_prompt,omitempty"`
	// SpecPath points at a YAML provider assembly spec.
	SpecPath string `yaml:"spec_path,omitempty"`
	// ShapePath points at a YAML output shape declaration.
	ShapePath string `yaml:"shape_path,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// AIConfig locates the backend registry files.
type AIConfig struct {
	ProvidersFile string `yaml:"providers_file,omitempty"`
	ModelsFile    string `yaml:"models_file,omitempty"`
	MaxTokens     int    `yaml:"max_tokens,omitempty"`
}

// PromptBuildConfig configures file-backed provider sources and render auditing.
type PromptBuildConfig struct {
	RootDir            string `yaml:"root_dir,omitempty"`
	TemplatesDir       string `yaml:"templates_dir,omitempty"`
	SQLitePath         string `yaml:"sqlite_path,omitempty"`
	AuditEnabled       bool   `yaml:"audit_enabled,omitempty"`
	AuditDir           string `yaml:"audit_dir,omitempty"`
	AuditRetentionDays int    `yaml:"audit_retention_days,omitempty"`
	AuditFilePrefix    string `yaml:"audit_file_prefix,omitempty"`
}

type PersistConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// ScheduleConfig runs a set of actions on a cron schedule.
type ScheduleConfig struct {
	Name     string            `yaml:"name"`
	Schedule string            `yaml:"schedule"`
	Actions  []string          `yaml:"actions"`
	Params   map[string]string `yaml:"params,omitempty"`
	Disabled bool              `yaml:"disabled,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:            "promptforge",
			EndPromptString: DefaultEndPromptString,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		AI: AIConfig{
			ProvidersFile: filepath.Join(ConfigDir(), "providers.yaml"),
			ModelsFile:    filepath.Join(ConfigDir(), "models.yaml"),
			MaxTokens:     4096,
		},
		PromptBuild: PromptBuildConfig{
			RootDir:            ".",
			TemplatesDir:       "prompts",
			AuditDir:           ".promptforge/audit",
			AuditRetentionDays: 7,
			AuditFilePrefix:    "promptbuild",
		},
		Persist: PersistConfig{
			Path: filepath.Join(ConfigDir(), "promptforge.db"),
		},
	}
}

func ConfigDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".promptforge")
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, "promptforge.yaml")
}

// Load reads the config next to the executable, falling back to defaults when
// the file does not exist.
func Load() (*Config, error) {
	cfg, err := LoadFromPath(ConfigPath())
	if err != nil && os.IsNotExist(err) {
		cfg = DefaultConfig()
		cfg.applyEnv()
		cfg.normalize()
		return cfg, nil
	}
	return cfg, err
}

// LoadFromPath reads a YAML config file on top of DefaultConfig. Relative file
// references inside the config are resolved against the config's directory.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.resolveRelative(filepath.Dir(path))
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if model := strings.TrimSpace(os.Getenv("PROMPTFORGE_MODEL")); model != "" {
		c.Agent.Model = model
	}
	if v := strings.TrimSpace(os.Getenv("PROMPTFORGE_DEBUG")); v != "" {
		c.Agent.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}

func (c *Config) normalize() {
	if c.Agent.EndPromptString == "" {
		c.Agent.EndPromptString = DefaultEndPromptString
	}
	if c.PromptBuild.SQLitePath == "" {
		c.PromptBuild.SQLitePath = c.Persist.Path
	}
}

func (c *Config) resolveRelative(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Agent.SpecPath = resolve(c.Agent.SpecPath)
	c.Agent.ShapePath = resolve(c.Agent.ShapePath)
	c.AI.ProvidersFile = resolve(c.AI.ProvidersFile)
	c.AI.ModelsFile = resolve(c.AI.ModelsFile)
	c.PromptBuild.RootDir = resolve(c.PromptBuild.RootDir)
	c.Persist.Path = resolve(c.Persist.Path)
	c.PromptBuild.SQLitePath = resolve(c.PromptBuild.SQLitePath)
	c.Logging.File = resolve(c.Logging.File)
}

func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0600)
}
