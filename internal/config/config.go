package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Fallback policies for the encyclopedia lookup.
const (
	FallbackAlways = "always"
	FallbackOnMiss = "on-miss"
	FallbackOff    = "off"
)

// DatasetConfig locates the knowledge base CSV.
type DatasetConfig struct {
	Path string `yaml:"path"`
}

// InteractionsConfig locates the interaction log.
type InteractionsConfig struct {
	Path string `yaml:"path"`
}

// ClassifierConfig configures canned responses. A zero seed means a
// time-seeded random source.
type ClassifierConfig struct {
	Seed int64 `yaml:"seed"`
}

// EncyclopediaConfig configures the external summary lookup.
type EncyclopediaConfig struct {
	Policy      string `yaml:"policy"`
	Language    string `yaml:"language"`
	BaseURL     string `yaml:"base_url,omitempty"`
	Sentences   int    `yaml:"sentences"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LoggingConfig configures the application log.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Dataset      DatasetConfig      `yaml:"dataset"`
	Interactions InteractionsConfig `yaml:"interactions"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	Encyclopedia EncyclopediaConfig `yaml:"encyclopedia"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			applyEnv(cfg)
			return cfg, cfg.Validate()
		}
		return nil, goerr.Wrap(err, "failed to read config", goerr.V("path", path))
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config", goerr.V("path", path))
	}
	applyConfigDefaults(&cfg)
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/convoqa/config.yaml.
// If neither exists, defaults are returned without writing anything.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := UserConfigPath()
	if err == nil {
		if _, err := os.Stat(userPath); err == nil {
			cfg, err := Load(userPath)
			return cfg, userPath, err
		}
	}
	cfg := Default()
	applyEnv(cfg)
	return cfg, "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create config directory", goerr.V("path", path))
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return goerr.Wrap(err, "failed to encode config")
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks enumerated and numeric values.
func (c *AppConfig) Validate() error {
	switch c.Encyclopedia.Policy {
	case FallbackAlways, FallbackOnMiss, FallbackOff:
	default:
		return goerr.New("unknown encyclopedia policy", goerr.V("policy", c.Encyclopedia.Policy))
	}
	if c.Encyclopedia.TimeoutSecs < 0 {
		return goerr.New("encyclopedia timeout must not be negative", goerr.V("timeout_secs", c.Encyclopedia.TimeoutSecs))
	}
	if c.Encyclopedia.Sentences < 0 {
		return goerr.New("encyclopedia sentences must not be negative", goerr.V("sentences", c.Encyclopedia.Sentences))
	}
	return nil
}

// UserConfigPath is ~/.config/convoqa/config.yaml.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "convoqa", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Dataset:      DatasetConfig{Path: "bpp_university_qa.csv"},
		Interactions: InteractionsConfig{Path: "user_interactions.csv"},
		Encyclopedia: EncyclopediaConfig{
			Policy:      FallbackAlways,
			Language:    "en",
			Sentences:   2,
			TimeoutSecs: 10,
		},
		Logging: LoggingConfig{Level: "info", File: "convoqa.log"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = def.Dataset.Path
	}
	if cfg.Interactions.Path == "" {
		cfg.Interactions.Path = def.Interactions.Path
	}
	if cfg.Encyclopedia.Policy == "" {
		cfg.Encyclopedia.Policy = def.Encyclopedia.Policy
	}
	if cfg.Encyclopedia.Language == "" {
		cfg.Encyclopedia.Language = def.Encyclopedia.Language
	}
	if cfg.Encyclopedia.Sentences == 0 {
		cfg.Encyclopedia.Sentences = def.Encyclopedia.Sentences
	}
	if cfg.Encyclopedia.TimeoutSecs == 0 {
		cfg.Encyclopedia.TimeoutSecs = def.Encyclopedia.TimeoutSecs
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// applyEnv overrides file values with CONVOQA_* variables.
func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("CONVOQA_DATA"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("CONVOQA_INTERACTIONS"); v != "" {
		cfg.Interactions.Path = v
	}
	if v := os.Getenv("CONVOQA_FALLBACK"); v != "" {
		cfg.Encyclopedia.Policy = v
	}
	if v := os.Getenv("CONVOQA_WIKI_LANG"); v != "" {
		cfg.Encyclopedia.Language = v
	}
	if v := os.Getenv("CONVOQA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CONVOQA_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("CONVOQA_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Classifier.Seed = seed
		}
	}
}
