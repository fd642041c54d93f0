// Package config loads jsontp settings from a YAML file, JSONTP_ environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oukeidos/jsontp/internal/batcher"
	"github.com/oukeidos/jsontp/internal/files"
	"github.com/oukeidos/jsontp/internal/metadata"
	"github.com/oukeidos/jsontp/internal/pipeline"
	"github.com/oukeidos/jsontp/internal/translator"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "JSONTP"
	FileName  = ".jsontp"
	FileType  = "yaml"
)

// Settings are the persisted defaults of the CLI. The API key is
// deliberately absent; it comes from the keychain or the environment.
type Settings struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`
	Model      string `yaml:"model" mapstructure:"model"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	SourceLang string `yaml:"source_lang,omitempty" mapstructure:"source_lang"`
	TargetLang string `yaml:"target_lang,omitempty" mapstructure:"target_lang"`
	OutputDir  string `yaml:"output_dir,omitempty" mapstructure:"output_dir"`

	TokenCeiling int `yaml:"token_ceiling" mapstructure:"token_ceiling"`
	BatchSize    int `yaml:"batch_size" mapstructure:"batch_size"`

	Temperature      float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens        int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Retries          int           `yaml:"retries" mapstructure:"retries"`
	MalformedRetries int           `yaml:"malformed_retries" mapstructure:"malformed_retries"`
	CallTimeout      time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	Instructions     string        `yaml:"instructions,omitempty" mapstructure:"instructions"`
	Glossary         string        `yaml:"glossary,omitempty" mapstructure:"glossary"`
	NoPlaceholders   bool          `yaml:"no_placeholders" mapstructure:"no_placeholders"`

	RetranslateChanged bool `yaml:"retranslate_changed" mapstructure:"retranslate_changed"`
	CarryFromOld       bool `yaml:"carry_from_old" mapstructure:"carry_from_old"`

	// Zero prices select the model table.
	Pricing batcher.Pricing `yaml:"pricing" mapstructure:"pricing"`

	LogFile string `yaml:"log_file,omitempty" mapstructure:"log_file"`
	Debug   bool   `yaml:"debug" mapstructure:"debug"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Provider:         metadata.ProviderOpenAI,
		Model:            metadata.DefaultOpenAIModel,
		TokenCeiling:     batcher.DefaultTokenCeiling,
		BatchSize:        batcher.DefaultMaxItems,
		Temperature:      translator.DefaultTemperature,
		MaxTokens:        translator.DefaultMaxTokens,
		Retries:          translator.DefaultMaxAttempts,
		MalformedRetries: 0,
		CallTimeout:      translator.DefaultCallTimeout,
	}
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("provider", d.Provider)
	// Empty resolves to the provider's default model.
	v.SetDefault("model", "")
	v.SetDefault("base_url", "")
	v.SetDefault("source_lang", "")
	v.SetDefault("target_lang", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("token_ceiling", d.TokenCeiling)
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("temperature", d.Temperature)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("retries", d.Retries)
	v.SetDefault("malformed_retries", d.MalformedRetries)
	v.SetDefault("call_timeout", d.CallTimeout.String())
	v.SetDefault("instructions", "")
	v.SetDefault("glossary", "")
	v.SetDefault("no_placeholders", false)
	v.SetDefault("retranslate_changed", false)
	v.SetDefault("carry_from_old", false)
	v.SetDefault("pricing.input_per_million", 0.0)
	v.SetDefault("pricing.output_per_million", 0.0)
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// FlagKeys maps setting keys to the CLI flags that override them.
var FlagKeys = map[string]string{
	"provider":            "provider",
	"model":               "model",
	"base_url":            "base-url",
	"source_lang":         "source",
	"target_lang":         "target",
	"output_dir":          "output-dir",
	"token_ceiling":       "token-ceiling",
	"batch_size":          "batch-size",
	"temperature":         "temperature",
	"max_tokens":          "max-tokens",
	"retries":             "retries",
	"malformed_retries":   "malformed-retries",
	"call_timeout":        "call-timeout",
	"instructions":        "instructions",
	"glossary":            "glossary",
	"no_placeholders":     "no-placeholders",
	"retranslate_changed": "retranslate-changed",
	"carry_from_old":      "carry-from-old",
	"log_file":            "log-file",
	"debug":               "debug",
}

// BindFlags binds every flag of fs named in FlagKeys.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range FlagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file (path, or ~/.jsontp.yaml then ./.jsontp.yaml)
// and returns the effective settings with the file used, if any. A missing
// default file is not an error; a missing explicit file is.
func Load(v *viper.Viper, path string) (Settings, string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(FileName)
		v.SetConfigType(FileType)
	}

	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, "", fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, used, fmt.Errorf("invalid configuration: %w", err)
	}
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	if !metadata.ValidProvider(s.Provider) {
		return Settings{}, used, fmt.Errorf("invalid configuration: unsupported provider %q", s.Provider)
	}
	if s.Model == "" {
		s.Model = metadata.DefaultModel(s.Provider)
	}
	return s, used, nil
}

// DefaultPath returns ~/.jsontp.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, FileName+"."+FileType), nil
}

// Marshal renders settings as YAML.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// WriteDefault writes the built-in settings to path. An existing file is kept
// unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
	}
	data, err := Default().Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	header := []byte("# jsontp configuration. Flags and JSONTP_* environment variables override these values.\n")
	return files.AtomicWrite(path, append(header, data...), 0600)
}

// Apply copies the settings onto a pipeline configuration.
func (s Settings) Apply(cfg pipeline.Config) pipeline.Config {
	cfg.Provider = s.Provider
	cfg.Model = s.Model
	cfg.BaseURL = s.BaseURL
	cfg.SourceLang = s.SourceLang
	cfg.TargetLang = s.TargetLang
	cfg.OutputDir = s.OutputDir
	cfg.TokenCeiling = s.TokenCeiling
	cfg.MaxItems = s.BatchSize
	cfg.Temperature = float32(s.Temperature)
	cfg.MaxTokens = s.MaxTokens
	cfg.MaxAttempts = s.Retries
	cfg.MalformedRetries = s.MalformedRetries
	cfg.CallTimeout = s.CallTimeout
	cfg.Instructions = s.Instructions
	cfg.DisablePlaceholders = s.NoPlaceholders
	cfg.RetranslateChanged = s.RetranslateChanged
	cfg.CarryFromOld = s.CarryFromOld
	if s.Pricing.InputPerMillion > 0 || s.Pricing.OutputPerMillion > 0 {
		p := s.Pricing
		cfg.Pricing = &p
	}
	return cfg
}
