// Package config loads runtime settings from an optional config.toml and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tgienger/academiaflow/internal/advisor"
)

const (
	AppName   = "academiaflow"
	EnvPrefix = "ACADEMIAFLOW"
)

// Config holds every setting the program reads
type Config struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	AdviceDebounce time.Duration `mapstructure:"advice_debounce"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LogFile        string        `mapstructure:"log_file"`
	LogLevel       string        `mapstructure:"log_level"`
	StateDB        string        `mapstructure:"state_db"`
	SeedSamples    bool          `mapstructure:"seed_samples"`
}

// AdvisorOptions maps the AI settings onto advisor.Options
func (c Config) AdvisorOptions() advisor.Options {
	return advisor.Options{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Model:   c.Model,
		Timeout: c.RequestTimeout,
	}
}

// Load reads configuration. path names an explicit config file; when empty,
// config.toml is looked up in the XDG config dir and may be absent.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// the bare names match what the web version read from its environment
	if err := v.BindEnv("api_key", EnvPrefix+"_API_KEY", "GEMINI_API_KEY", "API_KEY"); err != nil {
		return Config{}, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.AdviceDebounce < 0 {
		return Config{}, fmt.Errorf("advice_debounce must not be negative, got %s", cfg.AdviceDebounce)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", advisor.DefaultBaseURL)
	v.SetDefault("model", advisor.DefaultModel)
	v.SetDefault("advice_debounce", time.Second)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("log_file", defaultLogFile())
	v.SetDefault("log_level", "info")
	v.SetDefault("state_db", "")
	v.SetDefault("seed_samples", true)
}

func configDir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName), nil
}

func defaultLogFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), AppName+".log")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, AppName, AppName+".log")
}
