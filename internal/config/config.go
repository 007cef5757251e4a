package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/plexaddons/versioncheck/internal/registry"
)

const (
	KeyRepositoryURL  = "repository-url"
	KeyTimeout        = "timeout"
	KeyRetries        = "retries"
	KeyCheckOnStartup = "check-on-startup"
	KeyOutput         = "output"
)

const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 2
	envPrefix      = "PLEXADDONS"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the resolved settings for a version check
type Config struct {
	RepositoryURL  string
	Timeout        time.Duration
	Retries        int
	CheckOnStartup bool
	Output         string
}

type loadSettings struct {
	configPath string
	envFile    string
	workingDir string
	flags      *pflag.FlagSet
}

// Option configures Load. Useful for tests to override paths.
type Option func(*loadSettings)

// WithConfigFile sets the YAML config file instead of the user default
func WithConfigFile(path string) Option {
	return func(s *loadSettings) {
		s.configPath = path
	}
}

// WithEnvFile sets an explicit .env file; it must exist
func WithEnvFile(path string) Option {
	return func(s *loadSettings) {
		s.envFile = path
	}
}

// WithWorkingDir overrides the directory searched for an optional .env file
func WithWorkingDir(dir string) Option {
	return func(s *loadSettings) {
		s.workingDir = dir
	}
}

// WithFlags binds command line flags named after the config keys.
// Only flags the user actually set override other sources.
func WithFlags(flags *pflag.FlagSet) Option {
	return func(s *loadSettings) {
		s.flags = flags
	}
}

// Load resolves configuration using the precedence:
// defaults < config file < .env file < environment variables < flags.
// Variables from the .env file never override the real environment.
func Load(opts ...Option) (*Config, error) {
	settings := loadSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	if err := loadEnvFile(&settings); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	configPath := settings.configPath
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath()
	}
	if err := mergeConfigFile(v, configPath, explicit); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if settings.flags != nil {
		for _, key := range []string{KeyRepositoryURL, KeyTimeout, KeyRetries, KeyCheckOnStartup, KeyOutput} {
			if f := settings.flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	timeout, err := parseTimeout(v.Get(KeyTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, KeyTimeout, err)
	}

	cfg := &Config{
		RepositoryURL:  strings.TrimSpace(v.GetString(KeyRepositoryURL)),
		Timeout:        timeout,
		Retries:        v.GetInt(KeyRetries),
		CheckOnStartup: v.GetBool(KeyCheckOnStartup),
		Output:         strings.ToLower(strings.TrimSpace(v.GetString(KeyOutput))),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the resolved values
func (c *Config) Validate() error {
	if c.RepositoryURL == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, KeyRepositoryURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, KeyTimeout)
	}
	if c.Retries < 1 {
		return fmt.Errorf("%w: %s must be at least 1", ErrInvalidConfig, KeyRetries)
	}
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%w: %s must be one of text, json, yaml (got %q)", ErrInvalidConfig, KeyOutput, c.Output)
	}
	return nil
}

// DefaultConfigPath returns the user config file location
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "plexaddons", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyRepositoryURL, registry.DefaultURL)
	v.SetDefault(KeyTimeout, DefaultTimeout.String())
	v.SetDefault(KeyRetries, DefaultRetries)
	v.SetDefault(KeyCheckOnStartup, true)
	v.SetDefault(KeyOutput, OutputText)
}

func loadEnvFile(settings *loadSettings) error {
	if settings.envFile != "" {
		if err := godotenv.Load(settings.envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", settings.envFile, err)
		}
		return nil
	}

	dir := settings.workingDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil
		}
		dir = wd
	}

	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func mergeConfigFile(v *viper.Viper, path string, required bool) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// parseTimeout accepts a Go duration ("10s", "1m30s") or a bare number of
// milliseconds, either as a string or a number
func parseTimeout(raw any) (time.Duration, error) {
	switch t := raw.(type) {
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Millisecond, nil
	case int64:
		return time.Duration(t) * time.Millisecond, nil
	case float64:
		return time.Duration(t * float64(time.Millisecond)), nil
	case string:
		s := strings.TrimSpace(t)
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return d, nil
	case nil:
		return DefaultTimeout, nil
	default:
		return 0, fmt.Errorf("unsupported value %v", raw)
	}
}
