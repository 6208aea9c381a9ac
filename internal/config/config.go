// Package config loads optional settings from a TOML file and the environment.
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

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/privilege"
)

// Environment variables read by Load.
const (
	EnvConfig      = "DATALAD_INSTALLER_CONFIG"
	EnvSudo        = "DATALAD_INSTALLER_SUDO"
	EnvAnacondaURL = "ANACONDA_URL"
	EnvMaxAttempts = "DATALAD_INSTALLER_MAX_ATTEMPTS"
)

// DefaultAnacondaURL is where Miniconda installers are downloaded from.
const DefaultAnacondaURL = "https://repo.anaconda.com/miniconda/"

// Config holds the settings that are not given per component.
type Config struct {
	Sudo          string         `toml:"sudo"`
	LogLevel      string         `toml:"log_level"`
	EnvWriteFiles []string       `toml:"env_write_files"`
	AnacondaURL   string         `toml:"anaconda_url"`
	Download      DownloadConfig `toml:"download"`
	GitHub        GitHubConfig   `toml:"github"`
}

// DownloadConfig tunes the retrying downloader.
type DownloadConfig struct {
	MaxAttempts    int      `toml:"max_attempts"`
	InitialBackoff Duration `toml:"initial_backoff"`
	MaxBackoff     Duration `toml:"max_backoff"`
	Timeout        Duration `toml:"timeout"`
}

// GitHubConfig points the API client at a GitHub instance.
type GitHubConfig struct {
	APIURL string `toml:"api_url"`
}

// Duration is a time.Duration written as a string such as "1.5s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf(messages.ConfigInvalidDurationFmt, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Sudo:        string(privilege.PolicyAsk),
		LogLevel:    "info",
		AnacondaURL: DefaultAnacondaURL,
		Download: DownloadConfig{
			MaxAttempts:    5,
			InitialBackoff: Duration{time.Second},
			MaxBackoff:     Duration{30 * time.Second},
			Timeout:        Duration{10 * time.Minute},
		},
		GitHub: GitHubConfig{APIURL: "https://api.github.com"},
	}
}

// System abstracts the OS operations Load needs.
type System interface {
	Getenv(key string) string
	ReadFile(name string) ([]byte, error)
	UserConfigDir() (string, error)
}

// RealSystem implements System with the os package.
type RealSystem struct{}

// Getenv returns the value of the environment variable named by key.
func (RealSystem) Getenv(key string) string {
	return os.Getenv(key)
}

// ReadFile reads the named file.
func (RealSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// UserConfigDir returns the user configuration directory.
func (RealSystem) UserConfigDir() (string, error) {
	return os.UserConfigDir()
}

// Load builds the configuration from defaults, the config file and the
// environment, in increasing precedence. explicit is a path given on the
// command line; it and DATALAD_INSTALLER_CONFIG must exist when set, while
// the default location is optional.
func Load(sys System, explicit string) (Config, error) {
	cfg := Defaults()
	path, required, err := configPath(sys, explicit)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		data, err := sys.ReadFile(path)
		switch {
		case err == nil:
			if err := parseInto(&cfg, data, path); err != nil {
				return Config{}, err
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return Config{}, fmt.Errorf(messages.ConfigReadFmt, path, err)
		}
	}
	if err := applyEnv(sys, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML data on top of the defaults. source is used in errors.
func Parse(data []byte, source string) (Config, error) {
	cfg := Defaults()
	if err := parseInto(&cfg, data, source); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(source); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseInto(cfg *Config, data []byte, source string) error {
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf(messages.ConfigUnknownKeysFmt, source, err)
		}
		return fmt.Errorf(messages.ConfigInvalidFmt, source, err)
	}
	return nil
}

func configPath(sys System, explicit string) (string, bool, error) {
	if explicit == "" {
		explicit = strings.TrimSpace(sys.Getenv(EnvConfig))
	}
	if explicit != "" {
		p, err := ExpandPath(explicit)
		return p, true, err
	}
	dir, err := sys.UserConfigDir()
	if err != nil {
		// No home or XDG directory: run with defaults.
		return "", false, nil //nolint:nilerr // the default config file is optional
	}
	return filepath.Join(dir, "datalad-installer", "config.toml"), false, nil
}

func applyEnv(sys System, cfg *Config) error {
	if v := strings.TrimSpace(sys.Getenv(EnvSudo)); v != "" {
		cfg.Sudo = v
	}
	if v := strings.TrimSpace(sys.Getenv(EnvAnacondaURL)); v != "" {
		cfg.AnacondaURL = v
	}
	if v := strings.TrimSpace(sys.Getenv(EnvMaxAttempts)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf(messages.ConfigInvalidEnvFmt, EnvMaxAttempts, v, err)
		}
		cfg.Download.MaxAttempts = n
	}
	return nil
}

// Validate checks field values. source names the config in errors.
func (c *Config) Validate(source string) error {
	if _, err := privilege.ParsePolicy(c.Sudo); err != nil {
		return fmt.Errorf(messages.ConfigInvalidSudoFmt, source, err)
	}
	if c.Download.MaxAttempts < 0 {
		return fmt.Errorf(messages.ConfigNegativeFmt, source, "download.max_attempts")
	}
	durations := []struct {
		name  string
		value Duration
	}{
		{"download.initial_backoff", c.Download.InitialBackoff},
		{"download.max_backoff", c.Download.MaxBackoff},
		{"download.timeout", c.Download.Timeout},
	}
	for _, d := range durations {
		if d.value.Duration < 0 {
			return fmt.Errorf(messages.ConfigNegativeFmt, source, d.name)
		}
	}
	for i, p := range c.EnvWriteFiles {
		expanded, err := ExpandPath(p)
		if err != nil {
			return err
		}
		c.EnvWriteFiles[i] = expanded
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf(messages.ConfigExpandPathFmt, p, err)
	}
	return expanded, nil
}
