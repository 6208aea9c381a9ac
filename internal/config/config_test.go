package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSystem struct {
	env       map[string]string
	files     map[string]string
	configDir string
	dirErr    error
}

func (f fakeSystem) Getenv(key string) string { return f.env[key] }

func (f fakeSystem) ReadFile(name string) ([]byte, error) {
	data, ok := f.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func (f fakeSystem) UserConfigDir() (string, error) {
	return f.configDir, f.dirErr
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(fakeSystem{configDir: "/home/u/.config"}, "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadDefaultsWhenNoConfigDir(t *testing.T) {
	cfg, err := Load(fakeSystem{dirErr: errors.New("no home")}, "")
	require.NoError(t, err)
	assert.Equal(t, "ask", cfg.Sudo)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join("/home/u/.config", "datalad-installer", "config.toml")
	sys := fakeSystem{
		configDir: "/home/u/.config",
		files: map[string]string{path: `
sudo = "ok"
env_write_files = ["/tmp/env.sh"]

[download]
max_attempts = 3
initial_backoff = "250ms"

[github]
api_url = "https://ghe.example.com/api/v3"
`},
	}
	cfg, err := Load(sys, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", cfg.Sudo)
	assert.Equal(t, []string{"/tmp/env.sh"}, cfg.EnvWriteFiles)
	assert.Equal(t, 3, cfg.Download.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Download.InitialBackoff.Duration)
	assert.Equal(t, 30*time.Second, cfg.Download.MaxBackoff.Duration)
	assert.Equal(t, "https://ghe.example.com/api/v3", cfg.GitHub.APIURL)
	assert.Equal(t, DefaultAnacondaURL, cfg.AnacondaURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	sys := fakeSystem{
		env: map[string]string{
			EnvConfig:      "/etc/di.toml",
			EnvSudo:        "error",
			EnvAnacondaURL: "https://mirror.example.com/miniconda/",
			EnvMaxAttempts: "2",
		},
		files: map[string]string{"/etc/di.toml": `sudo = "ok"`},
	}
	cfg, err := Load(sys, "")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Sudo)
	assert.Equal(t, "https://mirror.example.com/miniconda/", cfg.AnacondaURL)
	assert.Equal(t, 2, cfg.Download.MaxAttempts)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	_, err := Load(fakeSystem{}, "/nope/config.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nope/config.toml")
}

func TestParseRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"unknown key":      `colour = "red"`,
		"bad sudo":         `sudo = "maybe"`,
		"bad duration":     "[download]\ntimeout = \"soon\"",
		"negative":         "[download]\nmax_attempts = -1",
		"negative backoff": "[download]\nmax_backoff = \"-1s\"",
		"syntax":           `sudo = `,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data), "test.toml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "test.toml")
		})
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	_, err := Load(fakeSystem{env: map[string]string{EnvMaxAttempts: "many"}}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvMaxAttempts)
}

func TestExpandPath(t *testing.T) {
	got, err := ExpandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = ExpandPath("~/env.sh")
	require.NoError(t, err)
	assert.NotContains(t, got, "~")
}
