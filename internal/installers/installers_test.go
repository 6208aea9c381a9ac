package installers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/download"
	"github.com/conn-castle/datalad-installer/internal/envwrite"
	"github.com/conn-castle/datalad-installer/internal/installctx"
	"github.com/conn-castle/datalad-installer/internal/methods"
	"github.com/conn-castle/datalad-installer/internal/privilege"
	"github.com/conn-castle/datalad-installer/internal/runner"
)

func newEnv(t *testing.T, platform methods.Platform) (*Env, *runner.Recorder) {
	t.Helper()
	rec := &runner.Recorder{}
	root := t.TempDir()
	env := &Env{
		Context:  installctx.New(privilege.PolicyOK),
		Buffer:   &envwrite.Buffer{},
		Runner:   rec,
		Sudo:     &privilege.Escalator{Runner: rec, IsRoot: func() bool { return false }},
		Download: &download.Client{MaxAttempts: 1},
		Platform: platform,
		Arch:     "amd64",
		TempDir:  func(pattern string) (string, error) { return os.MkdirTemp(root, pattern) },
	}
	return env, rec
}

func argvs(rec *runner.Recorder) [][]string {
	out := make([][]string, 0, len(rec.Commands))
	for _, c := range rec.Commands {
		out = append(out, c.Argv())
	}
	return out
}

func setVar(t *testing.T, v *string, value string) {
	t.Helper()
	orig := *v
	*v = value
	t.Cleanup(func() { *v = orig })
}

func serveFiles(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTableMatchesDefaultRegistry(t *testing.T) {
	table := Table()
	reg, err := methods.NewRegistry(methods.Default(), func(k methods.Key) bool {
		_, ok := table[k]
		return ok
	})
	require.NoError(t, err)

	var keys []methods.Key
	for k := range table {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, reg.Keys(), keys)
}

func TestComposePipRequirement(t *testing.T) {
	tests := []struct {
		name    string
		version string
		urlspec string
		extras  string
		want    string
	}{
		{name: "bare", want: "datalad"},
		{name: "version", version: "0.18.0", want: "datalad==0.18.0"},
		{name: "extras", extras: "full", version: "0.18.0", want: "datalad[full]==0.18.0"},
		{name: "url", urlspec: "git+https://github.com/datalad/datalad.git", want: "datalad @ git+https://github.com/datalad/datalad.git"},
		{name: "url at revision", urlspec: "git+https://example.com/d.git", version: "maint", extras: "tests", want: "datalad[tests] @ git+https://example.com/d.git@maint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposePipRequirement("datalad", tt.version, tt.urlspec, tt.extras))
		})
	}
}

func TestVenvThenPipInstallsIntoEnvironment(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	venv := filepath.Join(t.TempDir(), "venv")

	_, err := installVenv(context.Background(), env, component.Request{
		Kind:    component.KindVenv,
		Options: component.Options{component.OptPath: venv, component.OptDevPip: true},
	})
	require.NoError(t, err)
	got, ok := env.Context.PythonEnv()
	require.True(t, ok)
	assert.Equal(t, venv, got)
	assert.Equal(t, []string{". " + filepath.Join(venv, "bin", "activate")}, env.Buffer.Lines())

	installed, err := installPip(context.Background(), env, component.Request{
		Kind:    component.KindDatalad,
		Version: "0.18.0",
		Options: component.Options{component.OptExtras: "full"},
	})
	require.NoError(t, err)

	python := filepath.Join(venv, "bin", "python")
	assert.Equal(t, [][]string{
		{"python3", "-m", "venv", venv},
		{python, "-m", "pip", "install", devPipRequirement},
		{python, "-m", "pip", "install", "datalad[full]==0.18.0"},
	}, argvs(rec))
	assert.Equal(t, []Installed{{Name: "datalad", Path: filepath.Join(venv, "bin", "datalad")}}, installed)
}

func TestPipUserInstallUsesUserBase(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	rec.OutputFunc = func(c runner.Cmd) (string, error) { return "/home/u/.local\n", nil }

	installed, err := installPip(context.Background(), env, component.Request{
		Kind:    component.KindDatalad,
		Options: component.Options{component.OptDevel: true, component.OptExtraArgs: []string{"--user"}},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"python3", "-m", "pip", "install", "--user", "datalad @ git+https://github.com/datalad/datalad.git"},
		{"python3", "-m", "site", "--user-base"},
	}, argvs(rec))
	assert.Equal(t, "/home/u/.local/bin/datalad", installed[0].Path)
}

func TestPipSystemInstallAsksForScriptsDir(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	rec.OutputFunc = func(c runner.Cmd) (string, error) { return "/usr/local/bin\n", nil }

	installed, err := installPip(context.Background(), env, component.Request{Kind: component.KindDatalad})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/datalad", installed[0].Path)
	assert.Len(t, rec.Commands, 2)
}

func TestAptInstallsWithSudo(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	installed, err := installApt(context.Background(), env, component.Request{
		Kind:    component.KindGitAnnex,
		Version: "8.20210223-1",
		Options: component.Options{component.OptExtraArgs: []string{"-y"}},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"sudo", "apt-get", "install", "-y", "git-annex=8.20210223-1"}}, argvs(rec))
	assert.Equal(t, []Installed{{Name: "git-annex", Path: "/usr/bin/git-annex"}}, installed)
}

func TestAptBuildDepInstallsNoCommands(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	installed, err := installApt(context.Background(), env, component.Request{
		Kind:    component.KindDatalad,
		Options: component.Options{component.OptBuildDep: true},
	})
	require.NoError(t, err)
	assert.Empty(t, installed)
	assert.Equal(t, [][]string{{"sudo", "apt-get", "build-dep", "datalad"}}, argvs(rec))
}

func TestAptHonoursErrorPolicy(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	env.Context.SetPrivilege(privilege.PolicyError)

	_, err := installApt(context.Background(), env, component.Request{Kind: component.KindDatalad})
	require.ErrorIs(t, err, privilege.ErrEscalationForbidden)
	assert.Empty(t, rec.Commands)
}

func TestUnknownPackageForMethod(t *testing.T) {
	env, _ := newEnv(t, methods.Linux)
	_, err := installApt(context.Background(), env, component.Request{Kind: component.KindRclone})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apt cannot install rclone")
}

func TestNeurodebianComponentConfiguresRepository(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	_, err := installNeurodebian(context.Background(), env, component.Request{
		Kind:    component.KindNeurodebian,
		Options: component.Options{component.OptExtraArgs: []string{"--release", "bookworm"}},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"sudo", "env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-qy", "neurodebian"},
		{"sudo", "nd-configurerepo", "--release", "bookworm"},
	}, argvs(rec))
}

func TestNeurodebianPackageRequiresRepository(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	_, err := installNeurodebianPackage(context.Background(), env, component.Request{Kind: component.KindGitAnnex})
	require.ErrorIs(t, err, ErrNeurodebianNotConfigured)

	rec.Commands = nil
	rec.OutputFunc = func(runner.Cmd) (string, error) {
		return " 500 http://neuro.debian.net/debian bookworm/main amd64 Packages\n     release o=NeuroDebian,a=bookworm,l=NeuroDebian\n", nil
	}
	installed, err := installNeurodebianPackage(context.Background(), env, component.Request{Kind: component.KindGitAnnex})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"apt-cache", "policy"},
		{"sudo", "apt-get", "install", "git-annex-standalone"},
	}, argvs(rec))
	assert.Equal(t, "/usr/bin/git-annex", installed[0].Path)
}

func TestBrewUsesPrefix(t *testing.T) {
	env, rec := newEnv(t, methods.MacOS)
	rec.OutputFunc = func(runner.Cmd) (string, error) { return "/opt/homebrew\n", nil }

	installed, err := installBrew(context.Background(), env, component.Request{Kind: component.KindRclone})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"brew", "install", "rclone"}, {"brew", "--prefix"}}, argvs(rec))
	assert.Equal(t, []Installed{{Name: "rclone", Path: "/opt/homebrew/bin/rclone"}}, installed)
}

func TestCondaEnvThenPackageUsesCondaOnPath(t *testing.T) {
	orig := randomEnvSuffix
	randomEnvSuffix = func() int { return 7 }
	t.Cleanup(func() { randomEnvSuffix = orig })

	env, rec := newEnv(t, methods.Linux)
	rec.OutputFunc = func(c runner.Cmd) (string, error) {
		if c.Name == "conda" {
			return "/opt/conda\n", nil
		}
		return "", errors.New("unexpected output call")
	}

	_, err := installCondaEnv(context.Background(), env, component.Request{Kind: component.KindCondaEnv})
	require.NoError(t, err)
	name, ok := env.Context.CondaEnv()
	require.True(t, ok)
	assert.Equal(t, "datalad-installer-007", name)
	assert.Equal(t, []string{"conda activate datalad-installer-007"}, env.Buffer.Lines())

	installed, err := installCondaPackage(context.Background(), env, component.Request{Kind: component.KindGitAnnex, Version: "10.20230126"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"conda", "info", "--base"},
		{"/opt/conda/bin/conda", "create", "--name", "datalad-installer-007", "-y"},
		{"/opt/conda/bin/conda", "install", "--name", "datalad-installer-007", "-q", "-c", "conda-forge", "-y", "git-annex=10.20230126"},
	}, argvs(rec))
	assert.Equal(t, []Installed{{Name: "git-annex", Path: "/opt/conda/envs/datalad-installer-007/bin/git-annex"}}, installed)
}

func TestCondaWithoutInstallationFails(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	rec.OutputFunc = func(runner.Cmd) (string, error) { return "", errors.New("executable file not found") }

	_, err := installCondaPackage(context.Background(), env, component.Request{Kind: component.KindDatalad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conda was not found")
}

func TestMinicondaInstaller(t *testing.T) {
	tests := []struct {
		platform methods.Platform
		arch     string
		version  string
		want     string
	}{
		{methods.Linux, "amd64", "", "Miniconda3-latest-Linux-x86_64.sh"},
		{methods.Linux, "arm64", "py39_4.10.3", "Miniconda3-py39_4.10.3-Linux-aarch64.sh"},
		{methods.MacOS, "arm64", "", "Miniconda3-latest-MacOSX-arm64.sh"},
		{methods.Windows, "amd64", "", "Miniconda3-latest-Windows-x86_64.exe"},
	}
	for _, tt := range tests {
		env := &Env{Platform: tt.platform, Arch: tt.arch}
		got, err := minicondaInstaller(env, tt.version)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := minicondaInstaller(&Env{Platform: methods.Windows, Arch: "arm64"}, "")
	require.Error(t, err)
}

func TestMinicondaDownloadsAndInstalls(t *testing.T) {
	const script = "Miniconda3-latest-Linux-x86_64.sh"
	srv := serveFiles(t, map[string][]byte{"/miniconda/" + script: []byte("#!/bin/sh\n")})
	env, rec := newEnv(t, methods.Linux)
	env.AnacondaURL = srv.URL + "/miniconda/"
	prefix := filepath.Join(t.TempDir(), "mc")

	installed, err := installMiniconda(context.Background(), env, component.Request{
		Kind: component.KindMiniconda,
		Options: component.Options{
			component.OptPath:    prefix,
			component.OptBatch:   true,
			component.OptSpec:    []string{"python=3.11", "datalad"},
			component.OptChannel: []string{"conda-forge"},
		},
	})
	require.NoError(t, err)

	cmds := argvs(rec)
	require.Len(t, cmds, 2)
	assert.Equal(t, "bash", cmds[0][0])
	assert.Equal(t, script, filepath.Base(cmds[0][1]))
	assert.Equal(t, []string{"-p", prefix, "-s", "-b"}, cmds[0][2:])
	conda := filepath.Join(prefix, "bin", "conda")
	assert.Equal(t, []string{conda, "install", "-y", "-c", "conda-forge", "python=3.11", "datalad"}, cmds[1])

	root, ok := env.Context.CondaRoot()
	require.True(t, ok)
	assert.Equal(t, prefix, root)
	assert.Equal(t, []string{
		". " + filepath.Join(prefix, "etc", "profile.d", "conda.sh"),
		"conda activate base",
	}, env.Buffer.Lines())
	assert.Equal(t, []Installed{{Name: "conda", Path: conda}}, installed)
}

func TestDebURL(t *testing.T) {
	env, rec := newEnv(t, methods.Linux)
	_, err := installDebURL(context.Background(), env, component.Request{Kind: component.KindDatalad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --url")

	srv := serveFiles(t, map[string][]byte{"/pkg.deb": []byte("deb")})
	installed, err := installDebURL(context.Background(), env, component.Request{
		Kind:    component.KindDatalad,
		Options: component.Options{component.OptURL: srv.URL + "/pkg.deb"},
	})
	require.NoError(t, err)
	cmds := argvs(rec)
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"sudo", "dpkg", "-i"}, cmds[0][:3])
	assert.True(t, strings.HasSuffix(cmds[0][3], string(filepath.Separator)+"datalad.deb"))
	data, err := os.ReadFile(cmds[0][3])
	require.NoError(t, err)
	assert.Equal(t, "deb", string(data))
	assert.Equal(t, "/usr/bin/datalad", installed[0].Path)
}
