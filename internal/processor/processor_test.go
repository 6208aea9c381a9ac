package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/envwrite"
	"github.com/conn-castle/datalad-installer/internal/installctx"
	"github.com/conn-castle/datalad-installer/internal/installers"
	"github.com/conn-castle/datalad-installer/internal/methods"
	"github.com/conn-castle/datalad-installer/internal/privilege"
	"github.com/conn-castle/datalad-installer/internal/runner"
	"github.com/conn-castle/datalad-installer/internal/testutil"
)

func newProcessor(t *testing.T, platform methods.Platform, table map[methods.Key]installers.Installer) (*Processor, *runner.Recorder) {
	t.Helper()
	if table == nil {
		table = installers.Table()
	}
	reg, err := methods.NewRegistry(methods.Default(), nil)
	require.NoError(t, err)
	rec := &runner.Recorder{}
	root := t.TempDir()
	return &Processor{
		Registry:   reg,
		Installers: table,
		Env: &installers.Env{
			Context:  installctx.New(privilege.PolicyOK),
			Buffer:   &envwrite.Buffer{},
			Runner:   rec,
			Sudo:     &privilege.Escalator{Runner: rec, IsRoot: func() bool { return false }},
			Platform: platform,
			Arch:     "amd64",
			TempDir:  func(pattern string) (string, error) { return os.MkdirTemp(root, pattern) },
		},
	}, rec
}

func TestVenvThenDataladUsesPip(t *testing.T) {
	p, rec := newProcessor(t, methods.Linux, nil)
	venv := filepath.Join(t.TempDir(), "venv")

	res, err := p.Run(context.Background(), []component.Request{
		{Kind: component.KindVenv, Options: component.Options{component.OptPath: venv}},
		{Kind: component.KindDatalad},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Completed)
	assert.Equal(t, []installctx.Entry{
		{Kind: component.KindVenv, Method: methods.MethodVenv},
		{Kind: component.KindDatalad, Method: methods.MethodPip},
	}, p.Env.Context.History())

	python := filepath.Join(venv, "bin", "python")
	require.Len(t, rec.Commands, 2)
	assert.Equal(t, []string{python, "-m", "pip", "install", "datalad"}, rec.Commands[1].Argv())
	assert.Equal(t, []string{". " + filepath.Join(venv, "bin", "activate")}, p.Env.Buffer.Lines())
	assert.Equal(t, []installers.Installed{
		{Name: "python", Path: python},
		{Name: "datalad", Path: filepath.Join(venv, "bin", "datalad")},
	}, res.Installed)
}

func TestDataladAloneFallsBackToApt(t *testing.T) {
	p, rec := newProcessor(t, methods.Linux, nil)
	_, err := p.Run(context.Background(), []component.Request{{Kind: component.KindDatalad}})
	require.NoError(t, err)
	assert.Equal(t, []string{"sudo apt-get install datalad"}, rec.Lines())
}

func TestFirstFailureStopsRun(t *testing.T) {
	p, rec := newProcessor(t, methods.Linux, nil)
	rec.RunFunc = func(c runner.Cmd) error {
		if len(c.Args) > 0 && c.Args[0] == "apt-get" {
			return &runner.CommandError{Command: c.String(), ExitCode: 100}
		}
		return nil
	}

	res, err := p.Run(context.Background(), []component.Request{
		{Kind: component.KindVenv, Options: component.Options{component.OptPath: t.TempDir()}},
		{Kind: component.KindGitAnnex, Options: component.Options{component.OptMethod: methods.MethodApt}},
		{Kind: component.KindDatalad},
	})
	var cmdErr *runner.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 100, cmdErr.ExitCode)
	assert.Contains(t, err.Error(), "git-annex via apt")
	assert.Equal(t, 1, res.Completed)
	assert.Len(t, p.Env.Context.History(), 1)
	assert.Len(t, rec.Commands, 2)
}

func TestResolutionFailureStopsRun(t *testing.T) {
	p, rec := newProcessor(t, methods.MacOS, nil)
	_, err := p.Run(context.Background(), []component.Request{
		{Kind: component.KindNeurodebian},
		{Kind: component.KindDatalad},
	})
	var notSupported *methods.MethodNotSupportedError
	require.ErrorAs(t, err, &notSupported)
	assert.Equal(t, component.KindNeurodebian, notSupported.Kind)
	assert.Empty(t, rec.Commands)
}

func TestContextThreadsBetweenInstallers(t *testing.T) {
	var seen []string
	fake := func(name string) installers.Installer {
		return installers.Func(func(_ context.Context, env *installers.Env, req component.Request) ([]installers.Installed, error) {
			seen = append(seen, string(req.Kind)+":"+name)
			if req.Kind == component.KindMiniconda {
				env.Context.SetCondaRoot("/opt/mc")
			}
			return nil, nil
		})
	}
	table := map[methods.Key]installers.Installer{
		{Kind: component.KindMiniconda, Method: methods.MethodMiniconda}: fake("miniconda"),
		{Kind: component.KindGitAnnex, Method: methods.MethodConda}:      fake("conda"),
		{Kind: component.KindDatalad, Method: methods.MethodConda}:       fake("conda"),
	}
	p, _ := newProcessor(t, methods.Linux, table)

	res, err := p.Run(context.Background(), []component.Request{
		{Kind: component.KindMiniconda},
		{Kind: component.KindGitAnnex},
		{Kind: component.KindDatalad},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Completed)
	assert.Equal(t, []string{"miniconda:miniconda", "git-annex:conda", "datalad:conda"}, seen)
	root, _ := p.Env.Context.CondaRoot()
	assert.Equal(t, "/opt/mc", root)
}

func TestMissingInstaller(t *testing.T) {
	p, _ := newProcessor(t, methods.Linux, map[methods.Key]installers.Installer{})
	_, err := p.Run(context.Background(), []component.Request{{Kind: component.KindVenv}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no installer registered for venv:venv")
}

func TestRunStopsWhenContextCanceled(t *testing.T) {
	p, rec := newProcessor(t, methods.Linux, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, []component.Request{{Kind: component.KindDatalad}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.Commands)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteStub(t, dir, "git-annex")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain"), []byte("x"), 0o644))

	require.NoError(t, Verify([]installers.Installed{{Name: "git-annex", Path: filepath.Join(dir, "git-annex")}}))

	err := Verify([]installers.Installed{
		{Name: "datalad", Path: filepath.Join(dir, "git-annex")},
		{Name: "missing", Path: filepath.Join(dir, "missing")},
		{Name: "plain", Path: filepath.Join(dir, "plain")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not have the expected name datalad")
	assert.Contains(t, err.Error(), "missing: ")
	assert.Contains(t, err.Error(), "plain is not executable")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	orig := goos
	goos = "windows"
	t.Cleanup(func() { goos = orig })
	require.NoError(t, Verify([]installers.Installed{{Name: "plain", Path: filepath.Join(dir, "plain")}}))
}
