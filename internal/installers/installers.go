// Package installers holds the concrete installation recipes, one per
// (component kind, method) pair.
package installers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/download"
	"github.com/conn-castle/datalad-installer/internal/envwrite"
	"github.com/conn-castle/datalad-installer/internal/ghapi"
	"github.com/conn-castle/datalad-installer/internal/installctx"
	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/methods"
	"github.com/conn-castle/datalad-installer/internal/privilege"
	"github.com/conn-castle/datalad-installer/internal/runner"
)

// Env is everything a recipe may touch.
type Env struct {
	Context  *installctx.Context
	Buffer   *envwrite.Buffer
	Runner   runner.Runner
	Sudo     *privilege.Escalator
	Download *download.Client
	GitHub   *ghapi.Client
	Logger   *log.Logger
	Platform methods.Platform
	// Arch is a GOARCH value; empty means runtime.GOARCH.
	Arch string
	// Python is the interpreter used outside a virtual environment.
	Python      string
	AnacondaURL string
	// TempDir creates a fresh directory; nil means os.MkdirTemp("", pattern).
	TempDir func(pattern string) (string, error)
}

// Installed is a program a recipe put on the machine.
type Installed struct {
	Name string
	Path string
}

// Installer runs one recipe.
type Installer interface {
	Install(ctx context.Context, env *Env, req component.Request) ([]Installed, error)
}

// Func adapts a function to Installer.
type Func func(ctx context.Context, env *Env, req component.Request) ([]Installed, error)

// Install calls f.
func (f Func) Install(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	return f(ctx, env, req)
}

// Table returns the built-in recipes keyed by (kind, method).
func Table() map[methods.Key]Installer {
	t := map[methods.Key]Installer{}
	t[key(component.KindVenv, methods.MethodVenv)] = Func(installVenv)
	t[key(component.KindMiniconda, methods.MethodMiniconda)] = Func(installMiniconda)
	t[key(component.KindCondaEnv, methods.MethodConda)] = Func(installCondaEnv)
	t[key(component.KindNeurodebian, methods.MethodNeurodebian)] = Func(installNeurodebian)

	t[key(component.KindGitAnnex, methods.MethodAutobuild)] = kitenet{paths: autobuildPaths}
	t[key(component.KindGitAnnex, methods.MethodSnapshot)] = kitenet{paths: snapshotPaths}
	t[key(component.KindGitAnnex, methods.MethodGitAnnexTested)] = ciBuild{tested: true}
	t[key(component.KindGitAnnex, methods.MethodGitAnnexBuild)] = ciBuild{}
	t[key(component.KindGitAnnex, methods.MethodGitAnnexRelease)] = Func(installGitAnnexRelease)
	t[key(component.KindGitAnnex, methods.MethodPackages)] = Func(installGitAnnexPackage)

	t[key(component.KindDatalad, methods.MethodPip)] = Func(installPip)
	t[key(component.KindRclone, methods.MethodRcloneDownloads)] = Func(installRclone)
	t[key(component.KindGitAnnexRemoteRclone, methods.MethodRcloneRemote)] = Func(installRcloneRemote)

	for _, kind := range []component.Kind{component.KindGitAnnex, component.KindDatalad} {
		t[key(kind, methods.MethodApt)] = Func(installApt)
		t[key(kind, methods.MethodNeurodebian)] = Func(installNeurodebianPackage)
		t[key(kind, methods.MethodDebURL)] = Func(installDebURL)
	}
	for _, kind := range []component.Kind{component.KindGitAnnex, component.KindDatalad, component.KindRclone} {
		t[key(kind, methods.MethodBrew)] = Func(installBrew)
	}
	for _, kind := range []component.Kind{component.KindGitAnnex, component.KindDatalad, component.KindRclone, component.KindGitAnnexRemoteRclone} {
		t[key(kind, methods.MethodConda)] = Func(installCondaPackage)
	}
	return t
}

func key(kind component.Kind, method string) methods.Key {
	return methods.Key{Kind: kind, Method: method}
}

// privileged runs c with escalation according to the current policy.
func (e *Env) privileged(ctx context.Context, c runner.Cmd) error {
	if e.Sudo == nil {
		return e.Runner.Run(ctx, c)
	}
	return e.Sudo.Run(ctx, e.Context.Privilege(), c)
}

func (e *Env) tempDir(pattern string) (string, error) {
	mk := e.TempDir
	if mk == nil {
		mk = func(pattern string) (string, error) { return os.MkdirTemp("", pattern) }
	}
	dir, err := mk(pattern)
	if err != nil {
		return "", fmt.Errorf(messages.InstallersTempDirFmt, err)
	}
	return dir, nil
}

func (e *Env) arch() string {
	if e.Arch != "" {
		return e.Arch
	}
	return runtime.GOARCH
}

func (e *Env) python() string {
	if e.Python != "" {
		return e.Python
	}
	if e.Platform == methods.Windows {
		return "python"
	}
	return "python3"
}

func (e *Env) logInfo(msg string, kv ...any) {
	if e.Logger != nil {
		e.Logger.Info(msg, kv...)
	}
}

// fetch downloads rawURL into dir under name and returns the file path.
func (e *Env) fetch(ctx context.Context, rawURL, dir, name string, opts ...download.Option) (string, error) {
	dest := filepath.Join(dir, name)
	if err := e.downloader().Fetch(ctx, rawURL, dest, opts...); err != nil {
		return "", err
	}
	return dest, nil
}

func (e *Env) downloader() *download.Client {
	if e.Download == nil {
		e.Download = &download.Client{Logger: e.Logger}
	}
	return e.Download
}

func (e *Env) github() *ghapi.Client {
	if e.GitHub == nil {
		e.GitHub = ghapi.NewClient(ghapi.WithRetry(e.downloader()))
	}
	return e.GitHub
}

// exe returns name with the platform's executable suffix.
func (e *Env) exe(name string) string {
	if e.Platform == methods.Windows {
		return name + ".exe"
	}
	return name
}

// binDir returns the directory holding executables below an environment
// prefix.
func (e *Env) binDir(prefix string) string {
	if e.Platform == methods.Windows {
		return filepath.Join(prefix, "Scripts")
	}
	return filepath.Join(prefix, "bin")
}

func extraArgs(req component.Request) []string {
	return req.Options.Strings(component.OptExtraArgs)
}

func unsupported(env *Env, what string) error {
	return fmt.Errorf(messages.InstallersUnsupportedPlatformFmt, what, env.Platform, env.arch())
}
