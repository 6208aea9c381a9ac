package installers

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/methods"
	"github.com/conn-castle/datalad-installer/internal/runner"
)

const devPipRequirement = "pip @ git+https://github.com/pypa/pip"

var randomEnvSuffix = func() int { return rand.IntN(1000) }

func installVenv(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	path, ok := req.Options.String(component.OptPath)
	if !ok || path == "" {
		dir, err := env.tempDir("dl-venv-")
		if err != nil {
			return nil, err
		}
		path = dir
	}
	args := append([]string{"-m", "venv"}, extraArgs(req)...)
	if err := env.Runner.Run(ctx, runner.Command(env.python(), append(args, path)...)); err != nil {
		return nil, err
	}
	bin := env.binDir(path)
	python := filepath.Join(bin, env.exe("python"))
	if req.Options.Bool(component.OptDevPip) {
		if err := env.Runner.Run(ctx, runner.Command(python, "-m", "pip", "install", devPipRequirement)); err != nil {
			return nil, err
		}
	}
	env.Context.SetPythonEnv(path)
	if err := env.Buffer.Activate(filepath.Join(bin, "activate")); err != nil {
		return nil, err
	}
	return []Installed{{Name: env.exe("python"), Path: python}}, nil
}

// minicondaInstaller returns the installer file name published for the
// platform.
func minicondaInstaller(env *Env, version string) (string, error) {
	if version == "" {
		version = "latest"
	}
	var osName, ext string
	switch env.Platform {
	case methods.Linux:
		osName, ext = "Linux", "sh"
	case methods.MacOS:
		osName, ext = "MacOSX", "sh"
	case methods.Windows:
		osName, ext = "Windows", "exe"
	default:
		return "", unsupported(env, string(component.KindMiniconda))
	}
	var arch string
	switch env.arch() {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		switch env.Platform {
		case methods.Linux:
			arch = "aarch64"
		case methods.MacOS:
			arch = "arm64"
		default:
			return "", unsupported(env, string(component.KindMiniconda))
		}
	default:
		return "", unsupported(env, string(component.KindMiniconda))
	}
	return fmt.Sprintf("Miniconda3-%s-%s-%s.%s", version, osName, arch, ext), nil
}

func installMiniconda(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	name, err := minicondaInstaller(env, req.Version)
	if err != nil {
		return nil, err
	}
	path, ok := req.Options.String(component.OptPath)
	if !ok || path == "" {
		dir, err := env.tempDir("dl-miniconda-")
		if err != nil {
			return nil, err
		}
		// The installer refuses an existing prefix.
		path = filepath.Join(dir, "miniconda3")
	}

	scratch, err := env.tempDir("dl-miniconda-installer-")
	if err != nil {
		return nil, err
	}
	base := env.AnacondaURL
	if base == "" {
		base = "https://repo.anaconda.com/miniconda/"
	}
	installer, err := env.fetch(ctx, strings.TrimRight(base, "/")+"/"+name, scratch, name)
	if err != nil {
		return nil, err
	}

	env.logInfo(messages.InstallersInstallingMiniconda, "path", path)
	var cmd runner.Cmd
	if env.Platform == methods.Windows {
		args := []string{"/S", "/InstallationType=JustMe", "/AddToPath=0", "/RegisterPython=0"}
		args = append(args, extraArgs(req)...)
		cmd = runner.Command(installer, append(args, "/D="+path)...)
	} else {
		args := []string{installer, "-p", path, "-s"}
		if req.Options.Bool(component.OptBatch) {
			args = append(args, "-b")
		}
		cmd = runner.Command("bash", append(args, extraArgs(req)...)...)
	}
	if err := env.Runner.Run(ctx, cmd); err != nil {
		return nil, err
	}
	env.Context.SetCondaRoot(path)

	conda := condaExecutable(env, path)
	if spec := req.Options.Strings(component.OptSpec); len(spec) > 0 {
		args := []string{"install", "-y"}
		for _, ch := range req.Options.Strings(component.OptChannel) {
			args = append(args, "-c", ch)
		}
		if err := env.Runner.Run(ctx, runner.Command(conda, append(args, spec...)...)); err != nil {
			return nil, err
		}
	}
	if err := env.Buffer.Activate(filepath.Join(path, "etc", "profile.d", "conda.sh")); err != nil {
		return nil, err
	}
	env.Buffer.Append("conda activate base")
	return []Installed{{Name: env.exe("conda"), Path: conda}}, nil
}

func installCondaEnv(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	root, err := condaRoot(ctx, env)
	if err != nil {
		return nil, err
	}
	name, ok := req.Options.String(component.OptEnvName)
	if !ok || name == "" {
		name = fmt.Sprintf("datalad-installer-%03d", randomEnvSuffix())
		env.logInfo(messages.InstallersUsingCondaEnvName, "name", name)
	}
	args := []string{"create", "--name", name, "-y"}
	args = append(args, extraArgs(req)...)
	args = append(args, req.Options.Strings(component.OptSpec)...)
	if err := env.Runner.Run(ctx, runner.Command(condaExecutable(env, root), args...)); err != nil {
		return nil, err
	}
	env.Context.SetCondaEnv(name)
	env.Buffer.Append("conda activate " + name)
	return nil, nil
}

// condaRoot returns the active conda installation. When none was installed
// earlier in the run, the conda on PATH is adopted.
func condaRoot(ctx context.Context, env *Env) (string, error) {
	if root, ok := env.Context.CondaRoot(); ok {
		return root, nil
	}
	out, err := env.Runner.Output(ctx, runner.Command("conda", "info", "--base"))
	if err != nil {
		return "", fmt.Errorf(messages.InstallersNoCondaFmt, err)
	}
	root := strings.TrimSpace(out)
	if root == "" {
		return "", errors.New(messages.InstallersCondaBaseEmpty)
	}
	env.Context.SetCondaRoot(root)
	return root, nil
}

func condaExecutable(env *Env, root string) string {
	return filepath.Join(env.binDir(root), env.exe("conda"))
}

func installNeurodebian(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	install := runner.Command("apt-get", "install", "-qy", "neurodebian").WithEnv("DEBIAN_FRONTEND=noninteractive")
	if err := env.privileged(ctx, install); err != nil {
		return nil, err
	}
	if err := env.privileged(ctx, runner.Command("nd-configurerepo", extraArgs(req)...)); err != nil {
		return nil, err
	}
	return nil, nil
}
