package installers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/methods"
	"github.com/conn-castle/datalad-installer/internal/runner"
)

// Package names per method. A kind missing from a map cannot be installed by
// that method.
var (
	aptPackages = map[component.Kind]string{
		component.KindDatalad:  "datalad",
		component.KindGitAnnex: "git-annex",
	}
	neurodebianPackages = map[component.Kind]string{
		component.KindDatalad:  "datalad",
		component.KindGitAnnex: "git-annex-standalone",
	}
	brewPackages = map[component.Kind]string{
		component.KindDatalad:  "datalad",
		component.KindGitAnnex: "git-annex",
		component.KindRclone:   "rclone",
	}
	condaPackages = map[component.Kind]string{
		component.KindDatalad:              "datalad",
		component.KindGitAnnex:             "git-annex",
		component.KindRclone:               "rclone",
		component.KindGitAnnexRemoteRclone: "git-annex-remote-rclone",
	}
	pipPackages = map[component.Kind]string{
		component.KindDatalad: "datalad",
	}
	pipDevelPackages = map[component.Kind]string{
		component.KindDatalad: "git+https://github.com/datalad/datalad.git",
	}
)

// ErrNeurodebianNotConfigured is returned when a package is requested from
// NeuroDebian before the repository was added.
var ErrNeurodebianNotConfigured = errors.New(messages.InstallersNeurodebianMissing)

func packageFor(table map[component.Kind]string, method string, kind component.Kind) (string, error) {
	pkg, ok := table[kind]
	if !ok {
		return "", fmt.Errorf(messages.InstallersNoPackageFmt, method, kind)
	}
	return pkg, nil
}

func installApt(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	return aptInstall(ctx, env, req, methods.MethodApt, aptPackages)
}

// installNeurodebianPackage installs from the NeuroDebian repository, which
// must already be configured.
func installNeurodebianPackage(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	policy, err := env.Runner.Output(ctx, runner.Command("apt-cache", "policy"))
	if err != nil {
		return nil, err
	}
	if !strings.Contains(policy, "l=NeuroDebian") {
		return nil, ErrNeurodebianNotConfigured
	}
	return aptInstall(ctx, env, req, methods.MethodNeurodebian, neurodebianPackages)
}

func aptInstall(ctx context.Context, env *Env, req component.Request, method string, table map[component.Kind]string) ([]Installed, error) {
	pkg, err := packageFor(table, method, req.Kind)
	if err != nil {
		return nil, err
	}
	buildDep := req.Options.Bool(component.OptBuildDep)
	verb := "install"
	if buildDep {
		verb = "build-dep"
	}
	args := append([]string{verb}, extraArgs(req)...)
	if req.Version != "" {
		pkg += "=" + req.Version
	}
	if err := env.privileged(ctx, runner.Command("apt-get", append(args, pkg)...)); err != nil {
		return nil, err
	}
	if buildDep {
		return nil, nil
	}
	name := string(req.Kind)
	return []Installed{{Name: name, Path: filepath.Join("/usr/bin", name)}}, nil
}

func installBrew(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	pkg, err := packageFor(brewPackages, methods.MethodBrew, req.Kind)
	if err != nil {
		return nil, err
	}
	args := append([]string{"install"}, extraArgs(req)...)
	if err := env.Runner.Run(ctx, runner.Command("brew", append(args, pkg)...)); err != nil {
		return nil, err
	}
	prefix, err := env.Runner.Output(ctx, runner.Command("brew", "--prefix"))
	if err != nil {
		return nil, fmt.Errorf(messages.InstallersBrewPrefixFmt, err)
	}
	name := string(req.Kind)
	return []Installed{{Name: name, Path: filepath.Join(strings.TrimSpace(prefix), "bin", name)}}, nil
}

// ComposePipRequirement renders a pip requirement specifier. With a URL the
// version selects a revision of the repository.
func ComposePipRequirement(pkg, version, urlspec, extras string) string {
	req := pkg
	if extras != "" {
		req += "[" + extras + "]"
	}
	if urlspec == "" {
		if version != "" {
			req += "==" + version
		}
		return req
	}
	req += " @ " + urlspec
	if version != "" {
		req += "@" + version
	}
	return req
}

func installPip(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	pkg, err := packageFor(pipPackages, methods.MethodPip, req.Kind)
	if err != nil {
		return nil, err
	}
	var urlspec string
	if req.Options.Bool(component.OptDevel) {
		spec, ok := pipDevelPackages[req.Kind]
		if !ok {
			return nil, fmt.Errorf(messages.InstallersNoDevelFmt, req.Kind)
		}
		urlspec = spec
	}
	extras, _ := req.Options.String(component.OptExtras)

	venv, inVenv := env.Context.PythonEnv()
	python := env.python()
	if inVenv {
		python = filepath.Join(env.binDir(venv), env.exe("python"))
	}
	extra := extraArgs(req)
	args := append([]string{"-m", "pip", "install"}, extra...)
	args = append(args, ComposePipRequirement(pkg, req.Version, urlspec, extras))
	if err := env.Runner.Run(ctx, runner.Command(python, args...)); err != nil {
		return nil, err
	}

	var bin string
	switch {
	case slices.Contains(extra, "--user"):
		out, err := env.Runner.Output(ctx, runner.Command(python, "-m", "site", "--user-base"))
		if err != nil {
			return nil, fmt.Errorf(messages.InstallersUserBaseFmt, err)
		}
		bin = env.binDir(strings.TrimSpace(out))
	case inVenv:
		bin = env.binDir(venv)
	default:
		out, err := env.Runner.Output(ctx, runner.Command(python, "-c", "import sysconfig; print(sysconfig.get_path('scripts'))"))
		if err != nil {
			return nil, fmt.Errorf(messages.InstallersScriptsDirFmt, err)
		}
		bin = strings.TrimSpace(out)
	}
	name := env.exe(string(req.Kind))
	return []Installed{{Name: name, Path: filepath.Join(bin, name)}}, nil
}

func installCondaPackage(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	pkg, err := packageFor(condaPackages, methods.MethodConda, req.Kind)
	if err != nil {
		return nil, err
	}
	root, err := condaRoot(ctx, env)
	if err != nil {
		return nil, err
	}
	args := []string{"install"}
	if name, ok := env.Context.CondaEnv(); ok {
		args = append(args, "--name", name)
	}
	args = append(args, "-q", "-c", "conda-forge", "-y")
	args = append(args, extraArgs(req)...)
	if req.Version != "" {
		pkg += "=" + req.Version
	}
	if err := env.Runner.Run(ctx, runner.Command(condaExecutable(env, root), append(args, pkg)...)); err != nil {
		return nil, err
	}
	prefix, _ := env.Context.CondaPrefix()
	name := env.exe(string(req.Kind))
	return []Installed{{Name: name, Path: filepath.Join(env.binDir(prefix), name)}}, nil
}

func installDebURL(ctx context.Context, env *Env, req component.Request) ([]Installed, error) {
	rawURL, ok := req.Options.String(component.OptURL)
	if !ok || rawURL == "" {
		return nil, fmt.Errorf(messages.InstallersURLRequiredFmt, methods.MethodDebURL, req.Kind)
	}
	dir, err := env.tempDir("dl-deb-")
	if err != nil {
		return nil, err
	}
	deb, err := env.fetch(ctx, rawURL, dir, string(req.Kind)+".deb")
	if err != nil {
		return nil, err
	}
	if err := installDeb(ctx, env, deb, extraArgs(req)...); err != nil {
		return nil, err
	}
	name := string(req.Kind)
	return []Installed{{Name: name, Path: filepath.Join("/usr/bin", name)}}, nil
}

func installDeb(ctx context.Context, env *Env, deb string, extra ...string) error {
	args := append([]string{"-i"}, extra...)
	return env.privileged(ctx, runner.Command("dpkg", append(args, deb)...))
}
