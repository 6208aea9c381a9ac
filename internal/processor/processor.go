// Package processor installs a sequence of component requests in order,
// resolving each to a method and threading the installation context between
// them.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/installers"
	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/methods"
)

// Processor runs requests against a registry and an installer table.
type Processor struct {
	Registry   *methods.Registry
	Installers map[methods.Key]installers.Installer
	// Env is shared by every installer of the run; its Context and Buffer
	// accumulate state across requests.
	Env    *installers.Env
	Logger *log.Logger
}

// Result summarises a run.
type Result struct {
	// Completed counts the requests that installed successfully.
	Completed int
	Installed []installers.Installed
}

// Run installs requests strictly in order and stops at the first failure.
// Nothing is rolled back; the returned Result reflects the completed prefix.
func (p *Processor) Run(ctx context.Context, requests []component.Request) (Result, error) {
	var res Result
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		desc, err := p.Registry.Resolve(req.Kind, req.Method(), req.Version, p.Env.Context, p.Env.Platform)
		if err != nil {
			return res, err
		}
		key := methods.Key{Kind: req.Kind, Method: desc.Name}
		inst, ok := p.Installers[key]
		if !ok {
			return res, fmt.Errorf(messages.ProcessorNoInstallerFmt, key)
		}

		p.logInfo(messages.ProcessorInstalling, "component", req.String(), "method", desc.Name)
		installed, err := inst.Install(ctx, p.Env, req)
		if err != nil {
			return res, fmt.Errorf(messages.ProcessorInstallFmt, req, desc.Name, err)
		}
		p.Env.Context.Record(req.Kind, desc.Name)
		res.Completed++
		res.Installed = append(res.Installed, installed...)
		p.logInfo(messages.ProcessorInstalled, "component", req.String(), "method", desc.Name)
	}
	return res, nil
}

func (p *Processor) logInfo(msg string, kv ...any) {
	if p.Logger != nil {
		p.Logger.Info(msg, kv...)
	}
}

var goos = runtime.GOOS

// Verify checks that every installed command exists under its expected name
// and is executable.
func Verify(installed []installers.Installed) error {
	var errs []error
	for _, c := range installed {
		if err := verifyCommand(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func verifyCommand(c installers.Installed) error {
	if filepath.Base(c.Path) != c.Name {
		return fmt.Errorf(messages.ProcessorVerifyNameFmt, c.Path, c.Name)
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf(messages.ProcessorVerifyStatFmt, c.Path, err)
	}
	if info.IsDir() || (goos != "windows" && info.Mode().Perm()&0o111 == 0) {
		return fmt.Errorf(messages.ProcessorVerifyExecFmt, c.Path)
	}
	return nil
}
