// Package runner executes external commands for the installation recipes.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// Cmd describes an external command.
type Cmd struct {
	Name string
	Args []string
	// Env holds KEY=VALUE pairs added to the inherited environment.
	Env []string
	Dir string
}

// Command builds a Cmd.
func Command(name string, args ...string) Cmd {
	return Cmd{Name: name, Args: args}
}

// WithEnv returns a copy of c with extra environment entries.
func (c Cmd) WithEnv(kv ...string) Cmd {
	c.Env = append(append([]string(nil), c.Env...), kv...)
	return c
}

// Argv returns the name followed by the arguments.
func (c Cmd) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command line with POSIX shell quoting.
func (c Cmd) String() string {
	return QuoteArgs(c.Argv())
}

// QuoteArgs joins args into a shell-safe command line.
func QuoteArgs(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			q = fmt.Sprintf("%q", arg)
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " ")
}

// Runner executes commands.
type Runner interface {
	// Run executes c, streaming its output.
	Run(ctx context.Context, c Cmd) error
	// Output executes c and returns its standard output.
	Output(ctx context.Context, c Cmd) (string, error)
}

// CommandError reports a command that could not be started or exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf(messages.RunnerCommandExitFmt, e.Command, e.ExitCode)
	}
	return fmt.Sprintf(messages.RunnerCommandFailedFmt, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

var execCommand = exec.CommandContext

// LookPath is a seam over exec.LookPath.
var LookPath = exec.LookPath

// Exec runs commands as child processes.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

// Run executes c with its output attached to the configured writers.
func (e *Exec) Run(ctx context.Context, c Cmd) error {
	cmd := e.build(ctx, c)
	cmd.Stdout = writerOr(e.Stdout, os.Stdout)
	cmd.Stderr = writerOr(e.Stderr, os.Stderr)
	return wrapErr(c, cmd.Run())
}

// Output executes c and returns its standard output.
func (e *Exec) Output(ctx context.Context, c Cmd) (string, error) {
	cmd := e.build(ctx, c)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = writerOr(e.Stderr, os.Stderr)
	if err := wrapErr(c, cmd.Run()); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (e *Exec) build(ctx context.Context, c Cmd) *exec.Cmd {
	if e.Logger != nil {
		e.Logger.Info(messages.RunnerRunning, "cmd", c.String())
	}
	cmd := execCommand(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

func wrapErr(c Cmd, err error) error {
	if err == nil {
		return nil
	}
	cmdErr := &CommandError{Command: c.String(), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return cmdErr
}

func writerOr(w io.Writer, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}
