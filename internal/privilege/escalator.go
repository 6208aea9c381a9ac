package privilege

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/runner"
	"github.com/conn-castle/datalad-installer/internal/terminal"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// PromptFunc adapts a function into a Prompter.
type PromptFunc func(question string) (bool, error)

// Confirm calls f.
func (f PromptFunc) Confirm(question string) (bool, error) {
	return f(question)
}

var runConfirm = func(c *huh.Confirm) error { return c.Run() }
var isInteractive = terminal.IsInteractive

// HuhPrompter prompts on the terminal using charmbracelet/huh.
type HuhPrompter struct{}

// Confirm shows a yes/no prompt. It fails with ErrNotInteractive when no
// terminal is attached.
func (HuhPrompter) Confirm(question string) (bool, error) {
	if !isInteractive() {
		return false, ErrNotInteractive
	}
	answer := false
	confirm := huh.NewConfirm().
		Title(question).
		Affirmative(messages.PrivilegePromptAffirm).
		Negative(messages.PrivilegePromptNegate).
		Value(&answer)
	if err := runConfirm(confirm); err != nil {
		return false, err
	}
	return answer, nil
}

// Escalator runs commands that need root, applying a Policy.
type Escalator struct {
	Runner   runner.Runner
	Prompter Prompter
	// Native is set on platforms where escalation is handled by the OS
	// (Windows UAC); commands run unmodified and the policy is treated as ok.
	Native bool
	// IsRoot reports whether the process already runs as root.
	// Nil uses the effective user id.
	IsRoot func() bool
}

// Run executes c with root privileges according to policy.
func (e *Escalator) Run(ctx context.Context, policy Policy, c runner.Cmd) error {
	prepared, err := e.Prepare(policy, c)
	if err != nil {
		return err
	}
	return e.Runner.Run(ctx, prepared)
}

// Prepare returns the command to run for c under policy, prompting when the
// policy is ask. Environment entries are passed through env(1) since sudo
// resets the environment.
func (e *Escalator) Prepare(policy Policy, c runner.Cmd) (runner.Cmd, error) {
	if e.Native || e.isRoot() {
		return c, nil
	}
	switch policy {
	case PolicyOK:
	case PolicyError:
		return runner.Cmd{}, fmt.Errorf(messages.PrivilegeEscalateFmt, c.String(), ErrEscalationForbidden)
	default:
		if e.Prompter == nil {
			return runner.Cmd{}, fmt.Errorf(messages.PrivilegeEscalateFmt, c.String(), ErrNotInteractive)
		}
		ok, err := e.Prompter.Confirm(fmt.Sprintf(messages.PrivilegePromptFmt, c.String()))
		if err != nil {
			return runner.Cmd{}, fmt.Errorf(messages.PrivilegeEscalateFmt, c.String(), err)
		}
		if !ok {
			return runner.Cmd{}, fmt.Errorf(messages.PrivilegeEscalateFmt, c.String(), ErrDeclined)
		}
	}
	args := []string{}
	if len(c.Env) > 0 {
		args = append(args, "env")
		args = append(args, c.Env...)
	}
	args = append(args, c.Name)
	args = append(args, c.Args...)
	return runner.Cmd{Name: "sudo", Args: args, Dir: c.Dir}, nil
}

func (e *Escalator) isRoot() bool {
	if e.IsRoot != nil {
		return e.IsRoot()
	}
	return os.Geteuid() == 0
}
