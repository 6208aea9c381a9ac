// Package privilege decides whether and how commands that need elevated
// privileges are run.
package privilege

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// Policy controls what happens when a command needs sudo.
type Policy string

// Privilege policies.
const (
	// PolicyAsk prompts for confirmation before each escalation.
	PolicyAsk Policy = "ask"
	// PolicyError fails instead of escalating.
	PolicyError Policy = "error"
	// PolicyOK escalates without prompting.
	PolicyOK Policy = "ok"
)

// Policies lists the valid policy names.
func Policies() []string {
	return []string{string(PolicyAsk), string(PolicyError), string(PolicyOK)}
}

// ParsePolicy converts a policy name, case-insensitively.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case PolicyAsk, PolicyError, PolicyOK:
		return p, nil
	default:
		return "", fmt.Errorf(messages.PrivilegeInvalidPolicyFmt, raw)
	}
}

// ErrDeclined is returned when the user answers no to an escalation prompt.
var ErrDeclined = errors.New(messages.PrivilegeDeclined)

// ErrEscalationForbidden is returned when escalation is needed under PolicyError.
var ErrEscalationForbidden = errors.New(messages.PrivilegeForbidden)

// ErrNotInteractive is returned when PolicyAsk needs a prompt but no terminal is attached.
var ErrNotInteractive = errors.New(messages.PrivilegeNotInteractive)
