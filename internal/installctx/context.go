// Package installctx holds the mutable installation context threaded through a
// run: the active environments, the privilege policy and the history of
// installed components.
package installctx

import (
	"path/filepath"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/privilege"
)

// Entry records the method used to install a component.
type Entry struct {
	Kind   component.Kind
	Method string
}

// Context is the ambient install target. Each slot holds at most one value;
// setting a slot replaces the previous value.
type Context struct {
	pythonEnv string
	condaRoot string
	condaEnv  string
	policy    privilege.Policy
	history   []Entry
}

// New returns an empty context using policy for privileged commands.
func New(policy privilege.Policy) *Context {
	if policy == "" {
		policy = privilege.PolicyAsk
	}
	return &Context{policy: policy}
}

// PythonEnv returns the active virtual environment path.
func (c *Context) PythonEnv() (string, bool) {
	return c.pythonEnv, c.pythonEnv != ""
}

// SetPythonEnv makes path the active virtual environment.
func (c *Context) SetPythonEnv(path string) {
	c.pythonEnv = path
}

// CondaRoot returns the active Conda installation.
func (c *Context) CondaRoot() (string, bool) {
	return c.condaRoot, c.condaRoot != ""
}

// SetCondaRoot makes path the active Conda installation. The active Conda
// environment is cleared since it belonged to the previous installation.
func (c *Context) SetCondaRoot(path string) {
	c.condaRoot = path
	c.condaEnv = ""
}

// CondaEnv returns the name of the active Conda environment.
func (c *Context) CondaEnv() (string, bool) {
	return c.condaEnv, c.condaEnv != ""
}

// SetCondaEnv makes name the active Conda environment.
func (c *Context) SetCondaEnv(name string) {
	c.condaEnv = name
}

// CondaPrefix returns the directory of the active Conda environment, or the
// installation root when no environment is active.
func (c *Context) CondaPrefix() (string, bool) {
	if c.condaRoot == "" {
		return "", false
	}
	if c.condaEnv == "" {
		return c.condaRoot, true
	}
	return filepath.Join(c.condaRoot, "envs", c.condaEnv), true
}

// Privilege returns the privilege policy.
func (c *Context) Privilege() privilege.Policy {
	return c.policy
}

// SetPrivilege replaces the privilege policy.
func (c *Context) SetPrivilege(p privilege.Policy) {
	c.policy = p
}

// Record appends a successful installation to the history.
func (c *Context) Record(kind component.Kind, method string) {
	c.history = append(c.history, Entry{Kind: kind, Method: method})
}

// History returns the installation history, oldest first.
func (c *Context) History() []Entry {
	out := make([]Entry, len(c.history))
	copy(out, c.history)
	return out
}
