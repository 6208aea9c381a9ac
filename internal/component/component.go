// Package component defines the provisionable component kinds and the requests
// parsed from the command line.
package component

import "sort"

// Kind identifies a provisionable component.
type Kind string

// Component kinds. Environment kinds (venv, miniconda, conda-env) and the
// repository-registration kind (neurodebian) change the installation context;
// the rest are named packages.
const (
	KindVenv                 Kind = "venv"
	KindMiniconda            Kind = "miniconda"
	KindCondaEnv             Kind = "conda-env"
	KindNeurodebian          Kind = "neurodebian"
	KindGitAnnex             Kind = "git-annex"
	KindDatalad              Kind = "datalad"
	KindRclone               Kind = "rclone"
	KindGitAnnexRemoteRclone Kind = "git-annex-remote-rclone"
)

var allKinds = []Kind{
	KindVenv,
	KindMiniconda,
	KindCondaEnv,
	KindNeurodebian,
	KindGitAnnex,
	KindDatalad,
	KindRclone,
	KindGitAnnexRemoteRclone,
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind returns the kind named by s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// IsEnvironment reports whether installing k creates an environment that later
// components may install into.
func (k Kind) IsEnvironment() bool {
	switch k {
	case KindVenv, KindMiniconda, KindCondaEnv:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// Option names shared between the grammar and the installers.
const (
	OptMethod    = "method"
	OptExtraArgs = "extra-args"
	OptPath      = "path"
	OptDevPip    = "dev-pip"
	OptBatch     = "batch"
	OptSpec      = "spec"
	OptChannel   = "channel"
	OptEnvName   = "name"
	OptBuildDep  = "build-dep"
	OptURL       = "url"
	OptDevel     = "devel"
	OptExtras    = "extras"
	OptBinDir    = "bin-dir"
	OptManDir    = "man-dir"
)

// MethodAuto requests automatic method resolution.
const MethodAuto = "auto"

// Options holds the option values given for a single component.
// Values are string, bool, or []string.
type Options map[string]any

// String returns the string option name and whether it was set.
func (o Options) String(name string) (string, bool) {
	v, ok := o[name].(string)
	return v, ok
}

// Bool returns the boolean option name, false when unset.
func (o Options) Bool(name string) bool {
	v, _ := o[name].(bool)
	return v
}

// Strings returns the list option name, nil when unset.
func (o Options) Strings(name string) []string {
	v, _ := o[name].([]string)
	if len(v) == 0 {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

// Names returns the set option names in sorted order.
func (o Options) Names() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Request is one component requested on the command line.
type Request struct {
	Kind    Kind
	Version string
	Options Options
}

// Method returns the requested installation method, or MethodAuto.
func (r Request) Method() string {
	if m, ok := r.Options.String(OptMethod); ok && m != "" {
		return m
	}
	return MethodAuto
}

// String renders the request the way it would be written on the command line.
func (r Request) String() string {
	if r.Version == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + "=" + r.Version
}
