package component

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"mvdan.cc/sh/v3/shell"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// ValueType describes how an option value is converted.
type ValueType int

// Option value types.
const (
	TypeString ValueType = iota
	TypeBool
	// TypePath is a string with a leading ~ expanded.
	TypePath
	// TypeWords is split with shell rules (quotes, escapes, expansion).
	TypeWords
	// TypeFields is split on whitespace.
	TypeFields
	// TypeList may be given more than once.
	TypeList
)

// OptionSpec declares one component option.
type OptionSpec struct {
	Name    string
	Short   string
	Type    ValueType
	Metavar string
	Help    string
	// Choices restricts the accepted values when non-empty.
	Choices []string
}

// KindSpec declares the grammar of one component kind.
type KindSpec struct {
	Kind      Kind
	Versioned bool
	Help      string
	Options   []OptionSpec
}

// UsageError reports a malformed command line. Component is empty for errors
// in the global options.
type UsageError struct {
	Message   string
	Component Kind
}

func (e *UsageError) Error() string {
	return e.Message
}

// HelpRequest is returned by Parse when --help was given for a component.
type HelpRequest struct {
	Kind Kind
}

func (e *HelpRequest) Error() string {
	return fmt.Sprintf(messages.ComponentHelpRequestedFmt, e.Kind)
}

// Grammar parses component tokens into requests.
type Grammar struct {
	specs map[Kind]KindSpec
	order []Kind
}

// NewGrammar builds a grammar from kind specs. methodChoices, when non-nil,
// supplies the valid --method values for each kind; "auto" is always allowed.
func NewGrammar(specs []KindSpec, methodChoices func(Kind) []string) (*Grammar, error) {
	g := &Grammar{specs: make(map[Kind]KindSpec, len(specs))}
	for _, spec := range specs {
		if _, dup := g.specs[spec.Kind]; dup {
			return nil, fmt.Errorf(messages.ComponentDuplicateSpecFmt, spec.Kind)
		}
		if methodChoices != nil {
			for i, opt := range spec.Options {
				if opt.Name != OptMethod {
					continue
				}
				choices := append([]string{MethodAuto}, methodChoices(spec.Kind)...)
				spec.Options = slices.Clone(spec.Options)
				spec.Options[i].Choices = choices
			}
		}
		g.specs[spec.Kind] = spec
		g.order = append(g.order, spec.Kind)
	}
	return g, nil
}

// Spec returns the grammar for kind.
func (g *Grammar) Spec(kind Kind) (KindSpec, bool) {
	spec, ok := g.specs[kind]
	return spec, ok
}

// Kinds returns the kinds known to the grammar, in registration order.
func (g *Grammar) Kinds() []Kind {
	return slices.Clone(g.order)
}

// Parse converts component tokens into requests. Each request is
// "<kind>[=<version>]" followed by that kind's options; the first
// non-option token starts the next request.
func (g *Grammar) Parse(args []string) ([]Request, error) {
	var requests []Request
	for len(args) > 0 {
		token := args[0]
		args = args[1:]
		name, version, hasEq := strings.Cut(token, "=")
		if name == "" {
			return nil, &UsageError{Message: messages.ComponentNameEmpty}
		}
		kind, ok := ParseKind(name)
		spec, known := g.specs[kind]
		if !ok || !known {
			return nil, &UsageError{Message: fmt.Sprintf(messages.ComponentUnknownFmt, name)}
		}
		if version != "" && !spec.Versioned {
			return nil, &UsageError{Message: fmt.Sprintf(messages.ComponentNoVersionFmt, name), Component: kind}
		}
		if hasEq && version == "" {
			return nil, &UsageError{Message: messages.ComponentVersionEmpty, Component: kind}
		}
		opts, rest, err := parseOptions(spec, args)
		if err != nil {
			return nil, err
		}
		args = rest
		requests = append(requests, Request{Kind: kind, Version: version, Options: opts})
	}
	return requests, nil
}

// Usage returns the option help text for kind.
func (g *Grammar) Usage(kind Kind) string {
	spec, ok := g.specs[kind]
	if !ok {
		return ""
	}
	fs, _ := newFlagSet(spec)
	var b strings.Builder
	header := string(kind)
	if spec.Versioned {
		header += "[=VERSION]"
	}
	fmt.Fprintf(&b, messages.ComponentUsageHeaderFmt, header)
	if spec.Help != "" {
		fmt.Fprintf(&b, "\n%s\n", spec.Help)
	}
	fmt.Fprintf(&b, "\n%s", fs.FlagUsages())
	return b.String()
}

type flagValues struct {
	strings map[string]*string
	bools   map[string]*bool
	lists   map[string]*[]string
	help    *bool
}

func newFlagSet(spec KindSpec) (*pflag.FlagSet, flagValues) {
	fs := pflag.NewFlagSet(string(spec.Kind), pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	vals := flagValues{
		strings: map[string]*string{},
		bools:   map[string]*bool{},
		lists:   map[string]*[]string{},
	}
	vals.help = fs.BoolP("help", "h", false, messages.ComponentHelpFlagUsage)
	for _, opt := range spec.Options {
		usage := opt.Help
		if len(opt.Choices) > 0 {
			usage = fmt.Sprintf("%s [%s]", usage, strings.Join(opt.Choices, "|"))
		}
		switch opt.Type {
		case TypeBool:
			vals.bools[opt.Name] = fs.BoolP(opt.Name, opt.Short, false, usage)
		case TypeList:
			vals.lists[opt.Name] = fs.StringArrayP(opt.Name, opt.Short, nil, usage)
		default:
			vals.strings[opt.Name] = fs.StringP(opt.Name, opt.Short, "", usage)
		}
		if opt.Metavar != "" {
			if f := fs.Lookup(opt.Name); f != nil {
				f.Usage = "`" + opt.Metavar + "` " + usage
			}
		}
	}
	return fs, vals
}

func parseOptions(spec KindSpec, args []string) (Options, []string, error) {
	fs, vals := newFlagSet(spec)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, nil, &HelpRequest{Kind: spec.Kind}
		}
		return nil, nil, &UsageError{Message: err.Error(), Component: spec.Kind}
	}
	if *vals.help {
		return nil, nil, &HelpRequest{Kind: spec.Kind}
	}
	opts := Options{}
	for _, opt := range spec.Options {
		if !fs.Changed(opt.Name) {
			continue
		}
		value, err := convert(opt, vals)
		if err != nil {
			return nil, nil, &UsageError{Message: err.Error(), Component: spec.Kind}
		}
		opts[opt.Name] = value
	}
	return opts, fs.Args(), nil
}

func convert(opt OptionSpec, vals flagValues) (any, error) {
	switch opt.Type {
	case TypeBool:
		return *vals.bools[opt.Name], nil
	case TypeList:
		return slices.Clone(*vals.lists[opt.Name]), nil
	}
	raw := *vals.strings[opt.Name]
	if len(opt.Choices) > 0 && !slices.Contains(opt.Choices, raw) {
		return nil, fmt.Errorf(messages.ComponentInvalidChoiceFmt, opt.Name, raw)
	}
	switch opt.Type {
	case TypePath:
		expanded, err := homedir.Expand(raw)
		if err != nil {
			return nil, fmt.Errorf(messages.ComponentExpandPathFmt, raw, err)
		}
		return expanded, nil
	case TypeWords:
		words, err := shell.Fields(raw, literalVar)
		if err != nil {
			return nil, fmt.Errorf(messages.ComponentSplitWordsFmt, raw, err)
		}
		return words, nil
	case TypeFields:
		return strings.Fields(raw), nil
	default:
		return raw, nil
	}
}

// literalVar keeps parameter references as written, so "$HOME" reaches the
// installer command unexpanded.
func literalVar(name string) string {
	return "$" + name
}
