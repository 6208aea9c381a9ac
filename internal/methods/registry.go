// Package methods holds the installation method registry and the resolver that
// picks a concrete method for each requested component.
package methods

import (
	"fmt"
	"slices"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/installctx"
	"github.com/conn-castle/datalad-installer/internal/messages"
)

// Descriptor describes an installation method.
type Descriptor struct {
	Name               string
	Kinds              []component.Kind
	Platforms          []Platform
	SupportsVersionPin bool
}

// AppliesTo reports whether d can install kind.
func (d Descriptor) AppliesTo(kind component.Kind) bool {
	return slices.Contains(d.Kinds, kind)
}

// RunsOn reports whether d is usable on p.
func (d Descriptor) RunsOn(p Platform) bool {
	return slices.Contains(d.Platforms, p)
}

// Key identifies an installer implementation.
type Key struct {
	Kind   component.Kind
	Method string
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.Method
}

// Enabler states that a prior component of kind Prior makes Method available
// for the kinds in Enables.
type Enabler struct {
	Prior   []component.Kind
	Enables []component.Kind
	Method  string
}

// Spec is the static content of a registry.
type Spec struct {
	Descriptors []Descriptor
	// Fallbacks lists, per kind, the methods tried in order when nothing in
	// the history applies.
	Fallbacks map[component.Kind][]string
	Enablers  []Enabler
}

// Registry maps kinds to methods and resolves "auto" requests.
type Registry struct {
	descriptors map[string]Descriptor
	order       []string
	fallbacks   map[component.Kind][]string
	enablers    map[component.Kind]map[component.Kind]string
}

// NewRegistry validates spec and builds a Registry. implemented reports
// whether an installer exists for a (kind, method) pair; every pair named by a
// descriptor must be implemented.
func NewRegistry(spec Spec, implemented func(Key) bool) (*Registry, error) {
	r := &Registry{
		descriptors: make(map[string]Descriptor, len(spec.Descriptors)),
		fallbacks:   make(map[component.Kind][]string, len(spec.Fallbacks)),
		enablers:    make(map[component.Kind]map[component.Kind]string),
	}
	for _, d := range spec.Descriptors {
		if _, dup := r.descriptors[d.Name]; dup {
			return nil, fmt.Errorf(messages.MethodsDuplicateFmt, d.Name)
		}
		if len(d.Kinds) == 0 || len(d.Platforms) == 0 {
			return nil, fmt.Errorf(messages.MethodsEmptyDescriptorFmt, d.Name)
		}
		for _, k := range d.Kinds {
			if _, ok := component.ParseKind(string(k)); !ok {
				return nil, fmt.Errorf(messages.MethodsUnknownKindInSpecFmt, d.Name, k)
			}
			if implemented != nil && !implemented(Key{Kind: k, Method: d.Name}) {
				return nil, fmt.Errorf(messages.MethodsUnimplementedFmt, k, d.Name)
			}
		}
		r.descriptors[d.Name] = d
		r.order = append(r.order, d.Name)
	}

	for _, kind := range component.Kinds() {
		list := spec.Fallbacks[kind]
		if len(list) == 0 {
			return nil, fmt.Errorf(messages.MethodsMissingFallbackFmt, kind)
		}
		for _, name := range list {
			if d, ok := r.descriptors[name]; !ok || !d.AppliesTo(kind) {
				return nil, fmt.Errorf(messages.MethodsBadFallbackFmt, name, kind)
			}
		}
		r.fallbacks[kind] = slices.Clone(list)
	}

	for _, e := range spec.Enablers {
		for _, kind := range e.Enables {
			if d, ok := r.descriptors[e.Method]; !ok || !d.AppliesTo(kind) {
				return nil, fmt.Errorf(messages.MethodsBadEnablerFmt, e.Method, kind)
			}
		}
		for _, prior := range e.Prior {
			m := r.enablers[prior]
			if m == nil {
				m = make(map[component.Kind]string)
				r.enablers[prior] = m
			}
			for _, kind := range e.Enables {
				m[kind] = e.Method
			}
		}
	}
	return r, nil
}

// Descriptor returns the named method.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// MethodsFor lists the methods applicable to kind in registration order.
func (r *Registry) MethodsFor(kind component.Kind) []string {
	var out []string
	for _, name := range r.order {
		if r.descriptors[name].AppliesTo(kind) {
			out = append(out, name)
		}
	}
	return out
}

// Keys lists every (kind, method) pair in the registry.
func (r *Registry) Keys() []Key {
	var out []Key
	for _, name := range r.order {
		for _, k := range r.descriptors[name].Kinds {
			out = append(out, Key{Kind: k, Method: name})
		}
	}
	return out
}

// Resolve picks the method for installing kind. explicit may be empty or
// "auto" to select automatically. A non-empty version requires a method that
// can pin versions. Resolve does not modify ictx.
func (r *Registry) Resolve(kind component.Kind, explicit, version string, ictx *installctx.Context, platform Platform) (Descriptor, error) {
	var (
		d   Descriptor
		err error
	)
	if explicit != "" && explicit != component.MethodAuto {
		d, err = r.resolveExplicit(kind, explicit, platform)
	} else {
		d, err = r.resolveAuto(kind, ictx, platform)
	}
	if err != nil {
		return Descriptor{}, err
	}
	if version != "" && !d.SupportsVersionPin {
		return Descriptor{}, &MethodNotSupportedError{
			Kind: kind, Method: d.Name, Platform: platform, Version: version, Reason: ReasonVersionPin,
		}
	}
	return d, nil
}

func (r *Registry) resolveExplicit(kind component.Kind, name string, platform Platform) (Descriptor, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return Descriptor{}, &MethodNotSupportedError{Kind: kind, Method: name, Platform: platform, Reason: ReasonUnknownMethod}
	}
	if !d.AppliesTo(kind) {
		return Descriptor{}, &MethodNotSupportedError{Kind: kind, Method: name, Platform: platform, Reason: ReasonKind}
	}
	if !d.RunsOn(platform) {
		return Descriptor{}, &MethodNotSupportedError{Kind: kind, Method: name, Platform: platform, Reason: ReasonPlatform}
	}
	return d, nil
}

func (r *Registry) resolveAuto(kind component.Kind, ictx *installctx.Context, platform Platform) (Descriptor, error) {
	if ictx != nil {
		history := ictx.History()
		for i := len(history) - 1; i >= 0; i-- {
			name, ok := r.enablers[history[i].Kind][kind]
			if !ok {
				continue
			}
			if d := r.descriptors[name]; d.RunsOn(platform) {
				return d, nil
			}
		}
	}
	for _, name := range r.fallbacks[kind] {
		if d := r.descriptors[name]; d.RunsOn(platform) {
			return d, nil
		}
	}
	return Descriptor{}, &MethodNotSupportedError{Kind: kind, Platform: platform, Reason: ReasonNoCandidate}
}
