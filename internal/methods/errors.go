package methods

import (
	"fmt"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/messages"
)

// Reason names the constraint that made resolution fail.
type Reason int

// Resolution failure reasons.
const (
	ReasonUnknownMethod Reason = iota
	ReasonKind
	ReasonPlatform
	ReasonVersionPin
	ReasonNoCandidate
)

// MethodNotSupportedError reports that no usable method exists for a request.
type MethodNotSupportedError struct {
	Kind     component.Kind
	Method   string
	Platform Platform
	Version  string
	Reason   Reason
}

func (e *MethodNotSupportedError) Error() string {
	switch e.Reason {
	case ReasonUnknownMethod:
		return fmt.Sprintf(messages.MethodsUnknownMethodFmt, e.Method, e.Kind)
	case ReasonKind:
		return fmt.Sprintf(messages.MethodsKindMismatchFmt, e.Method, e.Kind)
	case ReasonPlatform:
		return fmt.Sprintf(messages.MethodsPlatformMismatchFmt, e.Method, e.Kind, e.Platform)
	case ReasonVersionPin:
		return fmt.Sprintf(messages.MethodsVersionPinFmt, e.Method, e.Kind, e.Version)
	default:
		return fmt.Sprintf(messages.MethodsNoCandidateFmt, e.Kind, e.Platform)
	}
}
