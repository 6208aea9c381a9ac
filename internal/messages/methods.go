package messages

// Method registry and resolver messages.
const (
	MethodsUnknownPlatformFmt   = "unknown platform %q"
	MethodsUnknownMethodFmt     = "unknown installation method %q for %s"
	MethodsKindMismatchFmt      = "method %q does not support installing %s"
	MethodsPlatformMismatchFmt  = "method %q for %s is not supported on %s"
	MethodsVersionPinFmt        = "method %q cannot install a specific version of %s (requested %s)"
	MethodsNoCandidateFmt       = "no installation method for %s is supported on %s"
	MethodsDuplicateFmt         = "duplicate installation method %q"
	MethodsEmptyDescriptorFmt   = "installation method %q must name at least one kind and one platform"
	MethodsMissingFallbackFmt   = "no fallback methods registered for %s"
	MethodsBadFallbackFmt       = "fallback method %q for %s is not registered for that kind"
	MethodsBadEnablerFmt        = "enabler method %q for %s is not registered for that kind"
	MethodsUnimplementedFmt     = "no installer implements %s via %q"
	MethodsUnknownKindInSpecFmt = "installation method %q names unknown kind %q"
)
