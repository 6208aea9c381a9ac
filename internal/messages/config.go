package messages

// Configuration messages.
const (
	ConfigReadFmt            = "failed to read config %s: %w"
	ConfigInvalidFmt         = "invalid config %s: %w"
	ConfigUnknownKeysFmt     = "config %s has unrecognized keys: %w"
	ConfigInvalidDurationFmt = "invalid duration %q: %w"
	ConfigInvalidSudoFmt     = "config %s: %w"
	ConfigNegativeFmt        = "config %s: %s must not be negative"
	ConfigExpandPathFmt      = "failed to expand path %q: %w"
	ConfigInvalidEnvFmt      = "invalid %s value %q: %w"
)
