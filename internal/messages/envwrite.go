package messages

// Environment-write file messages.
const (
	EnvwriteOpenFmt        = "failed to open env-write file %s: %w"
	EnvwriteLockFmt        = "failed to lock env-write file %s: %w"
	EnvwriteLockTimeoutFmt = "timed out after %s waiting for lock"
	EnvwriteReadFmt        = "failed to read env-write file %s: %w"
	EnvwriteWriteFmt       = "failed to write env-write file %s: %w"
	EnvwriteQuoteFmt       = "cannot quote %q for shell: %w"
)
