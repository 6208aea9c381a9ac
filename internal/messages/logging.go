package messages

// Logging messages.
const (
	LoggingInvalidLevelFmt = "invalid log level %q (expected debug, info, warning, error, critical, or a number)"
)
