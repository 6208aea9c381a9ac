package messages

// HTML index messages.
const (
	HTMLIndexParseFmt   = "failed to parse HTML index %s: %w"
	HTMLIndexBaseURLFmt = "invalid index URL %q: %w"
)
