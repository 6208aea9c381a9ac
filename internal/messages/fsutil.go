package messages

// File move messages.
const (
	FSMoveFmt         = "failed to move %s to %s: %w"
	FSCopyFmt         = "failed to copy %s to %s: %w"
	FSRemoveAfterCopy = "Could not remove source after copying"
)
