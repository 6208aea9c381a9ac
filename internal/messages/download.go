package messages

// Download messages.
const (
	DownloadFailedFmt           = "download of %s failed after %d attempt(s): %v"
	DownloadStatusFmt           = "unexpected HTTP status %s"
	DownloadTruncatedFmt        = "%w: received %d of %d bytes"
	DownloadTruncated           = "download truncated"
	DownloadTooLargeFmt         = "response exceeds maximum size of %d bytes"
	DownloadWriteFmt            = "failed to write download: %w"
	DownloadCreateTempFmt       = "failed to create temp file for %s: %w"
	DownloadCloseTempFmt        = "failed to close temp file %s: %w"
	DownloadRenameFmt           = "failed to move download into place at %s: %w"
	DownloadRetrying            = "Retrying download"
	DownloadingFmt              = "Downloading %s"
	DownloadTooManyRedirectsFmt = "stopped after %d redirects"
	DownloadOpenFileFmt         = "failed to open %s: %w"
	DownloadHashFileFmt         = "failed to hash %s: %w"
	DownloadChecksumMismatchFmt = "checksum mismatch for %s: expected %s, got %s"
	DownloadChecksumNotFoundFmt = "checksum for %s not found in %s"
)
