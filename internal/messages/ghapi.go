package messages

// GitHub API client messages.
const (
	GHAPIRateLimitFmt       = "GitHub API rate limit exceeded (%s)"
	GHAPIRateLimitResetFmt  = "; resets at %s"
	GHAPIRateLimitHint      = "; set GITHUB_TOKEN to raise the limit"
	GHAPIRequestFmt         = "GitHub API request to %s failed: %w"
	GHAPIStatusFmt          = "GitHub API request to %s returned %s"
	GHAPIDecodeFmt          = "failed to decode GitHub API response from %s: %w"
	GHAPIMissingKeyFmt      = "GitHub API response from %s has no %q field"
	GHAPIBadNextLinkFmt     = "invalid next page link %q: %w"
	GHAPISequenceConsumed   = "paginated listing was already consumed"
	GHAPITooManyPagesFmt    = "stopped after %d pages of %s"
	GHAPINoTagsFmt          = "no version tags found for %s/%s"
	GHAPIReleaseNotFoundFmt = "release %s not found for %s/%s"
)
