package messages

// Runner and privilege messages.
const (
	RunnerRunning          = "Running"
	RunnerCommandExitFmt   = "command %s exited with status %d"
	RunnerCommandFailedFmt = "command %s failed: %v"

	PrivilegeInvalidPolicyFmt = "invalid sudo policy %q (expected ask, error, or ok)"
	PrivilegeDeclined         = "user declined to run command with sudo"
	PrivilegeForbidden        = "command requires sudo but --sudo=error is in effect"
	PrivilegeNotInteractive   = "sudo confirmation requires an interactive terminal; rerun with --sudo=ok"
	PrivilegePromptFmt        = "About to run with sudo: %s\nProceed?"
	PrivilegePromptAffirm     = "Yes"
	PrivilegePromptNegate     = "No"
	PrivilegeEscalateFmt      = "%s: %w"
)
