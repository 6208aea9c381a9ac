package messages

// Processor messages.
const (
	ProcessorInstalling     = "Installing component"
	ProcessorInstalled      = "Installed component"
	ProcessorNoInstallerFmt = "no installer registered for %s"
	ProcessorInstallFmt     = "failed to install %s via %s: %w"
	ProcessorVerifyNameFmt  = "installed command %s does not have the expected name %s"
	ProcessorVerifyStatFmt  = "installed command %s is missing: %w"
	ProcessorVerifyExecFmt  = "installed command %s is not executable"
)
