package messages

// CLI messages for the root command and its output.
const (
	// RootUse is the CLI command usage line.
	RootUse = "datalad-installer [<options>] [<component>[=<version>] [<options>]] ..."
	// RootShort is the short description for the root command.
	RootShort = "Install DataLad, git-annex, and related components"
	RootLong  = "Installs the given components in order. With no components, datalad is installed.\n\nComponents: %s\n\nRun 'datalad-installer <component> --help' for the options of a component."

	RootFlagLogLevel     = "Set logging level (a name or a number from 10 to 50)"
	RootFlagEnvWriteFile = "Append PATH modifications and other shell commands to the given file; may be given multiple times"
	RootFlagSudo         = "How to handle sudo invocations: ask, error, or ok"
	RootFlagConfig       = "Read settings from the given TOML file"
	RootFlagMaxAttempts  = "Maximum number of attempts per download"
	RootVersionFlag      = "Print version and exit"

	// VersionCommitFmt formats the commit hash for version display.
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "datalad-installer {{.Version}}\n"

	UserAgentFmt = "datalad-installer/%s (%s/%s)"

	CLIInstalledFmt   = "%s is now installed at %s\n"
	CLIErrorFmt       = "Error: %v\n"
	CLIFlushFmt       = "failed to write env-write files: %w"
	CLIVerifyFmt      = "installed commands failed verification: %w"
	CLIRegistryFmt    = "invalid installation method registry: %w"
	CLIGrammarFmt     = "invalid component grammar: %w"
	CLIStartingRun    = "Starting installation"
	CLIFlagsSource    = "command-line flags"
	CLIWritingEnvFile = "Writing env-write file"
)
