package messages

// Component grammar messages.
const (
	ComponentHelpRequestedFmt = "help requested for %s"
	ComponentDuplicateSpecFmt = "component %s registered more than once"
	ComponentNameEmpty        = "Component name must be nonempty"
	ComponentUnknownFmt       = "Unknown component: %q"
	ComponentNoVersionFmt     = "%s component does not take a version"
	ComponentVersionEmpty     = "Version must be nonempty"
	ComponentInvalidChoiceFmt = "Invalid choice for --%s option: %q"
	ComponentExpandPathFmt    = "%q: %w"
	ComponentSplitWordsFmt    = "%q: %w"
	ComponentUsageHeaderFmt   = "Usage: datalad-installer [<options>] %s [<options>]\n"
	ComponentHelpFlagUsage    = "Show this help information and exit"
)

// Component and option help text.
const (
	KindVenvHelp                 = "Installs a Python virtual environment; later pip installs go into it."
	KindMinicondaHelp            = "Installs Miniconda; later conda installs go into it."
	KindCondaEnvHelp             = "Creates a Conda environment in the active Miniconda installation."
	KindNeurodebianHelp          = "Installs and configures the NeuroDebian repository."
	KindGitAnnexHelp             = "Installs git-annex."
	KindDataladHelp              = "Installs DataLad."
	KindRcloneHelp               = "Installs rclone."
	KindGitAnnexRemoteRcloneHelp = "Installs the git-annex-remote-rclone special remote."

	OptExtraArgsHelp     = "Extra arguments to pass to the install command"
	OptMethodHelp        = "Select the installation method"
	OptVenvPathHelp      = "Create the venv at the given path"
	OptDevPipHelp        = "Install the development version of pip from GitHub"
	OptMinicondaPathHelp = "Install Miniconda at the given path"
	OptBatchHelp         = "Run in batch (noninteractive) mode"
	OptSpecHelp          = "Space-separated list of package specifiers to install"
	OptChannelHelp       = "Additional Conda channel to install packages from"
	OptEnvNameHelp       = "Name of the environment"
	OptBuildDepHelp      = "Install build-dep instead of the package"
	OptURLHelp           = "URL from which to download the package (deb-url method)"
	OptDevelHelp         = "Install from GitHub repository"
	OptExtrasHelp        = "Install the given extras"
	OptBinDirHelp        = "Directory in which to install the program"
	OptManDirHelp        = "Directory in which to install the manpage"
)
