package messages

// Installer messages.
const (
	InstallersTempDirFmt             = "failed to create temporary directory: %w"
	InstallersNoCondaFmt             = "no conda installation is active and conda was not found on PATH: %w"
	InstallersCondaBaseEmpty         = "conda info --base printed no directory"
	InstallersUsingCondaEnvName      = "Using generated conda environment name"
	InstallersNeurodebianMissing     = "the NeuroDebian repository is not configured; add the neurodebian component first"
	InstallersNoPackageFmt           = "%s cannot install %s"
	InstallersURLRequiredFmt         = "the %s method for %s requires --url"
	InstallersUnsupportedPlatformFmt = "%s is not supported on %s/%s"
	InstallersNoArtifactsFmt         = "no build artifacts found for %s"
	InstallersTokenRequired          = "a GitHub token is required to download build artifacts; set GITHUB_TOKEN or git config hub.oauthtoken"
	InstallersNoAssetFmt             = "no %s asset found in %s"
	InstallersAmbiguousAssetFmt      = "expected one %s file in %s, found %d"
	InstallersNoIndexMatchFmt        = "no package matching %s found at %s"
	InstallersArchiveFmt             = "failed to extract %s: %w"
	InstallersArchiveEntryFmt        = "archive %s does not contain %s"
	InstallersUnsafePathFmt          = "archive entry %q escapes the destination directory"
	InstallersUserBaseFmt            = "failed to query Python user base: %w"
	InstallersScriptsDirFmt          = "failed to query Python scripts directory: %w"
	InstallersBrewPrefixFmt          = "failed to query Homebrew prefix: %w"
	InstallersPlaceFmt               = "failed to install %s into %s: %w"
	InstallersInstallingMiniconda    = "Installing Miniconda"
	InstallersFetchingRuns           = "Looking up workflow runs"
	InstallersFetchingArtifacts      = "Looking up build artifacts"
	InstallersNoDevelFmt             = "no source repository known for %s"
)
