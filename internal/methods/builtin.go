package methods

import "github.com/conn-castle/datalad-installer/internal/component"

// Method names.
const (
	MethodVenv            = "venv"
	MethodMiniconda       = "miniconda"
	MethodConda           = "conda"
	MethodNeurodebian     = "neurodebian"
	MethodApt             = "apt"
	MethodBrew            = "brew"
	MethodPip             = "pip"
	MethodDebURL          = "deb-url"
	MethodAutobuild       = "autobuild"
	MethodSnapshot        = "snapshot"
	MethodGitAnnexTested  = "datalad/git-annex:tested"
	MethodGitAnnexBuild   = "datalad/git-annex"
	MethodGitAnnexRelease = "datalad/git-annex:release"
	MethodPackages        = "datalad/packages"
	MethodRcloneDownloads = "downloads.rclone.org"
	MethodRcloneRemote    = "DanielDent/git-annex-remote-rclone"
)

var unixLike = []Platform{Linux, MacOS}

// Default returns the built-in registry content.
func Default() Spec {
	return Spec{
		Descriptors: []Descriptor{
			{Name: MethodVenv, Kinds: kinds(component.KindVenv), Platforms: AllPlatforms},
			{Name: MethodMiniconda, Kinds: kinds(component.KindMiniconda), Platforms: AllPlatforms, SupportsVersionPin: true},
			{
				Name:               MethodConda,
				Kinds:              kinds(component.KindCondaEnv, component.KindGitAnnex, component.KindDatalad, component.KindRclone, component.KindGitAnnexRemoteRclone),
				Platforms:          AllPlatforms,
				SupportsVersionPin: true,
			},
			{
				Name:               MethodNeurodebian,
				Kinds:              kinds(component.KindNeurodebian, component.KindGitAnnex, component.KindDatalad),
				Platforms:          []Platform{Linux},
				SupportsVersionPin: true,
			},
			{Name: MethodApt, Kinds: kinds(component.KindGitAnnex, component.KindDatalad), Platforms: []Platform{Linux}, SupportsVersionPin: true},
			{Name: MethodBrew, Kinds: kinds(component.KindGitAnnex, component.KindDatalad, component.KindRclone), Platforms: []Platform{MacOS}},
			{Name: MethodPip, Kinds: kinds(component.KindDatalad), Platforms: AllPlatforms, SupportsVersionPin: true},
			{Name: MethodDebURL, Kinds: kinds(component.KindGitAnnex, component.KindDatalad), Platforms: []Platform{Linux}},
			{Name: MethodAutobuild, Kinds: kinds(component.KindGitAnnex), Platforms: unixLike},
			{Name: MethodSnapshot, Kinds: kinds(component.KindGitAnnex), Platforms: unixLike},
			{Name: MethodGitAnnexTested, Kinds: kinds(component.KindGitAnnex), Platforms: AllPlatforms},
			{Name: MethodGitAnnexBuild, Kinds: kinds(component.KindGitAnnex), Platforms: AllPlatforms},
			{Name: MethodGitAnnexRelease, Kinds: kinds(component.KindGitAnnex), Platforms: AllPlatforms, SupportsVersionPin: true},
			{Name: MethodPackages, Kinds: kinds(component.KindGitAnnex), Platforms: AllPlatforms, SupportsVersionPin: true},
			{Name: MethodRcloneDownloads, Kinds: kinds(component.KindRclone), Platforms: AllPlatforms, SupportsVersionPin: true},
			{Name: MethodRcloneRemote, Kinds: kinds(component.KindGitAnnexRemoteRclone), Platforms: unixLike, SupportsVersionPin: true},
		},
		Fallbacks: map[component.Kind][]string{
			component.KindVenv:                 {MethodVenv},
			component.KindMiniconda:            {MethodMiniconda},
			component.KindCondaEnv:             {MethodConda},
			component.KindNeurodebian:          {MethodNeurodebian},
			component.KindGitAnnex:             {MethodConda, MethodApt, MethodNeurodebian, MethodBrew, MethodAutobuild, MethodPackages},
			component.KindDatalad:              {MethodApt, MethodBrew, MethodPip},
			component.KindRclone:               {MethodConda, MethodRcloneDownloads},
			component.KindGitAnnexRemoteRclone: {MethodConda, MethodRcloneRemote},
		},
		Enablers: []Enabler{
			{
				Prior:   kinds(component.KindMiniconda, component.KindCondaEnv),
				Enables: kinds(component.KindGitAnnex, component.KindDatalad, component.KindRclone, component.KindGitAnnexRemoteRclone, component.KindCondaEnv),
				Method:  MethodConda,
			},
			{Prior: kinds(component.KindVenv), Enables: kinds(component.KindDatalad), Method: MethodPip},
			{Prior: kinds(component.KindNeurodebian), Enables: kinds(component.KindGitAnnex, component.KindDatalad), Method: MethodNeurodebian},
		},
	}
}

func kinds(k ...component.Kind) []component.Kind {
	return k
}
