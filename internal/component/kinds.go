package component

import "github.com/conn-castle/datalad-installer/internal/messages"

func extraArgsOption() OptionSpec {
	return OptionSpec{Name: OptExtraArgs, Short: "e", Type: TypeWords, Metavar: "ARGS", Help: messages.OptExtraArgsHelp}
}

func methodOption() OptionSpec {
	return OptionSpec{Name: OptMethod, Short: "m", Type: TypeString, Metavar: "METHOD", Help: messages.OptMethodHelp}
}

// DefaultSpecs returns the grammar for every built-in kind.
func DefaultSpecs() []KindSpec {
	return []KindSpec{
		{
			Kind: KindVenv,
			Help: messages.KindVenvHelp,
			Options: []OptionSpec{
				{Name: OptPath, Type: TypePath, Metavar: "PATH", Help: messages.OptVenvPathHelp},
				{Name: OptDevPip, Type: TypeBool, Help: messages.OptDevPipHelp},
				extraArgsOption(),
			},
		},
		{
			Kind:      KindMiniconda,
			Versioned: true,
			Help:      messages.KindMinicondaHelp,
			Options: []OptionSpec{
				{Name: OptPath, Type: TypePath, Metavar: "PATH", Help: messages.OptMinicondaPathHelp},
				{Name: OptBatch, Type: TypeBool, Help: messages.OptBatchHelp},
				{Name: OptSpec, Type: TypeFields, Metavar: "SPEC", Help: messages.OptSpecHelp},
				{Name: OptChannel, Short: "c", Type: TypeList, Metavar: "CHANNEL", Help: messages.OptChannelHelp},
				extraArgsOption(),
			},
		},
		{
			Kind: KindCondaEnv,
			Help: messages.KindCondaEnvHelp,
			Options: []OptionSpec{
				{Name: OptEnvName, Short: "n", Type: TypeString, Metavar: "NAME", Help: messages.OptEnvNameHelp},
				{Name: OptSpec, Type: TypeFields, Metavar: "SPEC", Help: messages.OptSpecHelp},
				extraArgsOption(),
			},
		},
		{
			Kind:    KindNeurodebian,
			Help:    messages.KindNeurodebianHelp,
			Options: []OptionSpec{extraArgsOption()},
		},
		{
			Kind:      KindGitAnnex,
			Versioned: true,
			Help:      messages.KindGitAnnexHelp,
			Options: []OptionSpec{
				{Name: OptBuildDep, Type: TypeBool, Help: messages.OptBuildDepHelp},
				extraArgsOption(),
				methodOption(),
				{Name: OptURL, Type: TypeString, Metavar: "URL", Help: messages.OptURLHelp},
			},
		},
		{
			Kind:      KindDatalad,
			Versioned: true,
			Help:      messages.KindDataladHelp,
			Options: []OptionSpec{
				{Name: OptBuildDep, Type: TypeBool, Help: messages.OptBuildDepHelp},
				extraArgsOption(),
				{Name: OptDevel, Type: TypeBool, Help: messages.OptDevelHelp},
				{Name: OptExtras, Short: "E", Type: TypeString, Metavar: "EXTRAS", Help: messages.OptExtrasHelp},
				methodOption(),
				{Name: OptURL, Type: TypeString, Metavar: "URL", Help: messages.OptURLHelp},
			},
		},
		{
			Kind:      KindRclone,
			Versioned: true,
			Help:      messages.KindRcloneHelp,
			Options: []OptionSpec{
				methodOption(),
				{Name: OptBinDir, Type: TypePath, Metavar: "DIR", Help: messages.OptBinDirHelp},
				{Name: OptManDir, Type: TypePath, Metavar: "DIR", Help: messages.OptManDirHelp},
			},
		},
		{
			Kind:      KindGitAnnexRemoteRclone,
			Versioned: true,
			Help:      messages.KindGitAnnexRemoteRcloneHelp,
			Options: []OptionSpec{
				methodOption(),
				{Name: OptBinDir, Type: TypePath, Metavar: "DIR", Help: messages.OptBinDirHelp},
			},
		},
	}
}
