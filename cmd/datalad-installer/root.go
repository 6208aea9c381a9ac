package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conn-castle/datalad-installer/internal/component"
	"github.com/conn-castle/datalad-installer/internal/config"
	"github.com/conn-castle/datalad-installer/internal/download"
	"github.com/conn-castle/datalad-installer/internal/envwrite"
	"github.com/conn-castle/datalad-installer/internal/ghapi"
	"github.com/conn-castle/datalad-installer/internal/installctx"
	"github.com/conn-castle/datalad-installer/internal/installers"
	"github.com/conn-castle/datalad-installer/internal/logging"
	"github.com/conn-castle/datalad-installer/internal/messages"
	"github.com/conn-castle/datalad-installer/internal/methods"
	"github.com/conn-castle/datalad-installer/internal/privilege"
	"github.com/conn-castle/datalad-installer/internal/processor"
	"github.com/conn-castle/datalad-installer/internal/runner"
)

const (
	flagLogLevel     = "log-level"
	flagEnvWriteFile = "env-write-file"
	flagSudo         = "sudo"
	flagConfig       = "config"
	flagMaxAttempts  = "max-attempts"
	flagVersion      = "version"
)

var (
	configSystem    config.System = config.RealSystem{}
	currentPlatform               = methods.Current
	getenv                        = os.Getenv
	installerTable                = installers.Table
	verifyInstalled               = processor.Verify
	// isRoot overrides the effective user id check when set.
	isRoot func() bool
	// prompter answers escalation prompts under the ask policy.
	prompter privilege.Prompter = privilege.HuhPrompter{}
)

var newRunner = func(stdout, stderr io.Writer, logger *log.Logger) runner.Runner {
	return &runner.Exec{Stdout: stdout, Stderr: stderr, Logger: logger}
}

type rootOptions struct {
	logLevel      string
	envWriteFiles []string
	sudo          string
	configPath    string
	maxAttempts   int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		Long:          fmt.Sprintf(messages.RootLong, kindList()),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}
	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&opts.logLevel, flagLogLevel, "l", "", messages.RootFlagLogLevel)
	flags.StringArrayVarP(&opts.envWriteFiles, flagEnvWriteFile, "E", nil, messages.RootFlagEnvWriteFile)
	flags.StringVar(&opts.sudo, flagSudo, "", messages.RootFlagSudo)
	flags.StringVarP(&opts.configPath, flagConfig, "c", "", messages.RootFlagConfig)
	flags.IntVar(&opts.maxAttempts, flagMaxAttempts, 0, messages.RootFlagMaxAttempts)
	flags.BoolP(flagVersion, "V", false, messages.RootVersionFlag)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})
	return cmd
}

func kindList() string {
	names := make([]string, 0, len(component.Kinds()))
	for _, k := range component.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

// settings resolves the configuration with flags taking precedence over the
// environment and the config file.
func settings(flags *pflag.FlagSet, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(configSystem, opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.Changed(flagLogLevel) {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed(flagSudo) {
		cfg.Sudo = opts.sudo
	}
	if flags.Changed(flagMaxAttempts) {
		cfg.Download.MaxAttempts = opts.maxAttempts
	}
	if flags.Changed(flagEnvWriteFile) {
		cfg.EnvWriteFiles = opts.envWriteFiles
	}
	if err := cfg.Validate(messages.CLIFlagsSource); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := settings(cmd.Flags(), opts)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	logger := logging.New(stderr, level)

	table := installerTable()
	registry, err := methods.NewRegistry(methods.Default(), func(k methods.Key) bool {
		_, ok := table[k]
		return ok
	})
	if err != nil {
		return fmt.Errorf(messages.CLIRegistryFmt, err)
	}
	grammar, err := component.NewGrammar(component.DefaultSpecs(), registry.MethodsFor)
	if err != nil {
		return fmt.Errorf(messages.CLIGrammarFmt, err)
	}
	requests, err := grammar.Parse(args)
	if err != nil {
		return parseFailure(grammar, stdout, stderr, err)
	}
	if len(requests) == 0 {
		requests = []component.Request{{Kind: component.KindDatalad}}
	}

	policy, err := privilege.ParsePolicy(cfg.Sudo)
	if err != nil {
		return err
	}
	platform := currentPlatform()
	if platform == methods.Windows {
		policy = privilege.PolicyOK
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	r := newRunner(stdout, stderr, logger)
	userAgent := fmt.Sprintf(messages.UserAgentFmt, Version, runtime.GOOS, runtime.GOARCH)
	buffer := &envwrite.Buffer{}
	dl := &download.Client{
		HTTP:           download.NewHTTPClient(cfg.Download.Timeout.Duration),
		MaxAttempts:    cfg.Download.MaxAttempts,
		InitialBackoff: cfg.Download.InitialBackoff.Duration,
		MaxBackoff:     cfg.Download.MaxBackoff.Duration,
		UserAgent:      userAgent,
		Logger:         logger,
	}
	env := &installers.Env{
		Context: installctx.New(policy),
		Buffer:  buffer,
		Runner:  r,
		Sudo: &privilege.Escalator{
			Runner:   r,
			Prompter: prompter,
			Native:   platform == methods.Windows,
			IsRoot:   isRoot,
		},
		Download: dl,
		GitHub: ghapi.NewClient(
			ghapi.WithBaseURL(cfg.GitHub.APIURL),
			ghapi.WithToken(ghapi.TokenFromEnv(ctx, getenv, r)),
			ghapi.WithUserAgent(userAgent),
			ghapi.WithRetry(dl),
		),
		Logger:      logger,
		Platform:    platform,
		Arch:        runtime.GOARCH,
		AnacondaURL: cfg.AnacondaURL,
	}
	proc := &processor.Processor{Registry: registry, Installers: table, Env: env, Logger: logger}

	logger.Debug(messages.CLIStartingRun, "components", len(requests), "platform", platform)
	res, runErr := proc.Run(ctx, requests)
	if runErr == nil || res.Completed > 0 {
		if err := flush(buffer, cfg.EnvWriteFiles, logger); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return runErr
	}
	if err := verifyInstalled(res.Installed); err != nil {
		return fmt.Errorf(messages.CLIVerifyFmt, err)
	}
	summary := color.New(color.FgGreen)
	for _, inst := range res.Installed {
		_, _ = summary.Fprintf(stdout, messages.CLIInstalledFmt, inst.Name, inst.Path)
	}
	return nil
}

func parseFailure(grammar *component.Grammar, stdout, stderr io.Writer, err error) error {
	var help *component.HelpRequest
	if errors.As(err, &help) {
		_, _ = fmt.Fprint(stdout, grammar.Usage(help.Kind))
		return nil
	}
	var usage *component.UsageError
	if errors.As(err, &usage) && usage.Component != "" {
		_, _ = fmt.Fprintln(stderr, grammar.Usage(usage.Component))
	}
	return &ExitError{Code: 2, Err: err}
}

func flush(buffer *envwrite.Buffer, paths []string, logger *log.Logger) error {
	if len(paths) == 0 {
		return nil
	}
	for _, p := range paths {
		logger.Debug(messages.CLIWritingEnvFile, "path", p)
	}
	if err := buffer.Flush(paths); err != nil {
		return fmt.Errorf(messages.CLIFlushFmt, err)
	}
	return nil
}
