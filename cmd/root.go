package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"acfgen/internal/config"
	"acfgen/internal/logger"
	"acfgen/internal/pipeline"
)

// options holds every command-line flag. Flags that were set override the
// configuration file and ACFGEN_* environment variables.
type options struct {
	configFile string
	verbose    bool
	noColor    bool

	toolPath   string
	workingDir string
	toolDebug  bool
	appIDs     string
}

// reportedError marks an error whose message has already been logged.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// newRootCmd builds the CLI. With no input flags or arguments it asks for the
// values interactively.
func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "acfgen [app ids...]",
		Short: "Generate Steam ACF manifests with SKSAppManifestGenerator",
		Long: "acfgen downloads SKSAppManifestGenerator when it is missing, runs it for the given\n" +
			"App IDs (through wine outside Windows) and reports which appmanifest files were written.",
		// Positional arguments are App IDs, not subcommand names.
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Logging must be configured before any subcommand prints.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				logger.DisableColor()
			}
			logger.Init(opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", config.DefaultConfigFile, "Path to configuration file")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&opts.toolPath, "tool-path", "", "Path to SKSAppManifestGenerator executable")
	pf.StringVarP(&opts.workingDir, "working-dir", "w", "", "Directory to run the generator in (default: current directory)")

	f := root.Flags()
	f.BoolVarP(&opts.toolDebug, "debug", "d", false, "Pass the debug flag to the generator")
	f.StringVarP(&opts.appIDs, "app-ids", "a", "", "App IDs separated by spaces, commas or anything else")

	root.AddCommand(newProvisionCmd(opts), newVerifyCmd(opts))
	return root
}

// Execute runs the CLI and returns the process exit status.
func Execute() int {
	return execute(os.Args[1:])
}

func execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var re reportedError
		if !errors.As(err, &re) {
			logger.Error("[ERROR] %v\n", err)
		}
		return 1
	}
	return 0
}

// loadConfig resolves configuration and applies the flags that were set.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.LoadConfig(opts.configFile, cmd.Flags().Changed("config"))
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("tool-path") {
		cfg.ToolPath = opts.toolPath
	}
	if cmd.Flags().Changed("working-dir") {
		cfg.WorkingDir = opts.workingDir
	}
	if f := cmd.Flags().Lookup("debug"); f != nil && f.Changed {
		cfg.Debug = opts.toolDebug
	}
	logger.Debug("[DEBUG] Configuration: tool=%s working_dir=%q debug=%v\n", cfg.ToolPath, cfg.WorkingDir, cfg.Debug)
	return cfg, nil
}

// interactive reports whether no input was supplied on the command line.
func interactive(cmd *cobra.Command, args []string) bool {
	if len(args) > 0 {
		return false
	}
	for _, name := range []string{"tool-path", "debug", "working-dir", "app-ids"} {
		if cmd.Flags().Changed(name) {
			return false
		}
	}
	return true
}

func runGenerate(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	req := pipeline.Request{
		RawIDs:     strings.Join(append([]string{opts.appIDs}, args...), " "),
		WorkingDir: cfg.WorkingDir,
		Debug:      cfg.Debug,
	}

	if interactive(cmd, args) {
		showWelcome(cmd.OutOrStdout())
		in := newLineReader(cmd.InOrStdin(), cmd.OutOrStdout())
		defer in.Close()
		if cfg, req, err = promptRequest(cfg, in, cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	if _, err := pipeline.New(cfg).Run(cmd.Context(), req); err != nil {
		return reportedError{err}
	}
	logger.Success("[SUCCESS] Process completed!\n")
	return nil
}
