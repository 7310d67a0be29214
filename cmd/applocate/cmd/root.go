// Package cmd provides the CLI commands for applocate.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	alerrors "github.com/aalex954/applocate-sub001/internal/errors"
	"github.com/aalex954/applocate-sub001/internal/config"
	"github.com/aalex954/applocate-sub001/internal/logging"
	"github.com/aalex954/applocate-sub001/internal/profiling"
	"github.com/aalex954/applocate-sub001/pkg/version"
)

// skipConfigAnnotation marks commands that must run even when the user
// config is broken.
const skipConfigAnnotation = "applocate.skip-config"

// app carries state shared by every command of one invocation.
type app struct {
	debug   bool
	verbose bool
	profile profiling.Options

	cfg      *config.Config
	cleanup  func()
	profiler *profiling.Session
}

// NewRootCmd creates the root command for the applocate CLI.
func NewRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	lf := &locateFlags{}

	cmd := &cobra.Command{
		Use:   "applocate <query...>",
		Short: "Find where an application is installed",
		Long: `applocate finds the install directory, executable, configuration and data
folders of an installed application.

Several discovery sources run in parallel; their hits are merged, scored
and printed best first. Results are cached on disk and refreshed when
software is installed or removed.`,
		Example: `  applocate vscode
  applocate "google chrome" --exe --json
  applocate 7zip --all --evidence
  cat names.txt | applocate --stdin --csv`,
		Version:       version.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !lf.stdin {
				return cmd.Help()
			}
			return a.runLocate(cmd, lf, args)
		},
	}

	cmd.SetVersionTemplate("applocate version {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return alerrors.ValidationError(err.Error(), err).
			WithSuggestion("Run 'applocate --help' for usage")
	})

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to ~/.applocate/logs/")
	cmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Print per-source diagnostics to stderr")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")
	lf.register(cmd)

	cmd.PersistentPreRunE = a.setup
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return a.stopProfiling()
	}

	cmd.AddCommand(a.newCacheCmd())
	cmd.AddCommand(a.newConfigCmd())
	cmd.AddCommand(a.newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads the configuration and installs the process logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		if cmd.Annotations[skipConfigAnnotation] == "" {
			return alerrors.ConfigError("failed to load configuration", err).
				WithDetail("path", config.GetUserConfigPath()).
				WithSuggestion("Fix or remove " + config.GetUserConfigPath())
		}
		cfg = config.NewConfig()
	}
	a.cfg = cfg

	lc := logging.Config{
		Level:     cfg.Logging.Level,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	if cfg.Logging.File || a.debug {
		lc.FilePath = logging.DefaultLogPath()
	}
	if a.debug {
		lc.Level = "debug"
	}
	if a.verbose {
		lc.Stderr = cmd.ErrOrStderr()
		lc.StderrLevel = slog.LevelDebug
	}

	logger, cleanup, err := logging.Setup(lc)
	if err != nil {
		return alerrors.InternalError("failed to set up logging", err)
	}
	a.cleanup = cleanup
	slog.SetDefault(logger)
	if a.debug {
		slog.Debug("debug_logging_enabled",
			slog.String("log_file", lc.FilePath),
			slog.String("version", version.Version))
	}

	if a.profile.Enabled() {
		session, err := profiling.Start(a.profile)
		if err != nil {
			return alerrors.ValidationError("failed to start profiling", err)
		}
		a.profiler = session
	}
	return nil
}

// stopProfiling flushes any running profiles. Commands that fail skip the
// post-run hook, so close calls it too.
func (a *app) stopProfiling() error {
	session := a.profiler
	a.profiler = nil
	if err := session.Stop(); err != nil {
		return alerrors.InternalError("failed to write profile", err)
	}
	return nil
}

func (a *app) close() {
	_ = a.stopProfiling()
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

// config returns the loaded configuration, or defaults when setup has not
// run (commands executed directly in tests).
func (a *app) config() *config.Config {
	if a.cfg == nil {
		a.cfg = config.NewConfig()
	}
	return a.cfg
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{}
	defer a.close()

	root := a.rootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(root.ErrOrStderr(), alerrors.FormatForCLI(err))
	}
	return alerrors.ExitCode(err)
}
