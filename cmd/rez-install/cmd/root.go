package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/rez-install/internal/config"
	"github.com/oshokin/rez-install/internal/logger"
	"github.com/oshokin/rez-install/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// logLevel overrides the level from the settings file.
	logLevel string

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "rez-install",
		Short: "Install a package's Python sources and config files into an install root.",
		Long: `rez-install reads a package manifest (package.yaml or package.hcl), discovers
the files each install directive matches and copies them into the directive's
destination under the install root.

Without install directives a manifest installs lib/python/*.py and every file
under config/ into a directory named after the package.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: applyLogLevel,
	}
)

// Execute runs the rez-install CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "Command failed", "error", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to settings file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default from settings)")

	rootCmd.AddCommand(installCmd, discoverCmd, verifyCmd, envCmd, infoCmd, initCmd)
}

// applyLogLevel sets the global level from the flag or, failing that, the settings file.
func applyLogLevel(_ *cobra.Command, _ []string) error {
	level := logLevel
	if level == "" {
		if cfg, err := config.LoadOrDefault(configPath); err == nil {
			level = cfg.LogLevel
		}
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	logger.SetLevel(parsed)

	return nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// manifestArg returns the optional manifest argument.
func manifestArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return ""
}
