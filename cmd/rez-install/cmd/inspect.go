package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/rez-install/internal/service/environ"
	"github.com/oshokin/rez-install/internal/service/inspect"
	"github.com/oshokin/rez-install/internal/service/verifier"
)

var (
	discoverCmd = &cobra.Command{
		Use:   "discover [manifest]",
		Short: "List the files each directive would install.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return inspect.ListFiles(ctx, &inspect.Options{
				ConfigPath:   configPath,
				ManifestPath: manifestArg(args),
			}, cmd.OutOrStdout())
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info [manifest]",
		Short: "Print package metadata and requirements.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return inspect.Describe(ctx, &inspect.Options{
				ConfigPath:   configPath,
				ManifestPath: manifestArg(args),
			}, cmd.OutOrStdout())
		},
	}

	verifyRoot string

	verifyCmd = &cobra.Command{
		Use:   "verify [manifest]",
		Short: "Check installed files against the install receipt.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return verifier.Run(ctx, &verifier.Options{
				ConfigPath:   configPath,
				ManifestPath: manifestArg(args),
				InstallRoot:  verifyRoot,
			})
		},
	}

	envRoot string

	envCmd = &cobra.Command{
		Use:   "env [manifest]",
		Short: "Print shell exports that make the installed package usable.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return environ.Run(ctx, &environ.Options{
				ConfigPath:   configPath,
				ManifestPath: manifestArg(args),
				InstallRoot:  envRoot,
			}, cmd.OutOrStdout())
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	verifyCmd.Flags().StringVarP(&verifyRoot, "install-root", "r", "", "directory destinations were created in")
	envCmd.Flags().StringVarP(&envRoot, "install-root", "r", "", "directory destinations were created in")
}
