package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/rez-install/internal/service/installer"
)

var (
	installRoot string
	layout      string
	dryRun      bool
	noReceipt   bool

	installCmd = &cobra.Command{
		Use:   "install [manifest]",
		Short: "Discover and install every directive of the manifest.",
		Long: `Installs each directive in manifest order. Directives are not transactional:
if a later directive fails, earlier ones stay installed. A destination that
cannot be written fails before any of its files are copied.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			_, err := installer.Run(ctx, &installer.Options{
				ConfigPath:   configPath,
				ManifestPath: manifestArg(args),
				InstallRoot:  installRoot,
				Layout:       layout,
				DryRun:       dryRun,
				SkipReceipt:  noReceipt,
			})

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	installCmd.Flags().StringVarP(&installRoot, "install-root", "r", "", "directory destinations are created in")
	installCmd.Flags().StringVarP(&layout, "layout", "l", "", "target layout: relative, root or flat")
	installCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "log the plan without writing anything")
	installCmd.Flags().BoolVar(&noReceipt, "no-receipt", false, "do not write the install receipt")
}
