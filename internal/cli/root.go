package cli

import (
	"github.com/ralt/pkgcheck/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pkgcheck",
		Short: "Validate package metadata files of a multi-package CDN repository",
		Long: `Pkgcheck walks every package directory of a repository laid out as
ajax/libs/<name>/package.json and checks each metadata file:

  - it exists, parses and matches one of the accepted JSON schemas
  - the referenced filename and requiredFiles exist for its version
  - its name matches the directory name
  - its auto-update block is well formed
  - it points at the minified build when there is one
  - it is formatted canonically (2-space indent, trailing newline)
  - it carries no scripts or devDependencies`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}

			envFile, _ := cmd.Flags().GetString("env-file")
			return config.LoadEnvFile(envFile)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default <repo>/"+config.FileName+")")
	rootCmd.PersistentFlags().String("env-file", "", "Load PKGCHECK_* variables from this file")

	// Add subcommands
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewSchemataCmd())
	rootCmd.AddCommand(NewFormatCmd())

	return rootCmd
}
