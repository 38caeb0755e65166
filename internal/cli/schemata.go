package cli

import (
	"fmt"
	"os"

	"github.com/ralt/pkgcheck/internal/config"
	"github.com/spf13/cobra"
)

// NewSchemataCmd creates the schemata command
func NewSchemataCmd() *cobra.Command {
	flags := config.Default()

	cmd := &cobra.Command{
		Use:   "schemata",
		Short: "List the accepted schemata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}

			set, err := loadSchemata(os.DirFS(cfg.RepoDir), cfg)
			if err != nil {
				return err
			}
			for _, d := range set.Documents() {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.Name, d.Path); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.RepoDir, "repo", "r", flags.RepoDir, "Repository root")
	cmd.Flags().StringVar(&flags.SchemaDir, "schemata", "", "Schema directory, relative to the repository root")
	cmd.Flags().StringVar(&flags.SchemaDraft, "schema-draft", "", "Force a JSON schema draft")

	return cmd
}
