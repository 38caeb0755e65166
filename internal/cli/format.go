package cli

import (
	"fmt"
	"os"

	"github.com/ralt/pkgcheck/internal/models"
	"github.com/ralt/pkgcheck/internal/parser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewFormatCmd creates the format command
func NewFormatCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "format [flags] METADATA_FILE",
		Short: "Print the canonical form of a metadata file",
		Long: `Prints the metadata file re-serialized with 2-space indentation and a
trailing newline, which is the only layout the format check accepts.
With --check nothing is printed and the command fails when the file
differs from its canonical form.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			data, err := os.ReadFile(path)
			if err != nil {
				return &models.CheckError{
					Type: models.ErrMissingFile,
					Err:  fmt.Errorf("%s doesn't exist!", path),
				}
			}

			ok, canonical, err := parser.IsCanonical(data)
			if err != nil {
				return &models.CheckError{
					Type: models.ErrParseFailure,
					Err:  fmt.Errorf("%s failed to parse, you can validate your json here: %s", path, parser.JSONLintURL),
				}
			}

			if check {
				if !ok {
					return &models.CheckError{
						Type: models.ErrFormattingMismatch,
						Err:  fmt.Errorf("%s is not canonically formatted", path),
					}
				}
				logrus.Infof("%s is canonically formatted", path)
				return nil
			}

			_, err = cmd.OutOrStdout().Write(canonical)
			return err
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Only report whether the file is canonical")

	return cmd
}
