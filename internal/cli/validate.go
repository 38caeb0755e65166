package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ralt/pkgcheck/internal/config"
	"github.com/ralt/pkgcheck/internal/models"
	"github.com/ralt/pkgcheck/internal/report"
	"github.com/ralt/pkgcheck/internal/scanner"
	"github.com/ralt/pkgcheck/internal/schema"
	"github.com/ralt/pkgcheck/internal/signer"
	"github.com/ralt/pkgcheck/internal/validate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// defaultSchemaDir is used when it exists in the repository and no schema
// directory is configured
const defaultSchemaDir = "test/schemata"

// NewValidateCmd creates the validate command
func NewValidateCmd() *cobra.Command {
	flags := config.Default()

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate every package metadata file",
		Long: `Scans the libs directory for package directories and runs every check
against each metadata file. Exits non-zero when any check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}

			if cfg.Verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			logrus.Info("Starting package validation...")
			logrus.Debugf("Configuration: %+v", redacted(cfg))

			return runValidation(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	// Input flags
	cmd.Flags().StringVarP(&flags.RepoDir, "repo", "r", flags.RepoDir, "Repository root")
	cmd.Flags().StringVar(&flags.LibsDir, "libs-dir", flags.LibsDir, "Package directory, relative to the repository root")
	cmd.Flags().StringVar(&flags.SchemaDir, "schemata", "", "Schema directory, relative to the repository root (default "+defaultSchemaDir+" if present, else built-in)")
	cmd.Flags().StringVar(&flags.SchemaDraft, "schema-draft", "", "Force a JSON schema draft (draft-04, draft-06, draft-07, 2019-09, 2020-12)")
	cmd.Flags().StringVar(&flags.MetadataFile, "metadata-file", flags.MetadataFile, "Metadata file name inside each package directory")
	cmd.Flags().StringSliceVarP(&flags.Packages, "package", "p", nil, "Only validate these packages")

	// Output flags
	cmd.Flags().StringVarP(&flags.Format, "format", "f", flags.Format, "Output format (text, json)")
	cmd.Flags().StringVarP(&flags.ReportFile, "report-file", "o", "", "Also write the JSON report to this file")
	cmd.Flags().StringVar(&flags.Compression, "compress", "", "Compress the report file (gz, zst, xz)")

	// GPG signing flags
	cmd.Flags().StringVarP(&flags.GPGKeyPath, "gpg-key", "k", "", "Path to GPG private key used to sign the report file")
	cmd.Flags().StringVar(&flags.GPGPassphrase, "gpg-passphrase", "", "GPG key passphrase")

	return cmd
}

// resolveConfig layers defaults, config file, environment and the flags
// that were set explicitly, in that order.
func resolveConfig(cmd *cobra.Command, flags *config.Config) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, flags.RepoDir)
	if err != nil {
		return nil, &models.CheckError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("failed to load config: %w", err),
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, &models.CheckError{Type: models.ErrInvalidConfig, Err: err}
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "repo":
			cfg.RepoDir = flags.RepoDir
		case "libs-dir":
			cfg.LibsDir = flags.LibsDir
		case "schemata":
			cfg.SchemaDir = flags.SchemaDir
		case "schema-draft":
			cfg.SchemaDraft = flags.SchemaDraft
		case "metadata-file":
			cfg.MetadataFile = flags.MetadataFile
		case "package":
			cfg.Packages = flags.Packages
		case "format":
			cfg.Format = flags.Format
		case "report-file":
			cfg.ReportFile = flags.ReportFile
		case "compress":
			cfg.Compression = flags.Compression
		case "gpg-key":
			cfg.GPGKeyPath = flags.GPGKeyPath
		case "gpg-passphrase":
			cfg.GPGPassphrase = flags.GPGPassphrase
		case "verbose":
			cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func redacted(cfg *config.Config) config.Config {
	c := *cfg
	if c.GPGPassphrase != "" {
		c.GPGPassphrase = "***"
	}
	return c
}

// loadSchemata loads the configured schema directory, falling back to the
// repository's test/schemata and then to the built-in set.
func loadSchemata(fsys fs.FS, cfg *config.Config) (*schema.Set, error) {
	dir := cfg.SchemaDir
	if dir == "" {
		if info, err := fs.Stat(fsys, defaultSchemaDir); err == nil && info.IsDir() {
			dir = defaultSchemaDir
		}
	}

	var (
		set *schema.Set
		err error
	)
	if dir == "" {
		logrus.Debug("Using built-in schemata")
		set, err = schema.LoadDefault()
	} else {
		logrus.Debugf("Loading schemata from %s", dir)
		set, err = schema.Load(fsys, dir, cfg.SchemaDraft)
	}
	if err != nil {
		return nil, &models.CheckError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("failed to load schemata: %w", err),
		}
	}
	return set, nil
}

func runValidation(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fsys := os.DirFS(cfg.RepoDir)

	// Step 1: Load schemata
	schemata, err := loadSchemata(fsys, cfg)
	if err != nil {
		return err
	}
	logrus.Infof("Loaded %d schemata: %v", len(schemata.Names()), schemata.Names())

	// Step 2: Scan for packages
	logrus.Infof("Scanning directory: %s", cfg.LibsDir)
	sc := scanner.NewFileSystemScanner(fsys, cfg.MetadataFile, cfg.Packages)
	packages, err := sc.Scan(ctx, cfg.LibsDir)
	if err != nil {
		return &models.CheckError{
			Type: models.ErrFileOp,
			Err:  fmt.Errorf("failed to scan directory: %w", err),
		}
	}

	if len(packages) == 0 {
		logrus.Warn("No packages found in libs directory")
	} else {
		logrus.Infof("Found %d packages", len(packages))
	}

	// Step 3: Run every check
	v := validate.NewValidator(fsys, cfg.LibsDir, cfg.MetadataFile, schemata)
	for _, c := range v.Checks() {
		logrus.Debugf("Check enabled:%s", c.Name)
	}
	r, err := v.Run(ctx, packages)
	if err != nil {
		return err
	}

	// Step 4: Report
	switch cfg.Format {
	case config.FormatJSON:
		err = r.WriteJSON(out)
	default:
		err = r.WriteText(out, cfg.Verbose)
	}
	if err != nil {
		return &models.CheckError{
			Type: models.ErrFileOp,
			Err:  fmt.Errorf("failed to write report: %w", err),
		}
	}

	if cfg.ReportFile != "" {
		if err := writeArtifact(r, cfg); err != nil {
			return err
		}
	}

	s := r.Summary()
	if r.Failed() {
		return &models.CheckError{
			Type: models.ErrValidationFailed,
			Err:  fmt.Errorf("%d of %d checks failed in %d packages", s.Failed, s.Checks, s.FailedPackages),
		}
	}

	logrus.Infof("All %d packages passed validation", s.Packages)
	return nil
}

func writeArtifact(r *report.Report, cfg *config.Config) error {
	opts := report.ArtifactOptions{
		Path:        cfg.ReportFile,
		Compression: cfg.Compression,
	}

	if cfg.GPGKeyPath != "" {
		s, err := signer.NewGPGSigner(cfg.GPGKeyPath, cfg.GPGPassphrase)
		if err != nil {
			return &models.CheckError{
				Type: models.ErrSigning,
				Err:  fmt.Errorf("failed to initialize GPG signer: %w", err),
			}
		}
		logrus.Info("GPG signer initialized")
		opts.Signer = s
	}

	written, err := report.WriteArtifact(r, opts)
	if err != nil {
		return &models.CheckError{
			Type: models.ErrFileOp,
			Err:  err,
		}
	}
	for _, p := range written {
		logrus.Infof("Wrote %s", p)
	}
	return nil
}
