package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/ralt/pkgcheck/internal/models"
	"github.com/ralt/pkgcheck/internal/utils"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when an explicitly requested config file
// does not exist.
var ErrConfigNotFound = errors.New("config file not found")

const (
	// FileName is looked up in the repository root when no config is given
	FileName = ".pkgcheck.yaml"
	// EnvPrefix prefixes every environment override, e.g. PKGCHECK_LIBS_DIR
	EnvPrefix = "PKGCHECK"

	FormatText = "text"
	FormatJSON = "json"
)

// Config contains configuration for a validation run
type Config struct {
	// Input
	RepoDir      string   `yaml:"repo" split_words:"true"`
	LibsDir      string   `yaml:"libs_dir" split_words:"true"`
	SchemaDir    string   `yaml:"schemata" split_words:"true"`
	SchemaDraft  string   `yaml:"schema_draft" split_words:"true"`
	MetadataFile string   `yaml:"metadata_file" split_words:"true"`
	Packages     []string `yaml:"packages"`

	// Output
	Format      string `yaml:"format"`
	Verbose     bool   `yaml:"verbose"`
	ReportFile  string `yaml:"report_file" split_words:"true"`
	Compression string `yaml:"compress"`

	// Signing
	GPGKeyPath    string `yaml:"gpg_key" split_words:"true"`
	GPGPassphrase string `yaml:"-" split_words:"true"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		RepoDir:      ".",
		LibsDir:      "ajax/libs",
		MetadataFile: "package.json",
		Format:       FormatText,
	}
}

// Load reads the YAML config file at file over the defaults. An empty
// file looks for FileName in repoDir and tolerates its absence.
func Load(file, repoDir string) (*Config, error) {
	cfg := Default()

	explicit := file != ""
	if !explicit {
		if repoDir == "" {
			repoDir = cfg.RepoDir
		}
		file = filepath.Join(repoDir, FileName)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return nil, ErrConfigNotFound
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=value pairs into the process environment without
// overriding variables that are already set.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with PKGCHECK_* environment variables
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// Validate checks the configuration and fills derived defaults
func (c *Config) Validate() error {
	if c.RepoDir == "" {
		return invalid("repo is required")
	}
	if c.LibsDir == "" {
		return invalid("libs-dir is required")
	}
	libsDir, err := repoRelative("libs-dir", c.LibsDir)
	if err != nil {
		return err
	}
	c.LibsDir = libsDir
	if c.SchemaDir != "" {
		schemaDir, err := repoRelative("schemata", c.SchemaDir)
		if err != nil {
			return err
		}
		c.SchemaDir = schemaDir
	}
	if c.MetadataFile == "" || strings.ContainsAny(c.MetadataFile, `/\`) {
		return invalid("metadata-file must be a plain file name, got %q", c.MetadataFile)
	}

	c.Format = strings.ToLower(c.Format)
	if c.Format != FormatText && c.Format != FormatJSON {
		return invalid("unsupported format %q (want %s or %s)", c.Format, FormatText, FormatJSON)
	}

	c.Compression = strings.TrimPrefix(strings.ToLower(c.Compression), ".")
	if c.Compression == "none" {
		c.Compression = utils.CompressNone
	}
	if !utils.ValidCompression(c.Compression) {
		return invalid("unsupported compression %q", c.Compression)
	}
	if c.Compression != utils.CompressNone && c.ReportFile == "" {
		return invalid("compress requires report-file")
	}
	if c.GPGKeyPath != "" && c.ReportFile == "" {
		return invalid("gpg-key requires report-file")
	}

	return nil
}

// repoRelative cleans dir into a slash-separated path that io/fs accepts
// below the repository root.
func repoRelative(name, dir string) (string, error) {
	clean := path.Clean(filepath.ToSlash(dir))
	if !fs.ValidPath(clean) {
		return "", invalid("%s must be a path inside the repository, got %q", name, dir)
	}
	return clean, nil
}

func invalid(format string, args ...interface{}) error {
	return &models.CheckError{
		Type: models.ErrInvalidConfig,
		Err:  fmt.Errorf(format, args...),
	}
}
