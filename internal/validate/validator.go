package validate

import (
	"context"
	"errors"
	"io/fs"

	"github.com/ralt/pkgcheck/internal/models"
	"github.com/ralt/pkgcheck/internal/parser"
	"github.com/ralt/pkgcheck/internal/report"
	"github.com/ralt/pkgcheck/internal/scanner"
	"github.com/ralt/pkgcheck/internal/schema"
	"github.com/sirupsen/logrus"
)

// SchemaValidator accepts or rejects a decoded metadata record
type SchemaValidator interface {
	Validate(v interface{}) *schema.Violation
}

// errSkipped marks a check that cannot run because the record is unavailable
var errSkipped = errors.New("skipped")

// Check is one independent rule evaluated against a package
type Check struct {
	// Name is appended to the package name to build the check's name
	Name string
	Run  func(p *Target) error
}

// Validator runs every check against package directories
type Validator struct {
	fsys         fs.FS
	libsDir      string
	metadataFile string
	schemata     SchemaValidator
	checks       []Check
}

// NewValidator creates a validator reading packages below libsDir in fsys
func NewValidator(fsys fs.FS, libsDir, metadataFile string, schemata SchemaValidator) *Validator {
	return &Validator{
		fsys:         fsys,
		libsDir:      libsDir,
		metadataFile: metadataFile,
		schemata:     schemata,
		checks:       DefaultChecks(metadataFile),
	}
}

// Checks returns the checks in evaluation order
func (v *Validator) Checks() []Check {
	return v.checks
}

// Run validates every scanned package in order
func (v *Validator) Run(ctx context.Context, packages []scanner.ScannedPackage) (*report.Report, error) {
	r := &report.Report{}
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		pr := v.ValidatePackage(pkg)
		if pr.Failed() {
			logrus.Debugf("Package %s failed validation", pkg.Name)
		}
		r.Add(pr)
	}
	return r, nil
}

// ValidatePackage runs every check against one package
func (v *Validator) ValidatePackage(pkg scanner.ScannedPackage) report.PackageReport {
	target := &Target{
		Dir:          pkg.Name,
		Path:         pkg.Path,
		fsys:         v.fsys,
		libsDir:      v.libsDir,
		metadataFile: v.metadataFile,
		schemata:     v.schemata,
	}

	pr := report.PackageReport{
		Name: pkg.Name,
		Path: pkg.Path,
	}
	for _, check := range v.checks {
		pr.Checks = append(pr.Checks, runCheck(pkg.Name, check, target))
	}
	return pr
}

func runCheck(pkgName string, check Check, target *Target) report.CheckResult {
	result := report.CheckResult{
		Name:   pkgName + check.Name,
		Status: report.StatusPass,
	}

	err := check.Run(target)
	switch {
	case err == nil:
	case errors.Is(err, errSkipped):
		result.Status = report.StatusSkip
	default:
		result.Status = report.StatusFail
		result.Message = err.Error()
		var ce *models.CheckError
		if errors.As(err, &ce) {
			result.Kind = ce.Type.String()
			result.Message = ce.Err.Error()
		}
		logrus.Debugf("%s: %v", result.Name, err)
	}
	return result
}

// Target is the package under validation. The metadata file is parsed
// once per leniency mode and shared by the checks.
type Target struct {
	Dir  string
	Path string

	fsys         fs.FS
	libsDir      string
	metadataFile string
	schemata     SchemaValidator

	loaded bool
	doc    *parser.Document
	err    error
}

// Document returns the parsed metadata, or nil when it is missing,
// malformed or a falsy top-level value such as null. err is the untolerated parse error, if any.
func (t *Target) Document() (*parser.Document, error) {
	if !t.loaded {
		t.doc, t.err = parser.Parse(t.fsys, t.Path, false, false)
		if t.doc != nil && !models.Truthy(t.doc.Value) {
			t.err = models.NewCheckError(models.ErrParseFailure, t.Dir,
				"%s holds an empty top-level value", t.Path)
			t.doc = nil
		}
		t.loaded = true
	}
	return t.doc, t.err
}

// Record returns the parsed package or errSkipped
func (t *Target) Record() (*parser.Document, error) {
	doc, _ := t.Document()
	if doc == nil {
		return nil, errSkipped
	}
	return doc, nil
}

// Exists reports whether name exists in the repository
func (t *Target) Exists(name string) bool {
	if !fs.ValidPath(name) {
		return false
	}
	_, err := fs.Stat(t.fsys, name)
	return err == nil
}
