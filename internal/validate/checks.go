package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ralt/pkgcheck/internal/models"
	"github.com/ralt/pkgcheck/internal/parser"
)

var (
	// targetPattern is the accepted form of a git auto-update target
	targetPattern = regexp.MustCompile(`^git://.+\.git$`)
	// fileMapWildcard matches file-map entries that select everything
	fileMapWildcard = regexp.MustCompile(`\*\*$`)
)

// DefaultChecks returns every check in evaluation order
func DefaultChecks(metadataFile string) []Check {
	return []Check{
		{Name: " has " + metadataFile, Run: checkExists},
		{Name: " " + metadataFile + " is well-formed", Run: checkWellFormed},
		{Name: " " + metadataFile + " is valid", Run: checkSchema},
		{Name: ": filename from " + metadataFile + " exists", Run: checkFilename},
		{Name: ": required file exist", Run: checkRequiredFiles},
		{Name: ": name in " + metadataFile + " should be parent folder name", Run: checkName},
		{Name: ": autoupdate block is valid (if present)", Run: checkAutoupdate},
		{Name: ": should not have both multiple auto-update configs", Run: checkAutoupdateConflict},
		{Name: ": should point filename field to minified file", Run: checkMinified},
		{Name: ": format check", Run: checkFormat},
		{Name: ": useless fields check", Run: checkDisallowedFields},
	}
}

func checkExists(t *Target) error {
	if !t.Exists(t.Path) {
		return models.NewCheckError(models.ErrMissingFile, t.Dir, "%s missing!", t.Dir)
	}
	return nil
}

func checkWellFormed(t *Target) error {
	_, err := t.Document()
	if err == nil {
		return nil
	}
	var ce *models.CheckError
	if errors.As(err, &ce) && ce.Type == models.ErrMissingFile {
		// already reported by checkExists
		return errSkipped
	}
	return models.NewCheckError(models.ErrParseFailure, t.Dir, "%s malformed! %v", t.Dir, unwrap(err))
}

func checkSchema(t *Target) error {
	doc, err := t.Record()
	if err != nil {
		return err
	}
	if t.schemata == nil {
		return errSkipped
	}
	violation := t.schemata.Validate(doc.Value)
	if violation == nil {
		return nil
	}
	return &models.CheckError{
		Type:    models.ErrSchemaViolation,
		Package: t.Dir,
		Err: fmt.Errorf("%s is not a valid %s format:\n%w",
			t.Dir, t.metadataFile, violation),
	}
}

// assetPath returns the path of file inside the version directory of pkg.
// It is both checked for existence and shown in failure messages.
func (t *Target) assetPath(pkg *models.Package, file string) string {
	return strings.Join([]string{t.libsDir, pkg.Name, pkg.Version, file}, "/")
}

func (t *Target) assetExists(pkg *models.Package, file string) bool {
	if pkg.Name == "" || pkg.Version == "" || file == "" {
		return false
	}
	return t.Exists(t.assetPath(pkg, file))
}

func checkFilename(t *Target) error {
	doc, err := t.Record()
	if err != nil {
		return err
	}
	pkg := doc.Package
	if !t.assetExists(pkg, pkg.Filename) {
		return models.NewCheckError(models.ErrFileReferenceMissing, t.Dir,
			"%s does not exist but is referenced in %s!", t.assetPath(pkg, pkg.Filename), t.metadataFile)
	}
	return nil
}

func checkRequiredFiles(t *Target) error {
	doc, err := t.Record()
	if err != nil {
		return err
	}
	pkg := doc.Package

	var missing []string
	for _, file := range pkg.RequiredFiles {
		if !t.assetExists(pkg, file) {
			missing = append(missing, t.assetPath(pkg, file)+" does not exist but is required!")
		}
	}
	if len(missing) > 0 {
		return models.NewCheckError(models.ErrFileReferenceMissing, t.Dir, "%s", strings.Join(missing, "\n"))
	}
	return nil
}

func checkName(t *Target) error {
	doc, err := t.Record()
	if err != nil {
		return err
	}
	if doc.Package.Name != t.Dir {
		return models.NewCheckError(models.ErrNameMismatch, t.Dir,
			"%s: Name property should be '%s', not '%s'", t.Dir, t.Dir, doc.Package.Name)
	}
	return nil
}

func checkAutoupdate(t *Target) error {
	doc, err := t.Record()
	if err != nil {
		return err
	}
	pkg := doc.Package

	var problems []string
	if au := pkg.Autoupdate; au != nil {
		if au.Source != "git" {
			problems = append(problems, fmt.Sprintf("%s: Autoupdate source should be 'git', not %s", t.Dir, au.Source))
		}
		if !targetPattern.MatchString(au.Target) {
			problems = append(problems, fmt.Sprintf("%s: Autoupdate target should match '/%s/', but is %s",
				t.Dir, targetPattern, au.Target))
		}
		files := au.Files
		for _, fm := range au.FileMap {
			files = append(files, fm.Files...)
		}
		problems = append(problems, wildcardProblems(t.Dir, files)...)
	}
	for _, fm := range pkg.NpmFileMap {
		problems = append(problems, wildcardProblems(t.Dir, fm.Files)...)
	}

	if len(problems) > 0 {
		return models.NewCheckError(models.ErrAutoupdateMalformed, t.Dir, "%s", strings.Join(problems, "\n"))
	}
	return nil
}

func wildcardProblems(dir string, files []string) []string {
	var problems []string
	for _, f := range files {
		if fileMapWildcard.MatchString(f) {
			problems = append(problems, fmt.Sprintf("%s: fileMap should not end with ** (%s)", dir, f))
		}
	}
	return problems
}

func checkAutoupdateConflict(t *Target) error {
	doc, err := t.Record()
	if err != nil {
		return err
	}
	if doc.Package.Has("autoupdate") && doc.Package.Has("npmFileMap") {
		return models.NewCheckError(models.ErrAutoupdateConflict, t.Dir,
			"%s: has both git and npm auto-update config, should remove one of it", t.Dir)
	}
	return nil
}

func checkMinified(t *Target) error {
	doc, err := t.Record()
	if err != nil {
		return err
	}
	pkg := doc.Package
	if pkg.Filename == "" {
		return nil
	}
	minName := models.MinifiedName(pkg.Filename)
	if minName != "" && t.assetExists(pkg, minName) {
		return models.NewCheckError(models.ErrMinifiedPointer, t.Dir,
			"%s: filename field in %s should point to the minified file %s, not %s",
			t.Dir, t.metadataFile, minName, pkg.Filename)
	}
	return nil
}

func checkFormat(t *Target) error {
	doc, err := t.Record()
	if err != nil {
		return err
	}
	ok, canonical, err := parser.IsCanonical(doc.Raw)
	if err != nil {
		return models.NewCheckError(models.ErrParseFailure, t.Dir, "%s: %v", t.Dir, err)
	}
	if !ok {
		return models.NewCheckError(models.ErrFormattingMismatch, t.Dir,
			"%s: %s wrong format, correct one should be like this (2-space indent, blank line at end):\n%s",
			t.Dir, t.metadataFile, canonical)
	}
	return nil
}

func checkDisallowedFields(t *Target) error {
	doc, err := t.Record()
	if err != nil {
		return err
	}
	var fields []string
	if doc.Package.HasScripts {
		fields = append(fields, "scripts")
	}
	if doc.Package.HasDevDependencies {
		fields = append(fields, "devDependencies")
	}
	if len(fields) > 0 {
		return models.NewCheckError(models.ErrDisallowedField, t.Dir,
			"%s: we don't need %s fields in %s", t.Dir, strings.Join(fields, " and "), t.metadataFile)
	}
	return nil
}

func unwrap(err error) error {
	var ce *models.CheckError
	if errors.As(err, &ce) {
		return ce.Err
	}
	return err
}
