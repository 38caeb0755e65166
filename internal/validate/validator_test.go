package validate

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/ralt/pkgcheck/internal/parser"
	"github.com/ralt/pkgcheck/internal/report"
	"github.com/ralt/pkgcheck/internal/scanner"
	"github.com/ralt/pkgcheck/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libs = "ajax/libs"

type stubSchemata struct {
	violation *schema.Violation
	seen      []interface{}
}

func (s *stubSchemata) Validate(v interface{}) *schema.Violation {
	s.seen = append(s.seen, v)
	return s.violation
}

// canonical renders compact JSON in the required on-disk format
func canonical(t *testing.T, s string) []byte {
	t.Helper()
	out, err := parser.Canonical([]byte(s))
	require.NoError(t, err)
	return out
}

func runOne(t *testing.T, fsys fstest.MapFS, dir string, schemata SchemaValidator) report.PackageReport {
	t.Helper()
	v := NewValidator(fsys, libs, "package.json", schemata)
	return v.ValidatePackage(scanner.ScannedPackage{
		Name: dir,
		Path: libs + "/" + dir + "/package.json",
	})
}

func result(t *testing.T, pr report.PackageReport, suffix string) report.CheckResult {
	t.Helper()
	for _, c := range pr.Checks {
		if strings.HasSuffix(c.Name, suffix) {
			return c
		}
	}
	t.Fatalf("no check named *%s in %+v", suffix, pr.Checks)
	return report.CheckResult{}
}

func TestValidPackage(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/package.json":   {Data: canonical(t, `{"name":"foo","version":"1.0","filename":"foo.min.js","requiredFiles":["foo.css"]}`)},
		"ajax/libs/foo/1.0/foo.min.js": {Data: []byte("//")},
		"ajax/libs/foo/1.0/foo.css":    {Data: []byte("")},
		"ajax/libs/foo/0.9/foo.js":     {Data: []byte("//")},
	}
	stub := &stubSchemata{}

	pr := runOne(t, fsys, "foo", stub)

	assert.False(t, pr.Failed(), "%+v", pr.Checks)
	assert.Len(t, pr.Checks, 11)
	for _, c := range pr.Checks {
		assert.Equal(t, report.StatusPass, c.Status, c.Name)
		assert.True(t, strings.HasPrefix(c.Name, "foo"), c.Name)
	}
	assert.Equal(t, "foo has package.json", pr.Checks[0].Name)
	assert.Equal(t, "foo: format check", pr.Checks[9].Name)
	require.Len(t, stub.seen, 1)
}

func TestMissingMetadata(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/1.0/foo.js": {Data: []byte("//")},
	}

	pr := runOne(t, fsys, "foo", &stubSchemata{})

	exists := result(t, pr, "has package.json")
	assert.Equal(t, report.StatusFail, exists.Status)
	assert.Equal(t, "MissingFile", exists.Kind)
	assert.Equal(t, "foo missing!", exists.Message)

	for _, c := range pr.Checks[1:] {
		assert.Equal(t, report.StatusSkip, c.Status, c.Name)
	}
}

func TestMalformedMetadata(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/package.json": {Data: []byte(`{"name": "foo",}`)},
	}

	pr := runOne(t, fsys, "foo", &stubSchemata{})

	assert.Equal(t, report.StatusPass, result(t, pr, "has package.json").Status)

	wellFormed := result(t, pr, "is well-formed")
	assert.Equal(t, report.StatusFail, wellFormed.Status)
	assert.Equal(t, "ParseFailure", wellFormed.Kind)
	assert.Contains(t, wellFormed.Message, "foo malformed!")
	assert.Contains(t, wellFormed.Message, parser.JSONLintURL)

	for _, c := range pr.Checks[2:] {
		assert.Equal(t, report.StatusSkip, c.Status, c.Name)
	}
}

func TestFalsyTopLevelMetadata(t *testing.T) {
	for _, data := range []string{"null\n", "false\n", "0\n", `""` + "\n"} {
		fsys := fstest.MapFS{
			"ajax/libs/foo/package.json": {Data: []byte(data)},
		}
		stub := &stubSchemata{}

		pr := runOne(t, fsys, "foo", stub)

		wellFormed := result(t, pr, "is well-formed")
		assert.Equal(t, report.StatusFail, wellFormed.Status, data)
		assert.Equal(t, "ParseFailure", wellFormed.Kind, data)
		assert.Contains(t, wellFormed.Message, "foo malformed!", data)

		for _, c := range pr.Checks[2:] {
			assert.Equal(t, report.StatusSkip, c.Status, "%s: %s", data, c.Name)
		}
		assert.Empty(t, stub.seen, data)
	}
}

func TestSchemaViolation(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/package.json": {Data: canonical(t, `{"name":"foo"}`)},
	}
	stub := &stubSchemata{violation: &schema.Violation{Schemas: []schema.SchemaErrors{
		{Schema: "non-npm", Errors: []schema.Error{{Message: "missing properties: 'version'", Detail: "/", Pointer: "/required"}}},
	}}}

	pr := runOne(t, fsys, "foo", stub)

	valid := result(t, pr, "package.json is valid")
	assert.Equal(t, report.StatusFail, valid.Status)
	assert.Equal(t, "SchemaViolation", valid.Kind)
	assert.Equal(t, "foo is not a valid package.json format:\n\t  » non-npm\n\t\tmissing properties: 'version' (/): /required", valid.Message)
}

func TestSchemaWithDefaultSchemata(t *testing.T) {
	set, err := schema.LoadDefault()
	require.NoError(t, err)

	fsys := fstest.MapFS{
		"ajax/libs/good/package.json": {Data: canonical(t, `{"name":"good","version":"1.0","filename":"good.js"}`)},
		"ajax/libs/bad/package.json":  {Data: canonical(t, `{"name":"bad","version":1}`)},
	}

	assert.Equal(t, report.StatusPass, result(t, runOne(t, fsys, "good", set), "is valid").Status)

	bad := result(t, runOne(t, fsys, "bad", set), "is valid")
	assert.Equal(t, report.StatusFail, bad.Status)
	assert.Contains(t, bad.Message, "» non-npm")
	assert.Contains(t, bad.Message, "» npm")
}

func TestNameConsistency(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/package.json": {Data: canonical(t, `{"name":"foo","version":"1.0","filename":"foo.js"}`)},
		"ajax/libs/bar/package.json": {Data: canonical(t, `{"name":"foo","version":"1.0","filename":"foo.js"}`)},
	}

	assert.Equal(t, report.StatusPass, result(t, runOne(t, fsys, "foo", nil), "parent folder name").Status)

	c := result(t, runOne(t, fsys, "bar", nil), "parent folder name")
	assert.Equal(t, report.StatusFail, c.Status)
	assert.Equal(t, "NameMismatch", c.Kind)
	assert.Equal(t, "bar: Name property should be 'bar', not 'foo'", c.Message)
}

func TestFilenameReferences(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/package.json":  {Data: canonical(t, `{"name":"foo","version":"1.0","filename":"foo.min.js","requiredFiles":["foo.css","img/a.png"]}`)},
		"ajax/libs/foo/1.0/foo.js":    {Data: []byte("//")},
		"ajax/libs/foo/1.0/img/a.png": {Data: []byte("")},
	}

	pr := runOne(t, fsys, "foo", nil)

	filename := result(t, pr, "filename from package.json exists")
	assert.Equal(t, report.StatusFail, filename.Status)
	assert.Equal(t, "FileReferenceMissing", filename.Kind)
	assert.Equal(t, "ajax/libs/foo/1.0/foo.min.js does not exist but is referenced in package.json!", filename.Message)

	required := result(t, pr, "required file exist")
	assert.Equal(t, report.StatusFail, required.Status)
	assert.Equal(t, "ajax/libs/foo/1.0/foo.css does not exist but is required!", required.Message)

	// a minified filename pointing nowhere is only reported as a missing file
	assert.Equal(t, report.StatusPass, result(t, pr, "minified file").Status)
}

func TestFilenameWithoutVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/package.json": {Data: canonical(t, `{"name":"foo","filename":"foo.js"}`)},
		"ajax/libs/foo/foo.js":       {Data: []byte("//")},
	}

	c := result(t, runOne(t, fsys, "foo", nil), "filename from package.json exists")
	assert.Equal(t, report.StatusFail, c.Status)
}

func TestMinifiedPointer(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/package.json":   {Data: canonical(t, `{"name":"foo","version":"1.0","filename":"foo.js"}`)},
		"ajax/libs/foo/1.0/foo.js":     {Data: []byte("//")},
		"ajax/libs/foo/1.0/foo.min.js": {Data: []byte("//")},
		"ajax/libs/bar/package.json":   {Data: canonical(t, `{"name":"bar","version":"1.0","filename":"bar.js"}`)},
		"ajax/libs/bar/1.0/bar.js":     {Data: []byte("//")},
	}

	c := result(t, runOne(t, fsys, "foo", nil), "minified file")
	assert.Equal(t, report.StatusFail, c.Status)
	assert.Equal(t, "MinifiedPointer", c.Kind)
	assert.Contains(t, c.Message, "foo.min.js")

	assert.Equal(t, report.StatusPass, result(t, runOne(t, fsys, "bar", nil), "minified file").Status)
}

func TestMinifiedPointerWithoutExtension(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/package.json":    {Data: canonical(t, `{"name":"foo","version":"1.0","filename":"LICENSE"}`)},
		"ajax/libs/foo/1.0/LICENSE":     {Data: []byte("MIT")},
		"ajax/libs/foo/1.0/min.LICENSE": {Data: []byte("MIT")},
		"ajax/libs/bar/package.json":    {Data: canonical(t, `{"name":"bar","version":"1.0","filename":"LICENSE"}`)},
		"ajax/libs/bar/1.0/LICENSE":     {Data: []byte("MIT")},
	}

	c := result(t, runOne(t, fsys, "foo", nil), "minified file")
	assert.Equal(t, report.StatusFail, c.Status)
	assert.Contains(t, c.Message, "min.LICENSE")

	assert.Equal(t, report.StatusPass, result(t, runOne(t, fsys, "bar", nil), "minified file").Status)
}

func TestAssetPathIsReportedAsChecked(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/foo/package.json":     {Data: canonical(t, `{"name":"foo","version":"1.0/../2.0","filename":"foo.js","requiredFiles":["dist//foo.css"]}`)},
		"ajax/libs/foo/2.0/foo.js":       {Data: []byte("//")},
		"ajax/libs/foo/2.0/dist/foo.css": {Data: []byte("")},
	}

	pr := runOne(t, fsys, "foo", nil)

	filename := result(t, pr, "filename from package.json exists")
	assert.Equal(t, report.StatusFail, filename.Status)
	assert.Equal(t, "ajax/libs/foo/1.0/../2.0/foo.js does not exist but is referenced in package.json!", filename.Message)

	required := result(t, pr, "required file exist")
	assert.Equal(t, report.StatusFail, required.Status)
	assert.Equal(t, "ajax/libs/foo/1.0/../2.0/dist//foo.css does not exist but is required!", required.Message)
}

func TestAutoupdate(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		wantFail []string
	}{
		{
			name:     "valid git block",
			metadata: `{"name":"a","autoupdate":{"source":"git","target":"git://github.com/a/a.git","files":["dist/*.js"]}}`,
		},
		{
			name:     "wrong source",
			metadata: `{"name":"a","autoupdate":{"source":"npm","target":"git://github.com/a/a.git"}}`,
			wantFail: []string{"a: Autoupdate source should be 'git', not npm"},
		},
		{
			name:     "wrong target",
			metadata: `{"name":"a","autoupdate":{"source":"git","target":"https://github.com/a/a.git"}}`,
			wantFail: []string{"a: Autoupdate target should match '/^git://.+\\.git$/', but is https://github.com/a/a.git"},
		},
		{
			name:     "wildcard files",
			metadata: `{"name":"a","autoupdate":{"source":"git","target":"git://github.com/a/a.git","files":["dist/**"]}}`,
			wantFail: []string{"fileMap should not end with ** (dist/**)"},
		},
		{
			name:     "wildcard fileMap",
			metadata: `{"name":"a","autoupdate":{"source":"git","target":"git://github.com/a/a.git","fileMap":[{"basePath":"dist","files":["**"]}]}}`,
			wantFail: []string{"fileMap should not end with ** (**)"},
		},
		{
			name:     "truthy non-object",
			metadata: `{"name":"a","autoupdate":true}`,
			wantFail: []string{"source should be 'git'", "target should match"},
		},
		{
			name:     "null block is ignored",
			metadata: `{"name":"a","autoupdate":null}`,
		},
		{
			name:     "npm file map",
			metadata: `{"name":"a","npmFileMap":[{"basePath":"dist","files":["*.js"]}]}`,
		},
		{
			name:     "npm file map wildcard",
			metadata: `{"name":"a","npmFileMap":[{"basePath":"dist","files":["*.js","lib/**"]}]}`,
			wantFail: []string{"a: fileMap should not end with ** (lib/**)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"ajax/libs/a/package.json": {Data: canonical(t, tt.metadata)}}

			c := result(t, runOne(t, fsys, "a", nil), "autoupdate block is valid (if present)")
			if len(tt.wantFail) == 0 {
				assert.Equal(t, report.StatusPass, c.Status, c.Message)
				return
			}
			assert.Equal(t, report.StatusFail, c.Status)
			assert.Equal(t, "AutoupdateMalformed", c.Kind)
			for _, want := range tt.wantFail {
				assert.Contains(t, c.Message, want)
			}
		})
	}
}

func TestAutoupdateTargetAlwaysChecked(t *testing.T) {
	targets := []string{
		"", "git://", "git://.git", "git://github.com/a/a", "http://github.com/a/a.git",
		"git://github.com/a/a.git/", " git://github.com/a/a.git", "git://github.com/a/agit",
	}
	for _, target := range targets {
		metadata := `{"name":"a","autoupdate":{"source":"git","target":"` + target + `"}}`
		fsys := fstest.MapFS{"ajax/libs/a/package.json": {Data: canonical(t, metadata)}}

		c := result(t, runOne(t, fsys, "a", nil), "autoupdate block is valid (if present)")
		assert.Equal(t, report.StatusFail, c.Status, target)
	}
}

func TestAutoupdateConflict(t *testing.T) {
	blocks := []string{
		`{"name":"a","autoupdate":{"source":"git","target":"git://x/a.git"},"npmFileMap":[]}`,
		`{"name":"a","npmFileMap":[{"basePath":"","files":["a.js"]}],"autoupdate":{}}`,
		`{"name":"a","autoupdate":null,"npmFileMap":null}`,
	}
	for _, metadata := range blocks {
		fsys := fstest.MapFS{"ajax/libs/a/package.json": {Data: canonical(t, metadata)}}

		c := result(t, runOne(t, fsys, "a", nil), "multiple auto-update configs")
		assert.Equal(t, report.StatusFail, c.Status, metadata)
		assert.Equal(t, "AutoupdateConflict", c.Kind)
	}

	fsys := fstest.MapFS{"ajax/libs/a/package.json": {Data: canonical(t, `{"name":"a","npmFileMap":[]}`)}}
	assert.Equal(t, report.StatusPass, result(t, runOne(t, fsys, "a", nil), "multiple auto-update configs").Status)
}

func TestFormatCheck(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/good/package.json":    {Data: []byte("{\n  \"name\": \"good\"\n}\n")},
		"ajax/libs/tabs/package.json":    {Data: []byte("{\n\t\"name\": \"tabs\"\n}\n")},
		"ajax/libs/wide/package.json":    {Data: []byte("{\n    \"name\": \"wide\"\n}\n")},
		"ajax/libs/nonl/package.json":    {Data: []byte("{\n  \"name\": \"nonl\"\n}")},
		"ajax/libs/compact/package.json": {Data: []byte(`{"name":"compact"}` + "\n")},
	}

	assert.Equal(t, report.StatusPass, result(t, runOne(t, fsys, "good", nil), "format check").Status)

	for _, dir := range []string{"tabs", "wide", "nonl", "compact"} {
		c := result(t, runOne(t, fsys, dir, nil), "format check")
		assert.Equal(t, report.StatusFail, c.Status, dir)
		assert.Equal(t, "FormattingMismatch", c.Kind)
		assert.Contains(t, c.Message, "{\n  \"name\": \""+dir+"\"\n}\n")
	}
}

func TestDisallowedFields(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/a/package.json": {Data: canonical(t, `{"name":"a","scripts":{"test":"x"},"devDependencies":{}}`)},
		"ajax/libs/b/package.json": {Data: canonical(t, `{"name":"b","devDependencies":null}`)},
		"ajax/libs/c/package.json": {Data: canonical(t, `{"name":"c","dependencies":{}}`)},
	}

	a := result(t, runOne(t, fsys, "a", nil), "useless fields check")
	assert.Equal(t, report.StatusFail, a.Status)
	assert.Equal(t, "DisallowedField", a.Kind)
	assert.Equal(t, "a: we don't need scripts and devDependencies fields in package.json", a.Message)

	assert.Equal(t, report.StatusFail, result(t, runOne(t, fsys, "b", nil), "useless fields check").Status)
	assert.Equal(t, report.StatusPass, result(t, runOne(t, fsys, "c", nil), "useless fields check").Status)
}

func TestChecksAreIndependent(t *testing.T) {
	// every rule is broken at once, except well-formedness
	fsys := fstest.MapFS{
		"ajax/libs/x/package.json": {Data: []byte(`{"name":"y","version":"1","filename":"y.js","scripts":{},"autoupdate":{"source":"npm"},"npmFileMap":[]}`)},
	}
	pr := runOne(t, fsys, "x", &stubSchemata{violation: &schema.Violation{}})

	var failed int
	for _, c := range pr.Checks {
		if c.Status == report.StatusFail {
			failed++
		}
	}
	// all but existence, well-formedness, required files and minified pointer
	assert.Equal(t, 7, failed, "%+v", pr.Checks)
}

func TestRun(t *testing.T) {
	fsys := fstest.MapFS{
		"ajax/libs/a/package.json": {Data: canonical(t, `{"name":"a","version":"1","filename":"a.js"}`)},
		"ajax/libs/a/1/a.js":       {Data: []byte("//")},
		"ajax/libs/b/package.json": {Data: canonical(t, `{"name":"a","version":"1","filename":"a.js"}`)},
	}
	sc := scanner.NewFileSystemScanner(fsys, "package.json", nil)
	packages, err := sc.Scan(context.Background(), libs)
	require.NoError(t, err)

	v := NewValidator(fsys, libs, "package.json", &stubSchemata{})
	r, err := v.Run(context.Background(), packages)
	require.NoError(t, err)

	require.Len(t, r.Packages, 2)
	assert.False(t, r.Packages[0].Failed())
	assert.True(t, r.Packages[1].Failed())
	assert.True(t, r.Failed())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.Run(ctx, packages)
	assert.ErrorIs(t, err, context.Canceled)
}
