package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sirupsen/logrus"
)

//go:embed schemata/*.json
var embedded embed.FS

// Document is a compiled schema with its name attribute
type Document struct {
	Name   string
	Path   string
	schema *jsonschema.Schema
}

// Set holds every accepted schema. A record is valid when any one of
// them accepts it.
type Set struct {
	docs []*Document
}

// Load compiles every *.json schema found in dir. An empty draft lets
// the compiler pick the draft from each document's $schema.
func Load(fsys fs.FS, dir, draft string) (*Set, error) {
	d, err := ParseDraft(draft)
	if err != nil {
		return nil, err
	}

	paths, err := fs.Glob(fsys, path.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list schemata in %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no schemata found in %s", dir)
	}

	set := &Set{}
	for _, p := range paths {
		doc, err := compile(fsys, p, d)
		if err != nil {
			return nil, err
		}
		logrus.Debugf("Loaded schema %s from %s", doc.Name, p)
		set.docs = append(set.docs, doc)
	}

	return set, nil
}

// LoadDefault compiles the schemata shipped with the binary
func LoadDefault() (*Set, error) {
	return Load(embedded, "schemata", "")
}

// ParseDraft maps a draft name to the compiler's draft
func ParseDraft(name string) (*jsonschema.Draft, error) {
	switch strings.TrimPrefix(strings.ToLower(name), "draft-") {
	case "":
		return nil, nil
	case "4", "04":
		return jsonschema.Draft4, nil
	case "6", "06":
		return jsonschema.Draft6, nil
	case "7", "07":
		return jsonschema.Draft7, nil
	case "2019-09":
		return jsonschema.Draft2019, nil
	case "2020-12":
		return jsonschema.Draft2020, nil
	default:
		return nil, fmt.Errorf("unsupported schema draft %q", name)
	}
}

func compile(fsys fs.FS, p string, draft *jsonschema.Draft) (*Document, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", p, err)
	}

	var attrs struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", p, err)
	}

	base := path.Base(p)
	name := attrs.Name
	if name == "" {
		name = strings.TrimSuffix(base, path.Ext(base))
	}

	compiler := jsonschema.NewCompiler()
	if draft != nil {
		compiler.Draft = draft
	}
	if err := compiler.AddResource(base, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add schema %s: %w", p, err)
	}
	compiled, err := compiler.Compile(base)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", p, err)
	}

	return &Document{Name: name, Path: p, schema: compiled}, nil
}

// Names returns the names of the loaded schemata
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.docs))
	for _, d := range s.docs {
		names = append(names, d.Name)
	}
	return names
}

// Documents returns the loaded schemata
func (s *Set) Documents() []*Document {
	return s.docs
}

// Validate checks v against every schema. It returns nil when at least one
// schema accepts v, otherwise the errors of every schema.
func (s *Set) Validate(v interface{}) *Violation {
	violation := &Violation{}
	for _, d := range s.docs {
		errs := d.Validate(v)
		if len(errs) == 0 {
			return nil
		}
		violation.Schemas = append(violation.Schemas, SchemaErrors{
			Schema: d.Name,
			Errors: errs,
		})
	}
	return violation
}

// Validate returns the leaf errors of v against this schema
func (d *Document) Validate(v interface{}) []Error {
	err := d.schema.Validate(v)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Error{{Message: err.Error()}}
	}

	var out []Error
	collect(ve, &out)
	return out
}

func collect(ve *jsonschema.ValidationError, out *[]Error) {
	if len(ve.Causes) == 0 {
		*out = append(*out, newError(ve))
		return
	}
	for _, cause := range ve.Causes {
		collect(cause, out)
	}
}

func newError(ve *jsonschema.ValidationError) Error {
	detail := ve.InstanceLocation
	if detail == "" {
		detail = "/"
	}
	pointer := ve.KeywordLocation
	if i := strings.Index(ve.AbsoluteKeywordLocation, "#"); i >= 0 {
		pointer = ve.AbsoluteKeywordLocation[i+1:]
	}
	return Error{
		Message: ve.Message,
		Detail:  detail,
		Pointer: pointer,
	}
}
