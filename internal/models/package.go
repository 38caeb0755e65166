package models

import (
	"encoding/json"
	"strings"
)

// FileMap is one entry of an auto-update file map
type FileMap struct {
	BasePath string
	Files    []string
}

// Autoupdate describes how a package is refreshed from its upstream
type Autoupdate struct {
	Source  string
	Target  string
	Files   []string
	FileMap []FileMap
}

// Package represents the metadata record of one library
type Package struct {
	// Core metadata
	Name          string
	Version       string
	Filename      string
	RequiredFiles []string

	// Auto-update configuration
	Autoupdate *Autoupdate
	NpmFileMap []FileMap

	// Fields that must not be present
	HasScripts         bool
	HasDevDependencies bool

	// Decoded document, keyed by top-level field
	Metadata map[string]interface{}
}

// PackageFromValue builds a Package from a decoded JSON value.
// Fields of the wrong type are left empty so that every check can still
// run against the rest of the record.
func PackageFromValue(v interface{}) *Package {
	obj, _ := v.(map[string]interface{})
	pkg := &Package{Metadata: obj}
	if obj == nil {
		return pkg
	}

	pkg.Name = stringField(obj, "name")
	pkg.Version = stringField(obj, "version")
	pkg.Filename = stringField(obj, "filename")
	pkg.RequiredFiles = stringList(obj["requiredFiles"])

	if Truthy(obj["autoupdate"]) {
		au, _ := obj["autoupdate"].(map[string]interface{})
		pkg.Autoupdate = &Autoupdate{
			Source:  stringField(au, "source"),
			Target:  stringField(au, "target"),
			Files:   stringList(au["files"]),
			FileMap: fileMaps(au["fileMap"]),
		}
	}
	if Truthy(obj["npmFileMap"]) {
		pkg.NpmFileMap = fileMaps(obj["npmFileMap"])
		if pkg.NpmFileMap == nil {
			pkg.NpmFileMap = []FileMap{}
		}
	}

	_, pkg.HasScripts = obj["scripts"]
	_, pkg.HasDevDependencies = obj["devDependencies"]

	return pkg
}

// Has reports whether the top-level field is present
func (p *Package) Has(field string) bool {
	_, ok := p.Metadata[field]
	return ok
}

// IsMinified reports whether filename already names a minified build
func IsMinified(filename string) bool {
	parts := strings.Split(filename, ".")
	return len(parts) >= 2 && parts[len(parts)-2] == "min"
}

// MinifiedName returns the minified sibling of filename, e.g. foo.js ->
// foo.min.js and LICENSE -> min.LICENSE. It returns "" for names that are
// already minified.
func MinifiedName(filename string) string {
	if IsMinified(filename) {
		return ""
	}
	parts := strings.Split(filename, ".")
	ext := parts[len(parts)-1]
	parts = append(parts[:len(parts)-1], "min", ext)
	return strings.Join(parts, ".")
}

// Truthy follows JavaScript truthiness for decoded JSON values
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func fileMaps(v interface{}) []FileMap {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []FileMap
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, FileMap{
			BasePath: stringField(entry, "basePath"),
			Files:    stringList(entry["files"]),
		})
	}
	return out
}
