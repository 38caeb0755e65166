package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"

	"github.com/ralt/pkgcheck/internal/models"
	"github.com/sirupsen/logrus"
)

// JSONLintURL is suggested to users whose metadata does not parse
const JSONLintURL = "http://jsonlint.com/"

// Document is a parsed metadata file
type Document struct {
	Path    string
	Raw     []byte
	Value   interface{}
	Package *models.Package
}

// Parse reads and decodes the metadata file at name. When the file is
// missing and ignoreMissing is set, or it does not parse and
// ignoreParseFail is set, Parse returns a nil Document and a nil error.
func Parse(fsys fs.FS, name string, ignoreMissing, ignoreParseFail bool) (*Document, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		logrus.Debugf("Failed to read %s: %v", name, err)
		if ignoreMissing {
			return nil, nil
		}
		return nil, &models.CheckError{
			Type: models.ErrMissingFile,
			Err:  fmt.Errorf("%s doesn't exist!", name),
		}
	}

	value, err := Decode(raw)
	if err != nil {
		logrus.Debugf("Failed to parse %s: %v", name, err)
		if ignoreParseFail {
			return nil, nil
		}
		return nil, &models.CheckError{
			Type: models.ErrParseFailure,
			Err:  fmt.Errorf("%s failed to parse, you can validate your json here: %s", name, JSONLintURL),
		}
	}

	return &Document{
		Path:    name,
		Raw:     raw,
		Value:   value,
		Package: models.PackageFromValue(value),
	}, nil
}

// Decode decodes exactly one JSON value, keeping numbers as json.Number
func Decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}
