package schema

import (
	"fmt"
	"strings"
)

// Error is one structured schema error
type Error struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Pointer string `json:"pointer"`
}

// String renders the error as "message (detail): pointer"
func (e Error) String() string {
	return fmt.Sprintf("%s (%s): %s", e.Message, e.Detail, e.Pointer)
}

// SchemaErrors are the errors one schema reported
type SchemaErrors struct {
	Schema string  `json:"schema"`
	Errors []Error `json:"errors"`
}

// Violation lists why every schema rejected a record
type Violation struct {
	Schemas []SchemaErrors `json:"schemas"`
}

// Error implements the error interface
func (v *Violation) Error() string {
	lines := make([]string, 0, len(v.Schemas))
	for _, s := range v.Schemas {
		errs := make([]string, 0, len(s.Errors))
		for _, e := range s.Errors {
			errs = append(errs, e.String())
		}
		lines = append(lines, "\t  » "+s.Schema+"\n\t\t"+strings.Join(errs, "\n\t\t"))
	}
	return strings.Join(lines, "\n")
}
