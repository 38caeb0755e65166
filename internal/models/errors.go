package models

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrMissingFile ErrorType = iota
	ErrParseFailure
	ErrSchemaViolation
	ErrFileReferenceMissing
	ErrNameMismatch
	ErrAutoupdateMalformed
	ErrAutoupdateConflict
	ErrMinifiedPointer
	ErrFormattingMismatch
	ErrDisallowedField
	ErrInvalidConfig
	ErrFileOp
	ErrSigning
	ErrValidationFailed
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrMissingFile:
		return "MissingFile"
	case ErrParseFailure:
		return "ParseFailure"
	case ErrSchemaViolation:
		return "SchemaViolation"
	case ErrFileReferenceMissing:
		return "FileReferenceMissing"
	case ErrNameMismatch:
		return "NameMismatch"
	case ErrAutoupdateMalformed:
		return "AutoupdateMalformed"
	case ErrAutoupdateConflict:
		return "AutoupdateConflict"
	case ErrMinifiedPointer:
		return "MinifiedPointer"
	case ErrFormattingMismatch:
		return "FormattingMismatch"
	case ErrDisallowedField:
		return "DisallowedField"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrFileOp:
		return "FileOp"
	case ErrSigning:
		return "Signing"
	case ErrValidationFailed:
		return "ValidationFailed"
	default:
		return "Unknown"
	}
}

// CheckError represents an error raised while checking a package
type CheckError struct {
	Type    ErrorType
	Package string
	Err     error
}

// Error implements the error interface
func (e *CheckError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Package, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *CheckError) Unwrap() error {
	return e.Err
}

// NewCheckError builds a CheckError from a formatted message
func NewCheckError(t ErrorType, pkg, format string, args ...interface{}) *CheckError {
	return &CheckError{
		Type:    t,
		Package: pkg,
		Err:     fmt.Errorf(format, args...),
	}
}
