package errors

import (
	"errors"
	"fmt"
	"strings"
)

// FormatError reports a source file that violates its declared schema.
// Row is 1-based as a spreadsheet user would count it; zero means the
// problem is not tied to a row (a missing column, say).
type FormatError struct {
	File   string
	Row    int
	Column string
	Value  string
	Reason string
	Cause  error
}

// NewFormatError creates a format error for one cell or header.
func NewFormatError(file string, row int, column, value, reason string) *FormatError {
	return &FormatError{File: file, Row: row, Column: column, Value: value, Reason: reason}
}

// Error implements the error interface
func (e *FormatError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "format error in %s", e.File)
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value %q)", e.Value)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *FormatError) Unwrap() error { return e.Cause }

// ErrorType classifies the error.
func (e *FormatError) ErrorType() ErrorType { return ErrTypeFormat }

// WithCause attaches the underlying parse error.
func (e *FormatError) WithCause(err error) *FormatError {
	e.Cause = err
	return e
}

// Gap names one missing (indicator, state, year) combination.
type Gap struct {
	Indicator string
	State     string
	Year      int
}

// CoverageGapError is raised when full coverage is required and the
// verifier found missing combinations.
type CoverageGapError struct {
	Gaps []Gap
}

// Error implements the error interface
func (e *CoverageGapError) Error() string {
	if len(e.Gaps) == 0 {
		return "coverage incomplete"
	}
	first := e.Gaps[0]
	return fmt.Sprintf("coverage incomplete: %d missing combination(s), first %s %s %d",
		len(e.Gaps), first.Indicator, first.State, first.Year)
}

// ErrorType classifies the error.
func (e *CoverageGapError) ErrorType() ErrorType { return ErrTypeCoverage }

// ErrDegenerateFold matches any DegenerateFoldError via errors.Is.
var ErrDegenerateFold = errors.New("degenerate fold")

// DegenerateFoldError reports a cross-validation split on which the model
// cannot be fitted or scored.
type DegenerateFoldError struct {
	Fold   int
	Reason string
	Subset []string
}

// NewDegenerateFoldError creates a degenerate fold error. A negative fold
// means the problem is not tied to one split.
func NewDegenerateFoldError(fold int, reason string) *DegenerateFoldError {
	return &DegenerateFoldError{Fold: fold, Reason: reason}
}

// Error implements the error interface
func (e *DegenerateFoldError) Error() string {
	var b strings.Builder
	b.WriteString("degenerate fold")
	if e.Fold >= 0 {
		fmt.Fprintf(&b, " %d", e.Fold)
	}
	if len(e.Subset) > 0 {
		fmt.Fprintf(&b, " for [%s]", strings.Join(e.Subset, ", "))
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Is lets errors.Is(err, ErrDegenerateFold) match.
func (e *DegenerateFoldError) Is(target error) bool { return target == ErrDegenerateFold }

// ErrorType classifies the error.
func (e *DegenerateFoldError) ErrorType() ErrorType { return ErrTypeDegenerateFold }

// ForSubset returns a copy of the error annotated with the feature subset.
func (e *DegenerateFoldError) ForSubset(subset []string) *DegenerateFoldError {
	cp := *e
	cp.Subset = append([]string(nil), subset...)
	return &cp
}

// IsDegenerateFold reports whether err is or wraps a DegenerateFoldError.
func IsDegenerateFold(err error) bool {
	return errors.Is(err, ErrDegenerateFold)
}

// AsFormatError extracts a FormatError from err's chain.
func AsFormatError(err error) (*FormatError, bool) {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
