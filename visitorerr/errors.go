// Package visitorerr defines the diagnostics reported while synthesizing
// visitor code. Every error is attributable to the declared type that caused
// it, so hosts can print it at the right source position.
package visitorerr

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
)

// ErrorType defines the category of the error.
type ErrorType string

const (
	TypeDuplicateRoot            ErrorType = "DuplicateRootError"
	TypeUnresolvedRoot           ErrorType = "UnresolvedRootError"
	TypeNoRootFound              ErrorType = "NoRootFoundError"
	TypeInvalidConfigCombination ErrorType = "InvalidConfigCombinationError"
	TypeUnsupportedHostVersion   ErrorType = "UnsupportedHostVersionError"
	TypeInvalidMarker            ErrorType = "InvalidMarkerError"
	TypeScopeMismatch            ErrorType = "ScopeMismatchError"
	TypeTypeParameterMismatch    ErrorType = "TypeParameterMismatchError"
	TypeStaleOutput              ErrorType = "StaleOutputError"
)

// Severity tells the host whether a diagnostic fails the run.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Subject is the declared type a diagnostic is attributed to.
type Subject interface {
	QualifiedName() string
}

// Positioned is implemented by subjects that know where they were declared.
type Positioned interface {
	Position() token.Position
}

// VisitorError is the interface for all synthesis diagnostics.
type VisitorError interface {
	error
	Type() ErrorType
	Severity() Severity
	Subject() Subject
}

// BaseError provides common fields for visitor errors.
type BaseError struct {
	Msg     string
	ErrType ErrorType
	Subj    Subject
	Sev     Severity
}

func (e *BaseError) Error() string {
	if pos, ok := PositionOf(e.Subj); ok {
		return fmt.Sprintf("[%s] %s %s", e.ErrType, pos, e.Msg)
	}
	return fmt.Sprintf("[%s] %s", e.ErrType, e.Msg)
}

func (e *BaseError) Type() ErrorType {
	return e.ErrType
}

func (e *BaseError) Severity() Severity {
	return e.Sev
}

func (e *BaseError) Subject() Subject {
	return e.Subj
}

// Message is the diagnostic text without type and position.
func (e *BaseError) Message() string {
	return e.Msg
}

// PositionOf returns the declaration position of s if it carries one.
func PositionOf(s Subject) (token.Position, bool) {
	p, ok := s.(Positioned)
	if !ok || p == nil {
		return token.Position{}, false
	}
	pos := p.Position()
	return pos, pos.IsValid()
}

// DuplicateRootError is reported when a type is marked as a root twice in one
// round. The first registration stands.
type DuplicateRootError struct {
	BaseError
}

// UnresolvedRootError is reported when a leaf names roots that were never
// registered. The leaf joins no hierarchy.
type UnresolvedRootError struct {
	BaseError
	Candidates []string // root names the leaf asked for and that did not resolve
	Known      []string // roots registered in the round
}

// NoRootFoundError is reported when a leaf names no root and none can be
// inferred from its declaration.
type NoRootFoundError struct {
	BaseError
}

// InvalidConfigCombinationError disables one companion artifact.
type InvalidConfigCombinationError struct {
	BaseError
	Artifact string
}

// UnsupportedHostVersionError is reported when the host module cannot express
// an artifact. The artifact is skipped; the dispatch contract still emits.
type UnsupportedHostVersionError struct {
	BaseError
	Artifact  string
	GoVersion string
}

// InvalidMarkerError is reported for malformed or misplaced markers.
type InvalidMarkerError struct {
	BaseError
}

// ScopeMismatchError is reported when a leaf lives outside its root's package.
type ScopeMismatchError struct {
	BaseError
	LeafScope string
	RootScope string
}

// TypeParameterMismatchError is reported when a leaf of a generic root does
// not declare the root's type parameters.
type TypeParameterMismatchError struct {
	BaseError
	Want []string
	Got  []string
}

// StaleOutputError is reported in check mode when a generated file differs
// from what would be generated now.
type StaleOutputError struct {
	BaseError
	Path string
}

// MultiError collects multiple visitor errors.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) occurred:\n", len(m.Errors)))
	for _, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("- %v\n", err))
	}
	return sb.String()
}

func (m *MultiError) Type() ErrorType {
	if len(m.Errors) > 0 {
		if ve, ok := m.Errors[0].(VisitorError); ok {
			return ve.Type()
		}
	}
	return "MultiError"
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// HasErrors reports whether any of errs is error-severity. Errors that are not
// VisitorErrors count as errors.
func HasErrors(errs []error) bool {
	for _, err := range errs {
		ve, ok := err.(VisitorError)
		if !ok || ve.Severity() == SeverityError {
			return true
		}
	}
	return false
}

func newBase(t ErrorType, subj Subject, sev Severity, msg string) BaseError {
	return BaseError{Msg: msg, ErrType: t, Subj: subj, Sev: sev}
}

// NewDuplicateRootError creates a DuplicateRootError.
func NewDuplicateRootError(root Subject) *DuplicateRootError {
	return &DuplicateRootError{
		BaseError: newBase(TypeDuplicateRoot, root, SeverityError,
			fmt.Sprintf("%s is already a visitable root", root.QualifiedName())),
	}
}

// NewUnresolvedRootError creates an UnresolvedRootError.
func NewUnresolvedRootError(leaf Subject, candidates, known []string) *UnresolvedRootError {
	known = append([]string(nil), known...)
	sort.Strings(known)
	return &UnresolvedRootError{
		BaseError: newBase(TypeUnresolvedRoot, leaf, SeverityError,
			fmt.Sprintf("cannot find %s among [%s] for leaf %s; the root may be missing a //visitor:root marker",
				strings.Join(candidates, ", "), strings.Join(known, ", "), leaf.QualifiedName())),
		Candidates: candidates,
		Known:      known,
	}
}

// NewNoRootFoundError creates a NoRootFoundError.
func NewNoRootFoundError(leaf Subject, reason string) *NoRootFoundError {
	msg := fmt.Sprintf("cannot find a visitable root for %s", leaf.QualifiedName())
	if reason != "" {
		msg += ": " + reason
	}
	return &NoRootFoundError{
		BaseError: newBase(TypeNoRootFound, leaf, SeverityError, msg),
	}
}

// NewInvalidConfigCombinationError creates an InvalidConfigCombinationError.
func NewInvalidConfigCombinationError(root Subject, artifact, msg string) *InvalidConfigCombinationError {
	return &InvalidConfigCombinationError{
		BaseError: newBase(TypeInvalidConfigCombination, root, SeverityError,
			fmt.Sprintf("%s for %s not generated: %s", artifact, root.QualifiedName(), msg)),
		Artifact: artifact,
	}
}

// NewInvalidConfigCombinationWarning is an InvalidConfigCombinationError for
// settings that are ignored rather than wrong.
func NewInvalidConfigCombinationWarning(root Subject, artifact, msg string) *InvalidConfigCombinationError {
	err := NewInvalidConfigCombinationError(root, artifact, msg)
	err.Sev = SeverityWarning
	return err
}

// NewUnsupportedHostVersionError creates an UnsupportedHostVersionError.
func NewUnsupportedHostVersionError(root Subject, artifact, goVersion string) *UnsupportedHostVersionError {
	return &UnsupportedHostVersionError{
		BaseError: newBase(TypeUnsupportedHostVersion, root, SeverityWarning,
			fmt.Sprintf("%s for %s skipped: module go version %s has no type parameters", artifact, root.QualifiedName(), goVersion)),
		Artifact:  artifact,
		GoVersion: goVersion,
	}
}

// NewInvalidMarkerError creates an InvalidMarkerError.
func NewInvalidMarkerError(subj Subject, msg string) *InvalidMarkerError {
	return &InvalidMarkerError{
		BaseError: newBase(TypeInvalidMarker, subj, SeverityError, msg),
	}
}

// NewInvalidMarkerWarning is an InvalidMarkerError that does not fail the run.
func NewInvalidMarkerWarning(subj Subject, msg string) *InvalidMarkerError {
	err := NewInvalidMarkerError(subj, msg)
	err.Sev = SeverityWarning
	return err
}

// NewScopeMismatchError creates a ScopeMismatchError.
func NewScopeMismatchError(leaf Subject, leafScope, rootScope string) *ScopeMismatchError {
	return &ScopeMismatchError{
		BaseError: newBase(TypeScopeMismatch, leaf, SeverityError,
			fmt.Sprintf("leaf %s is in package %s but its root is in %s; accept methods can only be declared in the root's package",
				leaf.QualifiedName(), leafScope, rootScope)),
		LeafScope: leafScope,
		RootScope: rootScope,
	}
}

// NewTypeParameterMismatchError creates a TypeParameterMismatchError.
func NewTypeParameterMismatchError(leaf Subject, want, got []string) *TypeParameterMismatchError {
	return &TypeParameterMismatchError{
		BaseError: newBase(TypeTypeParameterMismatch, leaf, SeverityError,
			fmt.Sprintf("leaf %s declares type parameters [%s], root declares [%s]",
				leaf.QualifiedName(), strings.Join(got, ", "), strings.Join(want, ", "))),
		Want: want,
		Got:  got,
	}
}

// NewStaleOutputError creates a StaleOutputError.
func NewStaleOutputError(root Subject, path string) *StaleOutputError {
	return &StaleOutputError{
		BaseError: newBase(TypeStaleOutput, root, SeverityError,
			fmt.Sprintf("%s is out of date; run visitorgen", path)),
		Path: path,
	}
}
