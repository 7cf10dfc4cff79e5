package types

import (
	"fmt"
	"strings"
)

// TemplateFormatError indicates a malformed template header.
type TemplateFormatError struct {
	Header string
	Reason string
}

// Error implements the error interface
func (e *TemplateFormatError) Error() string {
	if e.Header == "" {
		return fmt.Sprintf("invalid template: %s", e.Reason)
	}
	return fmt.Sprintf("invalid template header %q: %s", e.Header, e.Reason)
}

// SchemaMigrationError indicates a column change failed and was rolled back.
type SchemaMigrationError struct {
	Table        string
	Column       string
	WrappedError error
}

// Error implements the error interface
func (e *SchemaMigrationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("schema migration of %q failed: %v", e.Table, e.WrappedError)
	}
	return fmt.Sprintf("schema migration of %q failed adding column %q: %v", e.Table, e.Column, e.WrappedError)
}

// Unwrap allows error unwrapping
func (e *SchemaMigrationError) Unwrap() error {
	return e.WrappedError
}

// InvalidFilterError indicates a filter clause that cannot be built.
type InvalidFilterError struct {
	Clause FilterClause
	Reason string
}

// Error implements the error interface
func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter on %q: %s", e.Clause.Field, e.Reason)
}

// UniquenessConflictError indicates a change would give two records the same
// value in a unique field.
type UniquenessConflictError struct {
	Field string
	Value string
	// RecordID is an existing record already holding the value, or zero when
	// the conflict is between records in the same batch.
	RecordID int64
}

// Error implements the error interface
func (e *UniquenessConflictError) Error() string {
	if e.RecordID == 0 {
		return fmt.Sprintf("value %q for unique field %q would be shared by several records", e.Value, e.Field)
	}
	return fmt.Sprintf("value %q for unique field %q already used by record %d", e.Value, e.Field, e.RecordID)
}

// RequiredFieldError indicates a required field would be left empty.
type RequiredFieldError struct {
	Field string
}

// Error implements the error interface
func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("required field %q cannot be empty", e.Field)
}

// UnknownFieldError indicates a field absent from the table schema.
type UnknownFieldError struct {
	Field string
}

// Error implements the error interface
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// DuplicateNameError indicates a saved search or preset name is taken.
type DuplicateNameError struct {
	Kind string
	Name string
}

// Error implements the error interface
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Name)
}

// NotFoundError indicates a named entity or record does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// StoreLockedError indicates the store stayed busy after all retries.
type StoreLockedError struct {
	Operation    string
	Attempts     int
	WrappedError error
}

// Error implements the error interface
func (e *StoreLockedError) Error() string {
	return fmt.Sprintf("%s: store still locked after %d attempts: %v", e.Operation, e.Attempts, e.WrappedError)
}

// Unwrap allows error unwrapping
func (e *StoreLockedError) Unwrap() error {
	return e.WrappedError
}

// ValidationErrors collects several field problems found in one record.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (v ValidationErrors) Unwrap() []error {
	return v
}

// InvalidValueError indicates a value that does not fit its field's kind.
type InvalidValueError struct {
	Field  string
	Value  string
	Reason string
}

// Error implements the error interface
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for field %q: %s", e.Value, e.Field, e.Reason)
}
