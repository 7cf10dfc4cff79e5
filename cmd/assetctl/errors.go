package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/assetstore/types"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "search", "update")
	Cause       string   // The underlying cause (e.g., "record not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}

	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}

	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewUsageError creates an error for bad arguments
func NewUsageError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       issue,
		Suggestions: append(suggestions, CommonSuggestions.RunHelp),
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
	}
}

// NewFilterError creates an error for filtering issues
func NewFilterError(operation, filter, issue string, underlying error) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid filter %q: %s", filter, issue),
		Suggestions: filterSuggestions(),
		Underlying:  underlying,
	}
}

func filterSuggestions() []string {
	ops := make([]string, len(types.Operators))
	for i, op := range types.Operators {
		ops[i] = string(op)
	}
	return []string{
		`Use format: "Field=value" or "Field__operator=value"`,
		"Available operators: " + strings.Join(ops, ", "),
		"before, after and between only work on date fields",
		"Use --or to match any condition instead of all",
		CommonSuggestions.CheckFields,
	}
}

// NewStoreError creates an error for store failures, describing the typed
// store errors in user terms.
func NewStoreError(operation string, underlying error, suggestions ...string) *CLIError {
	e := &CLIError{
		Operation:   operation,
		Cause:       "store operation failed",
		Suggestions: suggestions,
		Underlying:  underlying,
	}
	if underlying == nil {
		return e
	}
	e.Details = underlying.Error()

	var (
		filterErr   *types.InvalidFilterError
		uniqueErr   *types.UniquenessConflictError
		requiredErr *types.RequiredFieldError
		unknownErr  *types.UnknownFieldError
		valueErr    *types.InvalidValueError
		notFoundErr *types.NotFoundError
		dupErr      *types.DuplicateNameError
		lockedErr   *types.StoreLockedError
		templateErr *types.TemplateFormatError
		migrateErr  *types.SchemaMigrationError
	)
	switch {
	case errors.As(underlying, &filterErr):
		e.Cause = "invalid filter"
		e.Suggestions = append(e.Suggestions, filterSuggestions()...)
	case errors.As(underlying, &uniqueErr):
		e.Cause = fmt.Sprintf("%q must be unique", uniqueErr.Field)
		if uniqueErr.RecordID != 0 {
			e.Suggestions = append(e.Suggestions,
				fmt.Sprintf("Record %d already uses %q; run 'assetctl record get %d'", uniqueErr.RecordID, uniqueErr.Value, uniqueErr.RecordID))
		} else {
			e.Suggestions = append(e.Suggestions, "Narrow the filter so only one record receives the value")
		}
		e.Suggestions = append(e.Suggestions, "No records were changed")
	case errors.As(underlying, &requiredErr):
		e.Cause = fmt.Sprintf("required field %q cannot be empty", requiredErr.Field)
		e.Suggestions = append(e.Suggestions, "No records were changed")
	case errors.As(underlying, &unknownErr):
		e.Cause = fmt.Sprintf("unknown field %q", unknownErr.Field)
		e.Suggestions = append(e.Suggestions, CommonSuggestions.CheckFields, CommonSuggestions.SyncTemplate)
	case errors.As(underlying, &valueErr):
		e.Cause = fmt.Sprintf("invalid value for %q", valueErr.Field)
		e.Suggestions = append(e.Suggestions, "Dates may be written 2024-01-31, 01/31/2024 or current_date")
	case errors.As(underlying, &notFoundErr):
		e.Cause = fmt.Sprintf("%s %q not found", notFoundErr.Kind, notFoundErr.Name)
		switch notFoundErr.Kind {
		case "saved search":
			e.Suggestions = append(e.Suggestions, "Run 'assetctl searches list' to see saved searches")
		case "preset":
			e.Suggestions = append(e.Suggestions, "Run 'assetctl presets list' to see presets")
		default:
			e.Suggestions = append(e.Suggestions, CommonSuggestions.CheckID)
		}
	case errors.As(underlying, &dupErr):
		e.Cause = fmt.Sprintf("%s %q already exists", dupErr.Kind, dupErr.Name)
		e.Suggestions = append(e.Suggestions, "Pick another name or rename the existing entry first")
	case errors.As(underlying, &lockedErr):
		e.Cause = "database is currently locked by another process"
		e.Suggestions = append(e.Suggestions, "Wait for the other writer to finish and try again")
	case errors.As(underlying, &templateErr):
		e.Cause = "invalid template"
		e.Suggestions = append(e.Suggestions, "Check the template header row for blank or duplicate names")
	case errors.As(underlying, &migrateErr):
		e.Cause = "schema update failed and was rolled back"
		e.Suggestions = append(e.Suggestions, CommonSuggestions.CheckPerms)
	default:
		errStr := strings.ToLower(underlying.Error())
		switch {
		case strings.Contains(errStr, "no such file"):
			e.Cause = "database file not found"
			e.Suggestions = append(e.Suggestions, CommonSuggestions.CheckDB)
		case strings.Contains(errStr, "permission denied"):
			e.Cause = "insufficient permissions to access database"
			e.Suggestions = append(e.Suggestions, CommonSuggestions.CheckPerms)
		}
	}
	return e
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	return NewStoreError(operation, err, suggestions...)
}

// Common error messages and suggestions
var (
	CommonSuggestions = struct {
		CheckDB      string
		CheckID      string
		CheckFields  string
		SyncTemplate string
		CheckConfig  string
		RunHelp      string
		CheckPerms   string
	}{
		CheckDB:      "Verify --db points to a valid database file",
		CheckID:      "Verify the record ID exists (try 'search' first)",
		CheckFields:  "Run 'assetctl fields show' to list field names",
		SyncTemplate: "Run 'assetctl sync TEMPLATE' to add new template fields",
		CheckConfig:  "Check assetctl.yaml or ASSETCTL_* environment variables",
		RunHelp:      "Run command with --help for usage information",
		CheckPerms:   "Check file permissions and directory access",
	}
)
