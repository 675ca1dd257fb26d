package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigurationError represents a structured error that occurs during
// configuration loading.
type ConfigurationError struct {
	FilePath   string // Full path to the file that caused the error, if any
	FileName   string // Base name of the file
	ErrorType  string // Type of error (parse, validation, io)
	Message    string // Human-readable error message
	LineNumber int    // Line number where the error occurred (if available)
	Err        error
}

func newConfigurationError(path, errorType string, err error) ConfigurationError {
	ce := ConfigurationError{
		FilePath:  path,
		ErrorType: errorType,
		Message:   err.Error(),
		Err:       err,
	}
	if path != "" {
		ce.FileName = filepath.Base(path)
	}
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		ce.Message = strings.Join(te.Errors, "; ")
		ce.LineNumber = lineOf(te.Errors[0])
	}
	return ce
}

// lineOf extracts N from yaml messages of the form "line N: ...".
func lineOf(msg string) int {
	var line int
	if _, err := fmt.Sscanf(msg, "line %d:", &line); err != nil {
		return 0
	}
	return line
}

// Error implements the error interface.
func (ce ConfigurationError) Error() string {
	name := ce.FileName
	if name == "" {
		name = "<input>"
	}
	if ce.LineNumber > 0 {
		return fmt.Sprintf("[%s] %s:%d: %s", ce.ErrorType, name, ce.LineNumber, ce.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, name, ce.Message)
}

// Unwrap returns the underlying error.
func (ce ConfigurationError) Unwrap() error {
	return ce.Err
}

// DetailedError returns a detailed error message with all context.
func (ce ConfigurationError) DetailedError() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Configuration error in %s", ce.FileName))
	if ce.FilePath != "" {
		parts = append(parts, fmt.Sprintf("  File: %s", ce.FilePath))
	}
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))
	if ce.LineNumber > 0 {
		parts = append(parts, fmt.Sprintf("  Line: %d", ce.LineNumber))
	}
	var ve ValidationErrors
	if errors.As(ce.Err, &ve) {
		for _, e := range ve {
			parts = append(parts, fmt.Sprintf("  - %s", e.Error()))
		}
	} else {
		parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))
	}
	return strings.Join(parts, "\n")
}
