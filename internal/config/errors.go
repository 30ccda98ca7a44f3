package config

import (
	"fmt"
	"sort"
	"strings"
)

// Error categories group problems by the configuration section they concern.
const (
	CategoryFile    = "file"
	CategoryBackend = "backend"
	CategoryPacing  = "pacing"
	CategoryFeeds   = "feeds"
	CategoryWatch   = "watch"
)

// Error types describe what went wrong.
const (
	ErrorTypeParse      = "parse"
	ErrorTypeValidation = "validation"
	ErrorTypeTemplate   = "template"
)

// ConfigurationError represents a structured error found while loading configuration
type ConfigurationError struct {
	FilePath    string   `json:"filePath,omitempty"`    // File that caused the error, if any
	Field       string   `json:"field,omitempty"`       // Dotted path of the offending field
	Category    string   `json:"category"`              // Configuration section
	ErrorType   string   `json:"errorType"`             // parse, validation, template
	Message     string   `json:"message"`               // Human-readable error message
	Details     string   `json:"details,omitempty"`     // Additional details about the error
	Suggestions []string `json:"suggestions,omitempty"` // Actionable suggestions to fix the error
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	if ce.Field == "" {
		return fmt.Sprintf("[%s] %s", ce.Category, ce.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ce.Category, ce.Field, ce.Message)
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Configuration Error in %s", ce.Category))
	if ce.FilePath != "" {
		parts = append(parts, fmt.Sprintf("  File: %s", ce.FilePath))
	}
	if ce.Field != "" {
		parts = append(parts, fmt.Sprintf("  Field: %s", ce.Field))
	}
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))

	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

// ConfigurationErrorCollection holds multiple configuration errors
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// Error implements the error interface for the collection
func (cec ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 0 {
		return "no configuration errors"
	}

	if len(cec.Errors) == 1 {
		return cec.Errors[0].Error()
	}

	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Count returns the number of errors in the collection
func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

// Add adds a new error to the collection
func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// AddValidation records an invalid field.
func (cec *ConfigurationErrorCollection) AddValidation(category, field, message string) {
	cec.Add(NewConfigurationError(category, field, ErrorTypeValidation, message))
}

// GetErrorsByCategory returns errors filtered by category
func (cec *ConfigurationErrorCollection) GetErrorsByCategory(category string) []ConfigurationError {
	var filtered []ConfigurationError
	for _, err := range cec.Errors {
		if err.Category == category {
			filtered = append(filtered, err)
		}
	}
	return filtered
}

// GetSummary returns a summary of all errors grouped by category
func (cec *ConfigurationErrorCollection) GetSummary() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors"
	}

	groups := make(map[string][]ConfigurationError)
	for _, err := range cec.Errors {
		groups[err.Category] = append(groups[err.Category], err)
	}
	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var parts []string
	parts = append(parts, fmt.Sprintf("Configuration Error Summary (%d total errors):", len(cec.Errors)))

	for _, category := range categories {
		parts = append(parts, fmt.Sprintf("\n%s:", category))
		for _, err := range groups[category] {
			if err.Field != "" {
				parts = append(parts, fmt.Sprintf("  - %s: %s", err.Field, err.Message))
			} else {
				parts = append(parts, fmt.Sprintf("  - %s", err.Message))
			}
		}
	}

	return strings.Join(parts, "\n")
}

// GetDetailedReport returns a detailed report of all errors
func (cec *ConfigurationErrorCollection) GetDetailedReport() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors to report"
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Detailed Configuration Error Report (%d errors):", len(cec.Errors)))
	parts = append(parts, strings.Repeat("=", 60))

	for i, err := range cec.Errors {
		parts = append(parts, fmt.Sprintf("\nError %d:", i+1))
		parts = append(parts, err.DetailedError())

		if i < len(cec.Errors)-1 {
			parts = append(parts, strings.Repeat("-", 40))
		}
	}

	return strings.Join(parts, "\n")
}

// NewConfigurationError creates a new configuration error with basic information
func NewConfigurationError(category, field, errorType, message string) ConfigurationError {
	return ConfigurationError{
		Field:     field,
		Category:  category,
		ErrorType: errorType,
		Message:   message,
	}
}

// NewConfigurationErrorWithDetails creates a file-level configuration error with additional details
func NewConfigurationErrorWithDetails(filePath, field, category, errorType, message, details string, suggestions []string) ConfigurationError {
	return ConfigurationError{
		FilePath:    filePath,
		Field:       field,
		Category:    category,
		ErrorType:   errorType,
		Message:     message,
		Details:     details,
		Suggestions: suggestions,
	}
}

// NewConfigurationErrorCollection creates a new empty error collection
func NewConfigurationErrorCollection() *ConfigurationErrorCollection {
	return &ConfigurationErrorCollection{
		Errors: make([]ConfigurationError, 0),
	}
}
