package common

import (
	"fmt"
	"slices"

	"resumerag/internal/formatters"
)

// ValidateOutputFormat checks format against the configured formats and
// the formatter registry. An empty configured list allows every format
// the registry knows.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	known := formatters.GlobalRegistry.GetSupportedFormats()
	if !slices.Contains(known, format) {
		return fmt.Errorf("unsupported output format '%s'. Supported formats: %v", format, GetSupportedFormats(supportedFormats))
	}
	if len(supportedFormats) > 0 && !slices.Contains(supportedFormats, format) {
		return fmt.Errorf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats)
	}
	return nil
}

// GetSupportedFormats returns the configured formats, or every registered
// format when none are configured.
func GetSupportedFormats(supportedFormats []string) []string {
	if len(supportedFormats) == 0 {
		return formatters.GlobalRegistry.GetSupportedFormats()
	}
	return supportedFormats
}
