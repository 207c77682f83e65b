package cmd

import (
	"strings"
)

// validateRunName ensures a report name can't be used for path traversal.
// Names end up inside file names, so reject separators.
func validateRunName(name string) error {
	switch name {
	case "":
		return &RunNameError{Name: name, Reason: "is required"}
	case ".", "..":
		return &RunNameError{Name: name, Reason: "is reserved"}
	}
	if strings.ContainsAny(name, "/\\") {
		return &RunNameError{Name: name, Reason: "must not contain path separators"}
	}
	if strings.ContainsAny(name, "\r\n\x00") {
		return &RunNameError{Name: name, Reason: "contains control characters"}
	}
	return nil
}
