package config

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// validateEndpoint checks that the endpoint template yields an absolute http(s) URL
func validateEndpoint(endpoint string) error {
	u, err := url.Parse(strings.ReplaceAll(endpoint, ModelPlaceholder, "model"))
	if err != nil {
		return fmt.Errorf("is not a valid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme (got %q)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("must have a host")
	}

	if strings.Count(endpoint, ModelPlaceholder) > 1 {
		return fmt.Errorf("must contain %s at most once", ModelPlaceholder)
	}

	return nil
}

// containsControlChars checks if a string contains control characters
// (excluding newlines, tabs, and carriage returns which are acceptable)
func containsControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
