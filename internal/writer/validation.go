package writer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Session name format: session_2026-10-17T14-30-00
var sessionNameRegex = regexp.MustCompile(`^session_\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}$`)

// ValidateSessionPath checks that sessionName is a plain session directory name
// that resolves inside outputDir.
func ValidateSessionPath(outputDir, sessionName string) error {
	if sessionName == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if strings.Contains(sessionName, "..") {
		return fmt.Errorf("invalid session name %q: contains '..'", sessionName)
	}
	if filepath.IsAbs(sessionName) {
		return fmt.Errorf("invalid session name %q: must be relative", sessionName)
	}
	if strings.ContainsAny(sessionName, "/\\") {
		return fmt.Errorf("invalid session name %q: must not contain path separators", sessionName)
	}
	if !sessionNameRegex.MatchString(sessionName) {
		return fmt.Errorf("invalid session name format: expected 'session_YYYY-MM-DDTHH-MM-SS', got %q", sessionName)
	}

	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(outputDir, sessionName))
	if err != nil {
		return fmt.Errorf("failed to resolve session path: %w", err)
	}

	// Separator suffix keeps "/out" from matching "/out-other"
	if !strings.HasPrefix(absPath, absOutput+string(filepath.Separator)) {
		return fmt.Errorf("session path escapes output directory")
	}
	return nil
}
