package writer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const sessionTimeLayout = "2006-01-02T15-04-05"

// SessionManager owns one output directory per CLI invocation
type SessionManager struct {
	outputDir   string
	sessionDir  string
	resultsFile string
	logger      *slog.Logger
}

// NewSessionManager creates <outputDir>/session_<timestamp>, or reuses an existing
// session directory when session is non-empty.
func NewSessionManager(logger *slog.Logger, outputDir, resultsFile, session string) (*SessionManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if outputDir == "" {
		outputDir = "output"
	}
	if resultsFile == "" {
		resultsFile = "results.json"
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var sessionDir string
	if session != "" {
		if err := ValidateSessionPath(outputDir, session); err != nil {
			return nil, err
		}
		sessionDir = filepath.Join(outputDir, session)
		if _, err := os.Stat(sessionDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("session directory not found: %s", sessionDir)
		}
		logger.Debug("Reusing existing session", "path", sessionDir)
	} else {
		sessionDir = filepath.Join(outputDir, "session_"+time.Now().Format(sessionTimeLayout))
		if err := os.MkdirAll(sessionDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
		logger.Debug("Created new session directory", "path", sessionDir)
	}

	return &SessionManager{
		outputDir:   outputDir,
		sessionDir:  sessionDir,
		resultsFile: resultsFile,
		logger:      logger,
	}, nil
}

// SetLogger replaces the logger once the session logger is available
func (sm *SessionManager) SetLogger(logger *slog.Logger) {
	sm.logger = logger
}

// SessionDir returns the session directory path
func (sm *SessionManager) SessionDir() string {
	return sm.sessionDir
}

// LogPath returns the full path to the session log file
func (sm *SessionManager) LogPath() string {
	return filepath.Join(sm.sessionDir, "session.log")
}

// ResultsPath returns the path of the top_p comparison results
func (sm *SessionManager) ResultsPath() string {
	return filepath.Join(sm.sessionDir, sm.resultsFile)
}

// RunPath returns the path a single saved run is written to
func (sm *SessionManager) RunPath(runID string) string {
	return filepath.Join(sm.sessionDir, "run_"+runID+".json")
}

// SweepPath returns the path of the sweep summary
func (sm *SessionManager) SweepPath() string {
	return filepath.Join(sm.sessionDir, "sweep.json")
}

// ConfigBackupPath returns the full path to the config backup
func (sm *SessionManager) ConfigBackupPath() string {
	return filepath.Join(sm.sessionDir, "dialprobe.toml.bak")
}

// BackupConfig copies the config file into the session directory.
// A missing config file is not an error since defaults were used.
func (sm *SessionManager) BackupConfig(configPath string) error {
	source, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	backupPath := sm.ConfigBackupPath()
	if err := os.WriteFile(backupPath, source, 0644); err != nil {
		return fmt.Errorf("failed to write config backup: %w", err)
	}

	sm.logger.Debug("Backed up config file", "path", backupPath)
	return nil
}

// Save writes v as JSON to path and logs the location
func (sm *SessionManager) Save(path string, v any) error {
	if err := SaveJSON(path, v); err != nil {
		return err
	}
	sm.logger.Info("Saved results", "path", path)
	return nil
}
