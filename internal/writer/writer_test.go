package writer

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "results.json")
	data := []map[string]string{
		{"response": "Purple <growls> & hums"},
		{"response": "Снег белый"},
	}

	if err := SaveJSON(path, data); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	content := string(raw)

	if !strings.Contains(content, "Purple <growls> & hums") {
		t.Errorf("HTML characters should not be escaped:\n%s", content)
	}
	if !strings.Contains(content, "Снег белый") {
		t.Errorf("Non-ASCII text should be written as UTF-8:\n%s", content)
	}
	if !strings.Contains(content, "\n  {\n    \"response\"") {
		t.Errorf("Expected 2-space indentation:\n%s", content)
	}

	var back []map[string]string
	if err := json.Unmarshal(raw, &back); err != nil || len(back) != 2 {
		t.Errorf("Output is not the saved list: %v %v", back, err)
	}
}

func TestSaveJSON_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sweep.json")

	if err := SaveJSON(path, map[string]int{"total": 1}); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := SaveJSON(path, map[string]int{"total": 2}); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the target file, found %d entries", len(entries))
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), `"total": 2`) {
		t.Errorf("Expected second write to win, got %s", raw)
	}
}

func TestSaveJSON_UnencodableValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := SaveJSON(path, map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("Expected encode error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("No file should be written on encode failure")
	}
}

func TestSessionManager_NewSession(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "output")

	sm, err := NewSessionManager(testLogger(), outputDir, "additional_parameters_results.json", "")
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	name := filepath.Base(sm.SessionDir())
	if err := ValidateSessionPath(outputDir, name); err != nil {
		t.Errorf("Generated session name %q is not valid: %v", name, err)
	}
	if info, err := os.Stat(sm.SessionDir()); err != nil || !info.IsDir() {
		t.Fatalf("Session directory not created: %v", err)
	}

	if filepath.Base(sm.ResultsPath()) != "additional_parameters_results.json" {
		t.Errorf("Unexpected results path %s", sm.ResultsPath())
	}
	if filepath.Base(sm.SweepPath()) != "sweep.json" || filepath.Base(sm.LogPath()) != "session.log" {
		t.Errorf("Unexpected session paths %s %s", sm.SweepPath(), sm.LogPath())
	}
	if filepath.Base(sm.RunPath("abc")) != "run_abc.json" {
		t.Errorf("Unexpected run path %s", sm.RunPath("abc"))
	}
}

func TestSessionManager_ReuseSession(t *testing.T) {
	outputDir := t.TempDir()
	name := "session_2026-10-17T09-00-00"

	if _, err := NewSessionManager(testLogger(), outputDir, "", name); err == nil {
		t.Fatal("Expected error for missing session directory")
	}

	if err := os.Mkdir(filepath.Join(outputDir, name), 0755); err != nil {
		t.Fatal(err)
	}
	sm, err := NewSessionManager(testLogger(), outputDir, "", name)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	if sm.SessionDir() != filepath.Join(outputDir, name) {
		t.Errorf("Unexpected session dir %s", sm.SessionDir())
	}

	if _, err := NewSessionManager(testLogger(), outputDir, "", "../escape"); err == nil {
		t.Error("Expected traversal to be rejected")
	}
}

func TestSessionManager_BackupConfig(t *testing.T) {
	dir := t.TempDir()
	sm, err := NewSessionManager(testLogger(), filepath.Join(dir, "output"), "", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := sm.BackupConfig(filepath.Join(dir, "missing.toml")); err != nil {
		t.Errorf("Missing config should be skipped, got %v", err)
	}

	cfgPath := filepath.Join(dir, "dialprobe.toml")
	if err := os.WriteFile(cfgPath, []byte("[dial]\ndefault_model = \"gpt-4o\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := sm.BackupConfig(cfgPath); err != nil {
		t.Fatalf("BackupConfig failed: %v", err)
	}
	raw, err := os.ReadFile(sm.ConfigBackupPath())
	if err != nil || !strings.Contains(string(raw), "gpt-4o") {
		t.Errorf("Backup content mismatch: %q %v", raw, err)
	}
}

func TestSetupLogger_WritesJSONToSessionLog(t *testing.T) {
	sm, err := NewSessionManager(testLogger(), t.TempDir(), "", "")
	if err != nil {
		t.Fatal(err)
	}

	logger, logFile, err := SetupLogger(sm, slog.LevelError)
	if err != nil {
		t.Fatalf("SetupLogger failed: %v", err)
	}
	logger.Debug("Debug line reaches the file", "deployment", "gpt-4o")
	if err := logFile.Close(); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(sm.LogPath())
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry); err != nil {
		t.Fatalf("Session log is not JSON lines: %v\n%s", err, raw)
	}
	if entry["msg"] != "Debug line reaches the file" || entry["deployment"] != "gpt-4o" {
		t.Errorf("Unexpected log entry %v", entry)
	}
}
