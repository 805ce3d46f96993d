package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/lamim/dialprobe/internal/api"
	"github.com/lamim/dialprobe/internal/checkpoint"
	"github.com/lamim/dialprobe/internal/config"
	"github.com/spf13/cobra"
)

// useTestConfig points the global flags at a config whose output lives in a temp dir
func useTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "out")

	cfgPath := filepath.Join(dir, "dialprobe.toml")
	content := "[output]\ndir = \"" + filepath.ToSlash(outputDir) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	oldConfig, oldEnv, oldSession := configPath, envFile, sessionArg
	oldModels, oldResume, oldAddr := sweepModels, resumeSweep, metricsAddr
	t.Cleanup(func() {
		configPath, envFile, sessionArg = oldConfig, oldEnv, oldSession
		sweepModels, resumeSweep, metricsAddr = oldModels, oldResume, oldAddr
	})

	configPath = cfgPath
	envFile = filepath.Join(dir, "missing.env")
	sessionArg = ""
	sweepModels = nil
	resumeSweep = false
	metricsAddr = ""
	return outputDir
}

func TestRunSweep_RejectsUnusableKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{"missing", "", config.ErrMissingAPIKey},
		{"placeholder", config.PlaceholderAPIKey, config.ErrPlaceholderAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputDir := useTestConfig(t)
			t.Setenv(config.APIKeyEnvVar, tt.key)

			err := runSweep(&cobra.Command{}, []string{"n"})
			if !api.IsKind(err, api.KindConfiguration) {
				t.Fatalf("Expected configuration error, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v in chain, got %v", tt.want, err)
			}

			// No session and no checkpoint may be written before the key is usable
			walkErr := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.Name() == checkpoint.CheckpointFilename {
					t.Errorf("Unexpected checkpoint at %s", path)
				}
				return nil
			})
			if walkErr != nil && !errors.Is(walkErr, fs.ErrNotExist) {
				t.Fatal(walkErr)
			}
		})
	}
}

func TestSetup_RejectsUnusableKeyForEveryGatewayCommand(t *testing.T) {
	useTestConfig(t)
	t.Setenv(config.APIKeyEnvVar, "")

	for name, run := range map[string]func(*cobra.Command, []string) error{
		"models":        listModels,
		"top-p-compare": runTopPCompare,
	} {
		if err := run(&cobra.Command{}, nil); !api.IsKind(err, api.KindConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", name, err)
		}
	}
}
