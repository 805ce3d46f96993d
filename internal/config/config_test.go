package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "fixed endpoint without placeholder",
			mutate:  func(c *Config) { c.Dial.Endpoint = "http://localhost:8080/v1/chat/completions" },
			wantErr: false,
		},
		{
			name:    "endpoint without scheme",
			mutate:  func(c *Config) { c.Dial.Endpoint = "ai-proxy/openai/deployments/{model}/chat/completions" },
			wantErr: true,
		},
		{
			name:    "endpoint with ftp scheme",
			mutate:  func(c *Config) { c.Dial.Endpoint = "ftp://example.com/{model}" },
			wantErr: true,
		},
		{
			name:    "placeholder twice",
			mutate:  func(c *Config) { c.Dial.Endpoint = "https://example.com/{model}/{model}" },
			wantErr: true,
		},
		{
			name:    "timeout too large",
			mutate:  func(c *Config) { c.Dial.TimeoutSeconds = 601 },
			wantErr: true,
		},
		{
			name:    "control characters in model",
			mutate:  func(c *Config) { c.Dial.DefaultModel = "gpt\x00-4o" },
			wantErr: true,
		},
		{
			name:    "empty sweep model",
			mutate:  func(c *Config) { c.Sweep.Models = []string{"gpt-4o", ""} },
			wantErr: true,
		},
		{
			name:    "invalid models url",
			mutate:  func(c *Config) { c.Dial.ModelsURL = "not a url" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Dial.Endpoint != DefaultEndpoint {
		t.Errorf("Expected default endpoint, got %s", cfg.Dial.Endpoint)
	}
	if cfg.Dial.Timeout() != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %s", cfg.Dial.Timeout())
	}
	if len(cfg.Sweep.Models) != 3 {
		t.Errorf("Expected 3 default sweep models, got %d", len(cfg.Sweep.Models))
	}
}

func TestLoadFile_Overrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dialprobe.toml", `
[dial]
endpoint = "http://localhost:9000/openai/deployments/{model}/chat/completions"
default_model = "gemini-2.0-flash"
timeout_seconds = 5

[sweep]
models = ["gpt-4o"]
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Dial.DefaultModel != "gemini-2.0-flash" {
		t.Errorf("Expected gemini-2.0-flash, got %s", cfg.Dial.DefaultModel)
	}
	if cfg.Dial.TimeoutSeconds != 5 {
		t.Errorf("Expected timeout 5, got %d", cfg.Dial.TimeoutSeconds)
	}
	if cfg.Dial.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("Expected default system prompt, got %q", cfg.Dial.SystemPrompt)
	}
	if len(cfg.Sweep.Models) != 1 || cfg.Sweep.Models[0] != "gpt-4o" {
		t.Errorf("Expected sweep models [gpt-4o], got %v", cfg.Sweep.Models)
	}
}

func TestLoadFile_NonStringDeployment(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dialprobe.toml", `
[dial]
default_model = 42
`)

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("Expected error for integer deployment name")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dialprobe.toml", `
[dial]
defualt_model = "gpt-4o"
`)

	_, err := LoadFile(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for misspelled key, got %v", err)
	}
}

func TestEndpointFor(t *testing.T) {
	d := DialConfig{Endpoint: DefaultEndpoint}

	got := d.EndpointFor("claude-3-5-haiku@20241022")
	want := "https://ai-proxy.lab.epam.com/openai/deployments/claude-3-5-haiku@20241022/chat/completions"
	if got != want {
		t.Errorf("EndpointFor() = %s, want %s", got, want)
	}

	got = d.EndpointFor("a/b")
	want = "https://ai-proxy.lab.epam.com/openai/deployments/a%2Fb/chat/completions"
	if got != want {
		t.Errorf("EndpointFor() = %s, want %s", got, want)
	}

	fixed := DialConfig{Endpoint: "http://localhost/v1/chat/completions"}
	if fixed.EndpointFor("gpt-4o") != fixed.Endpoint {
		t.Errorf("Expected fixed endpoint to be unchanged, got %s", fixed.EndpointFor("gpt-4o"))
	}
}

func TestResolveModelsURL(t *testing.T) {
	tests := []struct {
		name string
		dial DialConfig
		want string
	}{
		{
			name: "derived from endpoint",
			dial: DialConfig{Endpoint: DefaultEndpoint},
			want: "https://ai-proxy.lab.epam.com/openai/models",
		},
		{
			name: "explicit",
			dial: DialConfig{Endpoint: DefaultEndpoint, ModelsURL: "http://localhost:1234/models"},
			want: "http://localhost:1234/models",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.dial.ResolveModelsURL()
			if err != nil {
				t.Fatalf("ResolveModelsURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveModelsURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "test-key-123")

	secrets, err := LoadSecrets("")
	if err != nil {
		t.Fatalf("LoadSecrets() error = %v", err)
	}
	if secrets.APIKey != "test-key-123" {
		t.Errorf("Expected key 'test-key-123', got %s", secrets.APIKey)
	}
	if err := secrets.Check(); err != nil {
		t.Errorf("Check() error = %v", err)
	}
}

func TestLoadSecrets_EnvFile(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	if err := os.Unsetenv(APIKeyEnvVar); err != nil {
		t.Fatalf("Failed to unset %s: %v", APIKeyEnvVar, err)
	}
	path := writeFile(t, t.TempDir(), ".env", "# comment\nDIAL_API_KEY=\"from-file\"\n")

	secrets, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("LoadSecrets() error = %v", err)
	}
	if secrets.APIKey != "from-file" {
		t.Errorf("Expected key 'from-file', got %q", secrets.APIKey)
	}
}

func TestLoadSecrets_MissingEnvFileIgnored(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "k")

	if _, err := LoadSecrets(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("Expected missing env file to be ignored, got %v", err)
	}
}

func TestSecretsCheck(t *testing.T) {
	tests := []struct {
		name    string
		secrets *Secrets
		wantErr error
	}{
		{"nil", nil, ErrMissingAPIKey},
		{"empty", &Secrets{}, ErrMissingAPIKey},
		{"placeholder", &Secrets{APIKey: PlaceholderAPIKey}, ErrPlaceholderAPIKey},
		{"valid", &Secrets{APIKey: "abc"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.secrets.Check()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Check() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() error = %v, want %v", err, tt.wantErr)
			}
			if !IsConfigurationError(err) {
				t.Errorf("Expected IsConfigurationError to be true for %v", err)
			}
		})
	}
}
