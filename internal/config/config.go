package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ModelPlaceholder is substituted with the deployment name in the endpoint template
const ModelPlaceholder = "{model}"

var (
	// ErrInvalidConfig marks configuration that failed to decode or validate
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrMissingAPIKey is returned when DIAL_API_KEY is unset or empty
	ErrMissingAPIKey = errors.New("API key is not set")
	// ErrPlaceholderAPIKey is returned when DIAL_API_KEY still holds the sample value
	ErrPlaceholderAPIKey = errors.New("API key is a placeholder")
)

// Config represents the complete application configuration
type Config struct {
	Dial   DialConfig   `toml:"dial"`
	Output OutputConfig `toml:"output"`
	Sweep  SweepConfig  `toml:"sweep"`
}

// DialConfig describes the gateway being exercised
type DialConfig struct {
	// Endpoint is the chat completions URL; {model} is replaced by the deployment name
	Endpoint string `toml:"endpoint" validate:"required,max=2048"`
	// ModelsURL is optional and derived from Endpoint when empty
	ModelsURL      string `toml:"models_url" validate:"omitempty,url"`
	DefaultModel   string `toml:"default_model" validate:"required,max=100"`
	SystemPrompt   string `toml:"system_prompt" validate:"max=51200"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=1,lte=600"`
}

// OutputConfig controls where results are written
type OutputConfig struct {
	Dir         string `toml:"dir" validate:"required"`
	ResultsFile string `toml:"results_file" validate:"required"`
}

// SweepConfig holds parameter sweep settings
type SweepConfig struct {
	Models []string `toml:"models" validate:"dive,required,max=100"`
}

// Secrets holds sensitive credentials loaded from environment variables
type Secrets struct {
	APIKey string
}

const (
	// APIKeyEnvVar is the environment variable holding the gateway key
	APIKeyEnvVar = "DIAL_API_KEY"
	// PlaceholderAPIKey is the sample value shipped in example env files
	PlaceholderAPIKey = "your_api_key_here"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report TOML key names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			if fe.Param() != "" {
				return fmt.Errorf("%w: %s failed '%s=%s' check (got %v)", ErrInvalidConfig, field, fe.Tag(), fe.Param(), fe.Value())
			}
			return fmt.Errorf("%w: %s failed '%s' check", ErrInvalidConfig, field, fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := validateEndpoint(c.Dial.Endpoint); err != nil {
		return fmt.Errorf("%w: dial.endpoint %v", ErrInvalidConfig, err)
	}
	if containsControlChars(c.Dial.DefaultModel) {
		return fmt.Errorf("%w: dial.default_model contains invalid control characters", ErrInvalidConfig)
	}
	for _, m := range c.Sweep.Models {
		if containsControlChars(m) {
			return fmt.Errorf("%w: sweep.models entry %q contains invalid control characters", ErrInvalidConfig, m)
		}
	}
	return nil
}

// EndpointFor returns the chat completions URL for a deployment.
// Templates without a {model} placeholder are returned unchanged.
func (d DialConfig) EndpointFor(deployment string) string {
	return strings.ReplaceAll(d.Endpoint, ModelPlaceholder, url.PathEscape(deployment))
}

// ResolveModelsURL returns models_url or derives <scheme>://<host>/openai/models from the endpoint
func (d DialConfig) ResolveModelsURL() (string, error) {
	if d.ModelsURL != "" {
		return d.ModelsURL, nil
	}
	u, err := url.Parse(d.EndpointFor("model"))
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no scheme or host", d.Endpoint)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/openai/models"}).String(), nil
}

// Timeout returns the per-request timeout
func (d DialConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// LoadSecrets loads the gateway key, reading envFile first when it exists.
// Variables already present in the environment take precedence over the file.
func LoadSecrets(envFile string) (*Secrets, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	return &Secrets{APIKey: strings.TrimSpace(os.Getenv(APIKeyEnvVar))}, nil
}

// Check reports whether the key is usable
func (s *Secrets) Check() error {
	if s == nil || s.APIKey == "" {
		return fmt.Errorf("%w: set %s", ErrMissingAPIKey, APIKeyEnvVar)
	}
	if s.APIKey == PlaceholderAPIKey {
		return fmt.Errorf("%w: replace the sample value in %s", ErrPlaceholderAPIKey, APIKeyEnvVar)
	}
	return nil
}

// IsConfigurationError reports whether err is a missing or placeholder credential
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrPlaceholderAPIKey)
}
