package config

const (
	// DefaultEndpoint is the DIAL chat completions template
	DefaultEndpoint = "https://ai-proxy.lab.epam.com/openai/deployments/{model}/chat/completions"
	// DefaultModel is the deployment used when none is configured
	DefaultModel = "gpt-4o"
	// DefaultSystemPrompt is the baseline system turn for every task
	DefaultSystemPrompt = "You are an assistant who answers concisely and informatively."
	// DefaultTimeoutSeconds matches the gateway's typical request budget
	DefaultTimeoutSeconds = 60
	// DefaultOutputDir is where session directories are created
	DefaultOutputDir = "output"
	// DefaultResultsFile is the JSON dump written by save operations
	DefaultResultsFile = "additional_parameters_results.json"
)

// DefaultSweepModels returns the deployments compared by model sweeps
func DefaultSweepModels() []string {
	return []string{
		"gpt-4o",
		"claude-3-5-haiku@20241022",
		"gemini-2.0-flash",
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Dial.Endpoint == "" {
		cfg.Dial.Endpoint = DefaultEndpoint
	}
	if cfg.Dial.DefaultModel == "" {
		cfg.Dial.DefaultModel = DefaultModel
	}
	if cfg.Dial.SystemPrompt == "" {
		cfg.Dial.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Dial.TimeoutSeconds == 0 {
		cfg.Dial.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Output.ResultsFile == "" {
		cfg.Output.ResultsFile = DefaultResultsFile
	}

	if len(cfg.Sweep.Models) == 0 {
		cfg.Sweep.Models = DefaultSweepModels()
	}
}
