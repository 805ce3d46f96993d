package task

import (
	"github.com/lamim/dialprobe/internal/api"
)

// Task is a named exercise of one request parameter
type Task struct {
	Name        string
	Description string
	UserMessage string
	// Params are the defaults sent with the task; callers may override them
	Params api.Params
}

// TopP is the task used by the top_p comparison
const TopP = "top_p"

var registry = []Task{
	{
		Name:        "models",
		Description: "ask the same question to different deployments",
		UserMessage: "What LLMs can do?",
	},
	{
		Name:        "n",
		Description: "request several choices in one call",
		UserMessage: "Why is the snow white?",
		Params:      api.Params{"n": 2},
	},
	{
		Name:        "temperature",
		Description: "vary sampling temperature",
		UserMessage: "Describe the sound that the color purple makes when it's angry",
		Params:      api.Params{"temperature": 1.0},
	},
	{
		Name:        "seed",
		Description: "compare choices produced with a fixed seed",
		UserMessage: "Name a random animal",
		Params:      api.Params{"seed": 42, "n": 5},
	},
	{
		Name:        "max_tokens",
		Description: "cap the completion length",
		UserMessage: "What is token when we are working with LLM?",
		Params:      api.Params{"max_tokens": 1},
	},
	{
		Name:        "frequency_penalty",
		Description: "penalize frequently repeated tokens",
		UserMessage: "Explain the water cycle in simple terms for children",
		Params:      api.Params{"frequency_penalty": 0.0},
	},
	{
		Name:        "presence_penalty",
		Description: "penalize tokens that already appeared",
		UserMessage: "What is an entropy in LLM's responses?",
		Params:      api.Params{"presence_penalty": 0.0},
	},
	{
		Name:        "stop",
		Description: "end generation at stop sequences",
		UserMessage: "Explain the key components of a Large Language Model architecture",
		Params:      api.Params{"stop": []string{"\n\n", "architecture"}},
	},
	{
		Name:        TopP,
		Description: "nucleus sampling with top_p",
		UserMessage: "Explain the key components of parameter top_p for LLM. Keep your response brief but informative.",
		Params:      api.Params{"temperature": 0.7, "top_p": 1.0},
	},
}

// All returns every registered task in registry order
func All() []Task {
	out := make([]Task, len(registry))
	for i, t := range registry {
		out[i] = t.clone()
	}
	return out
}

// Names returns the registered task names in registry order
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, t := range registry {
		names = append(names, t.Name)
	}
	return names
}

// Lookup finds a task by name
func Lookup(name string) (Task, bool) {
	for _, t := range registry {
		if t.Name == name {
			return t.clone(), true
		}
	}
	return Task{}, false
}

// Adhoc wraps a free-form user message with no default params
func Adhoc(message string) Task {
	return Task{Name: "complete", UserMessage: message}
}

func (t Task) clone() Task {
	t.Params = t.Params.Clone()
	return t
}
