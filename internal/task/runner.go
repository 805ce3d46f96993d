package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lamim/dialprobe/internal/api"
	"github.com/lamim/dialprobe/internal/config"
	"github.com/lamim/dialprobe/pkg/models"
)

// Completer is the part of api.Client a run needs
type Completer interface {
	GetCompletion(ctx context.Context, messages []models.Message, params api.Params) ([]models.Message, error)
	Deployment() string
}

// ClientFactory returns a client bound to deployment
type ClientFactory func(deployment string) (Completer, error)

// Options override a task's defaults for one run
type Options struct {
	// Model defaults to the configured default deployment
	Model string
	// SystemPrompt replaces the configured prompt when non-nil; an empty string sends no system message
	SystemPrompt *string
	// UserMessage replaces the task's message when non-empty
	UserMessage string
	// Params are merged over the task defaults; caller values win
	Params api.Params
	// Omit removes parameters from the merged set
	Omit []string
}

// Runner executes tasks against the gateway
type Runner struct {
	cfg       *config.Config
	newClient ClientFactory
	logger    *slog.Logger
}

// NewRunner creates a runner. newClient is called once per run.
func NewRunner(cfg *config.Config, newClient ClientFactory, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:       cfg,
		newClient: newClient,
		logger:    logger,
	}
}

// Run sends the task's conversation once and collects every returned choice
func (r *Runner) Run(ctx context.Context, t Task, opts Options) (*models.RunResult, error) {
	model := opts.Model
	if model == "" {
		model = r.cfg.Dial.DefaultModel
	}

	client, err := r.newClient(model)
	if err != nil {
		return nil, err
	}

	systemPrompt := r.cfg.Dial.SystemPrompt
	if opts.SystemPrompt != nil {
		systemPrompt = *opts.SystemPrompt
	}
	userMessage := t.UserMessage
	if opts.UserMessage != "" {
		userMessage = opts.UserMessage
	}
	if userMessage == "" {
		return nil, &api.Error{Kind: api.KindInvalidInput, Op: "run task", Message: "user message must not be empty"}
	}

	params := t.Params.Merge(opts.Params)
	for _, name := range opts.Omit {
		delete(params, name)
	}

	conv := models.NewConversationWith(systemPrompt, userMessage)
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID, "task", t.Name, "deployment", client.Deployment())
	logger.Debug("Running task", "params", params)

	start := time.Now()
	messages, err := client.GetCompletion(ctx, conv.Messages(), params)
	duration := time.Since(start)
	if err != nil {
		logger.Error("Task failed", "kind", api.KindOf(err).String(), "error", err)
		return nil, fmt.Errorf("task %s on %s: %w", t.Name, client.Deployment(), err)
	}

	choices := make([]models.ChoiceRecord, 0, len(messages))
	for i, m := range messages {
		choices = append(choices, models.ChoiceRecord{Index: i, Role: m.Role, Content: m.Content})
	}

	logger.Info("Task completed", "choices", len(choices), "duration", duration)

	return &models.RunResult{
		RunID:     runID,
		Task:      t.Name,
		Model:     client.Deployment(),
		N:         len(choices),
		Params:    params,
		Choices:   choices,
		StartedAt: start,
		Duration:  duration,
	}, nil
}

// RunTopPComparison asks the top_p question three times: with top_p 0.1, with 0.9, and
// without top_p. Each entry of the result holds the first choice as "response".
func (r *Runner) RunTopPComparison(ctx context.Context, opts Options) ([]map[string]string, error) {
	t, _ := Lookup(TopP)

	variants := []struct {
		params api.Params
		omit   []string
	}{
		{params: api.Params{"top_p": 0.1}},
		{params: api.Params{"top_p": 0.9}},
		{omit: []string{"top_p"}},
	}

	out := make([]map[string]string, 0, len(variants))
	for _, v := range variants {
		runOpts := opts
		runOpts.Params = opts.Params.Merge(v.params)
		runOpts.Omit = append(append([]string(nil), opts.Omit...), v.omit...)

		res, err := r.Run(ctx, t, runOpts)
		if err != nil {
			return nil, err
		}
		out = append(out, map[string]string{"response": res.Content()})
	}
	return out, nil
}
