package sweep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lamim/dialprobe/internal/api"
	"github.com/lamim/dialprobe/internal/task"
	"github.com/lamim/dialprobe/pkg/models"
	"github.com/schollz/progressbar/v3"
)

// CaseRecorder receives one event per finished case
type CaseRecorder interface {
	RecordSweepCase(task string, success bool)
}

// Checkpointer persists every finished case
type Checkpointer interface {
	RecordResult(result models.SweepResult) error
}

// Runner executes sweep cases one after another
type Runner struct {
	tasks      *task.Runner
	recorder   CaseRecorder
	checkpoint Checkpointer
	progress   io.Writer
	logger     *slog.Logger
}

// NewRunner creates a sweep runner on top of a task runner
func NewRunner(tasks *task.Runner, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		tasks:  tasks,
		logger: logger,
	}
}

// SetRecorder attaches a case recorder
func (r *Runner) SetRecorder(rec CaseRecorder) {
	r.recorder = rec
}

// SetCheckpointer attaches a checkpoint writer
func (r *Runner) SetCheckpointer(cp Checkpointer) {
	r.checkpoint = cp
}

// SetProgressOutput redirects the progress bar; by default it goes to stdout
func (r *Runner) SetProgressOutput(w io.Writer) {
	r.progress = w
}

// Run executes every case sequentially. A failing case is recorded and the sweep continues.
// The returned error is non-nil only when ctx is cancelled; the partial summary is still returned.
func (r *Runner) Run(ctx context.Context, t task.Task, cases []models.SweepCase) (*models.SweepSummary, error) {
	summary := &models.SweepSummary{
		SweepID:    uuid.NewString(),
		Task:       t.Name,
		StartTime:  time.Now(),
		TotalCases: len(cases),
		Results:    make([]models.SweepResult, 0, len(cases)),
	}
	return r.run(ctx, t, summary, cases)
}

// Resume continues a checkpointed sweep. pending are the cases not yet in cp.Results.
func (r *Runner) Resume(ctx context.Context, t task.Task, cp *models.SweepCheckpoint, pending []models.SweepCase) (*models.SweepSummary, error) {
	summary := &models.SweepSummary{
		SweepID:    cp.SweepID,
		Task:       t.Name,
		StartTime:  cp.CreatedAt,
		TotalCases: len(cp.Results) + len(pending),
		Results:    append(make([]models.SweepResult, 0, len(cp.Results)+len(pending)), cp.Results...),
	}
	for _, res := range cp.Results {
		if res.Success {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
		}
	}
	return r.run(ctx, t, summary, pending)
}

func (r *Runner) run(ctx context.Context, t task.Task, summary *models.SweepSummary, cases []models.SweepCase) (*models.SweepSummary, error) {
	logger := r.logger.With("sweep_id", summary.SweepID, "task", t.Name)
	logger.Info("Starting sweep", "cases", len(cases), "already_done", len(summary.Results))

	bar := r.newBar(len(cases), "Sweeping "+t.Name)

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			summary.EndTime = time.Now()
			logger.Warn("Sweep cancelled", "completed", len(summary.Results))
			return summary, err
		}

		result := r.runCase(ctx, t, c)
		summary.Results = append(summary.Results, result)
		if result.Success {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
			logger.Warn("Case failed",
				"deployment", c.Model,
				"param", c.Param,
				"value", c.Value,
				"kind", result.ErrorKind,
				"error", result.Error)
		}

		if r.recorder != nil {
			r.recorder.RecordSweepCase(t.Name, result.Success)
		}
		if r.checkpoint != nil {
			if err := r.checkpoint.RecordResult(result); err != nil {
				logger.Error("Failed to checkpoint case", "error", err)
			}
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	summary.EndTime = time.Now()
	logger.Info("Sweep finished",
		"succeeded", summary.SuccessCount,
		"failed", summary.FailureCount,
		"duration", summary.EndTime.Sub(summary.StartTime))

	return summary, nil
}

func (r *Runner) runCase(ctx context.Context, t task.Task, c models.SweepCase) models.SweepResult {
	opts := task.Options{Model: c.Model}
	if c.Param != "" {
		if c.Value == nil {
			opts.Omit = []string{c.Param}
		} else {
			opts.Params = api.Params{c.Param: c.Value}
		}
	}

	start := time.Now()
	res, err := r.tasks.Run(ctx, t, opts)
	result := models.SweepResult{Case: c, Duration: time.Since(start)}

	if err == nil {
		err = checkChoiceCount(t, opts, res)
	}
	if err != nil {
		result.ErrorKind = api.KindOf(err).String()
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Result = res
	return result
}

// checkChoiceCount verifies that a successful run returned exactly n choices
func checkChoiceCount(t task.Task, opts task.Options, res *models.RunResult) error {
	params := t.Params.Merge(opts.Params)
	for _, name := range opts.Omit {
		delete(params, name)
	}
	want, ok := params.N()
	if !ok {
		want = 1
	}
	if res.N != want || len(res.Choices) != want {
		return &api.Error{
			Kind:    api.KindEmptyResponse,
			Op:      "sweep case",
			Message: fmt.Sprintf("expected %d choices, got %d", want, len(res.Choices)),
		}
	}
	return nil
}

func (r *Runner) newBar(total int, description string) *progressbar.ProgressBar {
	if r.progress == nil {
		return progressbar.Default(int64(total), description)
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
	)
}
