package models

import "time"

// ChoiceRecord is one returned completion in a run result
type ChoiceRecord struct {
	Index   int    `json:"index"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RunResult is the outcome of a single task invocation
type RunResult struct {
	RunID     string         `json:"run_id"`
	Task      string         `json:"task"`
	Model     string         `json:"model"`
	N         int            `json:"n"`
	Params    map[string]any `json:"params,omitempty"`
	Choices   []ChoiceRecord `json:"choices"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// Content returns the first choice's content, or "" when there are none
func (r *RunResult) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Content
}

// SweepCase is one cell of a parameter grid
type SweepCase struct {
	Task  string `json:"task"`
	Model string `json:"model"`
	// Param is the exercised parameter name; empty for the model-only axis
	Param string `json:"param,omitempty"`
	// Value is nil when the parameter is omitted from the request
	Value any `json:"value"`
}

// SweepResult records what happened for one case
type SweepResult struct {
	Case      SweepCase     `json:"case"`
	Success   bool          `json:"success"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Result    *RunResult    `json:"result,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// SweepSummary tracks statistics for a sweep
type SweepSummary struct {
	SweepID      string        `json:"sweep_id"`
	Task         string        `json:"task"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	TotalCases   int           `json:"total_cases"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Results      []SweepResult `json:"results"`
}

// SweepCheckpoint is the persisted progress of a sweep. Results holds the finished
// cases in plan order, so the pending cases are Cases[len(Results):].
type SweepCheckpoint struct {
	SweepID     string        `json:"sweep_id"`
	Task        string        `json:"task"`
	CreatedAt   time.Time     `json:"created_at"`
	LastSavedAt time.Time     `json:"last_saved_at"`
	PlanHash    string        `json:"plan_hash"`
	Complete    bool          `json:"complete"`
	Cases       []SweepCase   `json:"cases"`
	Results     []SweepResult `json:"results"`
}
