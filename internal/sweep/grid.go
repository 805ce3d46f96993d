package sweep

import (
	"fmt"

	"github.com/lamim/dialprobe/internal/task"
	"github.com/lamim/dialprobe/pkg/models"
)

// grids lists the values exercised per task. A nil value omits the parameter.
var grids = map[string][]any{
	"n":                 {1, 2, 3},
	"temperature":       {0.0, 1.0, 2.0},
	"seed":              {42, 123, 1000, nil},
	"max_tokens":        {10, 50, 100, 200},
	"frequency_penalty": {-2.0, -1.0, 0.0, 1.0, 2.0},
	"presence_penalty":  {-2.0, -1.0, 0.0, 1.0, 2.0},
	"stop":              {"\n\n", ".", "LLM", []string{"\n\n", "architecture"}},
	"top_p":             {-1.0, 0.1, 1.0},
}

// Values returns the grid for a task. The models task has no parameter axis.
func Values(taskName string) (param string, values []any, err error) {
	if taskName == "models" {
		return "", nil, nil
	}
	values, ok := grids[taskName]
	if !ok {
		return "", nil, fmt.Errorf("no sweep grid for task %q", taskName)
	}
	return taskName, values, nil
}

// Plan builds the cartesian product of deployments and grid values, model-major
func Plan(t task.Task, deployments []string) ([]models.SweepCase, error) {
	if len(deployments) == 0 {
		return nil, fmt.Errorf("at least one deployment is required")
	}

	param, values, err := Values(t.Name)
	if err != nil {
		return nil, err
	}

	var cases []models.SweepCase
	for _, model := range deployments {
		if param == "" {
			cases = append(cases, models.SweepCase{Task: t.Name, Model: model})
			continue
		}
		for _, v := range values {
			cases = append(cases, models.SweepCase{Task: t.Name, Model: model, Param: param, Value: v})
		}
	}
	return cases, nil
}
