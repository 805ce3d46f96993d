package checkpoint

import (
	"fmt"

	"github.com/lamim/dialprobe/pkg/models"
)

// ValidateCheckpoint verifies the checkpoint belongs to the same task and case plan
func ValidateCheckpoint(cp *models.SweepCheckpoint, task string, cases []models.SweepCase) error {
	if cp.Task != task {
		return fmt.Errorf("checkpoint is for task %q, not %q", cp.Task, task)
	}

	expectedHash := PlanHash(task, cases)
	if cp.PlanHash != expectedHash {
		return fmt.Errorf("checkpoint plan mismatch: deployments or grid changed (hash: %s vs %s)", cp.PlanHash, expectedHash)
	}

	if cp.Complete {
		return fmt.Errorf("checkpoint is already complete, nothing to resume")
	}
	if len(cp.Results) > len(cp.Cases) {
		return fmt.Errorf("checkpoint is corrupt: %d results for %d cases", len(cp.Results), len(cp.Cases))
	}

	return nil
}

// PendingCases returns the planned cases that still need to run.
// planned must be the plan the checkpoint was validated against.
func PendingCases(cp *models.SweepCheckpoint, planned []models.SweepCase) []models.SweepCase {
	if len(cp.Results) >= len(planned) {
		return nil
	}
	return planned[len(cp.Results):]
}

// ProgressPercentage returns completion percentage
func ProgressPercentage(cp *models.SweepCheckpoint) float64 {
	if len(cp.Cases) == 0 {
		return 0.0
	}
	return float64(len(cp.Results)) / float64(len(cp.Cases)) * 100.0
}
