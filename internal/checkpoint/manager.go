package checkpoint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lamim/dialprobe/internal/writer"
	"github.com/lamim/dialprobe/pkg/models"
)

// CheckpointFilename is the checkpoint file name inside a session directory
const CheckpointFilename = "sweep_checkpoint.json"

// Manager persists sweep progress after every finished case.
// Writes happen on a background goroutine so the next request is not delayed.
type Manager struct {
	sessionDir string
	checkpoint *models.SweepCheckpoint
	mu         sync.Mutex
	logger     *slog.Logger

	writeChan   chan *models.SweepCheckpoint
	writeWg     sync.WaitGroup
	writerError error
	errorMu     sync.Mutex
}

// NewManager starts a checkpoint for a freshly planned sweep
func NewManager(sessionDir, task string, cases []models.SweepCase, logger *slog.Logger) *Manager {
	return newManager(sessionDir, &models.SweepCheckpoint{
		SweepID:   uuid.NewString(),
		Task:      task,
		CreatedAt: time.Now(),
		PlanHash:  PlanHash(task, cases),
		Cases:     append([]models.SweepCase(nil), cases...),
		Results:   make([]models.SweepResult, 0, len(cases)),
	}, logger)
}

// NewManagerFromCheckpoint continues an existing checkpoint
func NewManagerFromCheckpoint(sessionDir string, cp *models.SweepCheckpoint, logger *slog.Logger) *Manager {
	return newManager(sessionDir, cp, logger)
}

func newManager(sessionDir string, cp *models.SweepCheckpoint, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		sessionDir: sessionDir,
		checkpoint: cp,
		logger:     logger,
		writeChan:  make(chan *models.SweepCheckpoint, 10), // Buffer up to 10 pending writes
	}
	m.startAsyncWriter()
	return m
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return filepath.Join(m.sessionDir, CheckpointFilename)
}

func (m *Manager) startAsyncWriter() {
	m.writeWg.Add(1)
	go func() {
		defer m.writeWg.Done()
		for cp := range m.writeChan {
			if err := m.writeToDisk(cp); err != nil {
				m.errorMu.Lock()
				m.writerError = err
				m.errorMu.Unlock()
				m.logger.Error("Failed to write checkpoint", "error", err)
			}
		}
	}()
}

func (m *Manager) writeToDisk(cp *models.SweepCheckpoint) error {
	if err := writer.SaveJSON(m.Path(), cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	m.logger.Debug("Checkpoint saved", "path", m.Path(), "completed", len(cp.Results))
	return nil
}

// RecordResult appends a finished case and queues a write
func (m *Manager) RecordResult(result models.SweepResult) error {
	m.mu.Lock()
	m.checkpoint.Results = append(m.checkpoint.Results, result)
	m.checkpoint.LastSavedAt = time.Now()
	cpCopy := m.copyCheckpoint()

	// Snapshots reach the writer in order; a full buffer blocks until it catches up.
	if m.writeChan != nil {
		m.writeChan <- cpCopy
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	return m.writeToDisk(cpCopy)
}

// MarkComplete flags the sweep as finished, stops the writer and writes the final state
func (m *Manager) MarkComplete() error {
	m.mu.Lock()
	m.checkpoint.Complete = true
	m.checkpoint.LastSavedAt = time.Now()
	cpCopy := m.copyCheckpoint()
	m.mu.Unlock()

	if err := m.Close(); err != nil {
		return err
	}
	return m.writeToDisk(cpCopy)
}

// Checkpoint returns a copy of the current state
func (m *Manager) Checkpoint() *models.SweepCheckpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyCheckpoint()
}

func (m *Manager) copyCheckpoint() *models.SweepCheckpoint {
	cp := *m.checkpoint
	cp.Cases = append([]models.SweepCase(nil), m.checkpoint.Cases...)
	cp.Results = append([]models.SweepResult(nil), m.checkpoint.Results...)
	return &cp
}

// Close drains pending writes and reports the last write error. It is safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.writeChan != nil {
		close(m.writeChan)
		m.writeChan = nil
	}
	m.mu.Unlock()
	m.writeWg.Wait()

	m.errorMu.Lock()
	defer m.errorMu.Unlock()
	return m.writerError
}

// Load reads a checkpoint from a session directory
func Load(sessionDir string, logger *slog.Logger) (*models.SweepCheckpoint, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, CheckpointFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp models.SweepCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	logger.Info("Checkpoint loaded",
		"sweep_id", cp.SweepID,
		"task", cp.Task,
		"completed", len(cp.Results),
		"total", len(cp.Cases))

	return &cp, nil
}

// PlanHash fingerprints a task and its case list
func PlanHash(task string, cases []models.SweepCase) string {
	data, err := json.Marshal(struct {
		Task  string             `json:"task"`
		Cases []models.SweepCase `json:"cases"`
	}{task, cases})
	if err != nil {
		data = []byte(task)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8]) // First 8 bytes
}
