package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"claimsledger/internal/exporter"
)

// Run and stage statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunManifest records every stage execution of one run.
type RunManifest struct {
	mu sync.RWMutex `json:"-"`

	ID          string           `json:"id"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     *time.Time       `json:"end_time,omitempty"`
	Requested   []string         `json:"requested_stages"`
	Stages      []StageExecution `json:"stages"`
	Status      string           `json:"status"`
	LastUpdated time.Time        `json:"last_updated"`
	Error       string           `json:"error,omitempty"`
}

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	StageID   string                 `json:"stage_id"`
	StageName string                 `json:"stage_name"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Duration  string                 `json:"duration"`
	Status    string                 `json:"status"`
	RowsIn    int                    `json:"rows_in"`
	RowsOut   int                    `json:"rows_out"`
	Outputs   []string               `json:"outputs"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewRunManifest creates a manifest for a run.
func NewRunManifest(id string, requested []string) *RunManifest {
	now := time.Now()
	return &RunManifest{
		ID:          id,
		StartTime:   now,
		Requested:   requested,
		Stages:      []StageExecution{},
		Status:      StatusRunning,
		LastUpdated: now,
	}
}

// RecordStageStart records the start of a stage execution
func (m *RunManifest) RecordStageStart(stageID, stageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Stages = append(m.Stages, StageExecution{
		StageID:   stageID,
		StageName: stageName,
		StartTime: time.Now(),
		Status:    StatusRunning,
	})
	m.LastUpdated = time.Now()
}

// RecordStageCompletion records the completion of the latest execution of stageID.
func (m *RunManifest) RecordStageCompletion(stageID string, result *StepResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.latest(stageID); s != nil {
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = StatusCompleted
		if result != nil {
			s.RowsIn = result.RowsIn
			s.RowsOut = result.RowsOut
			s.Outputs = result.Outputs
			s.Metadata = result.Metadata
		}
	}
	m.LastUpdated = time.Now()
}

// RecordStageFailure records a stage failure and fails the run.
func (m *RunManifest) RecordStageFailure(stageID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if s := m.latest(stageID); s != nil {
		s.EndTime = now
		s.Duration = now.Sub(s.StartTime).String()
		s.Status = StatusFailed
		s.Error = err.Error()
	}
	m.Status = StatusFailed
	m.Error = fmt.Sprintf("stage %s failed: %v", stageID, err)
	m.EndTime = &now
	m.LastUpdated = now
}

// Complete marks the run as completed.
func (m *RunManifest) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.Status = StatusCompleted
	m.EndTime = &now
	m.LastUpdated = now
}

// IsStageCompleted checks if a stage has been completed
func (m *RunManifest) IsStageCompleted(stageID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, stage := range m.Stages {
		if stage.StageID == stageID && stage.Status == StatusCompleted {
			return true
		}
	}
	return false
}

// Executions returns a copy of the recorded executions.
func (m *RunManifest) Executions() []StageExecution {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]StageExecution(nil), m.Stages...)
}

func (m *RunManifest) latest(stageID string) *StageExecution {
	for i := len(m.Stages) - 1; i >= 0; i-- {
		if m.Stages[i].StageID == stageID {
			return &m.Stages[i]
		}
	}
	return nil
}

// SaveToFile writes the manifest as indented JSON, replacing path atomically.
func (m *RunManifest) SaveToFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := exporter.WriteJSON(path, m); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadRunManifest loads a manifest from a JSON file
func LoadRunManifest(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}
