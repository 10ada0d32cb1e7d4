package pipeline

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunManifest(t *testing.T) {
	t.Run("NewRunManifest", func(t *testing.T) {
		m := NewRunManifest("run-1", []string{StageExtract})
		assert.Equal(t, "run-1", m.ID)
		assert.Equal(t, StatusRunning, m.Status)
		assert.Empty(t, m.Stages)
		assert.Nil(t, m.EndTime)
	})

	t.Run("RecordStageCompletion", func(t *testing.T) {
		m := NewRunManifest("run-1", nil)
		m.RecordStageStart(StageExtract, "Expense Extraction")
		assert.False(t, m.IsStageCompleted(StageExtract))

		m.RecordStageCompletion(StageExtract, &StepResult{
			RowsIn:   3,
			RowsOut:  2,
			Outputs:  []string{"a.csv"},
			Metadata: map[string]interface{}{"periods": 1},
		})
		require.Len(t, m.Executions(), 1)
		s := m.Executions()[0]
		assert.Equal(t, StatusCompleted, s.Status)
		assert.Equal(t, 2, s.RowsOut)
		assert.Equal(t, []string{"a.csv"}, s.Outputs)
		assert.NotEmpty(t, s.Duration)
		assert.True(t, m.IsStageCompleted(StageExtract))
	})

	t.Run("RecordStageFailure", func(t *testing.T) {
		m := NewRunManifest("run-1", nil)
		m.RecordStageStart(StageConsolidate, "Consolidation")
		m.RecordStageFailure(StageConsolidate, errors.New("missing REG_ANS"))

		assert.Equal(t, StatusFailed, m.Status)
		assert.Equal(t, StatusFailed, m.Executions()[0].Status)
		assert.Equal(t, "missing REG_ANS", m.Executions()[0].Error)
		assert.Contains(t, m.Error, "consolidate")
		assert.NotNil(t, m.EndTime)
	})

	t.Run("latest execution wins", func(t *testing.T) {
		m := NewRunManifest("run-1", nil)
		m.RecordStageStart(StageExtract, "Expense Extraction")
		m.RecordStageFailure(StageExtract, errors.New("boom"))
		m.RecordStageStart(StageExtract, "Expense Extraction")
		m.RecordStageCompletion(StageExtract, nil)

		execs := m.Executions()
		require.Len(t, execs, 2)
		assert.Equal(t, StatusFailed, execs[0].Status)
		assert.Equal(t, StatusCompleted, execs[1].Status)
	})
}

func TestRunManifestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs", "pipeline_manifest.json")

	m := NewRunManifest("run-42", []string{StageValidate})
	m.RecordStageStart(StageValidate, "Row Validation")
	m.RecordStageCompletion(StageValidate, &StepResult{RowsIn: 5, RowsOut: 4})
	m.Complete()
	require.NoError(t, m.SaveToFile(path))

	loaded, err := LoadRunManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "run-42", loaded.ID)
	assert.Equal(t, StatusCompleted, loaded.Status)
	assert.Equal(t, []string{StageValidate}, loaded.Requested)
	require.Len(t, loaded.Stages, 1)
	assert.Equal(t, 5, loaded.Stages[0].RowsIn)

	_, err = LoadRunManifest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
