package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsledger/internal/config"
	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/testutil"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	logger, _ := testutil.NewTestLogger(t)
	return NewEnv(config.Default(), paths, logger)
}

func TestRunnerRunsStepsInOrder(t *testing.T) {
	env := newTestEnv(t)
	first := newFakeStep("first")
	first.result = &StepResult{RowsIn: 2, RowsOut: 2, Outputs: []string{"x"}, Diagnostics: map[string]int{"valor_invalido": 1}}
	second := newFakeStep("second")

	r := NewRegistry()
	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second))

	manifest, err := NewRunner(env, r, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, StatusCompleted, manifest.Status)
	assert.NotEmpty(t, manifest.ID)
	assert.Equal(t, []string{"first", "second"}, manifest.Requested)
	assert.True(t, manifest.IsStageCompleted("first"))
	assert.True(t, manifest.IsStageCompleted("second"))

	saved, err := LoadRunManifest(env.Paths.RunManifestJSON)
	require.NoError(t, err)
	assert.Equal(t, manifest.ID, saved.ID)
	assert.Equal(t, StatusCompleted, saved.Status)
	assert.Equal(t, 2, saved.Stages[0].RowsOut)
}

func TestRunnerStopsOnFailure(t *testing.T) {
	env := newTestEnv(t)
	failing := newFakeStep("failing")
	failing.err = errors.New("boom")
	after := newFakeStep("after")

	r := NewRegistry()
	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(after))

	manifest, err := NewRunner(env, r, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage failing")
	assert.Zero(t, after.calls)
	assert.Equal(t, StatusFailed, manifest.Status)

	saved, err := LoadRunManifest(env.Paths.RunManifestJSON)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, saved.Status)
	require.Len(t, saved.Stages, 1)
	assert.Equal(t, "boom", saved.Stages[0].Error)
}

func TestRunnerChecksRequiredInputs(t *testing.T) {
	env := newTestEnv(t)
	step := newFakeStep("needs")
	step.inputs = []string{env.Paths.ConsolidatedCSV}

	r := NewRegistry()
	require.NoError(t, r.Register(step))

	_, err := NewRunner(env, r, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	assert.Zero(t, step.calls)
}

func TestRunnerSelectsStages(t *testing.T) {
	env := newTestEnv(t)
	a, b := newFakeStep("a"), newFakeStep("b")
	r := NewRegistry()
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	_, err := NewRunner(env, r, nil).Run(context.Background(), "b")
	require.NoError(t, err)
	assert.Zero(t, a.calls)
	assert.Equal(t, 1, b.calls)

	_, err = NewRunner(env, r, nil).Run(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRunnerHonorsCancellation(t *testing.T) {
	env := newTestEnv(t)
	step := newFakeStep("a")
	r := NewRegistry()
	require.NoError(t, r.Register(step))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(env, r, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, step.calls)
}

func TestRunnerRejectsUnusableOutputDirectory(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.RemoveAll(env.Paths.OutputDir))
	require.NoError(t, os.WriteFile(env.Paths.OutputDir, []byte("not a directory"), 0644))
	step := newFakeStep("first")

	r := NewRegistry()
	require.NoError(t, r.Register(step))

	manifest, err := NewRunner(env, r, nil).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, manifest)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	assert.Zero(t, step.calls)
}
