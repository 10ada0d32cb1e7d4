package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStep struct {
	BaseStage
	inputs []string
	result *StepResult
	err    error
	calls  int
}

func newFakeStep(id string) *fakeStep {
	return &fakeStep{BaseStage: NewBaseStage(id, "Fake "+id)}
}

func (f *fakeStep) RequiredInputs(*Env) []string { return f.inputs }

func (f *fakeStep) Execute(context.Context, *Env) (*StepResult, error) {
	f.calls++
	return f.result, f.err
}

func TestRegistryRegister(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{name: "valid step", step: newFakeStep("extract")},
		{name: "nil step", step: nil, wantErr: "nil step"},
		{name: "empty id", step: newFakeStep(""), wantErr: "cannot be empty"},
		{name: "reserved id", step: newFakeStep(StageAll), wantErr: "reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.step)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeStep("extract")))
	assert.Error(t, r.Register(newFakeStep("extract")))
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Register(newFakeStep(id)))
	}

	ids := func(steps []Step) []string {
		out := make([]string, len(steps))
		for i, s := range steps {
			out[i] = s.ID()
		}
		return out
	}

	tests := []struct {
		name    string
		ids     []string
		want    []string
		wantErr bool
	}{
		{name: "no ids selects all", want: []string{"a", "b", "c"}},
		{name: "all keyword", ids: []string{StageAll}, want: []string{"a", "b", "c"}},
		{name: "single stage", ids: []string{"b"}, want: []string{"b"}},
		{name: "given order", ids: []string{"c", "a"}, want: []string{"c", "a"}},
		{name: "unknown stage", ids: []string{"x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := r.Resolve(tt.ids...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(steps))
		})
	}
}

func TestDefaultRegistryOrder(t *testing.T) {
	assert.Equal(t,
		[]string{StageExtract, StageConsolidate, StageValidate, StageEnrich, StageAggregate},
		DefaultRegistry().ListIDs())
}
