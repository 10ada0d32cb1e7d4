package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/infrastructure"
)

// Runner executes registered steps in sequence.
type Runner struct {
	registry *Registry
	env      *Env
	tracer   *StageTracer
	logger   *slog.Logger
}

// NewRunner creates a runner. Nil metrics record nothing.
func NewRunner(env *Env, registry *Registry, metrics *infrastructure.PipelineMetrics) *Runner {
	return &Runner{
		registry: registry,
		env:      env,
		tracer:   NewStageTracer(metrics),
		logger:   infrastructure.WithComponent(env.Logger, "pipeline"),
	}
}

// Run executes the selected stages and saves the run manifest after every
// stage. The first failing stage stops the run; its error is returned
// together with the manifest recorded so far.
func (r *Runner) Run(ctx context.Context, ids ...string) (*RunManifest, error) {
	steps, err := r.registry.Resolve(ids...)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{r.env.Paths.DocsDir, r.env.Paths.NormalDir, r.env.Paths.OutputDir} {
		if err := r.env.Files.ValidateOutputDirectory(dir); err != nil {
			return nil, apperrors.NewStorageError("output directory unusable", err).WithContext("dir", dir)
		}
	}

	selected := make([]string, len(steps))
	for i, s := range steps {
		selected[i] = s.ID()
	}

	manifest := NewRunManifest(uuid.NewString(), selected)
	ctx = infrastructure.WithTraceID(ctx, manifest.ID)
	ctx, runSpan := r.tracer.TraceRun(ctx, manifest.ID, selected)
	defer runSpan.End()

	r.logger.InfoContext(ctx, "pipeline run started",
		slog.String("run_id", manifest.ID),
		slog.Any("stages", selected))

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return manifest, r.fail(ctx, manifest, step.ID(), err)
		}
		if err := r.runStep(ctx, manifest, step); err != nil {
			runSpan.SetStatus(codes.Error, err.Error())
			return manifest, err
		}
	}

	manifest.Complete()
	if err := manifest.SaveToFile(r.env.Paths.RunManifestJSON); err != nil {
		return manifest, err
	}
	r.logger.InfoContext(ctx, "pipeline run completed",
		slog.String("run_id", manifest.ID),
		slog.Int("stages", len(steps)))
	return manifest, nil
}

func (r *Runner) runStep(ctx context.Context, manifest *RunManifest, step Step) error {
	manifest.RecordStageStart(step.ID(), step.Name())
	ctx, span := r.tracer.TraceStage(ctx, manifest.ID, step.ID())
	defer span.End()

	start := time.Now()
	result, err := r.execute(ctx, step)
	duration := time.Since(start)
	r.tracer.RecordStage(ctx, span, step.ID(), duration, result, err)

	if err != nil {
		return r.fail(ctx, manifest, step.ID(), err)
	}

	manifest.RecordStageCompletion(step.ID(), result)
	if err := manifest.SaveToFile(r.env.Paths.RunManifestJSON); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "stage completed",
		slog.String("stage", step.ID()),
		slog.Duration("duration", duration),
		slog.Int("rows_in", result.RowsIn),
		slog.Int("rows_out", result.RowsOut),
		slog.Int("outputs", len(result.Outputs)))
	return nil
}

func (r *Runner) execute(ctx context.Context, step Step) (*StepResult, error) {
	if err := r.env.Files.RequireArtifacts(step.RequiredInputs(r.env)...); err != nil {
		return nil, err
	}
	result, err := step.Execute(ctx, r.env)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &StepResult{}
	}
	return result, nil
}

func (r *Runner) fail(ctx context.Context, manifest *RunManifest, stageID string, err error) error {
	manifest.RecordStageFailure(stageID, err)
	if saveErr := manifest.SaveToFile(r.env.Paths.RunManifestJSON); saveErr != nil {
		r.logger.WarnContext(ctx, "failed to save run manifest", slog.String("error", saveErr.Error()))
	}
	r.logger.ErrorContext(ctx, "stage failed",
		slog.String("stage", stageID),
		slog.String("error", err.Error()))
	return fmt.Errorf("stage %s: %w", stageID, err)
}
