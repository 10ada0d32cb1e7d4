package pipeline

import (
	"context"
	"log/slog"

	"claimsledger/internal/config"
	"claimsledger/internal/exporter"
	"claimsledger/internal/validation"
)

// Stage identifiers in execution order.
const (
	StageExtract     = "extract"
	StageConsolidate = "consolidate"
	StageValidate    = "validate"
	StageEnrich      = "enrich"
	StageAggregate   = "aggregate"

	// StageAll selects every registered stage.
	StageAll = "all"
)

// Env is what every stage receives.
type Env struct {
	Config *config.Config
	Paths  *config.Paths
	Writer *exporter.CSVWriter
	Files  *validation.FileValidator
	Logger *slog.Logger
}

// NewEnv wires the shared writers and validators for cfg and paths.
func NewEnv(cfg *config.Config, paths *config.Paths, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	return &Env{
		Config: cfg,
		Paths:  paths,
		Writer: exporter.NewCSVWriter(paths, logger),
		Files:  validation.NewFileValidator(logger),
		Logger: logger,
	}
}

// StepResult is what a step reports back to the runner.
type StepResult struct {
	RowsIn      int
	RowsOut     int
	Outputs     []string
	Diagnostics map[string]int
	Metadata    map[string]interface{}
}

// Step represents a single stage of the pipeline
type Step interface {
	// ID returns the unique identifier for this Step
	ID() string

	// Name returns the human-readable name for this Step
	Name() string

	// RequiredInputs lists artifacts that must exist before Execute runs
	RequiredInputs(env *Env) []string

	// Execute runs the Step and returns what it produced
	Execute(ctx context.Context, env *Env) (*StepResult, error)
}

// BaseStage provides common functionality for Step implementations
type BaseStage struct {
	id   string
	name string
}

// NewBaseStage creates a new base Step
func NewBaseStage(id, name string) BaseStage {
	return BaseStage{id: id, name: name}
}

// ID returns the Step ID
func (b *BaseStage) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

// Name returns the Step name
func (b *BaseStage) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// RequiredInputs returns no requirements by default
func (b *BaseStage) RequiredInputs(*Env) []string {
	return nil
}

// logger returns the stage logger with its component set.
func (b *BaseStage) logger(env *Env) *slog.Logger {
	return env.Logger.With(slog.String("stage", b.id))
}
