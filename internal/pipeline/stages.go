package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"claimsledger/internal/aggregator"
	"claimsledger/internal/collector"
	"claimsledger/internal/config"
	"claimsledger/internal/consolidator"
	"claimsledger/internal/diagnostics"
	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/extractor"
	"claimsledger/internal/files"
	"claimsledger/internal/ledger"
	"claimsledger/internal/registry"
	"claimsledger/internal/schema"
	"claimsledger/internal/validation"
	"claimsledger/pkg/contracts/domain"
)

// DefaultRegistry registers the core stages in execution order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []Step{
		NewExtractStage(),
		NewConsolidateStage(),
		NewValidateStage(),
		NewEnrichStage(),
		NewAggregateStage(),
	} {
		// IDs are distinct constants; Register only fails on duplicates.
		_ = r.Register(s)
	}
	return r
}

// ExtractStage turns each period's raw filings into a per-period ledger.
type ExtractStage struct {
	BaseStage
}

// NewExtractStage creates the extraction stage.
func NewExtractStage() *ExtractStage {
	return &ExtractStage{BaseStage: NewBaseStage(StageExtract, "Expense Extraction")}
}

// Execute extracts every period listed in the period manifest, or every
// period directory under the raw directory when there is no manifest.
// Archive failures already in the error report are carried over ahead of
// this run's findings.
func (s *ExtractStage) Execute(ctx context.Context, env *Env) (*StepResult, error) {
	log := s.logger(env)
	cfg := env.Config.Pipeline

	periods, err := periodsToExtract(env.Paths)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, apperrors.NewAppValidationError("no periods to extract").
			WithContext("raw_dir", env.Paths.RawDir)
	}

	carried, err := diagnostics.LoadErrors(env.Paths.ErrorReportCSV, domain.KindArchiveError)
	if err != nil {
		return nil, err
	}

	resolver, err := schema.NewFilingResolver(cfg.Synonyms)
	if err != nil {
		return nil, err
	}
	ex := extractor.New(resolver, extractor.RuleFromConfig(cfg), extractor.OptionsFromConfig(cfg), env.Logger)
	report := diagnostics.NewReport(diagnostics.CapsFrom(cfg.Caps))

	result := &StepResult{Metadata: map[string]interface{}{}}
	labels := make([]string, 0, len(periods))
	for _, p := range periods {
		dir := env.Paths.RawPeriodDir(p.Label())
		if _, err := env.Files.ValidateInputDirectory(dir, ""); err != nil {
			report.AddError(domain.KindReadError, p, fmt.Sprintf("diretorio ausente: %s", dir))
			log.WarnContext(ctx, "period directory missing", slog.String("period", p.Label()))
			continue
		}

		agg, err := ex.ExtractPeriod(ctx, dir, p, report)
		if err != nil {
			return nil, err
		}
		path := env.Paths.PeriodLedgerCSV(p.Label())
		if err := extractor.WriteLedger(env.Writer, path, agg); err != nil {
			return nil, fmt.Errorf("failed to write ledger for %s: %w", p.Label(), err)
		}
		result.RowsOut += agg.Len()
		result.Outputs = append(result.Outputs, path)
		labels = append(labels, p.Label())
	}

	report.Prepend(carried)
	if err := env.Writer.WriteSimpleCSV(env.Paths.ErrorReportCSV, diagnostics.ErrorReportHeader, report.ErrorRecords()); err != nil {
		return nil, fmt.Errorf("failed to write error report: %w", err)
	}
	result.Outputs = append(result.Outputs, env.Paths.ErrorReportCSV)
	result.Diagnostics = report.Counts()
	result.Metadata["periods"] = labels
	result.Metadata["carried_errors"] = len(carried)
	return result, nil
}

func periodsToExtract(paths *config.Paths) ([]domain.Period, error) {
	if config.FileExists(paths.PeriodManifestJSON) {
		m, err := collector.LoadManifest(paths.PeriodManifestJSON)
		if err != nil {
			return nil, err
		}
		periods := make([]domain.Period, 0, len(m.Periods))
		for _, mp := range m.Periods {
			periods = append(periods, mp.Period())
		}
		sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
		return periods, nil
	}

	if !config.FileExists(paths.RawDir) {
		return nil, nil
	}
	dirs, err := files.NewDiscovery("").ListDirectories(paths.RawDir)
	if err != nil {
		return nil, err
	}
	var periods []domain.Period
	for _, d := range dirs {
		if p, err := domain.ParseLabel(d.Name); err == nil {
			periods = append(periods, p)
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods, nil
}

// ConsolidateStage joins the per-period ledgers to the registry.
type ConsolidateStage struct {
	BaseStage
}

// NewConsolidateStage creates the consolidation stage.
func NewConsolidateStage() *ConsolidateStage {
	return &ConsolidateStage{BaseStage: NewBaseStage(StageConsolidate, "Consolidation")}
}

// RequiredInputs needs the registry file.
func (s *ConsolidateStage) RequiredInputs(env *Env) []string {
	return []string{env.Paths.RegistryCSV}
}

// Execute reads every ledger in name order and writes the consolidated
// ledger with its inconsistency report.
func (s *ConsolidateStage) Execute(ctx context.Context, env *Env) (*StepResult, error) {
	log := s.logger(env)
	cfg := env.Config.Pipeline

	if err := env.Files.ValidateTabularFile(env.Paths.RegistryCSV); err != nil {
		return nil, apperrors.NewStorageError("registry file unusable", err).
			WithContext("path", env.Paths.RegistryCSV)
	}
	records, err := registry.LoadCSV(env.Paths.RegistryCSV, registry.NewResolver())
	if err != nil {
		return nil, err
	}
	index := registry.NewIndex(records)

	paths, err := consolidator.ListLedgers(env.Paths.NormalDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, apperrors.NewAppValidationError("no period ledgers to consolidate").
			WithContext("dir", env.Paths.NormalDir)
	}

	ledgers := make([][]consolidator.Entry, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := consolidator.ReadLedger(p)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, entries)
	}

	report := diagnostics.NewReport(diagnostics.CapsFrom(cfg.Caps))
	res := consolidator.Consolidate(ledgers, index, consolidator.OptionsFromConfig(cfg), report)
	outputs, err := consolidator.Artifacts(env.Writer, env.Paths, res, report, log)
	if err != nil {
		return nil, err
	}

	return &StepResult{
		RowsIn:      res.Stats.Input,
		RowsOut:     res.Stats.Output,
		Outputs:     outputs,
		Diagnostics: report.Counts(),
		Metadata: map[string]interface{}{
			"ledgers":       len(paths),
			"registry_size": index.Len(),
			"stats":         res.Stats,
		},
	}, nil
}

// ValidateStage checks identifiers, names and amounts of consolidated rows.
type ValidateStage struct {
	BaseStage
}

// NewValidateStage creates the validation stage.
func NewValidateStage() *ValidateStage {
	return &ValidateStage{BaseStage: NewBaseStage(StageValidate, "Row Validation")}
}

// RequiredInputs needs the consolidated ledger.
func (s *ValidateStage) RequiredInputs(env *Env) []string {
	return []string{env.Paths.ConsolidatedCSV}
}

// Execute splits the consolidated ledger into valid and rejected rows.
func (s *ValidateStage) Execute(ctx context.Context, env *Env) (*StepResult, error) {
	rows, err := ledger.Read(env.Paths.ConsolidatedCSV)
	if err != nil {
		return nil, err
	}

	res := validation.NewRowValidator(env.Config.Pipeline.ChecksumWeights.Checksum()).ValidateAll(rows)
	outputs, err := validation.Artifacts(env.Writer, env.Paths, res)
	if err != nil {
		return nil, err
	}

	s.logger(env).InfoContext(ctx, "rows validated",
		slog.Int("valid", res.Summary.ValidRows),
		slog.Int("invalid", res.Summary.InvalidRows),
		slog.Float64("rejection_pct", res.Summary.RejectionRatePct))

	return &StepResult{
		RowsIn:      len(rows),
		RowsOut:     len(res.Valid),
		Outputs:     outputs,
		Diagnostics: res.Summary.Reasons,
		Metadata:    map[string]interface{}{"rejection_pct": res.Summary.RejectionRatePct},
	}, nil
}

// EnrichStage joins ledger rows to the deduplicated registry.
type EnrichStage struct {
	BaseStage
}

// NewEnrichStage creates the enrichment stage.
func NewEnrichStage() *EnrichStage {
	return &EnrichStage{BaseStage: NewBaseStage(StageEnrich, "Registry Enrichment")}
}

func enrichSource(env *Env) string {
	if env.Config.Pipeline.StrictValidation {
		return env.Paths.ValidatedCSV
	}
	return env.Paths.ConsolidatedCSV
}

// RequiredInputs needs the ledger to enrich and the registry file.
func (s *EnrichStage) RequiredInputs(env *Env) []string {
	return []string{enrichSource(env), env.Paths.RegistryCSV}
}

// Execute reads the consolidated ledger, or only its valid rows in strict
// mode, and writes the enriched outputs.
func (s *EnrichStage) Execute(ctx context.Context, env *Env) (*StepResult, error) {
	source := enrichSource(env)
	rows, err := ledger.Read(source)
	if err != nil {
		return nil, err
	}
	records, err := registry.LoadCSV(env.Paths.RegistryCSV, registry.NewResolver())
	if err != nil {
		return nil, err
	}

	e := registry.Run(rows, records)
	outputs, err := registry.Artifacts(env.Writer, env.Paths, e)
	if err != nil {
		return nil, err
	}

	s.logger(env).InfoContext(ctx, "rows enriched",
		slog.String("source", source),
		slog.Int("matched", len(e.Matched)),
		slog.Int("unmatched", len(e.Unmatched)),
		slog.Int("divergent", len(e.Divergences)))

	return &StepResult{
		RowsIn:  len(rows),
		RowsOut: len(e.Matched),
		Outputs: outputs,
		Diagnostics: map[string]int{
			string(domain.KindRegistryDivergence): len(e.Divergences),
		},
		Metadata: map[string]interface{}{
			"canonical_operators": len(e.Canonical),
			"unmatched":           len(e.Unmatched),
			"invalid_registry":    e.InvalidIdentifiers,
		},
	}, nil
}

// AggregateStage groups enriched rows and computes their statistics.
type AggregateStage struct {
	BaseStage
}

// NewAggregateStage creates the aggregation stage.
func NewAggregateStage() *AggregateStage {
	return &AggregateStage{BaseStage: NewBaseStage(StageAggregate, "Aggregation")}
}

// RequiredInputs needs the enriched ledger.
func (s *AggregateStage) RequiredInputs(env *Env) []string {
	return []string{env.Paths.EnrichedCSV}
}

// Execute writes the grouped statistics for the configured key.
func (s *AggregateStage) Execute(ctx context.Context, env *Env) (*StepResult, error) {
	key, err := aggregator.SelectorFor(env.Config.Pipeline.GroupBy)
	if err != nil {
		return nil, err
	}
	rows, err := ledger.Read(env.Paths.EnrichedCSV)
	if err != nil {
		return nil, err
	}

	groups := aggregator.Aggregate(rows, key)
	outputs, err := aggregator.Artifacts(env.Writer, env.Paths, key, groups, len(rows))
	if err != nil {
		return nil, err
	}

	s.logger(env).InfoContext(ctx, "rows aggregated",
		slog.String("key", key.Name),
		slog.Int("groups", len(groups)))

	return &StepResult{
		RowsIn:   len(rows),
		RowsOut:  len(groups),
		Outputs:  outputs,
		Metadata: map[string]interface{}{"group_by": key.Name},
	}, nil
}
