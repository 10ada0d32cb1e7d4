// Package extractor reduces one period's raw filings to a per-operator
// claims-expense ledger.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"claimsledger/internal/config"
	"claimsledger/internal/diagnostics"
	"claimsledger/internal/files"
	"claimsledger/internal/money"
	"claimsledger/internal/schema"
	"claimsledger/internal/tabular"
	"claimsledger/pkg/contracts/domain"
)

// Options bounds how files are read and how much of them is echoed into
// diagnostics.
type Options struct {
	ChunkSize     int
	RawSample     int
	HeaderPreview int
}

// OptionsFromConfig reads the extraction options from pipeline settings.
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{
		ChunkSize:     cfg.ChunkSize,
		RawSample:     cfg.Caps.RawSample,
		HeaderPreview: cfg.Caps.HeaderPreview,
	}
}

// Extractor applies the category rule to every frame of a period.
type Extractor struct {
	resolver *schema.Resolver
	rule     CategoryRule
	opts     Options
	logger   *slog.Logger
}

// New creates an extractor. A nil resolver uses the default filing synonyms.
func New(resolver *schema.Resolver, rule CategoryRule, opts Options, logger *slog.Logger) *Extractor {
	if resolver == nil {
		resolver = schema.NewResolver(schema.DefaultRules())
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = tabular.DefaultChunkSize
	}
	return &Extractor{
		resolver: resolver,
		rule:     rule,
		opts:     opts,
		logger:   logger.With(slog.String("component", "extractor")),
	}
}

var describeLabels = map[domain.ColumnRole]string{
	domain.RoleIdentifier:  "reg_ans",
	domain.RoleAccountCode: "conta",
	domain.RoleDescription: "desc",
	domain.RoleAmount:      "valor",
}

var describeOrder = []domain.ColumnRole{
	domain.RoleIdentifier,
	domain.RoleAccountCode,
	domain.RoleDescription,
	domain.RoleAmount,
}

// errTotalFound stops the account scan at the first total row.
var errTotalFound = errors.New("total account found")

// ExtractFrame sums the selected rows of frame by registration id, taking
// frame as a whole filing.
// Frames without an identifier or amount column contribute nothing and
// are reported as unrecognized.
func (e *Extractor) ExtractFrame(frame tabular.Frame, period domain.Period, sink *diagnostics.Report) *domain.PeriodExpenseAggregate {
	agg, _ := e.extractFrame(frame, period, false, sink)
	return agg
}

// extractFrame folds one chunk of a filing. fileTotals is set when any row
// of the filing carries the total account, so every chunk of that filing
// keeps total rows only. The second result counts selected rows dropped
// for a blank identifier.
func (e *Extractor) extractFrame(frame tabular.Frame, period domain.Period, fileTotals bool, sink *diagnostics.Report) (*domain.PeriodExpenseAggregate, int) {
	agg := domain.NewPeriodExpenseAggregate(period)
	if frame.Len() == 0 {
		return agg, 0
	}

	roles := e.resolver.Resolve(frame.Headers)
	if !roles.Has(domain.RoleIdentifier) || !roles.Has(domain.RoleAmount) {
		preview := frame.Headers
		if e.opts.HeaderPreview > 0 && len(preview) > e.opts.HeaderPreview {
			preview = preview[:e.opts.HeaderPreview]
		}
		sink.AddError(domain.KindUnrecognizedColumns, period, fmt.Sprintf("%s | %s | cols=%s",
			frame.Source,
			schema.Describe(roles, describeOrder, describeLabels),
			diagnostics.SampleList(schema.NormalizeHeaders(preview))))
		return agg, 0
	}

	entries := e.rule.Entries(frame, roles)
	accounts := roles.Has(domain.RoleAccountCode)
	totals := fileTotals || e.rule.HasTotal(frame, roles)

	invalid, blank := 0, 0
	var badSamples []string
	for _, i := range e.rule.SelectEntries(entries, accounts, totals) {
		entry := entries[i]
		amount, err := money.ParseBR(entry.AmountRaw)
		if err != nil {
			invalid++
			if len(badSamples) < e.opts.RawSample {
				badSamples = append(badSamples, strconv.Quote(entry.AmountRaw))
			}
			continue
		}

		id := strings.TrimSpace(entry.IdentifierRaw)
		if id == "" {
			blank++
			continue
		}
		agg.Add(id, amount)
	}

	if invalid > 0 {
		sink.AddError(domain.KindInvalidAmount, period, fmt.Sprintf("%s | exemplos_raw=%s",
			frame.Source, diagnostics.SampleList(badSamples)))
	}
	return agg, blank
}

// hasTotal streams the filing once to learn whether any of its rows
// carries the total account. Memory stays bounded by the chunk size.
func (e *Extractor) hasTotal(ctx context.Context, path string) (bool, error) {
	err := tabular.Read(path, e.opts.ChunkSize, func(frame tabular.Frame) error {
		if e.rule.HasTotal(frame, e.resolver.Resolve(frame.Headers)) {
			return errTotalFound
		}
		return ctx.Err()
	})
	if errors.Is(err, errTotalFound) {
		return true, nil
	}
	return false, err
}

// ExtractPeriod walks dir for tabular files in path order and sums every
// frame. A file that cannot be read is reported and skipped.
func (e *Extractor) ExtractPeriod(ctx context.Context, dir string, period domain.Period, sink *diagnostics.Report) (*domain.PeriodExpenseAggregate, error) {
	found, err := files.NewDiscovery("").FindTabularFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list filings for %s: %w", period.Label(), err)
	}

	total := domain.NewPeriodExpenseAggregate(period)
	blanks := 0
	for _, f := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frames, fileBlanks := 0, 0
		totals, err := e.hasTotal(ctx, f.Path)
		if err == nil {
			err = tabular.Read(f.Path, e.opts.ChunkSize, func(frame tabular.Frame) error {
				frames++
				agg, blank := e.extractFrame(frame, period, totals, sink)
				total.Merge(agg)
				fileBlanks += blank
				return ctx.Err()
			})
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			sink.AddError(domain.KindReadError, period, fmt.Sprintf("%s | %v", filepath.Base(f.Path), err))
			e.logger.WarnContext(ctx, "failed to read filing",
				slog.String("file", f.Name),
				slog.String("period", period.Label()),
				slog.String("error", err.Error()))
			continue
		}

		blanks += fileBlanks
		e.logger.DebugContext(ctx, "filing processed",
			slog.String("file", f.Name),
			slog.Int("frames", frames),
			slog.Bool("total_account", totals),
			slog.Int("blank_identifier_rows", fileBlanks))
	}

	if blanks > 0 {
		e.logger.WarnContext(ctx, "selected rows without registration id dropped",
			slog.String("period", period.Label()),
			slog.Int("rows", blanks))
	}
	e.logger.InfoContext(ctx, "period extracted",
		slog.String("period", period.Label()),
		slog.Int("files", len(found)),
		slog.Int("operators", total.Len()),
		slog.Int("blank_identifier_rows", blanks))
	return total, nil
}
