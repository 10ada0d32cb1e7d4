package consolidator

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"claimsledger/internal/config"
	"claimsledger/internal/diagnostics"
	"claimsledger/internal/exporter"
	"claimsledger/internal/ledger"
	"claimsledger/internal/money"
	"claimsledger/internal/registry"
	"claimsledger/pkg/contracts/domain"
)

// Options controls the join.
type Options struct {
	// StrictJoin drops rows whose registration id is not in the registry.
	StrictJoin bool
	// NameSample bounds the names listed per ambiguous identifier.
	NameSample int
}

// OptionsFromConfig reads the join options from pipeline settings.
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{StrictJoin: cfg.StrictJoin, NameSample: cfg.Caps.NameSample}
}

// Stats counts what happened to the input rows.
type Stats struct {
	Input         int `json:"linhas_entrada"`
	InvalidAmount int `json:"valores_invalidos"`
	RegistryMiss  int `json:"reg_ans_sem_cadop"`
	NonPositive   int `json:"valores_zero_ou_negativos"`
	AmbiguousName int `json:"cnpjs_com_razoes_diferentes"`
	Output        int `json:"linhas_saida"`
}

// Result is the consolidated ledger.
type Result struct {
	Rows  []domain.ConsolidatedRow
	Stats Stats
}

type joined struct {
	entry Entry
	row   domain.ConsolidatedRow
	miss  bool
}

// Consolidate concatenates ledgers in order and joins them to the registry
// by registration id. Findings are reported in four passes: unparsed
// amounts, registry misses, non-positive amounts and identifiers with more
// than one legal name.
func Consolidate(ledgers [][]Entry, index *registry.Index, opts Options, report *diagnostics.Report) Result {
	var res Result

	var valid []Entry
	for _, entries := range ledgers {
		res.Stats.Input += len(entries)
		for _, e := range entries {
			if !e.AmountOK {
				res.Stats.InvalidAmount++
				report.AddInconsistency(domain.KindInvalidAmount,
					"REG_ANS="+e.RegistrationID,
					fmt.Sprintf("fonte=%s raw=%s", e.Source, e.AmountRaw))
				continue
			}
			valid = append(valid, e)
		}
	}

	rows := make([]joined, 0, len(valid))
	for _, e := range valid {
		j := joined{entry: e, row: domain.ConsolidatedRow{
			Period:    e.Period,
			Amount:    e.Amount,
			AmountOK:  true,
			AmountRaw: e.AmountRaw,
		}}
		rec, ok := index.Lookup(e.RegistrationID)
		if ok {
			j.row.Identifier = rec.Identifier
			j.row.LegalName = rec.LegalName
		}
		j.miss = j.row.Identifier == ""
		rows = append(rows, j)
	}

	for _, j := range rows {
		if j.miss {
			res.Stats.RegistryMiss++
			report.AddInconsistency(domain.KindRegistryMiss,
				"REG_ANS="+j.entry.RegistrationID,
				"fonte="+j.entry.Source)
		}
	}

	for _, j := range rows {
		if j.row.Amount.Sign() <= 0 {
			res.Stats.NonPositive++
			report.AddInconsistency(domain.KindNonPositiveAmount,
				fmt.Sprintf("CNPJ=%s REG_ANS=%s", j.row.Identifier, j.entry.RegistrationID),
				fmt.Sprintf("tri=%s ano=%d valor=%s", j.row.Period.QuarterLabel(), j.row.Period.Year, money.FormatPlain(j.row.Amount)))
		}
	}

	for _, amb := range ambiguousNames(rows) {
		res.Stats.AmbiguousName++
		report.AddInconsistency(domain.KindAmbiguousName, "CNPJ="+amb.identifier, sampleNames(amb.names, opts.NameSample))
	}

	res.Rows = make([]domain.ConsolidatedRow, 0, len(rows))
	for _, j := range rows {
		if j.miss && opts.StrictJoin {
			continue
		}
		j.row.Amount = money.Round(j.row.Amount)
		res.Rows = append(res.Rows, j.row)
	}
	res.Stats.Output = len(res.Rows)
	return res
}

type ambiguity struct {
	identifier string
	names      []string
}

// ambiguousNames lists, by ascending identifier, every identifier seen with
// more than one distinct legal name. Names are sorted.
func ambiguousNames(rows []joined) []ambiguity {
	names := make(map[string]map[string]struct{})
	for _, j := range rows {
		if j.miss || j.row.LegalName == "" {
			continue
		}
		set, ok := names[j.row.Identifier]
		if !ok {
			set = make(map[string]struct{})
			names[j.row.Identifier] = set
		}
		set[j.row.LegalName] = struct{}{}
	}

	var out []ambiguity
	for id, set := range names {
		if len(set) < 2 {
			continue
		}
		list := make([]string, 0, len(set))
		for n := range set {
			list = append(list, n)
		}
		sort.Strings(list)
		out = append(out, ambiguity{identifier: id, names: list})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].identifier < out[k].identifier })
	return out
}

func sampleNames(names []string, limit int) string {
	if limit <= 0 || len(names) <= limit {
		return strings.Join(names, " | ")
	}
	return strings.Join(names[:limit], " | ") + " ..."
}

// Artifacts writes the consolidated CSV, the inconsistency report and the
// zip holding the CSV. It returns the paths written.
func Artifacts(w *exporter.CSVWriter, paths *config.Paths, res Result, report *diagnostics.Report, logger *slog.Logger) ([]string, error) {
	if err := ledger.Write(w, paths.ConsolidatedCSV, res.Rows, false); err != nil {
		return nil, err
	}
	if err := w.WriteSimpleCSV(paths.InconsistencyCSV, diagnostics.InconsistencyHeader, report.InconsistencyRecords()); err != nil {
		return nil, fmt.Errorf("failed to write inconsistency report: %w", err)
	}
	if err := exporter.ZipFiles(paths.ConsolidatedZip, paths.ConsolidatedCSV); err != nil {
		return nil, fmt.Errorf("failed to zip consolidated ledger: %w", err)
	}

	if logger != nil {
		logger.Info("consolidated ledger written",
			slog.Int("rows", len(res.Rows)),
			slog.String("total", money.FormatBR(total(res.Rows))),
			slog.Int("inconsistencies", len(report.Inconsistencies())))
	}
	return []string{paths.ConsolidatedCSV, paths.InconsistencyCSV, paths.ConsolidatedZip}, nil
}

func total(rows []domain.ConsolidatedRow) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	return sum
}
