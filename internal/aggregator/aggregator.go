// Package aggregator groups enriched ledger rows and computes per-group
// expense statistics.
package aggregator

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"claimsledger/internal/config"
	"claimsledger/internal/exporter"
	"claimsledger/internal/money"
	"claimsledger/pkg/contracts/domain"
)

// MetricColumns follow the key columns in the output header.
var MetricColumns = []string{"total_despesas", "media_por_trimestre", "desvio_padrao", "qtd_registros", "qtd_trimestres"}

// KeySelector decides which rows share a group and how the group is labeled.
type KeySelector struct {
	Name    string
	Columns []string
	// Group returns the grouping key of a row.
	Group func(domain.ConsolidatedRow) string
	// Label returns the key columns, taken from the group's first row.
	Label func(domain.ConsolidatedRow) []string
}

// ByLegalNameRegion groups by (RazaoSocial, UF).
var ByLegalNameRegion = KeySelector{
	Name:    config.GroupByLegalNameRegion,
	Columns: []string{"RazaoSocial", "UF"},
	Group: func(r domain.ConsolidatedRow) string {
		return r.LegalName + "\x00" + r.Region
	},
	Label: func(r domain.ConsolidatedRow) []string {
		return []string{r.LegalName, r.Region}
	},
}

// ByIdentifier groups by CNPJ and labels the group with its first name.
var ByIdentifier = KeySelector{
	Name:    config.GroupByIdentifier,
	Columns: []string{"CNPJ", "RazaoSocial"},
	Group: func(r domain.ConsolidatedRow) string {
		return r.Identifier
	},
	Label: func(r domain.ConsolidatedRow) []string {
		return []string{r.Identifier, r.LegalName}
	},
}

// SelectorFor maps a configured group_by value to its selector.
func SelectorFor(name string) (KeySelector, error) {
	switch name {
	case "", config.GroupByLegalNameRegion:
		return ByLegalNameRegion, nil
	case config.GroupByIdentifier:
		return ByIdentifier, nil
	}
	return KeySelector{}, fmt.Errorf("unknown group_by %q", name)
}

// Header is the output header for key.
func Header(key KeySelector) []string {
	return append(append([]string{}, key.Columns...), MetricColumns...)
}

type accumulator struct {
	label   []string
	amounts []decimal.Decimal
	periods map[string]struct{}
}

// Aggregate groups rows that carry a parsed amount. Groups start in order
// of first appearance and are then stably sorted by total, descending.
func Aggregate(rows []domain.ConsolidatedRow, key KeySelector) []domain.AggregateGroup {
	var order []string
	acc := make(map[string]*accumulator)
	for _, r := range rows {
		if !r.AmountOK {
			continue
		}
		k := key.Group(r)
		a, ok := acc[k]
		if !ok {
			a = &accumulator{label: key.Label(r), periods: make(map[string]struct{})}
			acc[k] = a
			order = append(order, k)
		}
		a.amounts = append(a.amounts, r.Amount)
		a.periods[r.Period.Key()] = struct{}{}
	}

	groups := make([]domain.AggregateGroup, 0, len(order))
	for _, k := range order {
		a := acc[k]
		total := decimal.Zero
		for _, v := range a.amounts {
			total = total.Add(v)
		}
		n := len(a.amounts)
		mean := total.Div(decimal.NewFromInt(int64(n)))
		groups = append(groups, domain.AggregateGroup{
			Key:             a.label,
			Total:           total,
			Mean:            mean,
			StdDev:          sampleStdDev(a.amounts, mean),
			Count:           n,
			DistinctPeriods: len(a.periods),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total.GreaterThan(groups[j].Total)
	})
	return groups
}

// sampleStdDev uses the n-1 divisor and is zero for a single value.
func sampleStdDev(values []decimal.Decimal, mean decimal.Decimal) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean.InexactFloat64()
	var ss float64
	for _, v := range values {
		d := v.InexactFloat64() - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// Records renders groups with money columns in BR notation.
func Records(groups []domain.AggregateGroup) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		rec := append([]string{}, g.Key...)
		out[i] = append(rec,
			money.FormatBR(g.Total),
			money.FormatBR(g.Mean),
			money.FormatBR(decimal.NewFromFloat(g.StdDev)),
			strconv.Itoa(g.Count),
			strconv.Itoa(g.DistinctPeriods),
		)
	}
	return out
}

// Artifacts writes the grouped CSV and its summary. It returns the paths
// written.
func Artifacts(w *exporter.CSVWriter, paths *config.Paths, key KeySelector, groups []domain.AggregateGroup, inputRows int) ([]string, error) {
	if err := w.WriteSimpleCSV(paths.AggregatedCSV, Header(key), Records(groups)); err != nil {
		return nil, fmt.Errorf("failed to write aggregated expenses: %w", err)
	}
	summary := domain.AggregationSummary{
		Groups:     len(groups),
		InputRows:  inputRows,
		OutputFile: filepath.Base(paths.AggregatedCSV),
	}
	if err := exporter.WriteJSON(paths.AggregationSummary, summary); err != nil {
		return nil, fmt.Errorf("failed to write aggregation summary: %w", err)
	}
	return []string{paths.AggregatedCSV, paths.AggregationSummary}, nil
}
