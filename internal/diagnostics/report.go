// Package diagnostics collects non-fatal data-quality findings.
//
// A Report is passed explicitly to every stage that can emit findings.
// Entries are appended in order, inconsistencies are capped per kind and
// every observation is counted whether or not it was kept.
package diagnostics

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"claimsledger/internal/config"
	"claimsledger/internal/tabular"
	"claimsledger/pkg/contracts/domain"
)

// ErrorReportHeader is the header of docs/relatorio_erros.csv.
var ErrorReportHeader = []string{"tipo", "ano", "trimestre", "detalhe"}

// InconsistencyHeader is the header of docs/relatorio_inconsistencias.csv.
var InconsistencyHeader = []string{"tipo", "chave", "detalhe"}

// Caps bounds the number of inconsistency entries kept per kind.
// Kinds without an entry are unbounded.
type Caps map[domain.DiagnosticKind]int

// CapsFrom maps configured report caps onto diagnostic kinds.
func CapsFrom(c config.ReportCaps) Caps {
	return Caps{
		domain.KindInvalidAmount:     c.InvalidAmount,
		domain.KindRegistryMiss:      c.RegistryMiss,
		domain.KindNonPositiveAmount: c.NonPositiveAmount,
		domain.KindAmbiguousName:     c.AmbiguousName,
	}
}

// Report is an append-only sink of diagnostics. It is safe for concurrent use.
type Report struct {
	mu              sync.Mutex
	caps            Caps
	errors          []domain.ErrorEntry
	inconsistencies []domain.InconsistencyRecord
	kept            map[domain.DiagnosticKind]int
	seen            map[domain.DiagnosticKind]int
}

// NewReport returns an empty report with the given caps.
func NewReport(caps Caps) *Report {
	return &Report{
		caps: caps,
		kept: make(map[domain.DiagnosticKind]int),
		seen: make(map[domain.DiagnosticKind]int),
	}
}

// AddError records an extraction-level finding for period.
func (r *Report) AddError(kind domain.DiagnosticKind, period domain.Period, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen[kind]++
	r.kept[kind]++
	r.errors = append(r.errors, domain.ErrorEntry{
		Kind:    kind,
		Year:    period.Year,
		Quarter: period.Quarter,
		Detail:  detail,
	})
}

// AddInconsistency records a consolidation-level finding unless kind has
// reached its cap. It reports whether the entry was kept.
func (r *Report) AddInconsistency(kind domain.DiagnosticKind, key, detail string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen[kind]++
	if limit, ok := r.caps[kind]; ok && r.kept[kind] >= limit {
		return false
	}
	r.kept[kind]++
	r.inconsistencies = append(r.inconsistencies, domain.InconsistencyRecord{
		Kind:   kind,
		Key:    key,
		Detail: detail,
	})
	return true
}

// Full reports whether kind has reached its cap.
func (r *Report) Full(kind domain.DiagnosticKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	limit, ok := r.caps[kind]
	return ok && r.kept[kind] >= limit
}

// Errors returns a copy of the error entries in insertion order.
func (r *Report) Errors() []domain.ErrorEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ErrorEntry(nil), r.errors...)
}

// Inconsistencies returns a copy of the kept inconsistencies in insertion order.
func (r *Report) Inconsistencies() []domain.InconsistencyRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.InconsistencyRecord(nil), r.inconsistencies...)
}

// Counts returns how many findings of each kind were observed, kept or not.
func (r *Report) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.seen))
	for k, v := range r.seen {
		out[string(k)] = v
	}
	return out
}

// Total returns the number of findings observed.
func (r *Report) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.seen {
		n += v
	}
	return n
}

// ErrorRecords renders the error entries as report rows.
func (r *Report) ErrorRecords() [][]string {
	entries := r.Errors()
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{string(e.Kind), strconv.Itoa(e.Year), strconv.Itoa(e.Quarter), e.Detail}
	}
	return rows
}

// InconsistencyRecords renders the kept inconsistencies as report rows.
func (r *Report) InconsistencyRecords() [][]string {
	entries := r.Inconsistencies()
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{string(e.Kind), e.Key, e.Detail}
	}
	return rows
}

// LoadErrors reads an existing error report and keeps the entries whose kind
// is listed. A missing file yields no entries.
func LoadErrors(path string, kinds ...domain.DiagnosticKind) ([]domain.ErrorEntry, error) {
	if !config.FileExists(path) {
		return nil, nil
	}
	frame, err := tabular.ReadAll(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read error report: %w", err)
	}

	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[string(k)] = true
	}
	idx := make([]int, len(ErrorReportHeader))
	for i, h := range ErrorReportHeader {
		if idx[i] = frame.Index(h); idx[i] < 0 {
			return nil, fmt.Errorf("error report lacks column %q", h)
		}
	}

	var out []domain.ErrorEntry
	for _, row := range frame.Rows {
		kind := strings.TrimSpace(row[idx[0]])
		if !want[kind] {
			continue
		}
		year, _ := strconv.Atoi(strings.TrimSpace(row[idx[1]]))
		quarter, _ := strconv.Atoi(strings.TrimSpace(row[idx[2]]))
		out = append(out, domain.ErrorEntry{
			Kind:    domain.DiagnosticKind(kind),
			Year:    year,
			Quarter: quarter,
			Detail:  row[idx[3]],
		})
	}
	return out, nil
}

// Prepend inserts entries carried over from an earlier run ahead of
// everything already recorded. They are not counted as observations.
func (r *Report) Prepend(entries []domain.ErrorEntry) {
	if len(entries) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(append([]domain.ErrorEntry(nil), entries...), r.errors...)
}

// SampleList renders values the way detail fields list samples: "[a, b]".
func SampleList(values []string) string {
	return "[" + strings.Join(values, ", ") + "]"
}
