// Package validation checks consolidated ledger rows and the files the
// commands depend on.
package validation

import (
	"fmt"
	"math"
	"strings"

	"claimsledger/internal/config"
	"claimsledger/internal/exporter"
	"claimsledger/internal/identifier"
	"claimsledger/internal/ledger"
	"claimsledger/pkg/contracts/domain"
)

// RejectionColumn lists the reasons of an invalid row.
const RejectionColumn = "motivo_rejeicao"

// InvalidHeader is the header of the invalid-rows artifact.
var InvalidHeader = append(append([]string{}, ledger.Header...), RejectionColumn)

// Outcome is the verdict for one row. Row carries the normalized
// identifier and legal name.
type Outcome struct {
	Row     domain.ConsolidatedRow
	Reasons []domain.DiagnosticKind
}

// Valid reports whether no rule failed.
func (o Outcome) Valid() bool {
	return len(o.Reasons) == 0
}

// RejectionText joins the reasons with ";".
func (o Outcome) RejectionText() string {
	parts := make([]string, len(o.Reasons))
	for i, r := range o.Reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ";")
}

// RowValidator applies the identifier, legal-name and amount rules.
type RowValidator struct {
	checksum identifier.Checksum
}

// NewRowValidator returns a validator checking identifiers with checksum.
func NewRowValidator(checksum identifier.Checksum) *RowValidator {
	return &RowValidator{checksum: checksum}
}

// Validate checks one row. Every failing rule is listed, in rule order.
func (v *RowValidator) Validate(row domain.ConsolidatedRow) Outcome {
	out := Outcome{Row: row}

	id, ok := identifier.Normalize(row.Identifier)
	out.Row.Identifier = id
	if !ok || !v.checksum.Validate(id) {
		out.Reasons = append(out.Reasons, domain.KindInvalidIdentifier)
	}

	name := strings.TrimSpace(row.LegalName)
	switch strings.ToLower(name) {
	case "", "nan", "none", "null":
		name = ""
		out.Reasons = append(out.Reasons, domain.KindEmptyLegalName)
	}
	out.Row.LegalName = name

	if !row.AmountOK || row.Amount.Sign() <= 0 {
		out.Reasons = append(out.Reasons, domain.KindInvalidValue)
	}
	return out
}

// Result splits the input into valid rows and rejected outcomes.
type Result struct {
	Valid   []domain.ConsolidatedRow
	Invalid []Outcome
	Summary domain.ValidationSummary
}

// ValidateAll validates rows in order and builds the summary.
func (v *RowValidator) ValidateAll(rows []domain.ConsolidatedRow) Result {
	res := Result{Summary: domain.ValidationSummary{
		TotalRows: len(rows),
		Reasons:   make(map[string]int),
	}}

	for _, row := range rows {
		out := v.Validate(row)
		if out.Valid() {
			res.Valid = append(res.Valid, out.Row)
			continue
		}
		res.Invalid = append(res.Invalid, out)
		for _, r := range out.Reasons {
			res.Summary.Reasons[string(r)]++
		}
	}

	res.Summary.ValidRows = len(res.Valid)
	res.Summary.InvalidRows = len(res.Invalid)
	res.Summary.RejectionRatePct = RejectionRate(res.Summary.InvalidRows, res.Summary.TotalRows)
	return res
}

// RejectionRate is invalid/total as a percentage rounded to two places.
// An empty input has a rate of zero.
func RejectionRate(invalid, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(invalid)/float64(total)*100*100) / 100
}

// InvalidRecords renders rejected rows with their reasons.
func InvalidRecords(invalid []Outcome) [][]string {
	out := make([][]string, len(invalid))
	for i, o := range invalid {
		out[i] = append(ledger.Record(o.Row, false), o.RejectionText())
	}
	return out
}

// Artifacts writes the valid rows, the rejected rows and the summary. It
// returns the paths written.
func Artifacts(w *exporter.CSVWriter, paths *config.Paths, res Result) ([]string, error) {
	if err := ledger.Write(w, paths.ValidatedCSV, res.Valid, false); err != nil {
		return nil, err
	}
	if err := w.WriteSimpleCSV(paths.InvalidCSV, InvalidHeader, InvalidRecords(res.Invalid)); err != nil {
		return nil, fmt.Errorf("failed to write invalid rows: %w", err)
	}
	if err := exporter.WriteJSON(paths.ValidationSummaryJSON, res.Summary); err != nil {
		return nil, fmt.Errorf("failed to write validation summary: %w", err)
	}
	return []string{paths.ValidatedCSV, paths.InvalidCSV, paths.ValidationSummaryJSON}, nil
}
