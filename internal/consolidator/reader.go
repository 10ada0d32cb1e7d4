// Package consolidator joins the per-period ledgers with the operator
// registry and reports the inconsistencies found along the way.
package consolidator

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/files"
	"claimsledger/internal/ledger"
	"claimsledger/internal/money"
	"claimsledger/internal/tabular"
	"claimsledger/pkg/contracts/domain"
)

// Per-period ledger columns.
const (
	colRegistrationID = "REG_ANS"
	colQuarter        = "Trimestre"
	colYear           = "Ano"
	colAmount         = "ValorDespesas"
)

// LedgerPattern matches the per-period ledgers written by extraction.
const LedgerPattern = "despesas_eventos_sinistros_*.csv"

var periodFromName = regexp.MustCompile(`_(\d)T(\d{4})\.csv$`)

// Entry is one row of a per-period ledger.
type Entry struct {
	RegistrationID string
	Period         domain.Period
	Amount         decimal.Decimal
	AmountOK       bool
	AmountRaw      string
	Source         string
}

// ListLedgers returns the per-period ledgers in dir, sorted by name.
func ListLedgers(dir string) ([]string, error) {
	found, err := files.NewDiscovery("").FindFilesByPattern(dir, LedgerPattern)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(found))
	for i, f := range found {
		paths[i] = f.Path
	}
	return paths, nil
}

// ReadLedger loads one per-period ledger. REG_ANS and ValorDespesas are
// required; when Trimestre or Ano is absent the period comes from the file
// name.
func ReadLedger(path string) ([]Entry, error) {
	frame, err := tabular.ReadAll(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read ledger", err).WithContext("path", path)
	}

	name := filepath.Base(path)
	idIdx := frame.Index(colRegistrationID)
	amountIdx := frame.Index(colAmount)
	var missing []string
	if idIdx < 0 {
		missing = append(missing, colRegistrationID)
	}
	if amountIdx < 0 {
		missing = append(missing, colAmount)
	}

	quarterIdx, yearIdx := frame.Index(colQuarter), frame.Index(colYear)
	var fromName domain.Period
	if quarterIdx < 0 || yearIdx < 0 {
		p, ok := inferPeriod(name)
		if !ok {
			missing = append(missing, colQuarter, colYear)
		}
		fromName = p
	}
	if len(missing) > 0 {
		return nil, apperrors.NewStructuralError(name, missing...)
	}

	entries := make([]Entry, 0, frame.Len())
	for _, row := range frame.Rows {
		e := Entry{
			RegistrationID: strings.TrimSpace(row[idIdx]),
			AmountRaw:      strings.TrimSpace(row[amountIdx]),
			Period:         fromName,
			Source:         name,
		}
		if quarterIdx >= 0 && yearIdx >= 0 {
			if p, err := ledger.ParsePeriod(row[quarterIdx], row[yearIdx]); err == nil {
				e.Period = p
			}
		}
		if amount, err := money.Parse(e.AmountRaw); err == nil {
			e.Amount = amount
			e.AmountOK = true
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func inferPeriod(name string) (domain.Period, bool) {
	m := periodFromName.FindStringSubmatch(name)
	if m == nil {
		return domain.Period{}, false
	}
	p, err := domain.ParseLabel(m[1] + "T" + m[2])
	if err != nil {
		return domain.Period{}, false
	}
	return p, true
}
