package extractor

import (
	"strconv"

	"claimsledger/internal/exporter"
	"claimsledger/internal/money"
	"claimsledger/pkg/contracts/domain"
)

// LedgerHeader is the header of a per-period ledger.
var LedgerHeader = []string{"REG_ANS", "Trimestre", "Ano", "ValorDespesas"}

// LedgerRecords renders agg as ledger rows sorted by registration id.
func LedgerRecords(agg *domain.PeriodExpenseAggregate) [][]string {
	ids := agg.Identifiers()
	records := make([][]string, 0, len(ids))
	year := strconv.Itoa(agg.Period.Year)
	quarter := agg.Period.QuarterLabel()
	for _, id := range ids {
		records = append(records, []string{id, quarter, year, money.FormatBR(agg.Totals[id])})
	}
	return records
}

// WriteLedger writes agg to path, replacing any previous ledger atomically.
func WriteLedger(w *exporter.CSVWriter, path string, agg *domain.PeriodExpenseAggregate) error {
	return w.WriteSimpleCSV(path, LedgerHeader, LedgerRecords(agg))
}
