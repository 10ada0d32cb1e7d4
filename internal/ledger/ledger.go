// Package ledger reads and writes the consolidated ledger format shared by
// the consolidated, validated, enriched and unmatched artifacts.
package ledger

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/exporter"
	"claimsledger/internal/money"
	"claimsledger/internal/tabular"
	"claimsledger/pkg/contracts/domain"
)

// Column names of the ledger format.
const (
	ColIdentifier     = "CNPJ"
	ColLegalName      = "RazaoSocial"
	ColQuarter        = "Trimestre"
	ColYear           = "Ano"
	ColAmount         = "ValorDespesas"
	ColRegistrationID = "RegistroANS"
	ColCategory       = "Modalidade"
	ColRegion         = "UF"
)

// Header is the consolidated ledger header.
var Header = []string{ColIdentifier, ColLegalName, ColQuarter, ColYear, ColAmount}

// EnrichedHeader extends Header with the registry attributes.
var EnrichedHeader = append(append([]string{}, Header...), ColRegistrationID, ColCategory, ColRegion)

// FormatAmount renders a row amount in BR notation, or the raw text when it
// never parsed.
func FormatAmount(row domain.ConsolidatedRow) string {
	if !row.AmountOK {
		return row.AmountRaw
	}
	return money.FormatBR(money.Round(row.Amount))
}

// Record renders one row. Enriched rows carry the registry columns.
func Record(row domain.ConsolidatedRow, enriched bool) []string {
	rec := []string{
		row.Identifier,
		row.LegalName,
		row.Period.QuarterLabel(),
		strconv.Itoa(row.Period.Year),
		FormatAmount(row),
	}
	if enriched {
		rec = append(rec, row.RegistrationID, row.Category, row.Region)
	}
	return rec
}

// Write replaces path with rows, streaming them one record at a time.
func Write(w *exporter.CSVWriter, path string, rows []domain.ConsolidatedRow, enriched bool) error {
	header := Header
	if enriched {
		header = EnrichedHeader
	}
	s, err := w.CreateStreamWriter(path, header)
	if err != nil {
		return apperrors.NewStorageError("failed to write ledger", err).WithContext("path", path)
	}
	for _, r := range rows {
		if err := s.WriteRecord(Record(r, enriched)); err != nil {
			s.Abort()
			return apperrors.NewStorageError("failed to write ledger", err).WithContext("path", path)
		}
	}
	if err := s.Close(); err != nil {
		return apperrors.NewStorageError("failed to write ledger", err).WithContext("path", path)
	}
	return nil
}

// Read loads a ledger file. The five base columns are required; registry
// columns are read when present. Amounts accept BR and plain notation and
// rows that fail to parse keep their raw text with AmountOK unset.
func Read(path string) ([]domain.ConsolidatedRow, error) {
	frame, err := tabular.ReadAll(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read ledger", err).WithContext("path", path)
	}

	var missing []string
	for _, col := range Header {
		if frame.Index(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewStructuralError(path, missing...)
	}

	get := func(row []string, col string) string {
		if i := frame.Index(col); i >= 0 {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	rows := make([]domain.ConsolidatedRow, 0, frame.Len())
	for _, rec := range frame.Rows {
		row := domain.ConsolidatedRow{
			Identifier:     get(rec, ColIdentifier),
			LegalName:      get(rec, ColLegalName),
			AmountRaw:      get(rec, ColAmount),
			RegistrationID: get(rec, ColRegistrationID),
			Category:       get(rec, ColCategory),
			Region:         get(rec, ColRegion),
		}
		row.Period, _ = ParsePeriod(get(rec, ColQuarter), get(rec, ColYear))
		if amount, err := money.Parse(row.AmountRaw); err == nil {
			row.Amount = amount
			row.AmountOK = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParsePeriod reads the Trimestre and Ano cells of a ledger row.
func ParsePeriod(quarter, year string) (domain.Period, error) {
	q, err := domain.ParseQuarterToken(quarter)
	if err != nil {
		return domain.Period{}, err
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return domain.Period{}, fmt.Errorf("invalid year %q: %w", year, err)
	}
	return domain.NewPeriod(y, q)
}
