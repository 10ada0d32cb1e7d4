package store

import (
	"claimsledger/internal/config"
	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/ledger"
	"claimsledger/internal/tabular"
)

// Aggregated output columns read by the loader.
const (
	colTotal    = "total_despesas"
	colMean     = "media_por_trimestre"
	colStdDev   = "desvio_padrao"
	colRows     = "qtd_registros"
	colQuarters = "qtd_trimestres"
)

// Bundle holds the three pipeline outputs as read from disk.
type Bundle struct {
	Enriched     tabular.Frame
	Consolidated tabular.Frame
	Aggregated   tabular.Frame
}

// ReadBundle loads the enriched, consolidated and aggregated CSVs and checks
// that each carries the columns the loader maps.
func ReadBundle(paths *config.Paths) (Bundle, error) {
	var b Bundle
	sources := []struct {
		path     string
		dst      *tabular.Frame
		required []string
	}{
		{paths.EnrichedCSV, &b.Enriched, ledger.EnrichedHeader},
		{paths.ConsolidatedCSV, &b.Consolidated, ledger.Header},
		{paths.AggregatedCSV, &b.Aggregated, []string{ledger.ColLegalName, ledger.ColRegion, colTotal, colMean, colStdDev, colRows, colQuarters}},
	}

	for _, src := range sources {
		frame, err := tabular.ReadAll(src.path)
		if err != nil {
			return Bundle{}, apperrors.NewStorageError("failed to read load source", err).WithContext("path", src.path)
		}
		var missing []string
		for _, col := range src.required {
			if frame.Index(col) < 0 {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			return Bundle{}, apperrors.NewStructuralError(src.path, missing...)
		}
		*src.dst = frame
	}
	return b, nil
}
