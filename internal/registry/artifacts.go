package registry

import (
	"fmt"
	"path/filepath"

	"claimsledger/internal/config"
	"claimsledger/internal/exporter"
	"claimsledger/internal/ledger"
	"claimsledger/pkg/contracts/domain"
)

// Enrichment is everything the enrich stage produces.
type Enrichment struct {
	Matched     []domain.ConsolidatedRow
	Unmatched   []domain.ConsolidatedRow
	Canonical   []domain.CanonicalRegistryRecord
	Divergences []domain.DivergenceRecord
	// InvalidIdentifiers counts registry records dropped by Deduplicate.
	InvalidIdentifiers int
}

// Run deduplicates the registry and joins rows against it.
func Run(rows []domain.ConsolidatedRow, records []domain.RegistryRecord) Enrichment {
	canonical, divergences, skipped := Deduplicate(records)
	matched, unmatched := Enrich(rows, NewDirectory(canonical))
	return Enrichment{
		Matched:            matched,
		Unmatched:          unmatched,
		Canonical:          canonical,
		Divergences:        divergences,
		InvalidIdentifiers: skipped,
	}
}

// Summary describes e; files are listed by base name.
func (e Enrichment) Summary(files []string) domain.EnrichmentSummary {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	return domain.EnrichmentSummary{
		TotalRecords:       len(e.Matched) + len(e.Unmatched),
		EnrichedRecords:    len(e.Matched),
		UnmatchedRecords:   len(e.Unmatched),
		DivergentRegistry:  len(e.Divergences),
		InvalidRegistryIDs: e.InvalidIdentifiers,
		Files:              names,
	}
}

// Artifacts writes the enriched and unmatched ledgers, the divergent and
// canonical registries and the summary. It returns the paths written.
func Artifacts(w *exporter.CSVWriter, paths *config.Paths, e Enrichment) ([]string, error) {
	if err := ledger.Write(w, paths.EnrichedCSV, e.Matched, true); err != nil {
		return nil, err
	}
	if err := ledger.Write(w, paths.UnmatchedCSV, e.Unmatched, true); err != nil {
		return nil, err
	}
	if err := w.WriteSimpleCSV(paths.DivergentRegistryCSV, DivergenceHeader, DivergenceRecords(e.Divergences)); err != nil {
		return nil, fmt.Errorf("failed to write divergent registry: %w", err)
	}
	if err := w.WriteSimpleCSV(paths.OperatorsCSV, OperatorsHeader, OperatorRecords(e.Canonical)); err != nil {
		return nil, fmt.Errorf("failed to write operators: %w", err)
	}

	written := []string{paths.EnrichedCSV, paths.UnmatchedCSV, paths.DivergentRegistryCSV, paths.OperatorsCSV}
	if err := exporter.WriteJSON(paths.EnrichmentSummaryJSON, e.Summary(written)); err != nil {
		return nil, fmt.Errorf("failed to write enrichment summary: %w", err)
	}
	return append(written, paths.EnrichmentSummaryJSON), nil
}
