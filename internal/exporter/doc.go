// Package exporter writes the pipeline's artifacts.
//
// Every artifact is written to a temporary file in its destination
// directory and renamed into place, so readers never observe a partial
// file. CSV output uses ';' as the delimiter and a UTF-8 BOM so the
// files open cleanly in spreadsheet tools.
//
// CSVWriter covers whole-file writes, appends (the error report) and
// streaming writes for large ledgers. WriteJSON and ZipFiles produce the
// stage summaries and the consolidated archive.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths, logger)
//	err := w.WriteSimpleCSV(paths.ConsolidatedCSV, headers, records)
//
//	err = exporter.WriteJSON(paths.ValidationSummaryJSON, summary)
//	err = exporter.ZipFiles(paths.ConsolidatedZip, paths.ConsolidatedCSV)
package exporter
