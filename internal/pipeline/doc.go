// Package pipeline runs the claims-ledger stages in order.
//
// Each stage is a Step registered on a Registry. The Runner executes the
// requested steps sequentially; a step writes all of its artifacts before
// the next one starts and a failing step stops the run. Every execution is
// recorded in a RunManifest saved to docs/pipeline_manifest.json, traced
// with an OpenTelemetry span and counted in the pipeline metrics.
//
// The stages are:
//
//	extract      raw filings per period -> per-period ledgers + error report
//	consolidate  ledgers + registry -> consolidated ledger, inconsistencies, zip
//	validate     consolidated ledger -> valid and invalid rows + summary
//	enrich       ledger + registry -> enriched, unmatched, divergent, operators
//	aggregate    enriched ledger -> grouped statistics + summary
package pipeline
