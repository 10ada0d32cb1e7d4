// Package files locates and moves files inside a run's working directory.
//
// Discovery walks filing trees for readable tabular files, period
// directories and ledgers. Manager performs the few file operations the collector
// needs (existence checks, moves with copy fallback) relative to the
// working directory layout.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths.Root)
//	filings, err := discovery.FindTabularFiles("data/raw/1T2024")
//
//	manager := files.NewManager(paths, logger)
//	if manager.FileExists("registry/Relatorio_cadop.csv") {
//	    // reuse the cached registry
//	}
package files
