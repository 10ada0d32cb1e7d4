package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every file location used by a run.
// All of them live under one root so each run owns a private working directory.
type Paths struct {
	Root        string
	DocsDir     string
	DataDir     string
	RawDir      string
	NormalDir   string
	RegistryDir string
	OutputDir   string
	LogsDir     string

	// Well-known artifacts
	PeriodManifestJSON    string
	ErrorReportCSV        string
	InconsistencyCSV      string
	ValidationSummaryJSON string
	EnrichmentSummaryJSON string
	AggregationSummary    string
	RunManifestJSON       string
	RegistryCSV           string
	ConsolidatedCSV       string
	ConsolidatedZip       string
	ValidatedCSV          string
	InvalidCSV            string
	EnrichedCSV           string
	UnmatchedCSV          string
	DivergentRegistryCSV  string
	OperatorsCSV          string
	AggregatedCSV         string
}

// NewPaths lays out the working directory under root.
func NewPaths(root string) (*Paths, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}

	docs := filepath.Join(abs, "docs")
	data := filepath.Join(abs, "data")
	output := filepath.Join(data, "output")
	registry := filepath.Join(data, "registry")

	return &Paths{
		Root:        abs,
		DocsDir:     docs,
		DataDir:     data,
		RawDir:      filepath.Join(data, "raw"),
		NormalDir:   filepath.Join(data, "normal"),
		RegistryDir: registry,
		OutputDir:   output,
		LogsDir:     filepath.Join(abs, "logs"),

		PeriodManifestJSON:    filepath.Join(docs, "ultimos_trimestres.json"),
		ErrorReportCSV:        filepath.Join(docs, "relatorio_erros.csv"),
		InconsistencyCSV:      filepath.Join(docs, "relatorio_inconsistencias.csv"),
		ValidationSummaryJSON: filepath.Join(docs, "resumo_validacao.json"),
		EnrichmentSummaryJSON: filepath.Join(docs, "resumo_enriquecimento.json"),
		AggregationSummary:    filepath.Join(docs, "resumo_agregacao.json"),
		RunManifestJSON:       filepath.Join(docs, "pipeline_manifest.json"),
		RegistryCSV:           filepath.Join(registry, "Relatorio_cadop.csv"),
		ConsolidatedCSV:       filepath.Join(output, "consolidado_despesas.csv"),
		ConsolidatedZip:       filepath.Join(output, "consolidado_despesas.zip"),
		ValidatedCSV:          filepath.Join(output, "validados.csv"),
		InvalidCSV:            filepath.Join(output, "invalidos.csv"),
		EnrichedCSV:           filepath.Join(output, "enriquecido.csv"),
		UnmatchedCSV:          filepath.Join(output, "sem_match.csv"),
		DivergentRegistryCSV:  filepath.Join(output, "cadastro_divergentes.csv"),
		OperatorsCSV:          filepath.Join(output, "operadoras.csv"),
		AggregatedCSV:         filepath.Join(output, "despesas_agregadas.csv"),
	}, nil
}

// RawPeriodDir is where the archives of one period are downloaded and extracted.
func (p *Paths) RawPeriodDir(label string) string {
	return filepath.Join(p.RawDir, label)
}

// PeriodLedgerCSV is the per-period ledger produced by extraction.
func (p *Paths) PeriodLedgerCSV(label string) string {
	return filepath.Join(p.NormalDir, fmt.Sprintf("despesas_eventos_sinistros_%s.csv", label))
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DocsDir,
		p.RawDir,
		p.NormalDir,
		p.RegistryDir,
		p.OutputDir,
		p.LogsDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
