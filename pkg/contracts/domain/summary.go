package domain

// ValidationSummary is written after row validation.
type ValidationSummary struct {
	TotalRows        int            `json:"total_linhas"`
	ValidRows        int            `json:"linhas_validas"`
	InvalidRows      int            `json:"linhas_invalidas"`
	RejectionRatePct float64        `json:"taxa_rejeicao_pct"`
	Reasons          map[string]int `json:"motivos_rejeicao"`
}

// EnrichmentSummary is written after the registry join.
type EnrichmentSummary struct {
	TotalRecords       int      `json:"total_registros"`
	EnrichedRecords    int      `json:"registros_enriquecidos"`
	UnmatchedRecords   int      `json:"registros_sem_match"`
	DivergentRegistry  int      `json:"cnpjs_divergentes_cadastro"`
	InvalidRegistryIDs int      `json:"cadastro_cnpj_invalido"`
	Files              []string `json:"arquivos_gerados"`
}

// AggregationSummary is written after grouping.
type AggregationSummary struct {
	Groups     int    `json:"total_grupos"`
	InputRows  int    `json:"total_registros_entrada"`
	OutputFile string `json:"arquivo_saida"`
}
