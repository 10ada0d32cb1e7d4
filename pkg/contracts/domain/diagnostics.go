package domain

// DiagnosticKind classifies a non-fatal data-quality finding.
type DiagnosticKind string

const (
	KindUnrecognizedColumns DiagnosticKind = "colunas_nao_reconhecidas"
	KindInvalidAmount       DiagnosticKind = "valor_invalido"
	KindReadError           DiagnosticKind = "erro_leitura_arquivo"
	KindArchiveError        DiagnosticKind = "erro_extracao_zip"
	KindRegistryMiss        DiagnosticKind = "reg_ans_sem_cadop"
	KindNonPositiveAmount   DiagnosticKind = "valor_zero_ou_negativo"
	KindAmbiguousName       DiagnosticKind = "cnpj_com_razoes_diferentes"
	KindInvalidIdentifier   DiagnosticKind = "cnpj_invalido"
	KindEmptyLegalName      DiagnosticKind = "razao_social_vazia"
	KindInvalidValue        DiagnosticKind = "valor_invalido_ou_nao_positivo"
	KindRegistryDivergence  DiagnosticKind = "cadastro_divergente"
)

// ErrorEntry is one line of the extraction error report.
type ErrorEntry struct {
	Kind    DiagnosticKind `json:"tipo"`
	Year    int            `json:"ano"`
	Quarter int            `json:"trimestre"`
	Detail  string         `json:"detalhe"`
}

// InconsistencyRecord is one line of the consolidation inconsistency report.
type InconsistencyRecord struct {
	Kind   DiagnosticKind `json:"tipo"`
	Key    string         `json:"chave"`
	Detail string         `json:"detalhe"`
}
