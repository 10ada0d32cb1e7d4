package api

// Operator is one row of the canonical registry.
type Operator struct {
	CNPJ          string `json:"cnpj"`
	CNPJFormatted string `json:"cnpj_formatado"`
	RazaoSocial   string `json:"razao_social"`
	RegistroANS   string `json:"registro_ans"`
	Modalidade    string `json:"modalidade"`
	UF            string `json:"uf"`
}

// OperatorPage is a page of operators.
type OperatorPage struct {
	Data       []Operator `json:"data"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}

// Expense is the amount filed by one operator for one quarter.
type Expense struct {
	Ano       int     `json:"ano"`
	Trimestre int     `json:"trimestre"`
	Valor     float64 `json:"valor"`
}

// TopOperator ranks an operator by its total expenses.
type TopOperator struct {
	CNPJ          string  `json:"cnpj"`
	RazaoSocial   string  `json:"razao_social"`
	UF            string  `json:"uf"`
	TotalDespesas float64 `json:"total_despesas"`
}

// RegionBreakdown totals expenses of the operators registered in one UF.
type RegionBreakdown struct {
	UF                string  `json:"uf"`
	TotalDespesas     float64 `json:"total_despesas"`
	QtdOperadoras     int     `json:"qtd_operadoras"`
	MediaPorOperadora float64 `json:"media_por_operadora"`
}

// Statistics is the body of GET /api/estatisticas.
type Statistics struct {
	TotalDespesas     float64           `json:"total_despesas"`
	MediaPorOperadora float64           `json:"media_por_operadora"`
	TopOperadoras     []TopOperator     `json:"top_5_operadoras"`
	PorUF             []RegionBreakdown `json:"por_uf"`
}
