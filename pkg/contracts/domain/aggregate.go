package domain

import "github.com/shopspring/decimal"

// AggregateGroup summarises the ledger rows sharing a group key.
type AggregateGroup struct {
	Key             []string        `json:"chave"`
	Total           decimal.Decimal `json:"total_despesas"`
	Mean            decimal.Decimal `json:"media_por_trimestre"`
	StdDev          float64         `json:"desvio_padrao"`
	Count           int             `json:"qtd_registros"`
	DistinctPeriods int             `json:"qtd_trimestres"`
}
