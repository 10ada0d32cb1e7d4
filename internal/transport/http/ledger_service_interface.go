package http

import (
	"context"

	api "claimsledger/pkg/contracts/api/v1"
)

// LedgerServiceInterface defines the queries the ledger handler needs
type LedgerServiceInterface interface {
	ListOperators(ctx context.Context, req api.OperatorListRequest) (api.OperatorPage, error)
	GetOperator(ctx context.Context, cnpj string) (api.Operator, error)
	Expenses(ctx context.Context, cnpj string) ([]api.Expense, error)
	Statistics(ctx context.Context) (api.Statistics, error)
}
