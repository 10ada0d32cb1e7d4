// Package api contains the query service contracts.
// Version v1 represents the current stable API version.
package api

// Pagination defaults for operator listings.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// OperatorListRequest holds the query parameters of GET /api/operadoras.
type OperatorListRequest struct {
	Page  int    `json:"page" query:"page" validate:"min=1"`
	Limit int    `json:"limit" query:"limit" validate:"min=1,max=100"`
	Query string `json:"q,omitempty" query:"q" validate:"max=200"`
}

// NewOperatorListRequest returns a request preset with the defaults.
func NewOperatorListRequest() OperatorListRequest {
	return OperatorListRequest{Page: DefaultPage, Limit: DefaultLimit}
}

// Offset is the index of the first row of the requested page.
func (r OperatorListRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}
