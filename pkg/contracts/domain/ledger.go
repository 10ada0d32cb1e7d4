package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ColumnRole names a semantic column in a raw filing.
type ColumnRole string

const (
	RoleIdentifier  ColumnRole = "identifier"
	RoleAccountCode ColumnRole = "account_code"
	RoleDescription ColumnRole = "description"
	RoleAmount      ColumnRole = "amount"
	RoleDate        ColumnRole = "date"
)

// Roles lists every role in resolution order.
var Roles = []ColumnRole{RoleIdentifier, RoleAccountCode, RoleDescription, RoleAmount, RoleDate}

// ColumnRoles maps a role to the original header that satisfied it.
// Absent roles have no entry.
type ColumnRoles map[ColumnRole]string

// Column returns the original header for role.
func (c ColumnRoles) Column(role ColumnRole) (string, bool) {
	name, ok := c[role]
	return name, ok
}

// Has reports whether role was resolved.
func (c ColumnRoles) Has(role ColumnRole) bool {
	_, ok := c[role]
	return ok
}

// RawLedgerEntry is one filing row after role resolution.
type RawLedgerEntry struct {
	IdentifierRaw string
	AccountCode   string
	Description   string
	AmountRaw     string
}

// PeriodExpenseAggregate folds selected filing rows by identifier for one period.
type PeriodExpenseAggregate struct {
	Period Period
	Totals map[string]decimal.Decimal
}

// NewPeriodExpenseAggregate returns an empty aggregate for p.
func NewPeriodExpenseAggregate(p Period) *PeriodExpenseAggregate {
	return &PeriodExpenseAggregate{Period: p, Totals: make(map[string]decimal.Decimal)}
}

// Add folds amount into the identifier's running total.
func (a *PeriodExpenseAggregate) Add(identifier string, amount decimal.Decimal) {
	a.Totals[identifier] = a.Totals[identifier].Add(amount)
}

// Merge adds every total from other into a.
func (a *PeriodExpenseAggregate) Merge(other *PeriodExpenseAggregate) {
	if other == nil {
		return
	}
	for id, v := range other.Totals {
		a.Add(id, v)
	}
}

// Len returns the number of identifiers.
func (a *PeriodExpenseAggregate) Len() int {
	return len(a.Totals)
}

// Identifiers returns identifiers in ascending order.
func (a *PeriodExpenseAggregate) Identifiers() []string {
	ids := make([]string, 0, len(a.Totals))
	for id := range a.Totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ConsolidatedRow is a ledger row joined with the registry.
// Enrichment fills RegistrationID, Category and Region.
type ConsolidatedRow struct {
	Identifier     string          `json:"cnpj"`
	LegalName      string          `json:"razao_social"`
	Period         Period          `json:"periodo"`
	Amount         decimal.Decimal `json:"valor"`
	AmountOK       bool            `json:"-"`
	AmountRaw      string          `json:"-"`
	RegistrationID string          `json:"registro_ans,omitempty"`
	Category       string          `json:"modalidade,omitempty"`
	Region         string          `json:"uf,omitempty"`
}
