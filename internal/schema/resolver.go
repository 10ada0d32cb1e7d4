// Package schema maps the heterogeneous headers of filings and registry
// files onto canonical column roles.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"claimsledger/pkg/contracts/domain"
)

// Rule lists the accepted names for one role, in priority order.
// Contains is a fallback matched against normalized headers, in header order,
// when no synonym matches exactly.
type Rule struct {
	Role     domain.ColumnRole
	Synonyms []string
	Contains []string
}

// DefaultRules are the filing roles.
func DefaultRules() []Rule {
	return []Rule{
		{Role: domain.RoleIdentifier, Synonyms: []string{"REG_ANS", "REGANS", "REGISTRO_ANS"}},
		{Role: domain.RoleAccountCode, Synonyms: []string{"CD_CONTA_CONTABIL", "COD_CONTA_CONTABIL", "CD_CONTA"}},
		{Role: domain.RoleDescription, Synonyms: []string{"DESCRICAO", "DS_CONTA", "DESCRICAO_CONTA", "NM_CONTA", "CONTA", "ITEM", "DS_ITEM"}},
		{Role: domain.RoleAmount, Synonyms: []string{"VL_SALDO_FINAL", "VL_VALOR", "VALOR", "VLR", "VL"}},
		{Role: domain.RoleDate, Synonyms: []string{"DATA", "DT_REFERENCIA", "DT_COMPETENCIA"}},
	}
}

// Resolver resolves header lists against an ordered rule table.
type Resolver struct {
	rules []Rule
}

// NewResolver normalizes the synonyms of rules and keeps their order.
func NewResolver(rules []Rule) *Resolver {
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		normalized[i] = Rule{
			Role:     r.Role,
			Synonyms: NormalizeHeaders(r.Synonyms),
			Contains: NormalizeHeaders(r.Contains),
		}
	}
	return &Resolver{rules: normalized}
}

// NewFilingResolver returns the default filing resolver with per-role
// synonym overrides applied. Unknown roles are rejected.
func NewFilingResolver(overrides map[string][]string) (*Resolver, error) {
	rules := DefaultRules()
	known := make(map[domain.ColumnRole]int, len(rules))
	for i, r := range rules {
		known[r.Role] = i
	}

	roles := make([]string, 0, len(overrides))
	for role := range overrides {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	for _, role := range roles {
		idx, ok := known[domain.ColumnRole(role)]
		if !ok {
			return nil, fmt.Errorf("unknown column role %q", role)
		}
		rules[idx].Synonyms = overrides[role]
	}
	return NewResolver(rules), nil
}

// Resolve maps each role to the original header of its first matching synonym.
// When two headers normalize to the same name, the later one is used.
func (r *Resolver) Resolve(headers []string) domain.ColumnRoles {
	byName := make(map[string]string, len(headers))
	normalized := make([]string, len(headers))
	for i, h := range headers {
		n := NormalizeHeader(h)
		normalized[i] = n
		byName[n] = h
	}

	roles := make(domain.ColumnRoles, len(r.rules))
	for _, rule := range r.rules {
		if original, ok := matchExact(rule, byName); ok {
			roles[rule.Role] = original
			continue
		}
		if original, ok := matchContains(rule, headers, normalized); ok {
			roles[rule.Role] = original
		}
	}
	return roles
}

func matchExact(rule Rule, byName map[string]string) (string, bool) {
	for _, syn := range rule.Synonyms {
		if original, ok := byName[syn]; ok {
			return original, true
		}
	}
	return "", false
}

func matchContains(rule Rule, headers, normalized []string) (string, bool) {
	for _, needle := range rule.Contains {
		for i, n := range normalized {
			if strings.Contains(n, needle) {
				return headers[i], true
			}
		}
	}
	return "", false
}

// Describe renders the resolution for diagnostics, e.g. "identifier=REG_ANS amount=None".
func Describe(roles domain.ColumnRoles, order []domain.ColumnRole, labels map[domain.ColumnRole]string) string {
	parts := make([]string, 0, len(order))
	for _, role := range order {
		label := string(role)
		if l, ok := labels[role]; ok {
			label = l
		}
		col, ok := roles.Column(role)
		if !ok {
			col = "None"
		}
		parts = append(parts, label+"="+col)
	}
	return strings.Join(parts, " ")
}
