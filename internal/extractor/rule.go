package extractor

import (
	"strings"

	"claimsledger/internal/config"
	"claimsledger/internal/schema"
	"claimsledger/internal/tabular"
	"claimsledger/pkg/contracts/domain"
)

// CategoryRule selects the claims-expense rows of a filing without counting
// the same money twice. A total account, when present, wins over the
// description heuristic.
type CategoryRule struct {
	TotalAccount        string
	AccountPrefixes     []string
	Include             []string
	Exclude             []string
	FallbackTextColumns int
}

// DefaultCategoryRule selects account "41", or else rows describing events
// or claims that are not revenue under accounts 4 and 7.
func DefaultCategoryRule() CategoryRule {
	return RuleFromConfig(config.Default().Pipeline)
}

// RuleFromConfig builds the rule from pipeline settings. Terms are folded so
// they compare against folded descriptions.
func RuleFromConfig(cfg config.PipelineConfig) CategoryRule {
	return CategoryRule{
		TotalAccount:        strings.TrimSpace(cfg.TotalAccount),
		AccountPrefixes:     append([]string(nil), cfg.AccountPrefixes...),
		Include:             foldAll(cfg.IncludeTerms),
		Exclude:             foldAll(cfg.ExcludeTerms),
		FallbackTextColumns: cfg.FallbackTextColumns,
	}
}

func foldAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if f := schema.Fold(strings.TrimSpace(t)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Describes reports whether text names a claims expense: it contains an
// inclusion term and no exclusion term.
func (r CategoryRule) Describes(text string) bool {
	folded := schema.Fold(strings.TrimSpace(text))

	included := false
	for _, term := range r.Include {
		if strings.Contains(folded, term) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, term := range r.Exclude {
		if strings.Contains(folded, term) {
			return false
		}
	}
	return true
}

func (r CategoryRule) hasPrefix(code string) bool {
	for _, p := range r.AccountPrefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// Entries resolves every row of frame to a ledger entry. Without a
// description column the leading cells stand in for the description.
func (r CategoryRule) Entries(frame tabular.Frame, roles domain.ColumnRoles) []domain.RawLedgerEntry {
	idIdx := columnIndex(frame, roles, domain.RoleIdentifier)
	accountIdx := columnIndex(frame, roles, domain.RoleAccountCode)
	descIdx := columnIndex(frame, roles, domain.RoleDescription)
	amountIdx := columnIndex(frame, roles, domain.RoleAmount)

	entries := make([]domain.RawLedgerEntry, len(frame.Rows))
	for i, row := range frame.Rows {
		entries[i] = domain.RawLedgerEntry{
			IdentifierRaw: cell(row, idIdx),
			AccountCode:   strings.TrimSpace(cell(row, accountIdx)),
			Description:   r.text(row, descIdx),
			AmountRaw:     cell(row, amountIdx),
		}
	}
	return entries
}

// HasTotal reports whether any row of frame carries the total account.
func (r CategoryRule) HasTotal(frame tabular.Frame, roles domain.ColumnRoles) bool {
	accountIdx := columnIndex(frame, roles, domain.RoleAccountCode)
	if accountIdx < 0 || r.TotalAccount == "" {
		return false
	}
	for _, row := range frame.Rows {
		if strings.TrimSpace(row[accountIdx]) == r.TotalAccount {
			return true
		}
	}
	return false
}

// Select returns the indexes of the rows of frame the rule keeps, taking
// frame as a whole filing.
func (r CategoryRule) Select(frame tabular.Frame, roles domain.ColumnRoles) []int {
	accounts := columnIndex(frame, roles, domain.RoleAccountCode) >= 0
	return r.SelectEntries(r.Entries(frame, roles), accounts, r.HasTotal(frame, roles))
}

// SelectEntries returns the indexes of the entries the rule keeps. When
// totals is set the filing carries the total account and only those
// entries count. Otherwise the description heuristic applies, limited to
// the account prefixes when the filing has an account column.
func (r CategoryRule) SelectEntries(entries []domain.RawLedgerEntry, accounts, totals bool) []int {
	var selected []int
	for i, e := range entries {
		if totals {
			if e.AccountCode == r.TotalAccount {
				selected = append(selected, i)
			}
			continue
		}
		if !r.Describes(e.Description) {
			continue
		}
		if accounts && !r.hasPrefix(e.AccountCode) {
			continue
		}
		selected = append(selected, i)
	}
	return selected
}

// columnIndex locates the header resolved for role. Repeated headers
// resolve to their last occurrence, as the resolver does.
func columnIndex(frame tabular.Frame, roles domain.ColumnRoles, role domain.ColumnRole) int {
	name, ok := roles.Column(role)
	if !ok {
		return -1
	}
	for i := len(frame.Headers) - 1; i >= 0; i-- {
		if frame.Headers[i] == name {
			return i
		}
	}
	return -1
}
