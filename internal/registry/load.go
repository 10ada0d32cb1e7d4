// Package registry loads the operator registry (CADOP), reduces it to one
// canonical record per identifier and joins ledgers against it.
package registry

import (
	"path/filepath"
	"strings"

	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/schema"
	"claimsledger/internal/tabular"
	"claimsledger/pkg/contracts/domain"
)

// Registry column roles.
const (
	RoleRegistrationID domain.ColumnRole = "registration_id"
	RoleLegalName      domain.ColumnRole = "legal_name"
	RoleCategory       domain.ColumnRole = "category"
	RoleRegion         domain.ColumnRole = "region"
)

// required roles make a registry file usable; the rest may be absent.
var required = []domain.ColumnRole{domain.RoleIdentifier, RoleRegistrationID, RoleLegalName}

// Rules are the registry column synonyms with their contains-fallbacks.
func Rules() []schema.Rule {
	return []schema.Rule{
		{Role: RoleRegistrationID, Synonyms: []string{"REGISTRO_ANS", "REG_ANS", "REGISTRO_OPERADORA"}, Contains: []string{"REGISTRO"}},
		{Role: domain.RoleIdentifier, Synonyms: []string{"CNPJ"}, Contains: []string{"CNPJ"}},
		{Role: RoleLegalName, Synonyms: []string{"RAZAO_SOCIAL", "NOME_EMPRESARIAL", "RAZAO", "NOME"}, Contains: []string{"RAZAO"}},
		{Role: RoleCategory, Synonyms: []string{"MODALIDADE"}, Contains: []string{"MODALIDADE"}},
		{Role: RoleRegion, Synonyms: []string{"UF"}, Contains: []string{"UF"}},
	}
}

// NewResolver returns a resolver over the registry rules.
func NewResolver() *schema.Resolver {
	return schema.NewResolver(Rules())
}

// LoadCSV reads the registry file at path. Values are trimmed and kept as
// published; identifiers are normalized later. A missing identifier,
// registration id or legal-name column is a structural error.
func LoadCSV(path string, resolver *schema.Resolver) ([]domain.RegistryRecord, error) {
	if resolver == nil {
		resolver = NewResolver()
	}

	frame, err := tabular.ReadAll(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read registry", err).WithContext("path", path)
	}

	roles := resolver.Resolve(frame.Headers)
	var missing []string
	for _, role := range required {
		if !roles.Has(role) {
			missing = append(missing, string(role))
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewStructuralError(filepath.Base(path), missing...)
	}

	idx := make(map[domain.ColumnRole]int, len(roles))
	for role, name := range roles {
		idx[role] = lastIndex(frame.Headers, name)
	}
	cell := func(row []string, role domain.ColumnRole) string {
		i, ok := idx[role]
		if !ok || i < 0 {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]domain.RegistryRecord, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		records = append(records, domain.RegistryRecord{
			Identifier:     cell(row, domain.RoleIdentifier),
			LegalName:      cell(row, RoleLegalName),
			RegistrationID: cell(row, RoleRegistrationID),
			Category:       cell(row, RoleCategory),
			Region:         cell(row, RoleRegion),
		})
	}
	return records, nil
}

func lastIndex(headers []string, name string) int {
	for i := len(headers) - 1; i >= 0; i-- {
		if headers[i] == name {
			return i
		}
	}
	return -1
}
