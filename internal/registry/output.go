package registry

import (
	"strconv"

	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/identifier"
	"claimsledger/internal/tabular"
	"claimsledger/pkg/contracts/domain"
)

// OperatorsHeader is the header of the canonical registry artifact.
var OperatorsHeader = []string{"CNPJ", "RazaoSocial", "RegistroANS", "Modalidade", "UF", "Duplicados"}

// DivergenceHeader is the header of the divergent-registry artifact.
var DivergenceHeader = []string{"CNPJ", "RegistroANS", "Modalidade", "UF"}

// OperatorRecords renders canonical records in order.
func OperatorRecords(canonical []domain.CanonicalRegistryRecord) [][]string {
	out := make([][]string, len(canonical))
	for i, c := range canonical {
		out[i] = []string{c.Identifier, c.LegalName, c.RegistrationID, c.Category, c.Region, strconv.Itoa(c.Duplicates)}
	}
	return out
}

// DivergenceRecords writes one line per variant, grouped by identifier.
func DivergenceRecords(divergences []domain.DivergenceRecord) [][]string {
	var out [][]string
	for _, d := range divergences {
		for _, v := range d.Variants {
			out = append(out, []string{d.Identifier, v.RegistrationID, v.Category, v.Region})
		}
	}
	return out
}

// ReadOperators loads a canonical registry written with OperatorsHeader.
// Rows whose identifier does not normalize are dropped.
func ReadOperators(path string) ([]domain.CanonicalRegistryRecord, error) {
	frame, err := tabular.ReadAll(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read operators", err).WithContext("path", path)
	}

	var missing []string
	for _, col := range OperatorsHeader[:5] {
		if frame.Index(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewStructuralError(path, missing...)
	}

	get := func(row []string, col string) string {
		if i := frame.Index(col); i >= 0 {
			return cleanText(row[i])
		}
		return ""
	}

	out := make([]domain.CanonicalRegistryRecord, 0, frame.Len())
	for _, row := range frame.Rows {
		id, ok := identifier.Normalize(get(row, "CNPJ"))
		if !ok {
			continue
		}
		dups, err := strconv.Atoi(get(row, "Duplicados"))
		if err != nil || dups < 1 {
			dups = 1
		}
		out = append(out, domain.CanonicalRegistryRecord{
			RegistryRecord: domain.RegistryRecord{
				Identifier:     id,
				LegalName:      get(row, "RazaoSocial"),
				RegistrationID: get(row, "RegistroANS"),
				Category:       get(row, "Modalidade"),
				Region:         get(row, "UF"),
			},
			Duplicates: dups,
		})
	}
	return out, nil
}
