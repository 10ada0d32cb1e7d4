package registry

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"claimsledger/internal/identifier"
	"claimsledger/pkg/contracts/domain"
)

// unregisteredSentinel sorts registration ids that are not numbers last.
const unregisteredSentinel = int64(1_000_000_000_000)

// cleanText trims s and blanks the placeholders spreadsheets leave behind.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return ""
	}
	return s
}

func registrationNumber(id string) int64 {
	if id == "" {
		return unregisteredSentinel
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return unregisteredSentinel
		}
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return unregisteredSentinel
	}
	return n
}

// canonicalOrder ranks records sharing an identifier: most complete first,
// then the lowest numeric registration id, then lexical attributes and
// finally the legal name, so input order never decides the winner.
func canonicalOrder(a, b domain.RegistryRecord) int {
	return cmp.Or(
		cmp.Compare(a.Identifier, b.Identifier),
		cmp.Compare(b.Completeness(), a.Completeness()),
		cmp.Compare(registrationNumber(a.RegistrationID), registrationNumber(b.RegistrationID)),
		cmp.Compare(a.RegistrationID, b.RegistrationID),
		cmp.Compare(a.Category, b.Category),
		cmp.Compare(a.Region, b.Region),
		cmp.Compare(a.LegalName, b.LegalName),
	)
}

// Deduplicate keeps one canonical record per normalized identifier and
// reports identifiers whose attribute tuples disagree. Records whose
// identifier cannot be normalized are dropped and counted in skipped.
// Both result slices are ordered by identifier.
func Deduplicate(records []domain.RegistryRecord) (canonical []domain.CanonicalRegistryRecord, divergences []domain.DivergenceRecord, skipped int) {
	cleaned := make([]domain.RegistryRecord, 0, len(records))
	for _, r := range records {
		id, ok := identifier.Normalize(r.Identifier)
		if !ok {
			skipped++
			continue
		}
		cleaned = append(cleaned, domain.RegistryRecord{
			Identifier:     id,
			LegalName:      cleanText(r.LegalName),
			RegistrationID: cleanText(r.RegistrationID),
			Category:       cleanText(r.Category),
			Region:         cleanText(r.Region),
		})
	}

	divergences = findDivergences(cleaned)

	slices.SortStableFunc(cleaned, canonicalOrder)
	for i := 0; i < len(cleaned); {
		j := i + 1
		for j < len(cleaned) && cleaned[j].Identifier == cleaned[i].Identifier {
			j++
		}
		canonical = append(canonical, domain.CanonicalRegistryRecord{
			RegistryRecord: cleaned[i],
			Duplicates:     j - i,
		})
		i = j
	}
	return canonical, divergences, skipped
}

// findDivergences collects, in order of first appearance, every distinct
// attribute tuple of identifiers that have more than one.
func findDivergences(records []domain.RegistryRecord) []domain.DivergenceRecord {
	variants := make(map[string][]domain.AttributeTuple)
	for _, r := range records {
		t := r.Attributes()
		if !slices.Contains(variants[r.Identifier], t) {
			variants[r.Identifier] = append(variants[r.Identifier], t)
		}
	}

	var out []domain.DivergenceRecord
	for id, vs := range variants {
		if len(vs) > 1 {
			out = append(out, domain.DivergenceRecord{Identifier: id, Variants: vs})
		}
	}
	slices.SortFunc(out, func(a, b domain.DivergenceRecord) int {
		return cmp.Compare(a.Identifier, b.Identifier)
	})
	return out
}
