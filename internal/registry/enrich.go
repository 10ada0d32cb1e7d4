package registry

import (
	"claimsledger/internal/identifier"
	"claimsledger/pkg/contracts/domain"
)

// Directory is the canonical registry keyed by normalized identifier.
type Directory struct {
	records map[string]domain.CanonicalRegistryRecord
}

// NewDirectory indexes canonical records by identifier.
func NewDirectory(canonical []domain.CanonicalRegistryRecord) *Directory {
	d := &Directory{records: make(map[string]domain.CanonicalRegistryRecord, len(canonical))}
	for _, c := range canonical {
		d.records[c.Identifier] = c
	}
	return d
}

// Get returns the canonical record for a normalized identifier.
func (d *Directory) Get(id string) (domain.CanonicalRegistryRecord, bool) {
	c, ok := d.records[id]
	return c, ok
}

// Len returns the number of operators in the directory.
func (d *Directory) Len() int {
	return len(d.records)
}

// Enrich left-joins rows to the directory by normalized identifier. Rows
// whose identifier normalizes carry the normalized form in both results.
// A row counts as matched when the canonical record has a registration id.
func Enrich(rows []domain.ConsolidatedRow, dir *Directory) (matched, unmatched []domain.ConsolidatedRow) {
	for _, row := range rows {
		row.RegistrationID, row.Category, row.Region = "", "", ""
		id, ok := identifier.Normalize(row.Identifier)
		if ok {
			row.Identifier = id
			if c, found := dir.Get(id); found {
				row.RegistrationID = c.RegistrationID
				row.Category = c.Category
				row.Region = c.Region
			}
		}

		if row.RegistrationID != "" {
			matched = append(matched, row)
		} else {
			unmatched = append(unmatched, row)
		}
	}
	return matched, unmatched
}
