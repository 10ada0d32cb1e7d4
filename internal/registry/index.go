package registry

import (
	"strings"

	"claimsledger/internal/identifier"
	"claimsledger/pkg/contracts/domain"
)

// Index looks up raw registry records by registration id. The first record
// for an id wins; blank ids are not indexed.
type Index struct {
	byRegistration map[string]domain.RegistryRecord
}

// NewIndex builds an index from raw records. Identifiers are reduced to
// their digits without padding.
func NewIndex(records []domain.RegistryRecord) *Index {
	idx := &Index{byRegistration: make(map[string]domain.RegistryRecord, len(records))}
	for _, r := range records {
		reg := strings.TrimSpace(r.RegistrationID)
		if reg == "" {
			continue
		}
		if _, seen := idx.byRegistration[reg]; seen {
			continue
		}
		r.RegistrationID = reg
		r.Identifier = identifier.Digits(r.Identifier)
		r.LegalName = strings.TrimSpace(r.LegalName)
		idx.byRegistration[reg] = r
	}
	return idx
}

// Lookup returns the record for a registration id.
func (i *Index) Lookup(registrationID string) (domain.RegistryRecord, bool) {
	r, ok := i.byRegistration[strings.TrimSpace(registrationID)]
	return r, ok
}

// Len returns the number of indexed registration ids.
func (i *Index) Len() int {
	return len(i.byRegistration)
}
