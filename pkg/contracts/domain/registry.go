package domain

// RegistryRecord is one row of the operator registry.
type RegistryRecord struct {
	Identifier     string `json:"cnpj"`
	LegalName      string `json:"razao_social"`
	RegistrationID string `json:"registro_ans"`
	Category       string `json:"modalidade"`
	Region         string `json:"uf"`
}

// AttributeTuple is the descriptive triple compared when detecting divergence.
type AttributeTuple struct {
	RegistrationID string `json:"registro_ans"`
	Category       string `json:"modalidade"`
	Region         string `json:"uf"`
}

// Attributes returns the descriptive triple.
func (r RegistryRecord) Attributes() AttributeTuple {
	return AttributeTuple{RegistrationID: r.RegistrationID, Category: r.Category, Region: r.Region}
}

// Completeness counts the non-empty descriptive attributes.
func (r RegistryRecord) Completeness() int {
	n := 0
	for _, v := range []string{r.RegistrationID, r.Category, r.Region} {
		if v != "" {
			n++
		}
	}
	return n
}

// CanonicalRegistryRecord is the single record kept for an identifier.
type CanonicalRegistryRecord struct {
	RegistryRecord
	// Duplicates is how many raw records shared the identifier.
	Duplicates int `json:"duplicados"`
}

// DivergenceRecord lists every distinct attribute tuple seen for an identifier.
type DivergenceRecord struct {
	Identifier string           `json:"cnpj"`
	Variants   []AttributeTuple `json:"variantes"`
}
