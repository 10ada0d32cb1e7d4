package collector

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/exporter"
	"claimsledger/pkg/contracts/domain"
)

// BuildManifest keeps the latest n periods of d. URL lists are sorted.
func BuildManifest(baseURL string, d *Discovered, n int) (*domain.PeriodManifest, error) {
	if d == nil || len(d.Periods) == 0 {
		return nil, apperrors.NewNotFoundError("quarterly archives").WithContext("base_url", baseURL)
	}

	m := &domain.PeriodManifest{
		BaseURL: baseURL,
		Periods: []domain.ManifestPeriod{},
		Ignored: append([]string{}, d.Ignored...),
	}
	sort.Strings(m.Ignored)

	for _, p := range d.Latest(n) {
		urls := append([]string(nil), d.Periods[p]...)
		sort.Strings(urls)
		m.Periods = append(m.Periods, domain.ManifestPeriod{
			Year:    p.Year,
			Quarter: p.Quarter,
			Label:   p.Label(),
			ZipURLs: urls,
		})
	}
	return m, nil
}

// SaveManifest writes m as indented JSON.
func SaveManifest(path string, m *domain.PeriodManifest) error {
	if err := exporter.WriteJSON(path, m); err != nil {
		return fmt.Errorf("failed to write period manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest written by SaveManifest.
func LoadManifest(path string) (*domain.PeriodManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read period manifest", err).WithContext("path", path)
	}
	var m domain.PeriodManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.NewParsingError("invalid period manifest", err).WithContext("path", path)
	}
	for _, p := range m.Periods {
		if _, err := domain.NewPeriod(p.Year, p.Quarter); err != nil {
			return nil, apperrors.NewParsingError("invalid period in manifest", err).WithContext("path", path)
		}
	}
	return &m, nil
}
