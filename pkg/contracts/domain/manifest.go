package domain

// PeriodManifest is the collector's hand-off document describing the latest periods.
type PeriodManifest struct {
	BaseURL string           `json:"base_url"`
	Periods []ManifestPeriod `json:"ultimos_3_trimestres"`
	Ignored []string         `json:"arquivos_ignorados"`
}

// ManifestPeriod lists the archives published for one quarter.
type ManifestPeriod struct {
	Year    int      `json:"ano"`
	Quarter int      `json:"trimestre"`
	Label   string   `json:"rotulo"`
	ZipURLs []string `json:"zip_urls"`
}

// Period converts the entry to a Period.
func (m ManifestPeriod) Period() Period {
	return Period{Year: m.Year, Quarter: m.Quarter}
}
