package collector

import (
	"path"
	"regexp"
	"strconv"

	"claimsledger/pkg/contracts/domain"
)

// archivePatterns are the archive names the regulator has published over
// the years. Each captures the quarter as "q" and the year as "y".
var archivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?P<q>[1-4])T(?P<y>\d{4})\.zip$`),
	regexp.MustCompile(`(?i)^(?P<y>\d{4})_(?P<q>[1-4])_trimestre\.zip$`),
	regexp.MustCompile(`(?i)^\d{8}_(?P<y>\d{4})_(?P<q>[1-4])_trimestre\.zip$`),
	regexp.MustCompile(`(?i)^\d{8}_(?P<q>[1-4])T(?P<y>\d{4})\.zip$`),
	regexp.MustCompile(`(?i)^(?P<y>\d{4})-(?P<q>[1-4])t\.zip$`),
}

// ParsePeriod reads the quarter an archive belongs to from its name. Only
// the last path element is considered.
func ParsePeriod(name string) (domain.Period, bool) {
	base := path.Base(name)
	for _, re := range archivePatterns {
		m := re.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[re.SubexpIndex("y")])
		quarter, _ := strconv.Atoi(m[re.SubexpIndex("q")])
		p, err := domain.NewPeriod(year, quarter)
		if err != nil {
			return domain.Period{}, false
		}
		return p, true
	}
	return domain.Period{}, false
}
