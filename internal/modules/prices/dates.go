package prices

import (
	"strings"
	"time"

	"github.com/aristath/replica/internal/domain"
)

// Year-first and textual layouts are unambiguous and tried regardless of order.
var unambiguousLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-06",
}

var dayFirstLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"2-1-2006",
	"2/1/2006",
	"02/01/06",
}

var monthFirstLayouts = []string{
	"01-02-2006",
	"01/02/2006",
	"1-2-2006",
	"1/2/2006",
	"01/02/06",
}

// ParseDate parses a raw date string to a UTC calendar day. dayFirst sets the
// preferred reading of numeric dd/mm vs mm/dd strings; like common dataframe
// parsers the preference is not strict, so "13/01/2024" still parses when
// month-first is preferred.
func ParseDate(raw string, dayFirst bool) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	preferred, other := monthFirstLayouts, dayFirstLayouts
	if dayFirst {
		preferred, other = dayFirstLayouts, monthFirstLayouts
	}

	for _, group := range [][]string{unambiguousLayouts, preferred, other} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return domain.Day(t), true
			}
		}
	}
	return time.Time{}, false
}
