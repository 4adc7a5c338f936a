package derived

import (
	"strings"
	"time"
)

// maturityCode maps one two-character maturity suffix to the coded month.
type maturityCode struct {
	code  string
	year  int
	month time.Month
}

// maturityCodes is the fixed suffix table of the listed instruments.
// Scan order matters: the first code contained in the symbol wins.
var maturityCodes = []maturityCode{
	{"J5", 2025, time.June},
	{"M5", 2025, time.March},
	{"L5", 2025, time.July},
	{"G5", 2025, time.August},
	{"S5", 2025, time.September},
	{"Y5", 2025, time.May},
	{"N5", 2025, time.November},
	{"O5", 2025, time.October},
	{"E6", 2026, time.January},
	{"F6", 2026, time.February},
	{"J6", 2026, time.June},
	{"E7", 2027, time.January},
}

// InferMaturity resolves a symbol's maturity from its suffix code: the
// last calendar day of the coded month. ok is false when the symbol
// carries no known code; such rows are excluded from derived tables.
func InferMaturity(symbol string) (time.Time, bool) {
	for _, mc := range maturityCodes {
		if strings.Contains(symbol, mc.code) {
			return endOfMonth(mc.year, mc.month), true
		}
	}
	return time.Time{}, false
}

func endOfMonth(year int, month time.Month) time.Time {
	// Day zero of the next month normalizes to the last day of month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}
