package attendance

import (
	"fmt"
)

// FormatPercent renders an attendance fraction as a two-decimal percentage,
// e.g. 0.66667 -> "66.67%". Rounding happens only here, never during
// aggregation.
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}
