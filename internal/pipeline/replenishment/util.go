package replenishment

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// groupedNumber matches comma thousands grouping such as 1,234 or 12,345.67.
var groupedNumber = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// parseQuantity reads a numeric cell. Comma thousands grouping is accepted,
// any other comma (a decimal comma like 12,5) is not. An empty cell is zero.
// ok is false when a non-empty cell is not a number, in which case the value
// is zero as well.
func parseQuantity(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, true
	}
	if strings.Contains(v, ",") {
		if !groupedNumber.MatchString(v) {
			return 0, false
		}
		v = strings.ReplaceAll(v, ",", "")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
