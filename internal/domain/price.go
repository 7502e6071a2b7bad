package domain

import "strconv"

// FormatPrice renders an amount the way the gateway expects it: two decimal
// places, dot separator.
func FormatPrice(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
