package utils

import (
	"regexp"
	"strconv"
	"strings"
)

// priceRegex finds the first number-like token, with optional thousands separators and decimals.
var priceRegex = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParsePrice extracts the amount from strings like "RM 1,299.90" or "Sale price: RM99".
// The second return value is false when no amount could be found.
func ParsePrice(priceStr string) (float64, bool) {
	token := priceRegex.FindString(strings.TrimSpace(priceStr))
	if token == "" {
		return 0, false
	}

	price, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return price, true
}
