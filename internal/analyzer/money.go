package analyzer

import (
	"regexp"
	"strconv"
	"strings"
)

const amountPattern = `\d+(?:[,.]\d{3})*(?:[.,]\d{2})?`

var moneyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[$€£¥₹]\s?` + amountPattern),
	regexp.MustCompile(amountPattern + `\s?[$€£¥₹]`),
	regexp.MustCompile(`(?i)total:\s*[$€£¥₹]?\s?` + amountPattern),
	regexp.MustCompile(`(?i)amount:\s*[$€£¥₹]?\s?` + amountPattern),
}

var amountRegex = regexp.MustCompile(amountPattern)

// extractMoney returns the first match of each money pattern whose
// numeric part parses. Duplicates are dropped.
func extractMoney(text string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, re := range moneyPatterns {
		m := re.FindString(text)
		if m == "" {
			continue
		}
		if _, ok := ParseAmount(m); !ok {
			continue
		}
		m = strings.TrimSpace(m)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// ParseAmount extracts the numeric value of a money mention such as
// "$1,234.56", "12,50 €" or "total: 45". The last separator is treated as
// the decimal mark only when exactly two digits follow it.
func ParseAmount(mention string) (float64, bool) {
	num := amountRegex.FindString(mention)
	if num == "" {
		return 0, false
	}

	decimal := ""
	last := strings.LastIndexAny(num, ",.")
	if last >= 0 && len(num)-last-1 == 2 {
		decimal = num[last+1:]
		num = num[:last]
	}
	intPart := strings.NewReplacer(",", "", ".", "").Replace(num)
	if intPart == "" {
		return 0, false
	}
	s := intPart
	if decimal != "" {
		s += "." + decimal
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
