package ingest

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber reads a loosely formatted numeric cell. It accepts percent, seconds
// and currency decorations, accounting-style negatives "(12.5)", and comma
// decimals such as "12,5" or "1.234,5". "1,234,567" is read as thousands
// grouping. A lone comma followed by exactly three digits, as in "1,234", could
// mean either and is rejected, as are empty cells and non-finite values.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		negative = true
	}
	for _, sym := range []string{"$", "€", "£"} {
		s = strings.TrimPrefix(s, sym)
	}
	for _, unit := range []string{"%", "sec", "s"} {
		s = strings.TrimSuffix(s, unit)
	}
	s = strings.TrimSpace(s)

	hasComma := strings.Contains(s, ",")
	hasPeriod := strings.Contains(s, ".")
	switch {
	case hasComma && (hasPeriod || strings.Contains(s, " ")):
		tail := s[strings.LastIndex(s, ",")+1:]
		if len(tail) <= 3 && allDigits(tail) {
			s = strings.NewReplacer(".", "", " ", "", ",", ".").Replace(s)
		} else {
			s = strings.NewReplacer(",", "", " ", "").Replace(s)
		}
	case hasComma:
		groups := strings.Split(s, ",")
		switch {
		case len(groups) > 2:
			if !thousandsGroups(groups) {
				return 0, false
			}
			s = strings.Join(groups, "")
		case ambiguousComma(groups[0], groups[1]):
			return 0, false
		default:
			s = groups[0] + "." + groups[1]
		}
	default:
		s = strings.ReplaceAll(s, " ", "")
	}

	if negative {
		s = "-" + s
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ambiguousComma reports whether head,tail reads equally well as a decimal
// and as a thousands grouping. A head of "0" is always a decimal.
func ambiguousComma(head, tail string) bool {
	head = strings.TrimLeft(head, "+-")
	return len(tail) == 3 && allDigits(tail) &&
		len(head) >= 1 && len(head) <= 3 && allDigits(head) && head[0] != '0'
}

func thousandsGroups(groups []string) bool {
	head := strings.TrimLeft(groups[0], "+-")
	if len(head) == 0 || len(head) > 3 || !allDigits(head) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}
