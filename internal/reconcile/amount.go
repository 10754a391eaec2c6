package reconcile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when text cannot be read as an amount.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	currencySuffix = regexp.MustCompile(`(?i)\s*(vnđ|vnd|đồng|dong|đ|₫|d)\.?\s*$`)
	amountBody     = regexp.MustCompile(`^[0-9.,]+$`)
	thousand       = decimal.NewFromInt(1000)
)

// ParseAmount reads a human-formatted amount such as "-50.000đ", "+1,234,567
// VND", "12,5" or "300k".
//
// Separators are resolved as follows. When both '.' and ',' appear, the
// rightmost one is the decimal separator and the other must group the integer
// part in threes. A separator that repeats is a thousands separator, and every
// group after the first must have exactly three digits. A single separator is
// a thousands separator only when one to three digits (other than "0") precede
// it and exactly three follow; otherwise it is the decimal separator, so
// "33333.333" stays fractional.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "_", "").Replace(s)
	s = currencySuffix.ReplaceAllString(s, "")

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	multiplier := decimal.NewFromInt(1)
	if strings.HasSuffix(s, "k") || strings.HasSuffix(s, "K") {
		multiplier = thousand
		s = s[:len(s)-1]
	}

	if s == "" || !amountBody.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}

	normalized, err := normalizeSeparators(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", err, text)
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	d = d.Mul(multiplier)
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func normalizeSeparators(s string) (string, error) {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		lastDot := strings.LastIndex(s, ".")
		lastComma := strings.LastIndex(s, ",")
		decimalSep, groupSep := ".", ","
		if lastComma > lastDot {
			decimalSep, groupSep = ",", "."
		}
		if strings.Count(s, decimalSep) > 1 {
			return "", ErrInvalidAmount
		}
		idx := strings.LastIndex(s, decimalSep)
		intPart, frac := s[:idx], s[idx+1:]
		if !grouped(strings.Split(intPart, groupSep)) {
			return "", ErrInvalidAmount
		}
		return strings.ReplaceAll(intPart, groupSep, "") + "." + frac, nil
	case dots > 1:
		return ungroup(s, ".")
	case commas > 1:
		return ungroup(s, ",")
	case dots == 1:
		return singleSeparator(s, "."), nil
	case commas == 1:
		return singleSeparator(s, ","), nil
	}
	return s, nil
}

func ungroup(s, sep string) (string, error) {
	if !grouped(strings.Split(s, sep)) {
		return "", ErrInvalidAmount
	}
	return strings.ReplaceAll(s, sep, ""), nil
}

// grouped reports whether groups is a valid thousands grouping: a leading
// group of one to three digits followed by groups of exactly three.
func grouped(groups []string) bool {
	if len(groups[0]) < 1 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

func singleSeparator(s, sep string) string {
	idx := strings.Index(s, sep)
	intPart, frac := s[:idx], s[idx+1:]
	if len(frac) == 3 && intPart != "0" && grouped([]string{intPart, frac}) {
		return intPart + frac
	}
	if intPart == "" {
		intPart = "0"
	}
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}
