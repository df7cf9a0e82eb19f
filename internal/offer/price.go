package offer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountRegex = regexp.MustCompile(`-?\d[\d.,]*`)
	ratingRegex = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// ParsePrice extracts an amount from text such as "19,99 €", "$1,299.00",
// "1.299 €" or "1.234,50". The result is invalid when no amount can be read.
func ParsePrice(text string) decimal.NullDecimal {
	match := amountRegex.FindString(strings.ReplaceAll(text, " ", ""))
	if match == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(normalizeSeparators(match))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// normalizeSeparators rewrites an amount so that '.' is the only decimal
// separator and thousands separators are gone
func normalizeSeparators(s string) string {
	s = strings.TrimRight(s, ".,")
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Whichever separator comes last is the decimal one
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		// "19,99" is a decimal comma, "1,299" and "1,299,000" are thousands
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		// "1.299.000" and "1.299" are thousands, "19.99" and "0.500" are decimals
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
		integer := strings.TrimPrefix(s[:lastDot], "-")
		if len(s)-lastDot-1 == 3 && integer != "0" {
			return strings.Replace(s, ".", "", 1)
		}
	}
	return s
}

// ParseRating extracts a star rating from text such as "4.5",
// "4,5 de 5 estrellas" or "4.5 out of 5 stars". Values are clamped to [0,5];
// nil means unrated.
func ParseRating(text string) *float64 {
	match := ratingRegex.FindString(text)
	if match == "" {
		return nil
	}
	rating, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return &rating
}
