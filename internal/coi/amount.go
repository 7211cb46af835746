package coi

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	millionRe  = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:MM|MILLION|MIL|M)\b`)
	thousandRe = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:THOUSAND|K)\b`)
	numberRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)

	// currencyTokenRe finds a $-prefixed figure, optionally suffixed M/MM/K.
	currencyTokenRe = regexp.MustCompile(`(?i)\$\s*\d[\d,]*(?:\.\d+)?(?:MM|M|K)?\b`)
	// bareTokenRe covers OCR output that dropped the $: a suffixed figure, a
	// comma-grouped figure or a plain run of at least four digits. The token must
	// start the line or follow a space or colon so policy numbers like GL-100200
	// are skipped.
	bareTokenRe = regexp.MustCompile(`(?i)(?:^|[\s:])(\d+(?:\.\d+)?\s*(?:MM|MILLION|MIL|M|THOUSAND|K)|\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d{4,}(?:\.\d+)?)\b`)
	dateTokenRe = regexp.MustCompile(`\d{1,4}[/-]\d{1,2}[/-]\d{2,4}`)

	million  = decimal.NewFromInt(1_000_000)
	thousand = decimal.NewFromInt(1_000)
)

// ParseAmount reads a coverage amount such as "$1,000,000", "1000000", "1.5M" or "500K".
// Suffixed forms are tried first; otherwise currency symbols and separators are stripped
// and the first number wins.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	if m := millionRe.FindStringSubmatch(s); m != nil {
		if d, ok := parseNumber(m[1]); ok {
			return d.Mul(million), true
		}
	}
	if m := thousandRe.FindStringSubmatch(s); m != nil {
		if d, ok := parseNumber(m[1]); ok {
			return d.Mul(thousand), true
		}
	}
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(s)
	n := numberRe.FindString(cleaned)
	if n == "" {
		return decimal.Zero, false
	}
	return parseNumber(n)
}

func parseNumber(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// firstAmount returns the first money token on a line and its parsed value.
// A $-prefixed figure wins over a bare one anywhere on the line.
func firstAmount(line string) (decimal.Decimal, string, bool) {
	tok := currencyTokenRe.FindString(line)
	if tok == "" {
		if m := bareTokenRe.FindStringSubmatch(dateTokenRe.ReplaceAllString(line, " ")); m != nil {
			tok = m[1]
		}
	}
	if tok == "" {
		return decimal.Zero, "", false
	}
	d, ok := ParseAmount(tok)
	if !ok {
		return decimal.Zero, "", false
	}
	return d, tok, true
}
