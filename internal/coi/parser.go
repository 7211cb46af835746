// Package coi extracts structured insurance fields from certificate transcripts.
//
// The transcript is scanned line by line and every search is bounded to a few
// lines around a label, which keeps a stray figure elsewhere on an ACORD-25 form
// from being attributed to the wrong coverage. Multiple sections of the same kind
// (an umbrella policy after the primary GL, for example) resolve to the first match.
package coi

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coiapi/internal/model"
)

// sectionWindow is how many lines after a coverage heading are searched for its limit.
const sectionWindow = 10

// Keys used in ParsedCertificate.RawMatches.
const (
	MatchGeneralLiability    = "general_liability"
	MatchAutoLiability       = "auto_liability"
	MatchAdditionalInsured   = "additional_insured"
	MatchWaiverOfSubrogation = "waiver_of_subrogation"
	MatchEffectiveDate       = "effective_date"
	MatchExpiryDate          = "expiry_date"
)

var (
	glHeadingRe   = regexp.MustCompile(`(?i)COMMERCIAL\s+GENERAL\s+LIABILITY|GENERAL\s+LIABILITY|\bCGL\b|\bGEN\.?\s+LIAB`)
	glAmountRe    = regexp.MustCompile(`(?i)EACH\s+OCCURRENCE`)
	autoHeadingRe = regexp.MustCompile(`(?i)AUTOMOBILE\s+LIABILITY|AUTO\s+LIABILITY|BUSINESS\s+AUTO|COMMERCIAL\s+AUTO`)
	autoAmountRe  = regexp.MustCompile(`(?i)COMBINED\s+SINGLE\s+LIMIT|EACH\s+ACCIDENT`)

	additionalInsuredRe = regexp.MustCompile(`(?i)ADDITIONAL\s+INSURED|ADD'?L\.?\s+INS(?:URE)?D|\bADDL\s+INS\b`)
	waiverRe            = regexp.MustCompile(`(?i)WAIVER\s+OF\s+SUBROGATION|WAIVER\s+OF\s+SUBRO\b|SUBR\.?\s+WVD|SUBROGATION\s+WAIVED`)

	// checkboxRe matches a checked box: a tick glyph anywhere, or an X standing on its own.
	checkboxRe = regexp.MustCompile(`(?i)[✓✔☑]|(?:^|[\s\[\(])X(?:$|[\s\]\)])`)

	effectiveLabelRe = regexp.MustCompile(`(?i)POLICY\s+EFF(?:ECTIVE)?(?:\s+DATE)?|\bEFF(?:ECTIVE)?\.?\s+DATE`)
	expiryLabelRe    = regexp.MustCompile(`(?i)POLICY\s+EXP(?:IRATION)?(?:\s+DATE)?|\bEXP(?:IRATION)?\.?\s+DATE`)
)

// Parse reads coverage limits, endorsement checkboxes and policy dates from a
// certificate transcript. It never panics: on an internal failure it returns an
// empty certificate, so both endorsements read as unchecked.
func Parse(transcript string) (out model.ParsedCertificate) {
	defer func() {
		if r := recover(); r != nil {
			out = model.ParsedCertificate{}
		}
	}()

	lines := splitLines(transcript)
	raw := make(map[string]string)

	if amt, tok, ok := sectionAmount(lines, glHeadingRe, glAmountRe); ok {
		out.GeneralLiability = model.Some(amt)
		raw[MatchGeneralLiability] = tok
	}
	if amt, tok, ok := sectionAmount(lines, autoHeadingRe, autoAmountRe); ok {
		out.AutoLiability = model.Some(amt)
		raw[MatchAutoLiability] = tok
	}
	if line, ok := checkedLabel(lines, additionalInsuredRe); ok {
		out.HasAdditionalInsured = true
		raw[MatchAdditionalInsured] = line
	}
	if line, ok := checkedLabel(lines, waiverRe); ok {
		out.HasWaiverOfSubrogation = true
		raw[MatchWaiverOfSubrogation] = line
	}
	if d, tok, ok := labelledDate(lines, effectiveLabelRe, false); ok {
		out.EffectiveDate = model.Some(d)
		raw[MatchEffectiveDate] = tok
	}
	if d, tok, ok := labelledDate(lines, expiryLabelRe, true); ok {
		out.ExpiryDate = model.Some(d)
		raw[MatchExpiryDate] = tok
	}

	if len(raw) > 0 {
		out.RawMatches = raw
	}
	return out
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

// sectionAmount finds the first heading line, then the first amount label within
// the following sectionWindow lines, and reads the amount from the label line or
// the line after it.
func sectionAmount(lines []string, heading, label *regexp.Regexp) (decimal.Decimal, string, bool) {
	start := firstMatch(lines, heading)
	if start < 0 {
		return decimal.Zero, "", false
	}
	end := min(start+sectionWindow, len(lines)-1)
	for i := start; i <= end; i++ {
		if !label.MatchString(lines[i]) {
			continue
		}
		if amt, tok, ok := firstAmount(lines[i]); ok {
			return amt, tok, true
		}
		if i+1 < len(lines) {
			if amt, tok, ok := firstAmount(lines[i+1]); ok {
				return amt, tok, true
			}
		}
	}
	return decimal.Zero, "", false
}

// checkedLabel reports whether any line carrying the label has a checkbox mark on
// itself or on an adjacent line. The label alone is not enough: ACORD forms print
// endorsement names whether or not they apply.
func checkedLabel(lines []string, label *regexp.Regexp) (string, bool) {
	for i, line := range lines {
		if !label.MatchString(line) {
			continue
		}
		for j := i - 1; j <= i+1; j++ {
			if j < 0 || j >= len(lines) {
				continue
			}
			if checkboxRe.MatchString(lines[j]) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

// labelledDate reads the date that belongs to the first line matching label.
// The label line is tried first, then the line after it; on each line a numeric
// date wins over a spelled-out one. When both policy date labels share one header
// line the dates sit in columns, so the expiry takes the second date found.
func labelledDate(lines []string, label *regexp.Regexp, expiry bool) (time.Time, string, bool) {
	idx := firstMatch(lines, label)
	if idx < 0 {
		return time.Time{}, "", false
	}
	column := 0
	if expiry && effectiveLabelRe.MatchString(lines[idx]) {
		column = 1
	}
	for i := idx; i <= idx+1 && i < len(lines); i++ {
		if d, tok, ok := dateOnLine(lines[i], column); ok {
			return d, tok, true
		}
	}
	return time.Time{}, "", false
}

func dateOnLine(line string, column int) (time.Time, string, bool) {
	toks := numericDateRe.FindAllString(line, -1)
	if len(toks) > 0 {
		pick := toks[0]
		if column < len(toks) {
			pick = toks[column]
		}
		if d, ok := ParseDate(pick); ok {
			return d, pick, true
		}
	}
	if d, ok := parseSpelledDate(line); ok {
		return d, strings.TrimSpace(line), true
	}
	return time.Time{}, "", false
}

func firstMatch(lines []string, re *regexp.Regexp) int {
	for i, line := range lines {
		if re.MatchString(line) {
			return i
		}
	}
	return -1
}
