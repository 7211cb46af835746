// Package compliance checks parsed certificates against an account's rule set.
package compliance

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"coiapi/internal/model"
)

var (
	oneMillion  = decimal.NewFromInt(1_000_000)
	oneThousand = decimal.NewFromInt(1_000)
)

// Evaluate runs every applicable rule and returns the accumulated violations in a
// fixed order: general liability, auto liability, additional insured, waiver,
// expiry, effective date. Date checks are relative to now. Evaluate never panics;
// an internal failure yields a single critical system violation.
func Evaluate(parsed model.ParsedCertificate, rules model.RuleSet, now time.Time) (out []model.Violation) {
	defer func() {
		if r := recover(); r != nil {
			out = []model.Violation{{
				Field:    model.FieldSystem,
				Severity: model.SeverityCritical,
				Message:  fmt.Sprintf("Compliance evaluation failed: %v", r),
			}}
		}
	}()

	out = make([]model.Violation, 0)

	if floor, ok := rules.MinGeneralLiability.Get(); ok {
		if v, bad := checkAmount(model.FieldGeneralLiability, "General liability", parsed.GeneralLiability, floor); bad {
			out = append(out, v)
		}
	}
	if floor, ok := rules.MinAutoLiability.Get(); ok {
		if v, bad := checkAmount(model.FieldAutoLiability, "Auto liability", parsed.AutoLiability, floor); bad {
			out = append(out, v)
		}
	}
	if rules.RequireAdditionalInsured && !parsed.HasAdditionalInsured {
		out = append(out, model.Violation{
			Field:    model.FieldAdditionalInsured,
			Severity: model.SeverityCritical,
			Message:  "Additional insured endorsement not found",
			Required: true,
			Actual:   false,
		})
	}
	if rules.RequireWaiver && !parsed.HasWaiverOfSubrogation {
		out = append(out, model.Violation{
			Field:    model.FieldWaiverOfSubrogation,
			Severity: model.SeverityCritical,
			Message:  "Waiver of subrogation endorsement not found",
			Required: true,
			Actual:   false,
		})
	}

	out = append(out, checkExpiry(parsed.ExpiryDate, rules, now))
	if v, bad := checkEffective(parsed.EffectiveDate, now); bad {
		out = append(out, v)
	}
	return compact(out)
}

func checkAmount(field model.ViolationField, label string, got model.Optional[decimal.Decimal], floor decimal.Decimal) (model.Violation, bool) {
	actual, ok := got.Get()
	if !ok {
		return model.Violation{
			Field:    field,
			Severity: model.SeverityCritical,
			Message:  label + " coverage not found",
			Required: floor,
		}, true
	}
	if actual.LessThan(floor) {
		return model.Violation{
			Field:    field,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("%s coverage %s is below required %s", label, FormatAmount(actual), FormatAmount(floor)),
			Required: floor,
			Actual:   actual,
		}, true
	}
	return model.Violation{}, false
}

func checkExpiry(expiry model.Optional[time.Time], rules model.RuleSet, now time.Time) model.Violation {
	date, ok := expiry.Get()
	if !ok {
		return model.Violation{
			Field:    model.FieldExpiryDate,
			Severity: model.SeverityWarning,
			Message:  "Expiry date not found",
		}
	}
	days := DaysUntil(date, now)
	if days < 0 {
		return model.Violation{
			Field:    model.FieldExpiryDate,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("Certificate expired %d days ago", -days),
			Actual:   date.Format(time.DateOnly),
		}
	}
	window := MaxWarningDays(rules.WarningDays())
	if days <= window {
		return model.Violation{
			Field:    model.FieldExpiryDate,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("Certificate expires in %d days", days),
			Required: window,
			Actual:   days,
		}
	}
	return model.Violation{}
}

func checkEffective(effective model.Optional[time.Time], now time.Time) (model.Violation, bool) {
	date, ok := effective.Get()
	if !ok {
		return model.Violation{
			Field:    model.FieldEffectiveDate,
			Severity: model.SeverityWarning,
			Message:  "Effective date not found",
		}, true
	}
	if days := DaysUntil(date, now); days > 0 {
		return model.Violation{
			Field:    model.FieldEffectiveDate,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("Policy not yet effective (starts in %d days)", days),
			Actual:   date.Format(time.DateOnly),
		}, true
	}
	return model.Violation{}, false
}

// compact drops the zero violations produced by checks that passed.
func compact(in []model.Violation) []model.Violation {
	out := in[:0]
	for _, v := range in {
		if v.Field != "" {
			out = append(out, v)
		}
	}
	return out
}

// DaysUntil is the number of days from now until t, rounded up.
// It is negative once t has passed.
func DaysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// MaxWarningDays returns the widest threshold of a warning ladder.
func MaxWarningDays(days []int) int {
	if len(days) == 0 {
		days = model.DefaultWarningDays
	}
	m := days[0]
	for _, d := range days[1:] {
		if d > m {
			m = d
		}
	}
	return m
}

// Status collapses violations into a single compliance status.
func Status(violations []model.Violation) model.ComplianceStatus {
	warned := false
	for _, v := range violations {
		if v.Severity == model.SeverityCritical {
			return model.ComplianceStatusNonCompliant
		}
		if v.Severity == model.SeverityWarning {
			warned = true
		}
	}
	if warned {
		return model.ComplianceStatusExpiring
	}
	return model.ComplianceStatusCompliant
}

// IsCompliant reports whether no critical violation exists. Warnings do not block.
func IsCompliant(violations []model.Violation) bool {
	return Status(violations) != model.ComplianceStatusNonCompliant
}

// FormatAmount renders a coverage amount for messages: $1.5M, $2M, $500K, $750.
func FormatAmount(d decimal.Decimal) string {
	switch {
	case d.GreaterThanOrEqual(oneMillion):
		return "$" + trimTenths(d.Div(oneMillion)) + "M"
	case d.GreaterThanOrEqual(oneThousand):
		return "$" + trimTenths(d.Div(oneThousand)) + "K"
	default:
		return "$" + d.String()
	}
}

func trimTenths(d decimal.Decimal) string {
	s := d.StringFixed(1)
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
