package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParsedCertificate is the structured view of a certificate transcript.
// Fields that were not found stay absent; they are never defaulted.
type ParsedCertificate struct {
	GeneralLiability       Optional[decimal.Decimal] `json:"general_liability"`
	AutoLiability          Optional[decimal.Decimal] `json:"auto_liability"`
	HasAdditionalInsured   bool                      `json:"has_additional_insured"`
	HasWaiverOfSubrogation bool                      `json:"has_waiver_of_subrogation"`
	EffectiveDate          Optional[time.Time]       `json:"effective_date"`
	ExpiryDate             Optional[time.Time]       `json:"expiry_date"`
	RawMatches             map[string]string         `json:"raw_matches,omitempty"`
}

// RuleSet is an account's configurable COI requirements. An absent rule is not checked.
type RuleSet struct {
	MinGeneralLiability      Optional[decimal.Decimal] `json:"minGL"`
	MinAutoLiability         Optional[decimal.Decimal] `json:"minAuto"`
	RequireAdditionalInsured bool                      `json:"requireAdditionalInsured"`
	RequireWaiver            bool                      `json:"requireWaiver"`
	ExpiryWarningDays        []int                     `json:"expiryWarningDays"`
}

// DefaultWarningDays applies when a rule set has no expiry warning ladder.
var DefaultWarningDays = []int{30}

// WarningDays returns the configured positive thresholds, or the default ladder.
func (r RuleSet) WarningDays() []int {
	out := make([]int, 0, len(r.ExpiryWarningDays))
	for _, d := range r.ExpiryWarningDays {
		if d > 0 {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return append([]int(nil), DefaultWarningDays...)
	}
	return out
}

// ViolationField names the certificate field a violation is about.
type ViolationField string

const (
	FieldGeneralLiability    ViolationField = "generalLiability"
	FieldAutoLiability       ViolationField = "autoLiability"
	FieldAdditionalInsured   ViolationField = "additionalInsured"
	FieldWaiverOfSubrogation ViolationField = "waiverOfSubrogation"
	FieldExpiryDate          ViolationField = "expiryDate"
	FieldEffectiveDate       ViolationField = "effectiveDate"
	FieldSystem              ViolationField = "system"
)

// Severity decides whether a violation blocks compliance.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Violation is one failed compliance check. Required and Actual are diagnostic only.
type Violation struct {
	Field    ViolationField `json:"field"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Required any            `json:"required,omitempty"`
	Actual   any            `json:"actual,omitempty"`
}

// ComplianceStatus summarises a violation list.
type ComplianceStatus string

const (
	ComplianceStatusCompliant    ComplianceStatus = "COMPLIANT"
	ComplianceStatusExpiring     ComplianceStatus = "EXPIRING"
	ComplianceStatusNonCompliant ComplianceStatus = "NON_COMPLIANT"
)
