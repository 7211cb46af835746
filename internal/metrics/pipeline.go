// Package metrics holds Prometheus collectors for the compliance pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"coiapi/internal/model"
)

// Pipeline counts documents, violations, captured discounts and reminders.
// A nil *Pipeline is valid and records nothing.
type Pipeline struct {
	documents        *prometheus.CounterVec
	violations       *prometheus.CounterVec
	extractFailures  prometheus.Counter
	discounts        prometheus.Counter
	discountedAmount prometheus.Counter
	reminders        *prometheus.CounterVec
}

// NewPipeline creates the collectors and registers them on reg.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	m := &Pipeline{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coiapi",
			Name:      "documents_processed_total",
			Help:      "Uploaded documents by type and resulting compliance status.",
		}, []string{"type", "status"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coiapi",
			Name:      "compliance_violations_total",
			Help:      "Compliance violations found by field and severity.",
		}, []string{"field", "severity"}),
		extractFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coiapi",
			Name:      "text_extraction_failures_total",
			Help:      "Uploads whose text extraction failed or timed out.",
		}),
		discounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coiapi",
			Name:      "discounts_captured_total",
			Help:      "Early-payment discounts captured.",
		}),
		discountedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coiapi",
			Name:      "discounts_captured_amount_total",
			Help:      "Sum of captured early-payment discounts.",
		}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coiapi",
			Name:      "expiry_reminders_sent_total",
			Help:      "COI expiry reminders dispatched by threshold.",
		}, []string{"threshold"}),
	}
	for _, c := range []prometheus.Collector{m.documents, m.violations, m.extractFailures, m.discounts, m.discountedAmount, m.reminders} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DocumentProcessed records an upload and the violations found on it.
func (m *Pipeline) DocumentProcessed(docType model.DocumentType, status model.ComplianceStatus, violations []model.Violation) {
	if m == nil {
		return
	}
	label := string(status)
	if label == "" {
		label = "n/a"
	}
	m.documents.WithLabelValues(string(docType), label).Inc()
	for _, v := range violations {
		m.violations.WithLabelValues(string(v.Field), string(v.Severity)).Inc()
	}
}

// ExtractionFailed records a failed or timed out text extraction.
func (m *Pipeline) ExtractionFailed() {
	if m == nil {
		return
	}
	m.extractFailures.Inc()
}

// DiscountCaptured records one captured bill discount.
func (m *Pipeline) DiscountCaptured(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.discounts.Inc()
	// Counter.Add panics on negative values.
	if amount.IsPositive() {
		m.discountedAmount.Add(amount.InexactFloat64())
	}
}

// ReminderSent records one dispatched reminder.
func (m *Pipeline) ReminderSent(threshold string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(threshold).Inc()
}
