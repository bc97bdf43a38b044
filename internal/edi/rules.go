package edi

import (
	"strconv"
	"strings"
)

const (
	segISA = "ISA"
	segST  = "ST"
	segB3  = "B3"
	segN1  = "N1"

	// N1 element 0 is the entity identifier; only the carrier qualifier
	// contributes to metadata. A shipper ("SH") or consignee N1 does not.
	carrierQualifier = "CA"

	defaultCurrency = "USD"
)

// qualifier gates a rule on a segment element matching a literal value.
type qualifier struct {
	element int
	value   string
}

// extractRule declares one metadata projection: which segment, which
// element offset, and how the value lands in Metadata. The offsets are
// specific to the sampled 210-style layout and are reproduced exactly.
type extractRule struct {
	segment   string
	qualifier *qualifier
	element   int
	assign    func(m *Metadata, value string)
}

var extractRules = []extractRule{
	{segment: segISA, element: 5, assign: func(m *Metadata, v string) { m.SenderID = strings.TrimSpace(v) }},
	{segment: segISA, element: 7, assign: func(m *Metadata, v string) { m.ReceiverID = strings.TrimSpace(v) }},
	{segment: segISA, element: 12, assign: func(m *Metadata, v string) { m.ControlNumber = strings.TrimSpace(v) }},
	{segment: segST, element: 0, assign: func(m *Metadata, v string) { m.TransactionType = v }},
	{segment: segB3, element: 1, assign: func(m *Metadata, v string) { m.InvoiceNumber = v }},
	{segment: segB3, element: 4, assign: func(m *Metadata, v string) { m.InvoiceDate = v }},
	{segment: segB3, element: 5, assign: func(m *Metadata, v string) {
		if amount, ok := parseImpliedDecimal(v); ok {
			m.Amount = amount
			m.HasAmount = true
		}
	}},
	{segment: segB3, element: 6, assign: func(m *Metadata, v string) { m.Currency = v }},
	{
		segment:   segN1,
		qualifier: &qualifier{element: 0, value: carrierQualifier},
		element:   1,
		assign:    func(m *Metadata, v string) { m.CarrierName = v },
	},
}

// extractMetadata runs the rule table over the segment list. Missing
// segments, short segments, and empty elements all produce absent fields,
// never errors.
func extractMetadata(segments []Segment) Metadata {
	var meta Metadata
	sawInvoiceHeader := false

	for _, seg := range segments {
		if seg.Code == segB3 {
			sawInvoiceHeader = true
		}
		for _, rule := range extractRules {
			if rule.segment != seg.Code {
				continue
			}
			if rule.qualifier != nil {
				qv, ok := seg.Element(rule.qualifier.element)
				if !ok || qv != rule.qualifier.value {
					continue
				}
			}
			value, ok := seg.Element(rule.element)
			if !ok || strings.TrimSpace(value) == "" {
				continue
			}
			rule.assign(&meta, value)
		}
	}

	if sawInvoiceHeader && meta.Currency == "" {
		meta.Currency = defaultCurrency
	}

	return meta
}

// parseImpliedDecimal interprets the B3 total-charge element. Tokens without
// a decimal point carry an implied two-decimal scale ("150000" means
// 1500.00); tokens with one parse as plain floats.
//
// The implied scale is an observed convention of the sampled 210 layout,
// not a general X12 rule. Do not reuse it for other monetary elements.
func parseImpliedDecimal(token string) (float64, bool) {
	if strings.Contains(token, ".") {
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}

	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(n) / 100, true
}

// Map returns the metadata as a sparse map, with only present fields set.
// Acceptance-rule expressions evaluate against this shape.
func (m Metadata) Map() map[string]interface{} {
	out := make(map[string]interface{})

	if m.SenderID != "" {
		out["sender_id"] = m.SenderID
	}
	if m.ReceiverID != "" {
		out["receiver_id"] = m.ReceiverID
	}
	if m.ControlNumber != "" {
		out["control_number"] = m.ControlNumber
	}
	if m.TransactionType != "" {
		out["transaction_type"] = m.TransactionType
	}
	if m.InvoiceNumber != "" {
		out["invoice_number"] = m.InvoiceNumber
	}
	if m.HasAmount {
		out["amount"] = m.Amount
	}
	if m.Currency != "" {
		out["currency"] = m.Currency
	}
	if m.InvoiceDate != "" {
		out["invoice_date"] = m.InvoiceDate
	}
	if m.CarrierName != "" {
		out["carrier_name"] = m.CarrierName
	}

	return out
}
