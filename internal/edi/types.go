package edi

// Segment is one terminator-delimited record of an X12 message. Elements
// keep the exact order and count produced by the split; only the leading
// segment code is removed from the slice.
type Segment struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Elements []string `json:"elements"`
}

// Element returns the element at the given zero-based offset, or ("", false)
// when the segment is too short. Extraction rules rely on this so that short
// or malformed segments degrade to absent metadata instead of errors.
func (s Segment) Element(idx int) (string, bool) {
	if idx < 0 || idx >= len(s.Elements) {
		return "", false
	}
	return s.Elements[idx], true
}

// Metadata is the sparse projection of business fields extracted from an
// invoice message. Zero values mean the corresponding segment or element was
// missing; Amount uses HasAmount to distinguish absent from 0.
type Metadata struct {
	SenderID        string  `json:"sender_id,omitempty"`
	ReceiverID      string  `json:"receiver_id,omitempty"`
	ControlNumber   string  `json:"control_number,omitempty"`
	TransactionType string  `json:"transaction_type,omitempty"`
	InvoiceNumber   string  `json:"invoice_number,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
	HasAmount       bool    `json:"has_amount,omitempty"`
	Currency        string  `json:"currency,omitempty"`
	InvoiceDate     string  `json:"invoice_date,omitempty"`
	CarrierName     string  `json:"carrier_name,omitempty"`
}

// ParsedMessage is the result of one decode: the ordered segment list, the
// trimmed raw text kept for audit display, and the extracted metadata.
type ParsedMessage struct {
	Segments []Segment `json:"segments"`
	Raw      string    `json:"raw"`
	Metadata Metadata  `json:"metadata"`
}

// Delimiters holds the inferred element separator and segment terminator.
type Delimiters struct {
	Element    byte
	Terminator byte
}
