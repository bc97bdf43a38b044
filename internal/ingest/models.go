package ingest

import (
	"time"

	"ediaudit/internal/edi"
)

// Invoice is the persisted audit record of one accepted freight invoice.
// Business fields mirror the sparse decode metadata: empty string or nil
// means the source message did not carry the element.
type Invoice struct {
	ID              string    `json:"id"`
	MessageID       string    `json:"message_id"`
	Source          string    `json:"source"`
	SenderID        string    `json:"sender_id,omitempty"`
	ReceiverID      string    `json:"receiver_id,omitempty"`
	ControlNumber   string    `json:"control_number,omitempty"`
	TransactionType string    `json:"transaction_type,omitempty"`
	InvoiceNumber   string    `json:"invoice_number,omitempty"`
	InvoiceDate     string    `json:"invoice_date,omitempty"`
	Amount          *float64  `json:"amount,omitempty"`
	Currency        string    `json:"currency,omitempty"`
	CarrierName     string    `json:"carrier_name,omitempty"`
	SegmentCount    int       `json:"segment_count"`
	RulesApplied    []string  `json:"rules_applied,omitempty"`
	IngestedAt      time.Time `json:"ingested_at"`
}

// NewInvoiceFromMetadata maps decode output onto a record. The caller fills
// in identity fields afterwards.
func NewInvoiceFromMetadata(md edi.Metadata, segmentCount int) Invoice {
	inv := Invoice{
		SenderID:        md.SenderID,
		ReceiverID:      md.ReceiverID,
		ControlNumber:   md.ControlNumber,
		TransactionType: md.TransactionType,
		InvoiceNumber:   md.InvoiceNumber,
		InvoiceDate:     md.InvoiceDate,
		Currency:        md.Currency,
		CarrierName:     md.CarrierName,
		SegmentCount:    segmentCount,
	}
	if md.HasAmount {
		amount := md.Amount
		inv.Amount = &amount
	}
	return inv
}

// ListFilter narrows and pages invoice listings.
type ListFilter struct {
	Source   string
	SenderID string
	Currency string
	Limit    int
	Offset   int
}

type DecodeRequest struct {
	Message string `json:"message" binding:"required"`
}

type IngestRequest struct {
	Message string `json:"message" binding:"required"`
	Source  string `json:"source"`
}

type CreateRuleRequest struct {
	Name       string `json:"name" binding:"required"`
	Expression string `json:"expression" binding:"required"`
	Priority   int    `json:"priority"`
	Enabled    *bool  `json:"enabled"`
}

type UpdateRuleRequest struct {
	Name       string `json:"name" binding:"required"`
	Expression string `json:"expression" binding:"required"`
	Priority   int    `json:"priority"`
	Enabled    *bool  `json:"enabled"`
}
