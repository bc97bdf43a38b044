package models

import "time"

// InboundEnvelope wraps one raw EDI message on its way into the ingest
// pipeline, whether it arrived over the HTTP API or the inbound topic.
type InboundEnvelope struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // trading partner channel
	Timestamp time.Time `json:"timestamp"`
	Raw       string    `json:"raw"` // un-parsed EDI text
	Metadata  Metadata  `json:"metadata"`
}

// Metadata carries pipeline bookkeeping, not business fields.
type Metadata struct {
	Dedup         *DedupInfo `json:"dedup,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"` // set when routed to the DLQ
}

type DedupInfo struct {
	IsUnique  bool      `json:"is_unique"`
	CheckedAt time.Time `json:"checked_at"`
}

// InvoiceEvent is published after a successful ingest for the downstream
// workflow system.
type InvoiceEvent struct {
	ID         string                 `json:"id"`
	InvoiceID  string                 `json:"invoice_id"`
	MessageID  string                 `json:"message_id"`
	Source     string                 `json:"source"`
	IngestedAt time.Time              `json:"ingested_at"`
	Metadata   map[string]interface{} `json:"metadata"` // sparse decoded business fields
}
