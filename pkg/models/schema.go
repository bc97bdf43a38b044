package models

import "fmt"

// ValidateEnvelope checks the invariants every inbound envelope must hold
// before it enters the pipeline. IDs are partner-channel assigned, so any
// non-empty value passes; the builder mints a UUID when the caller has none.
func ValidateEnvelope(env InboundEnvelope) error {
	if env.ID == "" {
		return fmt.Errorf("envelope id is required")
	}
	if env.Raw == "" {
		return fmt.Errorf("envelope raw payload is required")
	}
	if env.Timestamp.IsZero() {
		return fmt.Errorf("envelope timestamp is required")
	}
	return nil
}

// ValidateInvoiceEvent checks an outbound event before publishing.
func ValidateInvoiceEvent(event InvoiceEvent) error {
	if event.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if event.InvoiceID == "" {
		return fmt.Errorf("event invoice_id is required")
	}
	if event.MessageID == "" {
		return fmt.Errorf("event message_id is required")
	}
	if event.IngestedAt.IsZero() {
		return fmt.Errorf("event ingested_at is required")
	}
	return nil
}
