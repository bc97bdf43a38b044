package cel

// AcceptanceExpressionExamples documents the shapes of rule expressions the
// evaluator supports. Useful as seed data and in API docs.
var AcceptanceExpressionExamples = map[string]string{
	"min_amount":          `invoice.amount >= 1.0`,
	"max_amount":          `invoice.amount <= 250000.0`,
	"currency_allowlist":  `invoice.currency in ["USD", "EUR", "CAD"]`,
	"known_sender":        `has(invoice.sender_id) && invoice.sender_id != ""`,
	"invoice_required":    `has(invoice.invoice_number) && invoice.invoice_number != ""`,
	"carrier_prefix":      `has(invoice.carrier_name) && invoice.carrier_name.startsWith("MAERSK")`,
	"transaction_type":    `invoice.transaction_type == "210"`,
	"minimum_segments":    `segment_count >= 3`,
	"trusted_source":      `source == "sftp-gateway"`,
	"combined_conditions": `invoice.currency == "USD" && invoice.amount > 0.0 && segment_count >= 3`,
}
