package cel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ediaudit/pkg/models"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid simple expression",
			expr:      `invoice.currency == "USD"`,
			wantError: false,
		},
		{
			name:      "valid numeric comparison",
			expr:      `invoice.amount > 100.0`,
			wantError: false,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `undefinedVar == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAcceptanceExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid bool expression",
			expr:      `invoice.currency == "USD"`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `invoice.amount`,
			wantError: true,
		},
		{
			name:      "valid startsWith",
			expr:      `invoice.carrier_name.startsWith("MAERSK")`,
			wantError: false,
		},
		{
			name:      "segment count comparison",
			expr:      `segment_count >= 3`,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateAcceptanceExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateAcceptance(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	ctx := context.Background()
	msg := models.InboundEnvelope{
		ID:        "8e9db1b8-0f4e-4a64-9d2a-3a1c6c12b788",
		Source:    "sftp-gateway",
		Timestamp: time.Now(),
		Raw:       "ISA*00*...",
	}
	invoice := map[string]interface{}{
		"sender_id":        "SENDERID",
		"invoice_number":   "INV-001",
		"amount":           1500.0,
		"currency":         "USD",
		"carrier_name":     "MAERSK LINE",
		"transaction_type": "210",
	}

	tests := []struct {
		name      string
		expr      string
		want      bool
		wantError bool
	}{
		{
			name: "currency match",
			expr: `invoice.currency == "USD"`,
			want: true,
		},
		{
			name: "currency mismatch",
			expr: `invoice.currency == "EUR"`,
			want: false,
		},
		{
			name: "amount above threshold",
			expr: `invoice.amount > 100.0`,
			want: true,
		},
		{
			name: "amount below threshold",
			expr: `invoice.amount > 2000.0`,
			want: false,
		},
		{
			name: "carrier prefix",
			expr: `invoice.carrier_name.startsWith("MAERSK")`,
			want: true,
		},
		{
			name: "missing field with has",
			expr: `has(invoice.invoice_date)`,
			want: false,
		},
		{
			name: "source match",
			expr: `source == "sftp-gateway"`,
			want: true,
		},
		{
			name: "segment count",
			expr: `segment_count >= 3`,
			want: true,
		},
		{
			name: "combined conditions",
			expr: `invoice.currency == "USD" && invoice.amount > 0.0 && segment_count >= 3`,
			want: true,
		},
		{
			name:      "missing field without has",
			expr:      `invoice.invoice_date == "20231205"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eval.EvaluateAcceptance(ctx, tt.expr, msg, invoice, 10)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, result)
			}
		})
	}
}

func TestAcceptanceExpressionExamplesCompile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range AcceptanceExpressionExamples {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, eval.ValidateAcceptanceExpression(expr))
		})
	}
}
