package edi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImpliedDecimal(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		want   float64
		wantOK bool
	}{
		{name: "implied two decimals", token: "150000", want: 1500.00, wantOK: true},
		{name: "explicit decimal point", token: "1500.00", want: 1500.00, wantOK: true},
		{name: "small implied value", token: "5", want: 0.05, wantOK: true},
		{name: "explicit fraction", token: "0.05", want: 0.05, wantOK: true},
		{name: "negative implied", token: "-2500", want: -25.00, wantOK: true},
		{name: "not a number", token: "FREE", wantOK: false},
		{name: "two decimal points", token: "15.00.00", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseImpliedDecimal(tt.token)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 0.0001)
			}
		})
	}
}

func TestExtractAmountRepresentations(t *testing.T) {
	// Same numeric result from the implied-scale and explicit forms.
	implied, err := Decode("ISA*00*x~B3*B*INV-1*REF*PP*20231205*150000~")
	require.NoError(t, err)
	explicit, err := Decode("ISA*00*x~B3*B*INV-1*REF*PP*20231205*1500.00~")
	require.NoError(t, err)

	require.True(t, implied.Metadata.HasAmount)
	require.True(t, explicit.Metadata.HasAmount)
	assert.Equal(t, implied.Metadata.Amount, explicit.Metadata.Amount)
	assert.InDelta(t, 1500.00, implied.Metadata.Amount, 0.0001)
}

func TestExtractCurrencyDefault(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "currency element present",
			input: "ISA*00*x~B3*B*INV-1*REF*PP*20231205*1500.00*EUR~",
			want:  "EUR",
		},
		{
			name:  "currency element absent",
			input: "ISA*00*x~B3*B*INV-1*REF*PP*20231205*1500.00~",
			want:  "USD",
		},
		{
			name:  "currency element empty",
			input: "ISA*00*x~B3*B*INV-1*REF*PP*20231205*1500.00**20231205~",
			want:  "USD",
		},
		{
			name:  "no invoice header at all",
			input: "ISA*00*x~ST*210*0001~",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, parsed.Metadata.Currency)
		})
	}
}

func TestExtractCarrierQualifier(t *testing.T) {
	// Only the CA qualifier names the carrier; a shipper party does not.
	parsed, err := Decode("ISA*00*x~N1*SH*ACME SHIPPING*25*1~N1*CA*MAERSK LINE*25*2~")
	require.NoError(t, err)
	assert.Equal(t, "MAERSK LINE", parsed.Metadata.CarrierName)

	parsed, err = Decode("ISA*00*x~N1*SH*ACME SHIPPING*25*1~")
	require.NoError(t, err)
	assert.Empty(t, parsed.Metadata.CarrierName)
}

func TestExtractShortSegments(t *testing.T) {
	// Out-of-range offsets leave fields absent instead of failing.
	parsed, err := Decode("ISA*00~ST~B3*B~N1*CA~")
	require.NoError(t, err)

	meta := parsed.Metadata
	assert.Empty(t, meta.SenderID)
	assert.Empty(t, meta.TransactionType)
	assert.Empty(t, meta.InvoiceNumber)
	assert.False(t, meta.HasAmount)
	assert.Empty(t, meta.CarrierName)
	assert.Len(t, parsed.Segments, 4)
}

func TestExtractISAPaddingTrimmed(t *testing.T) {
	parsed, err := Decode(sampleInvoice)
	require.NoError(t, err)

	assert.Equal(t, "SENDERID", parsed.Metadata.SenderID)
	assert.Equal(t, "RECEIVERID", parsed.Metadata.ReceiverID)

	// The raw segment keeps its fixed-width padding untouched.
	isa := parsed.Segments[0]
	sender, ok := isa.Element(5)
	require.True(t, ok)
	assert.Equal(t, "SENDERID       ", sender)
}

func TestMetadataMap(t *testing.T) {
	parsed, err := Decode(sampleInvoice)
	require.NoError(t, err)

	m := parsed.Metadata.Map()
	assert.Equal(t, "INV-EDI-LIVE-001", m["invoice_number"])
	assert.Equal(t, 1500.00, m["amount"])
	assert.Equal(t, "USD", m["currency"])

	sparse := Metadata{}.Map()
	assert.Empty(t, sparse)
}
