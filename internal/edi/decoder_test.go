package edi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvoice = `ISA*00*          *00*          *ZZ*SENDERID       *ZZ*RECEIVERID     *231205*1000*U*00401*000000001*0*P*>~
GS*IN*SENDERID*RECEIVERID*20231205*1000*1*X*004010~
ST*210*0001~
B3*B*INV-EDI-LIVE-001*123456789*PP*20231205*1500.00*USD*20231205~
N1*CA*MAERSK LINE*25*123456~
N3*123 HARBOR WAY~
N4*COPENHAGEN**1050*DK~
SE*12*0001~
GE*1*1~
IEA*1*000000001~`

func TestDecodeSampleInvoice(t *testing.T) {
	parsed, err := Decode(sampleInvoice)
	require.NoError(t, err)

	assert.Len(t, parsed.Segments, 10)
	assert.Equal(t, "ISA", parsed.Segments[0].Code)
	assert.Equal(t, "Interchange Control Header", parsed.Segments[0].Name)
	assert.Equal(t, "IEA", parsed.Segments[9].Code)
	assert.Equal(t, strings.TrimSpace(sampleInvoice), parsed.Raw)

	meta := parsed.Metadata
	assert.Equal(t, "SENDERID", meta.SenderID)
	assert.Equal(t, "RECEIVERID", meta.ReceiverID)
	assert.Equal(t, "000000001", meta.ControlNumber)
	assert.Equal(t, "210", meta.TransactionType)
	assert.Equal(t, "INV-EDI-LIVE-001", meta.InvoiceNumber)
	require.True(t, meta.HasAmount)
	assert.InDelta(t, 1500.00, meta.Amount, 0.0001)
	assert.Equal(t, "USD", meta.Currency)
	assert.Equal(t, "20231205", meta.InvoiceDate)
	assert.Equal(t, "MAERSK LINE", meta.CarrierName)
}

func TestDecodeIsPure(t *testing.T) {
	first, err := Decode(sampleInvoice)
	require.NoError(t, err)

	second, err := Decode(sampleInvoice)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodeInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "whitespace only", input: "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Decode(tt.input)
			assert.Nil(t, parsed)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDecodeSingleLine(t *testing.T) {
	parsed, err := Decode("ST*210*0001")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(parsed.Segments), 1)
}

func TestDecodeSegmentCount(t *testing.T) {
	// Trailing terminator and blank fragments must not produce phantom
	// segments.
	input := "ISA*00*0001~B3*B*INV-1~~  ~SE*2*0001~"
	parsed, err := Decode(input)
	require.NoError(t, err)
	assert.Len(t, parsed.Segments, 3)
}

func TestInferDelimiters(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantElement    byte
		wantTerminator byte
	}{
		{
			name:           "conventional star and tilde",
			input:          "ISA*00*x~",
			wantElement:    '*',
			wantTerminator: '~',
		},
		{
			name:           "pipe separator",
			input:          "ISA|00|x~",
			wantElement:    '|',
			wantTerminator: '~',
		},
		{
			name:           "no tilde falls back to newline",
			input:          "ISA*00*x\nGS*IN",
			wantElement:    '*',
			wantTerminator: '\n',
		},
		{
			name:           "short input defaults to star",
			input:          "ISA",
			wantElement:    '*',
			wantTerminator: '\n',
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := InferDelimiters(tt.input)
			assert.Equal(t, tt.wantElement, d.Element)
			assert.Equal(t, tt.wantTerminator, d.Terminator)
		})
	}
}

func TestDecodePipeSeparator(t *testing.T) {
	input := "ISA|00|          |00|          |ZZ|SNDR|ZZ|RCVR~ST|210|0001~B3|B|INV-9~"
	parsed, err := Decode(input)
	require.NoError(t, err)

	require.Len(t, parsed.Segments, 3)
	assert.Equal(t, "ST", parsed.Segments[1].Code)
	assert.Equal(t, []string{"210", "0001"}, parsed.Segments[1].Elements)
	assert.Equal(t, "INV-9", parsed.Metadata.InvoiceNumber)
}

func TestDecodeNewlineTerminator(t *testing.T) {
	input := "ISA*00*          *00*          *ZZ*SNDR*ZZ*RCVR\nST*210*0001\nB3*B*INV-7"
	parsed, err := Decode(input)
	require.NoError(t, err)

	require.Len(t, parsed.Segments, 3)
	assert.Equal(t, "210", parsed.Metadata.TransactionType)
	assert.Equal(t, "INV-7", parsed.Metadata.InvoiceNumber)
}

func TestDecodeUnknownSegment(t *testing.T) {
	input := "ISA*00*0001~ZZZ*A*B~B3*B*INV-2~"
	parsed, err := Decode(input)
	require.NoError(t, err)

	require.Len(t, parsed.Segments, 3)
	assert.Equal(t, "ZZZ", parsed.Segments[1].Code)
	assert.Equal(t, UnknownSegmentName, parsed.Segments[1].Name)
	assert.Equal(t, []string{"A", "B"}, parsed.Segments[1].Elements)

	// Parsing continues past the unknown code.
	assert.Equal(t, "INV-2", parsed.Metadata.InvoiceNumber)
}

func TestDecodeEmptyElementsPreserved(t *testing.T) {
	parsed, err := Decode("ISA*00*x~N4*COPENHAGEN**1050*DK~")
	require.NoError(t, err)

	require.Len(t, parsed.Segments, 2)
	assert.Equal(t, []string{"COPENHAGEN", "", "1050", "DK"}, parsed.Segments[1].Elements)
}
