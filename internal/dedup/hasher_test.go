package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHashDeterministic(t *testing.T) {
	hasher := NewHasher("md5")
	fields := []string{"sender_id", "control_number", "invoice_number"}

	invoice := map[string]interface{}{
		"sender_id":      "SENDERID",
		"control_number": "000000905",
		"invoice_number": "INV-001",
	}

	first, err := hasher.ComputeHash(invoice, fields)
	require.NoError(t, err)

	second, err := hasher.ComputeHash(invoice, fields)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestComputeHashDiffersByField(t *testing.T) {
	hasher := NewHasher("md5")
	fields := []string{"sender_id", "control_number", "invoice_number"}

	a := map[string]interface{}{
		"sender_id":      "SENDERID",
		"control_number": "000000905",
		"invoice_number": "INV-001",
	}
	b := map[string]interface{}{
		"sender_id":      "SENDERID",
		"control_number": "000000906",
		"invoice_number": "INV-001",
	}

	hashA, err := hasher.ComputeHash(a, fields)
	require.NoError(t, err)
	hashB, err := hasher.ComputeHash(b, fields)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestComputeHashMissingFieldsTreatedEmpty(t *testing.T) {
	hasher := NewHasher("sha256")
	fields := []string{"sender_id", "invoice_number"}

	withEmpty, err := hasher.ComputeHash(map[string]interface{}{
		"sender_id":      "SENDERID",
		"invoice_number": "",
	}, fields)
	require.NoError(t, err)

	withMissing, err := hasher.ComputeHash(map[string]interface{}{
		"sender_id": "SENDERID",
	}, fields)
	require.NoError(t, err)

	assert.Equal(t, withEmpty, withMissing)
	assert.Len(t, withMissing, 64)
}

func TestComputeHashAlgorithms(t *testing.T) {
	invoice := map[string]interface{}{"sender_id": "SENDERID"}
	fields := []string{"sender_id"}

	tests := []struct {
		algorithm string
		wantLen   int
	}{
		{"md5", 32},
		{"sha256", 64},
		{"unknown", 32}, // falls back to md5
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			hash, err := NewHasher(tt.algorithm).ComputeHash(invoice, fields)
			require.NoError(t, err)
			assert.Len(t, hash, tt.wantLen)
		})
	}
}

func TestComputeHashNoFields(t *testing.T) {
	hasher := NewHasher("md5")
	_, err := hasher.ComputeHash(map[string]interface{}{"sender_id": "X"}, nil)
	assert.Error(t, err)
}
