package edi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{code: "ISA", want: "Interchange Control Header"},
		{code: "B3", want: "Beginning Segment for Carrier's Invoice"},
		{code: "N1", want: "Party Identification"},
		{code: "SE", want: "Transaction Set Trailer"},
		{code: "ZZZ", want: UnknownSegmentName},
		{code: "", want: UnknownSegmentName},
		{code: "isa", want: UnknownSegmentName},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, SegmentName(tt.code))
		})
	}
}

func TestSegmentElement(t *testing.T) {
	seg := Segment{Code: "ST", Elements: []string{"210", "0001"}}

	v, ok := seg.Element(0)
	assert.True(t, ok)
	assert.Equal(t, "210", v)

	_, ok = seg.Element(2)
	assert.False(t, ok)

	_, ok = seg.Element(-1)
	assert.False(t, ok)
}
