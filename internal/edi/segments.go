package edi

// UnknownSegmentName labels segment codes outside the table. Unrecognized
// codes are not an error: trading partners introduce segments faster than
// the table is extended, and the rest of the message must still decode.
const UnknownSegmentName = "Unknown Segment"

// segmentNames maps X12 segment codes to human-readable labels for the
// audit viewer. Kept as data rather than branching so the table can be
// extended and tested in isolation.
var segmentNames = map[string]string{
	"ISA": "Interchange Control Header",
	"GS":  "Functional Group Header",
	"ST":  "Transaction Set Header",
	"B3":  "Beginning Segment for Carrier's Invoice",
	"C3":  "Currency Identifier",
	"ITD": "Terms of Sale",
	"N1":  "Party Identification",
	"N3":  "Party Address",
	"N4":  "Geographic Location",
	"N9":  "Extended Reference Information",
	"LX":  "Transaction Set Line Number",
	"L0":  "Line Item - Quantity and Weight",
	"L1":  "Rate and Charges",
	"L5":  "Description, Marks and Numbers",
	"L7":  "Tariff Reference",
	"SE":  "Transaction Set Trailer",
	"GE":  "Functional Group Trailer",
	"IEA": "Interchange Control Trailer",
}

// SegmentName resolves a segment code to its label, falling back to
// UnknownSegmentName for codes outside the table.
func SegmentName(code string) string {
	if name, ok := segmentNames[code]; ok {
		return name
	}
	return UnknownSegmentName
}
