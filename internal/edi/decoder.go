package edi

import (
	"errors"
	"strings"
)

// ErrInvalidInput is returned when there is nothing to parse: empty or
// whitespace-only input. It is the decoder's only fatal condition; every
// malformed-but-present message decodes best-effort instead.
var ErrInvalidInput = errors.New("edi: input is empty")

const (
	defaultElementSeparator = '*'
	segmentTerminator       = '~'

	// The X12 interchange header is fixed-width, so the byte after "ISA"
	// is always the element separator.
	elementSeparatorOffset = 3
)

// InferDelimiters derives the element separator and segment terminator from
// the message text. The separator is read from the fixed offset inside the
// control header; the terminator is a literal scan for '~' with a newline
// fallback for messages that were re-wrapped one segment per line.
//
// This is a heuristic, not a declared-field read: strict X12 would take both
// from fixed ISA positions. It is isolated here so a spec-compliant reader
// can replace it without touching segmentation.
func InferDelimiters(trimmed string) Delimiters {
	d := Delimiters{
		Element:    defaultElementSeparator,
		Terminator: '\n',
	}

	if len(trimmed) > elementSeparatorOffset {
		d.Element = trimmed[elementSeparatorOffset]
	}

	if strings.IndexByte(trimmed, segmentTerminator) >= 0 {
		d.Terminator = segmentTerminator
	}

	return d
}

// Decode parses one raw X12 message into segments and extracted invoice
// metadata. It is a pure function: identical input yields identical output,
// the input is never mutated, and no I/O happens.
//
// Malformed content never fails the whole decode. Segments with unknown
// codes are labeled and kept, and extraction rules that find nothing leave
// their metadata field absent.
func Decode(raw string) (*ParsedMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	delims := InferDelimiters(trimmed)
	segments := splitSegments(trimmed, delims)

	return &ParsedMessage{
		Segments: segments,
		Raw:      trimmed,
		Metadata: extractMetadata(segments),
	}, nil
}

// splitSegments splits the trimmed message on the terminator and each
// fragment on the element separator. Whole fragments are trimmed; individual
// elements are not, so intentional fixed-width padding survives.
func splitSegments(trimmed string, delims Delimiters) []Segment {
	fragments := strings.Split(trimmed, string(delims.Terminator))
	segments := make([]Segment, 0, len(fragments))

	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			// A trailing terminator produces no phantom segment.
			continue
		}

		tokens := strings.Split(fragment, string(delims.Element))
		code := tokens[0]

		segments = append(segments, Segment{
			Code:     code,
			Name:     SegmentName(code),
			Elements: tokens[1:],
		})
	}

	return segments
}
