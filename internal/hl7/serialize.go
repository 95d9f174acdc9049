package hl7

import (
	"strings"
)

// Serialize is the inverse of Parse. MSH-1 and MSH-2 are re-derived from the
// message's live delimiter set rather than from any captured text, reserved
// characters are re-escaped at every leaf, segments terminate with CR, and
// trailing empty fields are trimmed.
func Serialize(m Message) string {
	d := m.Delimiters
	if d.Validate() != nil {
		d = DefaultDelimiters()
	}
	lines := make([]string, 0, len(m.Segments))
	for _, seg := range m.Segments {
		lines = append(lines, serializeSegment(seg, d))
	}
	return strings.Join(lines, string(segmentTerminator))
}

func serializeSegment(seg Segment, d Delimiters) string {
	var b strings.Builder
	b.WriteString(seg.ID)

	first := 1
	if seg.ID == "MSH" {
		// Field 1 is the separator itself, field 2 the encoding characters.
		b.WriteByte(d.Field)
		b.WriteString(d.EncodingCharacters())
		first = 3
	}

	last := 0
	for pos := range seg.Fields {
		if pos > last {
			last = pos
		}
	}
	for pos := first; pos <= last; pos++ {
		b.WriteByte(d.Field)
		if v, ok := seg.Fields[pos]; ok {
			b.WriteString(serializeField(v, d))
		}
	}
	return b.String()
}

func serializeField(v FieldValue, d Delimiters) string {
	switch val := v.(type) {
	case Scalar:
		return encodeEscapes(string(val), d)
	case Repeated:
		parts := make([]string, 0, len(val))
		for _, rep := range val {
			parts = append(parts, serializeRepetition(rep, d))
		}
		return strings.Join(parts, string(d.Repetition))
	case Composite:
		return serializeComposite(val, d)
	}
	return ""
}

func serializeRepetition(v FieldValue, d Delimiters) string {
	switch val := v.(type) {
	case Scalar:
		return encodeEscapes(string(val), d)
	case Composite:
		return serializeComposite(val, d)
	}
	return ""
}

func serializeComposite(c Composite, d Delimiters) string {
	last := 0
	for pos := range c {
		if pos > last {
			last = pos
		}
	}
	parts := make([]string, 0, last)
	for pos := 1; pos <= last; pos++ {
		v, ok := c[pos]
		if !ok {
			parts = append(parts, "")
			continue
		}
		switch val := v.(type) {
		case Scalar:
			parts = append(parts, encodeEscapes(string(val), d))
		case Composite:
			parts = append(parts, serializeSubcomponents(val, d))
		default:
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, string(d.Component))
}

func serializeSubcomponents(c Composite, d Delimiters) string {
	last := 0
	for pos := range c {
		if pos > last {
			last = pos
		}
	}
	parts := make([]string, 0, last)
	for pos := 1; pos <= last; pos++ {
		if v, ok := c[pos]; ok {
			if s, isScalar := v.(Scalar); isScalar {
				parts = append(parts, encodeEscapes(string(s), d))
				continue
			}
		}
		parts = append(parts, "")
	}
	return strings.Join(parts, string(d.Subcomponent))
}
