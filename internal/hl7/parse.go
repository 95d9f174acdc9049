package hl7

import (
	"strings"
)

const (
	segmentTerminator = '\r'
	segmentIDLen      = 3
	mshMinLen         = 8
)

// Parse splits wire text into the structured message model. The wire segment
// terminator is CR; LF and CRLF are tolerated on input. MSH-1 and MSH-2 are
// captured literally, every other field is split on the repetition, component
// and subcomponent separators in that order, with escapes decoded only at the
// final leaf tokens.
func Parse(text string) (Message, error) {
	lines := splitSegmentLines(text)
	if len(lines) == 0 {
		return Message{}, parseErr(0, ErrEmptyMessage)
	}

	first := lines[0]
	if !strings.HasPrefix(first.text, "MSH") {
		return Message{}, parseErr(first.index, ErrMissingMSH)
	}
	delims, err := ParseDelimiters(first.text)
	if err != nil {
		return Message{}, parseErr(first.index, err)
	}

	segments := make([]Segment, 0, len(lines))
	for i, line := range lines {
		var seg Segment
		var err error
		if i == 0 {
			seg = parseMSH(line.text, delims)
		} else {
			seg, err = parseSegment(line.text, delims)
		}
		if err != nil {
			return Message{}, parseErr(line.index, err)
		}
		segments = append(segments, seg)
	}

	return Message{Delimiters: delims, Segments: segments}, nil
}

type segmentLine struct {
	index int
	text  string
}

func splitSegmentLines(text string) []segmentLine {
	normalized := strings.ReplaceAll(text, "\r\n", "\r")
	normalized = strings.ReplaceAll(normalized, "\n", "\r")
	var out []segmentLine
	for i, line := range strings.Split(normalized, "\r") {
		if line == "" {
			continue
		}
		out = append(out, segmentLine{index: i, text: line})
	}
	return out
}

// parseMSH handles the header's irregular grammar: field 1 is the field
// separator character itself and field 2 is the raw encoding-characters
// string. Neither is re-split using the characters it defines.
func parseMSH(line string, d Delimiters) Segment {
	fields := map[int]FieldValue{
		1: Scalar(string(d.Field)),
		2: Scalar(line[4:mshMinLen]),
	}
	if len(line) > mshMinLen+1 {
		rest := line[mshMinLen+1:]
		for i, raw := range strings.Split(rest, string(d.Field)) {
			if v := parseField(raw, d); v != nil {
				fields[i+3] = v
			}
		}
	}
	return Segment{ID: "MSH", Fields: fields}
}

func parseSegment(line string, d Delimiters) (Segment, error) {
	id := line
	rest := ""
	if sep := strings.IndexByte(line, d.Field); sep >= 0 {
		id = line[:sep]
		rest = line[sep+1:]
	}
	if len(id) != segmentIDLen {
		return Segment{}, ErrBadSegmentID
	}
	fields := make(map[int]FieldValue)
	if rest != "" || strings.IndexByte(line, d.Field) >= 0 {
		for i, raw := range strings.Split(rest, string(d.Field)) {
			if v := parseField(raw, d); v != nil {
				fields[i+1] = v
			}
		}
	}
	return Segment{ID: id, Fields: fields}, nil
}

// parseField returns nil for an absent field.
func parseField(raw string, d Delimiters) FieldValue {
	if raw == "" {
		return nil
	}
	if strings.IndexByte(raw, d.Repetition) >= 0 {
		pieces := strings.Split(raw, string(d.Repetition))
		reps := make(Repeated, 0, len(pieces))
		for _, piece := range pieces {
			if v := parseComposite(piece, d); v != nil {
				reps = append(reps, v)
			} else {
				// Interior empty repetitions keep their slot; order is data.
				reps = append(reps, Scalar(""))
			}
		}
		return reps
	}
	return parseComposite(raw, d)
}

// parseComposite splits one repetition on the component separator, then each
// component on the subcomponent separator. Returns nil when every run is
// zero-length.
func parseComposite(raw string, d Delimiters) FieldValue {
	if raw == "" {
		return nil
	}
	if strings.IndexByte(raw, d.Component) < 0 {
		v := parseComponent(raw, d)
		if _, nested := v.(Composite); nested {
			// Subcomponents without a component separator still live one
			// level down, so a^b and a&b serialize back differently.
			return Composite{1: v}
		}
		return v
	}
	comp := make(Composite)
	for i, piece := range strings.Split(raw, string(d.Component)) {
		if v := parseComponent(piece, d); v != nil {
			comp[i+1] = v
		}
	}
	if len(comp) == 0 {
		return nil
	}
	return comp
}

// parseComponent yields a leaf Scalar or a subcomponent map.
func parseComponent(raw string, d Delimiters) FieldValue {
	if raw == "" {
		return nil
	}
	if strings.IndexByte(raw, d.Subcomponent) < 0 {
		return Scalar(decodeEscapes(raw, d))
	}
	sub := make(Composite)
	for i, piece := range strings.Split(raw, string(d.Subcomponent)) {
		if piece == "" {
			continue
		}
		sub[i+1] = Scalar(decodeEscapes(piece, d))
	}
	if len(sub) == 0 {
		return nil
	}
	return sub
}
