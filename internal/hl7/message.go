package hl7

// FieldValue is the tagged union for one field position: a leaf Scalar, a
// Composite keyed by 1-based position, or an ordered Repeated list. A value
// with no repetitions is never wrapped in Repeated and a value with a single
// component is never wrapped in Composite.
type FieldValue interface {
	fieldValue()
}

// Scalar is a decoded leaf value.
type Scalar string

// Composite maps 1-based component (or subcomponent) positions to values.
// Positions whose run between two separators is zero-length are absent from
// the map, not stored as empty strings.
type Composite map[int]FieldValue

// Repeated is an ordered list of field repetitions. Order is significant, so
// interior empty repetitions keep their slot as an empty Scalar.
type Repeated []FieldValue

func (Scalar) fieldValue()    {}
func (Composite) fieldValue() {}
func (Repeated) fieldValue()  {}

// Segment is a 3-character segment ID plus its fields keyed by 1-based
// position. Position 0 (the ID itself) is not stored as a field.
type Segment struct {
	ID     string
	Fields map[int]FieldValue
}

// Message is an ordered sequence of segments sharing one delimiter set.
// Instances are immutable after construction; they come from Parse or from a
// finalized Builder.
type Message struct {
	Delimiters Delimiters
	Segments   []Segment
}

// Segment returns the first segment with the given ID.
func (m Message) Segment(id string) (Segment, bool) {
	for _, seg := range m.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return Segment{}, false
}

// All returns every segment with the given ID in message order.
func (m Message) All(id string) []Segment {
	var out []Segment
	for _, seg := range m.Segments {
		if seg.ID == id {
			out = append(out, seg)
		}
	}
	return out
}

// Field returns the value at a 1-based field position.
func (s Segment) Field(pos int) (FieldValue, bool) {
	v, ok := s.Fields[pos]
	return v, ok
}

// Scalar returns the first leaf at a field position, or "" when absent.
func (s Segment) Scalar(pos int) string {
	v, ok := s.Fields[pos]
	if !ok {
		return ""
	}
	return FirstLeaf(v)
}

// Component returns the leaf at field/component position, or "" when absent.
func (s Segment) Component(field, component int) string {
	v, ok := s.Fields[field]
	if !ok {
		return ""
	}
	if rep, isRep := v.(Repeated); isRep {
		if len(rep) == 0 {
			return ""
		}
		v = rep[0]
	}
	switch val := v.(type) {
	case Scalar:
		if component == 1 {
			return string(val)
		}
		return ""
	case Composite:
		inner, ok := val[component]
		if !ok {
			return ""
		}
		return FirstLeaf(inner)
	}
	return ""
}

// FirstLeaf narrows a value to its first leaf scalar.
func FirstLeaf(v FieldValue) string {
	switch val := v.(type) {
	case Scalar:
		return string(val)
	case Repeated:
		if len(val) == 0 {
			return ""
		}
		return FirstLeaf(val[0])
	case Composite:
		min := 0
		for pos := range val {
			if min == 0 || pos < min {
				min = pos
			}
		}
		if min == 0 {
			return ""
		}
		return FirstLeaf(val[min])
	}
	return ""
}
