package hl7

// Builder assembles an outbound message. The message is immutable once
// finalized; the builder itself is not safe for concurrent use.
type Builder struct {
	delims   Delimiters
	segments []*Segment
}

// NewBuilder starts a message with the standard | ^ ~ \ & delimiter set.
func NewBuilder() *Builder {
	return NewBuilderWith(DefaultDelimiters())
}

// NewBuilderWith starts a message with an explicit delimiter set, falling back
// to the default set when the given one is invalid.
func NewBuilderWith(d Delimiters) *Builder {
	if d.Validate() != nil {
		d = DefaultDelimiters()
	}
	return &Builder{delims: d}
}

// Segment appends a segment and returns a scoped builder for its fields.
func (b *Builder) Segment(id string) *SegmentBuilder {
	seg := &Segment{ID: id, Fields: make(map[int]FieldValue)}
	b.segments = append(b.segments, seg)
	return &SegmentBuilder{seg: seg}
}

// Message finalizes the builder into an immutable message value.
func (b *Builder) Message() Message {
	segs := make([]Segment, len(b.segments))
	for i, seg := range b.segments {
		fields := make(map[int]FieldValue, len(seg.Fields))
		for pos, v := range seg.Fields {
			fields[pos] = v
		}
		segs[i] = Segment{ID: seg.ID, Fields: fields}
	}
	return Message{Delimiters: b.delims, Segments: segs}
}

// Text finalizes the builder and serializes the result in one step.
func (b *Builder) Text() string {
	return Serialize(b.Message())
}

// SegmentBuilder sets fields on one appended segment.
type SegmentBuilder struct {
	seg *Segment
}

// Set assigns a value to a 1-based field position. Nil values are skipped so
// optional fields copied from another message chain cleanly.
func (sb *SegmentBuilder) Set(pos int, v FieldValue) *SegmentBuilder {
	if pos >= 1 && v != nil {
		sb.seg.Fields[pos] = v
	}
	return sb
}

// SetScalar assigns a leaf value, treating "" as absent.
func (sb *SegmentBuilder) SetScalar(pos int, value string) *SegmentBuilder {
	if value == "" {
		return sb
	}
	return sb.Set(pos, Scalar(value))
}
