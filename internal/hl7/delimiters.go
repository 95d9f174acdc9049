package hl7

// Delimiters is the per-message separator and escape character set. It is
// derived once from the MSH segment and stays constant for the whole message.
type Delimiters struct {
	Field        byte
	Component    byte
	Repetition   byte
	Escape       byte
	Subcomponent byte
}

// DefaultDelimiters returns the standard HL7v2 set: | ^ ~ \ &.
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Field:        '|',
		Component:    '^',
		Repetition:   '~',
		Escape:       '\\',
		Subcomponent: '&',
	}
}

// EncodingCharacters renders the MSH-2 value for this set.
func (d Delimiters) EncodingCharacters() string {
	return string([]byte{d.Component, d.Repetition, d.Escape, d.Subcomponent})
}

// Validate rejects delimiter sets whose five characters collide.
func (d Delimiters) Validate() error {
	chars := []byte{d.Field, d.Component, d.Repetition, d.Escape, d.Subcomponent}
	seen := make(map[byte]struct{}, len(chars))
	for _, c := range chars {
		if c == 0 || c == segmentTerminator || c == '\n' {
			return ErrBadDelimiters
		}
		if _, dup := seen[c]; dup {
			return ErrBadDelimiters
		}
		seen[c] = struct{}{}
	}
	return nil
}

// ParseDelimiters reads the separator set from a raw MSH line. The field
// separator is the character immediately after the literal MSH; the four
// encoding characters follow it.
func ParseDelimiters(line string) (Delimiters, error) {
	if len(line) < mshMinLen {
		return Delimiters{}, ErrShortMSH
	}
	d := Delimiters{
		Field:        line[3],
		Component:    line[4],
		Repetition:   line[5],
		Escape:       line[6],
		Subcomponent: line[7],
	}
	if err := d.Validate(); err != nil {
		return Delimiters{}, err
	}
	if len(line) > mshMinLen && line[mshMinLen] != d.Field {
		return Delimiters{}, ErrBadDelimiters
	}
	return d, nil
}
