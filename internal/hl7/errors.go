package hl7

import (
	"errors"
	"fmt"
)

var (
	ErrMissingMSH    = errors.New("hl7: missing MSH segment")
	ErrShortMSH      = errors.New("hl7: MSH segment too short")
	ErrBadDelimiters = errors.New("hl7: invalid delimiter configuration")
	ErrBadSegmentID  = errors.New("hl7: segment id must be 3 characters")
	ErrEmptyMessage  = errors.New("hl7: empty message")
)

// ParseError reports an unparsable message together with the zero-based index
// of the offending line.
type ParseError struct {
	Line int
	Err  error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}

func parseErr(line int, err error) error {
	return ParseError{Line: line, Err: err}
}
