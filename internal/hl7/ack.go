package hl7

import (
	"strings"
	"time"
)

// AckCode is an MSA-1 acknowledgement code.
type AckCode string

const (
	AckAccept AckCode = "AA"
	AckError  AckCode = "AE"
	AckReject AckCode = "AR"
)

// UnknownMessageType is the sentinel for messages whose type cannot be read.
const UnknownMessageType = "UNKNOWN"

const (
	fallbackApplication = "HL7CTL"
	fallbackFacility    = "HL7CTL"
	fallbackProcessing  = "P"
	fallbackVersion     = "2.5"
	ackTimestampLayout  = "20060102150405"
)

// ExtractMessageType reads MSH-9 and renders it as <code>_<trigger>, e.g.
// ADT^A01 becomes ADT_A01. It returns UNKNOWN when the text has no parseable
// MSH or MSH-9 is empty. It never fails.
func ExtractMessageType(text string) string {
	line, ok := mshLine(text)
	if !ok {
		return UnknownMessageType
	}
	fieldSep := line[3]
	compSep := line[4]
	parts := strings.Split(line, string(fieldSep))
	if len(parts) < 9 || parts[8] == "" {
		return UnknownMessageType
	}
	comps := strings.Split(parts[8], string(compSep))
	if comps[0] == "" {
		return UnknownMessageType
	}
	if len(comps) > 1 && comps[1] != "" {
		return comps[0] + "_" + comps[1]
	}
	return comps[0]
}

// GenerateAck derives ACK/NAK text for an inbound message. The ack's sending
// application and facility are the original's receiving pair and vice versa,
// so the reply appears to originate from the original receiver. MSA-2 echoes
// the original control ID and MSA-3 carries errText for non-AA outcomes. When
// the original has no parseable MSH a minimal placeholder ack is built; the
// transport always has something to answer with.
func GenerateAck(original string, code AckCode, errText string) string {
	now := time.Now().Format(ackTimestampLayout)

	// Only the header matters here; a malformed trailing segment must not
	// force the placeholder path.
	line, ok := mshLine(original)
	if !ok {
		return fallbackAck(code, errText, now)
	}
	msg, err := Parse(line)
	if err != nil {
		return fallbackAck(code, errText, now)
	}
	msh, ok := msg.Segment("MSH")
	if !ok {
		return fallbackAck(code, errText, now)
	}

	get := func(pos int) FieldValue {
		v, present := msh.Field(pos)
		if !present {
			return nil
		}
		return v
	}
	controlID := msh.Scalar(10)

	b := NewBuilderWith(msg.Delimiters)
	b.Segment("MSH").
		Set(3, get(5)).
		Set(4, get(6)).
		Set(5, get(3)).
		Set(6, get(4)).
		SetScalar(7, now).
		SetScalar(9, "ACK").
		SetScalar(10, "ACK"+now).
		Set(11, get(11)).
		Set(12, get(12))
	msa := b.Segment("MSA").
		SetScalar(1, string(code)).
		SetScalar(2, controlID)
	if code != AckAccept && errText != "" {
		msa.SetScalar(3, errText)
	}
	return b.Text()
}

func fallbackAck(code AckCode, errText, now string) string {
	b := NewBuilder()
	b.Segment("MSH").
		SetScalar(3, fallbackApplication).
		SetScalar(4, fallbackFacility).
		SetScalar(7, now).
		SetScalar(9, "ACK").
		SetScalar(10, "ACK"+now).
		SetScalar(11, fallbackProcessing).
		SetScalar(12, fallbackVersion)
	msa := b.Segment("MSA").
		SetScalar(1, string(code)).
		SetScalar(2, UnknownMessageType)
	if code != AckAccept && errText != "" {
		msa.SetScalar(3, errText)
	}
	return b.Text()
}

// mshLine finds the first segment line that can carry a delimiter set.
func mshLine(text string) (string, bool) {
	for _, line := range splitSegmentLines(text) {
		if strings.HasPrefix(line.text, "MSH") && len(line.text) >= mshMinLen {
			return line.text, true
		}
	}
	return "", false
}
