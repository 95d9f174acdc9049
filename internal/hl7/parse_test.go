package hl7

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/hl7ctl/internal/testutil/testlog"
)

const adtMessage = "MSH|^~\\&|SENDING|FAC|RECEIVING|FAC2|20240102030405||ADT^A01|MSG001|P|2.5\r" +
	"EVN|A01|20240102030405\r" +
	"PID|1||12345^^^HOSP^MR||Doe^John||19800101|M\r" +
	"PV1|1|I"

func TestParseRoundTrip(t *testing.T) {
	testlog.Start(t)
	msg, err := Parse(adtMessage)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := Serialize(msg); got != adtMessage {
		t.Fatalf("round trip mismatch:\n got=%q\nwant=%q", got, adtMessage)
	}
}

func TestParseNormalizesLineEndings(t *testing.T) {
	testlog.Start(t)
	lf := strings.ReplaceAll(adtMessage, "\r", "\n")
	crlf := strings.ReplaceAll(adtMessage, "\r", "\r\n")
	for _, variant := range []string{lf, crlf} {
		msg, err := Parse(variant)
		if err != nil {
			t.Fatalf("parse variant: %v", err)
		}
		if got := Serialize(msg); got != adtMessage {
			t.Fatalf("normalization mismatch: got=%q", got)
		}
	}
}

func TestParseMSHSpecialFields(t *testing.T) {
	testlog.Start(t)
	msg, err := Parse(adtMessage)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	msh, ok := msg.Segment("MSH")
	if !ok {
		t.Fatalf("missing MSH")
	}
	if got := msh.Scalar(1); got != "|" {
		t.Fatalf("MSH-1 got=%q", got)
	}
	if got := msh.Scalar(2); got != "^~\\&" {
		t.Fatalf("MSH-2 got=%q", got)
	}
	if got := msh.Scalar(10); got != "MSG001" {
		t.Fatalf("MSH-10 got=%q", got)
	}
	if got := msh.Component(9, 2); got != "A01" {
		t.Fatalf("MSH-9.2 got=%q", got)
	}
}

func TestParseFieldShapes(t *testing.T) {
	testlog.Start(t)
	msg, err := Parse("MSH|^~\\&|A|B|C|D|20240102030405||ORU^R01|1|P|2.5\r" +
		"PID|1||ID1~ID2||Doe^John^^^&Jr")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pid, _ := msg.Segment("PID")

	v, ok := pid.Field(3)
	if !ok {
		t.Fatalf("PID-3 absent")
	}
	rep, isRep := v.(Repeated)
	if !isRep || len(rep) != 2 {
		t.Fatalf("PID-3 not a 2-element repetition: %#v", v)
	}
	if rep[0] != Scalar("ID1") || rep[1] != Scalar("ID2") {
		t.Fatalf("PID-3 repetitions: %#v", rep)
	}

	if _, ok := pid.Field(2); ok {
		t.Fatalf("PID-2 should be absent")
	}
	if _, ok := pid.Field(4); ok {
		t.Fatalf("PID-4 should be absent")
	}

	name, _ := pid.Field(5)
	comp, isComp := name.(Composite)
	if !isComp {
		t.Fatalf("PID-5 not composite: %#v", name)
	}
	if comp[1] != Scalar("Doe") || comp[2] != Scalar("John") {
		t.Fatalf("PID-5 components: %#v", comp)
	}
	// Component 5 is "&Jr": a subcomponent map with slot 1 absent.
	sub, isSub := comp[5].(Composite)
	if !isSub || sub[2] != Scalar("Jr") {
		t.Fatalf("PID-5.5 subcomponents: %#v", comp[5])
	}
}

func TestParseNeverWrapsSingles(t *testing.T) {
	testlog.Start(t)
	msg, err := Parse("MSH|^~\\&|A|B|C|D|20240102030405||ADT^A01|1|P|2.5\rOBX|1|ST|CODE|1|plain")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	obx, _ := msg.Segment("OBX")
	v, _ := obx.Field(5)
	if _, isScalar := v.(Scalar); !isScalar {
		t.Fatalf("plain field must stay scalar: %#v", v)
	}
}

func TestParseInteriorEmptyRepetitionKeepsSlot(t *testing.T) {
	testlog.Start(t)
	wire := "MSH|^~\\&|A|B|C|D|20240102030405||ADT^A01|1|P|2.5\rPID|1||A~~B"
	msg, err := Parse(wire)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pid, _ := msg.Segment("PID")
	rep, _ := pid.Fields[3].(Repeated)
	if len(rep) != 3 || rep[1] != Scalar("") {
		t.Fatalf("interior empty repetition lost: %#v", rep)
	}
	if got := Serialize(msg); got != wire {
		t.Fatalf("round trip mismatch: got=%q", got)
	}
}

func TestSubcomponentsStayDistinctFromComponents(t *testing.T) {
	testlog.Start(t)
	for _, wire := range []string{
		"MSH|^~\\&|A|B|C|D|20240102030405||ADT^A01|1|P|2.5\rOBX|1|ST|X|1|a&b",
		"MSH|^~\\&|A|B|C|D|20240102030405||ADT^A01|1|P|2.5\rOBX|1|ST|X|1|a^b",
	} {
		msg, err := Parse(wire)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := Serialize(msg); got != wire {
			t.Fatalf("separator level lost: got=%q want=%q", got, wire)
		}
	}
}

func TestParseAlternateDelimiters(t *testing.T) {
	testlog.Start(t)
	wire := "MSH#/@+'#APP#FAC#DEST#DFAC#20240102030405##ADT/A01#42#P#2.5\rPID#1##X/Y"
	msg, err := Parse(wire)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Delimiters.Field != '#' || msg.Delimiters.Component != '/' {
		t.Fatalf("delimiters: %+v", msg.Delimiters)
	}
	pid, _ := msg.Segment("PID")
	if got := pid.Component(3, 2); got != "Y" {
		t.Fatalf("PID-3.2 got=%q", got)
	}
	if got := Serialize(msg); got != wire {
		t.Fatalf("round trip mismatch: got=%q", got)
	}
}

func TestParseErrorsCarryLineIndex(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		text string
		want error
		line int
	}{
		{"empty", "", ErrEmptyMessage, 0},
		{"no msh", "PID|1|2", ErrMissingMSH, 0},
		{"msh not first", "EVN|A01\rMSH|^~\\&|A", ErrMissingMSH, 0},
		{"short msh", "MSH|^~", ErrShortMSH, 0},
		{"duplicate delimiters", "MSH|^^\\&|APP", ErrBadDelimiters, 0},
		{"separator after encoding", "MSH|^~\\&XAPP", ErrBadDelimiters, 0},
		{"bad segment id", "MSH|^~\\&|A|B|C|D|20240102030405||ADT^A01|1|P|2.5\rPIDX|1", ErrBadSegmentID, 1},
	}
	for _, tc := range cases {
		_, err := Parse(tc.text)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
		var perr ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("%s: not a ParseError: %v", tc.name, err)
		}
		if perr.Line != tc.line {
			t.Fatalf("%s: line got=%d want=%d", tc.name, perr.Line, tc.line)
		}
	}
}

func TestEscapeSequences(t *testing.T) {
	testlog.Start(t)
	wire := "MSH|^~\\&|A|B|C|D|20240102030405||ORU^R01|1|P|2.5\r" +
		"NTE|1||pipe \\F\\ caret \\S\\ amp \\T\\ tilde \\R\\ slash \\E\\ nl \\X0A\\ custom \\C2842\\"
	msg, err := Parse(wire)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	nte, _ := msg.Segment("NTE")
	decoded := nte.Scalar(3)
	want := "pipe | caret ^ amp & tilde ~ slash \\ nl \n custom \\C2842\\"
	if decoded != want {
		t.Fatalf("decode:\n got=%q\nwant=%q", decoded, want)
	}
	if got := Serialize(msg); got != wire {
		t.Fatalf("escape round trip:\n got=%q\nwant=%q", got, wire)
	}
}
