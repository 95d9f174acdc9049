package mllp

import (
	"bytes"
	"io"
)

// MLLP framing bytes: START_BLOCK + payload + END_BLOCK + CR.
const (
	StartBlock     byte = 0x0B
	EndBlock       byte = 0x1C
	CarriageReturn byte = 0x0D
)

// Limits constrains framer memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 8 * 1024 * 1024}
}

type phase int

const (
	phaseIdle phase = iota
	phaseInBlock
	phaseAwaitCR
)

// Framer turns an unbounded, arbitrarily chunked byte stream into complete
// MLLP payloads. State persists across Push calls and is owned exclusively by
// one connection; a Framer is never shared.
//
// Policies beyond the framing bytes themselves:
//   - bytes seen while idle are discarded, not buffered
//   - START_BLOCK inside a block is a no-op, so a partial frame abandoned by
//     a sender restart is flushed together with the next complete frame
//   - END_BLOCK followed by anything but CR is treated as payload data
//   - an END_BLOCK+CR pair with nothing accumulated emits no message
//   - a payload over the limit is dropped whole and counted, never surfaced
type Framer struct {
	phase    phase
	buf      bytes.Buffer
	limits   Limits
	overflow bool
	discards uint64
}

func NewFramer() *Framer {
	return NewFramerWithLimits(DefaultLimits())
}

func NewFramerWithLimits(limits Limits) *Framer {
	if limits.MaxPayloadBytes <= 0 {
		limits = DefaultLimits()
	}
	return &Framer{limits: limits}
}

// Push consumes one chunk, at any granularity from a single byte up to many
// complete frames plus a trailing partial, and returns the payloads completed
// by it in arrival order.
func (f *Framer) Push(chunk []byte) []string {
	var out []string
	for _, b := range chunk {
		switch f.phase {
		case phaseIdle:
			switch b {
			case StartBlock:
				f.begin()
			case EndBlock:
				f.phase = phaseAwaitCR
			}
		case phaseInBlock:
			switch b {
			case StartBlock:
				// Keep accumulating; leftover flushes with the next frame.
			case EndBlock:
				f.phase = phaseAwaitCR
			default:
				f.accumulate(b)
			}
		case phaseAwaitCR:
			switch b {
			case CarriageReturn:
				if msg, ok := f.emit(); ok {
					out = append(out, msg)
				}
			case StartBlock:
				f.begin()
			case EndBlock:
				f.accumulate(EndBlock)
			default:
				// The END_BLOCK was payload data after all.
				f.accumulate(EndBlock)
				f.accumulate(b)
				f.phase = phaseInBlock
			}
		}
	}
	return out
}

// Reset discards accumulated state, as on connection teardown.
func (f *Framer) Reset() {
	f.phase = phaseIdle
	f.buf.Reset()
	f.overflow = false
}

// Pending reports the bytes accumulated for an incomplete frame.
func (f *Framer) Pending() int {
	return f.buf.Len()
}

// Discards counts payloads dropped for exceeding the size limit.
func (f *Framer) Discards() uint64 {
	return f.discards
}

func (f *Framer) begin() {
	f.phase = phaseInBlock
	f.buf.Reset()
	f.overflow = false
}

func (f *Framer) accumulate(b byte) {
	if f.overflow {
		return
	}
	if f.buf.Len() >= f.limits.MaxPayloadBytes {
		f.overflow = true
		f.buf.Reset()
		return
	}
	f.buf.WriteByte(b)
}

func (f *Framer) emit() (string, bool) {
	defer func() {
		f.phase = phaseIdle
		f.buf.Reset()
		f.overflow = false
	}()
	if f.overflow {
		f.discards++
		return "", false
	}
	if f.buf.Len() == 0 {
		return "", false
	}
	return f.buf.String(), true
}

// Wrap frames one payload for the wire.
func Wrap(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+3)
	out = append(out, StartBlock)
	out = append(out, payload...)
	out = append(out, EndBlock, CarriageReturn)
	return out
}

// WritePayload writes one framed payload to w.
func WritePayload(w io.Writer, payload []byte) error {
	_, err := w.Write(Wrap(payload))
	return err
}
