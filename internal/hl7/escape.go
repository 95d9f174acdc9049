package hl7

import (
	"encoding/hex"
	"strings"
)

// Escape sequences are decoded only at leaf scalars, after structural
// splitting. \F\ \S\ \T\ \R\ \E\ map to the active delimiter set, \Xdd..\
// carries hex-encoded bytes. Other sequences (\C..\, \Z..\, ...) pass through
// verbatim in both directions.

func decodeEscapes(raw string, d Delimiters) string {
	if !strings.ContainsRune(raw, rune(d.Escape)) {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); {
		c := raw[i]
		if c != d.Escape {
			b.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(raw[i+1:], d.Escape)
		if end < 0 {
			// Unterminated escape, keep the rest verbatim.
			b.WriteString(raw[i:])
			break
		}
		seq := raw[i+1 : i+1+end]
		switch {
		case seq == "F":
			b.WriteByte(d.Field)
		case seq == "S":
			b.WriteByte(d.Component)
		case seq == "T":
			b.WriteByte(d.Subcomponent)
		case seq == "R":
			b.WriteByte(d.Repetition)
		case seq == "E":
			b.WriteByte(d.Escape)
		case len(seq) > 1 && seq[0] == 'X' && decodeHexSeq(&b, seq[1:]):
		default:
			b.WriteByte(d.Escape)
			b.WriteString(seq)
			b.WriteByte(d.Escape)
		}
		i += end + 2
	}
	return b.String()
}

func decodeHexSeq(b *strings.Builder, digits string) bool {
	if len(digits)%2 != 0 {
		return false
	}
	raw, err := hex.DecodeString(digits)
	if err != nil {
		return false
	}
	b.Write(raw)
	return true
}

func encodeEscapes(value string, d Delimiters) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); {
		c := value[i]
		switch c {
		case d.Field:
			b.WriteByte(d.Escape)
			b.WriteByte('F')
			b.WriteByte(d.Escape)
		case d.Component:
			b.WriteByte(d.Escape)
			b.WriteByte('S')
			b.WriteByte(d.Escape)
		case d.Subcomponent:
			b.WriteByte(d.Escape)
			b.WriteByte('T')
			b.WriteByte(d.Escape)
		case d.Repetition:
			b.WriteByte(d.Escape)
			b.WriteByte('R')
			b.WriteByte(d.Escape)
		case d.Escape:
			if n := passthroughSeqLen(value[i:], d); n > 0 {
				b.WriteString(value[i : i+n])
				i += n
				continue
			}
			b.WriteByte(d.Escape)
			b.WriteByte('E')
			b.WriteByte(d.Escape)
		default:
			if c < 0x20 || c == 0x7f {
				b.WriteByte(d.Escape)
				b.WriteByte('X')
				const hexDigits = "0123456789ABCDEF"
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0x0f])
				b.WriteByte(d.Escape)
			} else {
				b.WriteByte(c)
			}
		}
		i++
	}
	return b.String()
}

// passthroughSeqLen reports the length of a verbatim-preserved escape
// sequence (\C..\ or \Z..\) starting at s[0], or 0 when s does not begin one.
func passthroughSeqLen(s string, d Delimiters) int {
	if len(s) < 3 || s[0] != d.Escape {
		return 0
	}
	if s[1] != 'C' && s[1] != 'Z' {
		return 0
	}
	end := strings.IndexByte(s[1:], d.Escape)
	if end < 0 {
		return 0
	}
	return end + 2
}
