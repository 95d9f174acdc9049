// Package hl7 owns the HL7v2 wire codec: the delimiter-driven message model,
// the parse/serialize pair, the outbound builder, message-type extraction and
// ACK generation.
//
// Ownership boundary:
// - per-message delimiter set and escape handling
// - Segment/Field/Component/Subcomponent model primitives
// - ACK/NAK derivation from inbound text
// Transport framing lives in internal/mllp, connection handling in
// internal/mlp.
package hl7
