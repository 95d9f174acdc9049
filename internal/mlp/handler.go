package mlp

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hl7ctl/internal/hl7"
	"github.com/danmuck/hl7ctl/internal/observability"
)

// Store is the persistence collaborator consumed per received message. It is
// the only resource shared across connections and must tolerate concurrent
// invocation.
type Store interface {
	PersistMessage(ctx context.Context, raw, messageType string) error
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, raw, messageType string) error

func (f StoreFunc) PersistMessage(ctx context.Context, raw, messageType string) error {
	return f(ctx, raw, messageType)
}

// handler runs the per-message pipeline shared by every transport: extract
// the type, persist, derive exactly one ack. Per-message failures never
// escape; they become AE acks.
type handler struct {
	node  string
	store Store
}

func (h *handler) handle(ctx context.Context, raw string) string {
	start := time.Now()
	messageType := hl7.ExtractMessageType(raw)

	code := hl7.AckAccept
	errText := ""

	var parseErr hl7.ParseError
	if _, err := hl7.Parse(raw); errors.As(err, &parseErr) {
		code = hl7.AckError
		errText = parseErr.Error()
		log.Warn().
			Str("node", h.node).
			Str("message_type", messageType).
			Int("line", parseErr.Line).
			Err(parseErr.Err).
			Msg("mlp_message_unparsable")
	} else if err := h.store.PersistMessage(ctx, raw, messageType); err != nil {
		code = hl7.AckError
		errText = err.Error()
		log.Warn().
			Str("node", h.node).
			Str("message_type", messageType).
			Err(err).
			Msg("mlp_persist_failed")
	}

	ack := hl7.GenerateAck(raw, code, errText)
	observability.RecordMessage(h.node, messageType, string(code), time.Since(start))
	log.Info().
		Str("node", h.node).
		Str("message_type", messageType).
		Str("ack_code", string(code)).
		Dur("duration", time.Since(start)).
		Msg("mlp_message")
	return ack
}
