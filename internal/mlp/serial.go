package mlp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/danmuck/hl7ctl/internal/mllp"
	"github.com/danmuck/hl7ctl/internal/observability"
)

var ErrSerialPortRequired = errors.New("mlp: serial port required")

// SerialListener drives the same framer/handler/ack pipeline over one RS-232
// port. Bench-top analyzers frame messages exactly like the TCP peers do.
type SerialListener struct {
	cfg     SerialConfig
	node    string
	handler *handler
	limits  mllp.Limits
}

func newSerialListener(cfg SerialConfig, node string, h *handler, limits mllp.Limits) (*SerialListener, error) {
	if cfg.Port == "" {
		return nil, ErrSerialPortRequired
	}
	if limits.MaxPayloadBytes <= 0 {
		limits = mllp.DefaultLimits()
	}
	return &SerialListener{cfg: cfg, node: node, handler: h, limits: limits}, nil
}

// Run opens the port and serves until ctx is cancelled. The port is a single
// peer, so in-order ack handling falls out of the sequential read loop.
func (l *SerialListener) Run(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: l.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(l.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("mlp: open serial port %s: %w", l.cfg.Port, err)
	}
	observability.ConnectionOpened(l.node, "serial")
	log.Info().
		Str("node", l.node).
		Str("port", l.cfg.Port).
		Int("baud", l.cfg.BaudRate).
		Msg("mlp_serial_listening")

	go func() {
		<-ctx.Done()
		_ = port.Close()
	}()
	defer func() {
		_ = port.Close()
		observability.ConnectionClosed(l.node, "serial")
	}()

	// Handling runs detached from serve cancellation so a persist caught by
	// shutdown still finishes; the port close above unblocks the next Read.
	handleCtx := context.WithoutCancel(ctx)
	framer := mllp.NewFramerWithLimits(l.limits)
	buf := make([]byte, 4096)
	var reported uint64
	for {
		n, err := port.Read(buf)
		if n > 0 {
			for _, raw := range framer.Push(buf[:n]) {
				ack := l.handler.handle(handleCtx, raw)
				if _, werr := port.Write(mllp.Wrap([]byte(ack))); werr != nil {
					return fmt.Errorf("mlp: serial ack write: %w", werr)
				}
			}
			if d := framer.Discards(); d > reported {
				observability.RecordFramingDiscards(l.node, d-reported)
				reported = d
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("mlp: serial read: %w", err)
		}
	}
}
