package mlp

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hl7ctl/internal/mllp"
	"github.com/danmuck/hl7ctl/internal/observability"
)

var (
	ErrStoreRequired  = errors.New("mlp: store required")
	ErrListenRequired = errors.New("mlp: listen address required")
	ErrNotListening   = errors.New("mlp: server is not listening")
)

// ServerConfig configures the TCP listener boundary.
type ServerConfig struct {
	Node   string
	Addr   string
	Limits mllp.Limits
}

// Stats is a point-in-time snapshot of server counters.
type Stats struct {
	ConnectionsOpened uint64 `json:"connections_opened"`
	MessagesServed    uint64 `json:"messages_served"`
}

// Server accepts MLP connections and runs one fully independent goroutine per
// connection. On each connection, replies are strictly ordered relative to
// requests: exactly one framed ack is written per message before the next
// message on that connection is processed.
type Server struct {
	cfg     ServerConfig
	handler *handler

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool

	wg       sync.WaitGroup
	connSeq  atomic.Uint64
	served   atomic.Uint64
	discards atomic.Uint64
}

func NewServer(cfg ServerConfig, st Store) (*Server, error) {
	if st == nil {
		return nil, ErrStoreRequired
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, ErrListenRequired
	}
	if cfg.Node == "" {
		cfg.Node = DefaultServiceConfig().Node
	}
	if cfg.Limits.MaxPayloadBytes <= 0 {
		cfg.Limits = mllp.DefaultLimits()
	}
	return &Server{
		cfg:     cfg,
		handler: &handler{node: cfg.Node, store: st},
	}, nil
}

// Listen binds the configured TCP address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	log.Info().
		Str("node", s.cfg.Node).
		Str("addr", ln.Addr().String()).
		Msg("mlp_listening")
	return nil
}

// Addr returns the bound address, for callers that listened on port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until the listener closes or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	serveDone := make(chan struct{})
	defer close(serveDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-serveDone:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close stops accepting, unblocks idle connection reads and waits for the
// connection handlers. Framer state dies with each connection; in-flight
// message handling is allowed to finish and its ack still flushes, because
// only the read side of each peer is shut down here.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, c := range conns {
		if tc, ok := c.(*net.TCPConn); ok {
			_ = tc.CloseRead()
		} else {
			_ = c.SetReadDeadline(time.Now())
		}
	}
	s.wg.Wait()
	return err
}

// track registers a live connection for Close to unblock. Reports false when
// the server is already closing; the caller must drop the connection.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Snapshot reports serving counters for the admin surface.
func (s *Server) Snapshot() Stats {
	return Stats{
		ConnectionsOpened: s.connSeq.Load(),
		MessagesServed:    s.served.Load(),
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	id := s.connSeq.Add(1)
	remote := conn.RemoteAddr().String()
	observability.ConnectionOpened(s.cfg.Node, "tcp")
	log.Info().
		Str("node", s.cfg.Node).
		Uint64("conn", id).
		Str("remote", remote).
		Msg("mlp_connection_open")

	defer func() {
		_ = conn.Close()
		observability.ConnectionClosed(s.cfg.Node, "tcp")
		log.Info().
			Str("node", s.cfg.Node).
			Uint64("conn", id).
			Str("remote", remote).
			Msg("mlp_connection_closed")
	}()

	// Buffer and framer are exclusive to this connection. Message handling
	// runs on a context detached from serve cancellation: shutdown lets an
	// in-flight persist finish (the store client carries its own timeout)
	// instead of turning it into a spurious AE.
	handleCtx := context.WithoutCancel(ctx)
	framer := mllp.NewFramerWithLimits(s.cfg.Limits)
	buf := make([]byte, 4096)
	var reported uint64

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, raw := range framer.Push(buf[:n]) {
				ack := s.handler.handle(handleCtx, raw)
				s.served.Add(1)
				if werr := mllp.WritePayload(conn, []byte(ack)); werr != nil {
					log.Warn().
						Str("node", s.cfg.Node).
						Uint64("conn", id).
						Err(werr).
						Msg("mlp_ack_write_failed")
					return
				}
			}
			if d := framer.Discards(); d > reported {
				observability.RecordFramingDiscards(s.cfg.Node, d-reported)
				reported = d
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !s.isClosed() {
				log.Debug().
					Str("node", s.cfg.Node).
					Uint64("conn", id).
					Err(err).
					Msg("mlp_read_error")
			}
			return
		}
	}
}
