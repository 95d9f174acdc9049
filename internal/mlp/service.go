package mlp

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hl7ctl/internal/mllp"
	"github.com/danmuck/hl7ctl/internal/store"
)

// Service runs the gateway lifecycle as a standalone process: the TCP
// listener, the optional serial listener, the optional admin surface, and
// signal-driven shutdown.
type Service struct {
	cfg    ServiceConfig
	server *Server
	serial *SerialListener
	admin  *http.Server
}

// NewService wires the persistence collaborator from config. With no endpoint
// configured the service runs in accept-and-log mode, which is what dev rigs
// and `hl7send` smoke tests want.
func NewService(cfg ServiceConfig) (*Service, error) {
	var st Store
	if cfg.Store.Endpoint != "" {
		client, err := store.NewClient(cfg.Store)
		if err != nil {
			return nil, err
		}
		st = client
	} else {
		st = logStore{}
	}
	return NewServiceWithStore(cfg, st)
}

// NewServiceWithStore injects an explicit collaborator.
func NewServiceWithStore(cfg ServiceConfig, st Store) (*Service, error) {
	if err := ValidateServiceConfig(cfg); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStoreRequired
	}

	limits := mllp.DefaultLimits()
	if cfg.MaxPayloadBytes > 0 {
		limits.MaxPayloadBytes = cfg.MaxPayloadBytes
	}
	server, err := NewServer(ServerConfig{Node: cfg.Node, Addr: cfg.Listen, Limits: limits}, st)
	if err != nil {
		return nil, err
	}

	svc := &Service{cfg: cfg, server: server}
	if cfg.Serial.Enabled {
		listener, err := newSerialListener(cfg.Serial, cfg.Node, server.handler, limits)
		if err != nil {
			return nil, err
		}
		svc.serial = listener
	}
	if cfg.Admin.Enabled {
		svc.admin = &http.Server{
			Addr:    cfg.Admin.Addr,
			Handler: newAdminEngine(cfg.Node, cfg.Admin.CorsOrigins, server.Snapshot),
		}
	}
	return svc, nil
}

// Server exposes the TCP boundary, mainly for tests binding port 0.
func (s *Service) Server() *Server {
	return s.server
}

// Run blocks until SIGINT/SIGTERM, then shuts down gracefully: the listeners
// stop accepting and in-flight handlers finish.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.serve(ctx)
}

func (s *Service) serve(ctx context.Context) error {
	if err := s.server.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 3)
	go func() { errCh <- s.server.Serve(ctx) }()

	if s.serial != nil {
		go func() { errCh <- s.serial.Run(ctx) }()
	}
	if s.admin != nil {
		go func() {
			log.Info().
				Str("node", s.cfg.Node).
				Str("addr", s.admin.Addr).
				Msg("mlp_admin_listening")
			if err := s.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	if s.admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.admin.Shutdown(shutdownCtx)
		cancel()
	}
	if err := s.server.Close(); err != nil && runErr == nil {
		runErr = err
	}
	log.Info().Str("node", s.cfg.Node).Msg("mlp_service_stopped")
	return runErr
}

// logStore accepts everything and records it; the stand-in collaborator when
// no storage endpoint is configured.
type logStore struct{}

func (logStore) PersistMessage(_ context.Context, raw, messageType string) error {
	log.Info().
		Str("message_type", messageType).
		Int("bytes", len(raw)).
		Msg("mlp_message_discarded_no_store")
	return nil
}
