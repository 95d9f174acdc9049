// Package store is the persistence collaborator boundary: raw messages plus
// their extracted type are handed to an external storage service over HTTP.
// The gateway needs only success/failure and a human-readable reason back.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrEndpointRequired = errors.New("store: endpoint required")

// Config configures the storage endpoint client.
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	AuthToken string
}

func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

// Client posts received messages to the configured endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, ErrEndpointRequired
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type persistRequest struct {
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	ReceivedAt  string `json:"received_at"`
}

// PersistMessage stores one raw message. A non-2xx response or transport
// failure is returned as an error whose text feeds the AE ack.
func (c *Client) PersistMessage(ctx context.Context, raw, messageType string) error {
	body, err := json.Marshal(persistRequest{
		Message:     raw,
		MessageType: messageType,
		ReceivedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("store: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("store: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().
			Str("endpoint", c.cfg.Endpoint).
			Str("message_type", messageType).
			Int("status", resp.StatusCode).
			Msg("store_persist_rejected")
		return fmt.Errorf("store: endpoint returned %s", resp.Status)
	}

	log.Debug().
		Str("message_type", messageType).
		Int("bytes", len(raw)).
		Msg("store_persist_ok")
	return nil
}
