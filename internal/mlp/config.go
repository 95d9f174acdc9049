package mlp

import (
	"fmt"
	"strings"

	"github.com/danmuck/hl7ctl/internal/store"
)

// SerialConfig enables the optional serial-port listener for bench-top
// analyzers speaking MLLP over RS-232.
type SerialConfig struct {
	Enabled  bool
	Port     string
	BaudRate int
}

// AdminConfig enables the optional admin HTTP surface.
type AdminConfig struct {
	Enabled     bool
	Addr        string
	CorsOrigins []string
}

// ServiceConfig configures one gateway process.
type ServiceConfig struct {
	Node            string
	Listen          string
	MaxPayloadBytes int
	Store           store.Config
	Serial          SerialConfig
	Admin           AdminConfig
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Node:   "hl7ctl.local",
		Listen: ":2575",
		Store:  store.DefaultConfig(),
		Serial: SerialConfig{BaudRate: 9600},
		Admin:  AdminConfig{Addr: ":8575"},
	}
}

func ValidateServiceConfig(cfg ServiceConfig) error {
	if strings.TrimSpace(cfg.Node) == "" {
		return fmt.Errorf("service config missing node")
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("service config missing listen address")
	}
	if cfg.MaxPayloadBytes < 0 {
		return fmt.Errorf("max payload bytes must not be negative")
	}
	if cfg.Serial.Enabled {
		if strings.TrimSpace(cfg.Serial.Port) == "" {
			return fmt.Errorf("serial listener enabled without a port")
		}
		if cfg.Serial.BaudRate <= 0 {
			return fmt.Errorf("serial baud rate must be positive")
		}
	}
	if cfg.Admin.Enabled && strings.TrimSpace(cfg.Admin.Addr) == "" {
		return fmt.Errorf("admin surface enabled without an address")
	}
	return nil
}
