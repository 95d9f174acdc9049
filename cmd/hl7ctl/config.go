package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/hl7ctl/internal/mlp"
)

type fileConfig struct {
	Node            string           `toml:"node"`
	Listen          string           `toml:"listen"`
	MaxPayloadBytes int              `toml:"max_payload_bytes"`
	Store           storeFileConfig  `toml:"store"`
	Serial          serialFileConfig `toml:"serial"`
	Admin           adminFileConfig  `toml:"admin"`
}

type storeFileConfig struct {
	Endpoint  string `toml:"endpoint"`
	Timeout   string `toml:"timeout"`
	AuthToken string `toml:"auth_token"`
}

type serialFileConfig struct {
	Enabled  bool   `toml:"enabled"`
	Port     string `toml:"port"`
	BaudRate int    `toml:"baud_rate"`
}

type adminFileConfig struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

func loadServiceConfig(path string) (mlp.ServiceConfig, error) {
	cfg := mlp.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return mlp.ServiceConfig{}, fmt.Errorf("load hl7ctl config: %w", err)
	}

	if meta.IsDefined("node") {
		if node := strings.TrimSpace(raw.Node); node != "" {
			cfg.Node = node
		}
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("max_payload_bytes") {
		cfg.MaxPayloadBytes = raw.MaxPayloadBytes
	}

	if meta.IsDefined("store", "endpoint") {
		cfg.Store.Endpoint = strings.TrimSpace(raw.Store.Endpoint)
	}
	if meta.IsDefined("store", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Store.Timeout))
		if err != nil {
			return mlp.ServiceConfig{}, fmt.Errorf("parse store timeout: %w", err)
		}
		cfg.Store.Timeout = d
	}
	if meta.IsDefined("store", "auth_token") {
		cfg.Store.AuthToken = strings.TrimSpace(raw.Store.AuthToken)
	}

	if meta.IsDefined("serial", "enabled") {
		cfg.Serial.Enabled = raw.Serial.Enabled
	}
	if meta.IsDefined("serial", "port") {
		cfg.Serial.Port = strings.TrimSpace(raw.Serial.Port)
	}
	if meta.IsDefined("serial", "baud_rate") {
		cfg.Serial.BaudRate = raw.Serial.BaudRate
	}

	if meta.IsDefined("admin", "enabled") {
		cfg.Admin.Enabled = raw.Admin.Enabled
	}
	if meta.IsDefined("admin", "addr") {
		cfg.Admin.Addr = strings.TrimSpace(raw.Admin.Addr)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.Admin.CorsOrigins = normalizeList(raw.Admin.CorsOrigins)
	}

	if err := mlp.ValidateServiceConfig(cfg); err != nil {
		return mlp.ServiceConfig{}, err
	}
	return cfg, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
