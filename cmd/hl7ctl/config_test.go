package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/hl7ctl/internal/mlp"
	"github.com/danmuck/hl7ctl/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hl7ctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadServiceConfigDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServiceConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := mlp.DefaultServiceConfig()
	if cfg.Node != want.Node || cfg.Listen != want.Listen {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Store.Timeout != want.Store.Timeout {
		t.Fatalf("store timeout default lost: %v", cfg.Store.Timeout)
	}
	if cfg.Serial.BaudRate != want.Serial.BaudRate {
		t.Fatalf("baud rate default lost: %d", cfg.Serial.BaudRate)
	}
}

func TestLoadServiceConfigOverrides(t *testing.T) {
	testlog.Start(t)
	body := `
node = "gw-east.example"
listen = ":12575"
max_payload_bytes = 1048576

[store]
endpoint = "http://messages.internal/api/v1/hl7"
timeout = "2s"
auth_token = "tok"

[serial]
enabled = true
port = "/dev/ttyUSB0"
baud_rate = 115200

[admin]
enabled = true
addr = ":9000"
cors_origins = ["http://ops.example", "  ", "http://ops2.example"]
`
	cfg, err := loadServiceConfig(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Node != "gw-east.example" || cfg.Listen != ":12575" {
		t.Fatalf("top level: %+v", cfg)
	}
	if cfg.MaxPayloadBytes != 1048576 {
		t.Fatalf("max payload: %d", cfg.MaxPayloadBytes)
	}
	if cfg.Store.Endpoint != "http://messages.internal/api/v1/hl7" ||
		cfg.Store.Timeout != 2*time.Second || cfg.Store.AuthToken != "tok" {
		t.Fatalf("store: %+v", cfg.Store)
	}
	if !cfg.Serial.Enabled || cfg.Serial.Port != "/dev/ttyUSB0" || cfg.Serial.BaudRate != 115200 {
		t.Fatalf("serial: %+v", cfg.Serial)
	}
	if !cfg.Admin.Enabled || cfg.Admin.Addr != ":9000" {
		t.Fatalf("admin: %+v", cfg.Admin)
	}
	if len(cfg.Admin.CorsOrigins) != 2 {
		t.Fatalf("cors origins not normalized: %v", cfg.Admin.CorsOrigins)
	}
}

func TestLoadServiceConfigPartialTableKeepsDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServiceConfig(writeConfig(t, "[store]\nendpoint = \"http://s.example\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Endpoint != "http://s.example" {
		t.Fatalf("endpoint: %q", cfg.Store.Endpoint)
	}
	if cfg.Store.Timeout != mlp.DefaultServiceConfig().Store.Timeout {
		t.Fatalf("timeout default lost: %v", cfg.Store.Timeout)
	}
}

func TestLoadServiceConfigRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"bad toml":           "listen = [",
		"bad timeout":        "[store]\ntimeout = \"fast\"\n",
		"blank listen":       "listen = \"  \"\n",
		"serial without port": "[serial]\nenabled = true\n",
		"negative payload":   "max_payload_bytes = -1\n",
	}
	for name, body := range cases {
		if _, err := loadServiceConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: accepted", name)
		}
	}
	if _, err := loadServiceConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
