package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/hl7ctl/internal/testutil/testlog"
)

func TestNewClientValidation(t *testing.T) {
	testlog.Start(t)
	if _, err := NewClient(Config{Endpoint: "  "}); !errors.Is(err, ErrEndpointRequired) {
		t.Fatalf("blank endpoint: %v", err)
	}
	if _, err := NewClient(Config{Endpoint: "http://localhost:9999/messages"}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestPersistMessagePostsJSON(t *testing.T) {
	testlog.Start(t)
	var got persistRequest
	var auth, contentType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	c, err := NewClient(Config{Endpoint: ts.URL, AuthToken: "sekrit"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	raw := "MSH|^~\\&|A|B|C|D|20240102030405||ADT^A01|1|P|2.5"
	if err := c.PersistMessage(context.Background(), raw, "ADT_A01"); err != nil {
		t.Fatalf("persist: %v", err)
	}

	if got.Message != raw {
		t.Fatalf("message got=%q", got.Message)
	}
	if got.MessageType != "ADT_A01" {
		t.Fatalf("message_type got=%q", got.MessageType)
	}
	if _, err := time.Parse(time.RFC3339, got.ReceivedAt); err != nil {
		t.Fatalf("received_at %q: %v", got.ReceivedAt, err)
	}
	if auth != "Bearer sekrit" {
		t.Fatalf("authorization got=%q", auth)
	}
	if contentType != "application/json" {
		t.Fatalf("content type got=%q", contentType)
	}
}

func TestPersistMessageNoAuthHeaderWithoutToken(t *testing.T) {
	testlog.Start(t)
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer ts.Close()

	c, _ := NewClient(Config{Endpoint: ts.URL})
	if err := c.PersistMessage(context.Background(), "MSH|^~\\&|A", "UNKNOWN"); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if auth != "" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
}

func TestPersistMessageRejection(t *testing.T) {
	testlog.Start(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "schema mismatch", http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	c, _ := NewClient(Config{Endpoint: ts.URL})
	err := c.PersistMessage(context.Background(), "MSH|^~\\&|A", "UNKNOWN")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "422") {
		t.Fatalf("error should carry the status: %v", err)
	}
}

func TestPersistMessageTimeout(t *testing.T) {
	testlog.Start(t)
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	c, err := NewClient(Config{Endpoint: ts.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.PersistMessage(context.Background(), "MSH|^~\\&|A", "UNKNOWN"); err == nil {
		t.Fatalf("expected timeout error")
	}
}
