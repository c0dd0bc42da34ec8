package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCommandsAreRegistered(t *testing.T) {
	want := map[string]bool{"chat": false, "status": false, "languages": false, "config": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestLanguagesLocal(t *testing.T) {
	out, err := execute(t, "languages", "--remote=false")
	if err != nil {
		t.Fatalf("languages failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 12 {
		t.Fatalf("expected 12 languages, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "ja-JP") {
		t.Errorf("expected speech locales in output, got:\n%s", out)
	}
}

func TestLanguagesRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/languages" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"languages":{"en":"English","de":"German"}}`))
	}))
	defer server.Close()

	out, err := execute(t, "languages", "--remote", "--server-url", server.URL)
	if err != nil {
		t.Fatalf("languages --remote failed: %v", err)
	}
	if !strings.Contains(out, "German (not supported by this client)") {
		t.Errorf("expected unsupported remote language to be marked, got:\n%s", out)
	}
	if !strings.Contains(out, "English") {
		t.Errorf("expected English in output, got:\n%s", out)
	}
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"healthy","service":"gemini_improved"}`))
		case "/session-info":
			_, _ = w.Write([]byte(`{"success":true,"session_id":"sess_42","message_count":3,"last_activity":null}`))
		}
	}))
	defer server.Close()

	out, err := execute(t, "status", "--server-url", server.URL)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{"healthy", "sess_42", "3", "never"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestStatusUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if _, err := execute(t, "status", "--server-url", url); err == nil {
		t.Fatalf("expected status to fail for an unreachable service")
	}
}

func TestConfigSchema(t *testing.T) {
	out, err := execute(t, "config", "schema")
	if err != nil {
		t.Fatalf("config schema failed: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(out), &schema); err != nil {
		t.Fatalf("expected JSON output, got %v", err)
	}
	if _, ok := schema["properties"]; !ok {
		t.Fatalf("expected schema properties, got %v", schema)
	}
}
