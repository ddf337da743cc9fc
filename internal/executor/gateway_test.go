package executor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"blastbot/internal/batch"
	"blastbot/internal/retry"
)

func newTestGateway(t *testing.T, handler http.Handler) *gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g, err := newGateway(GatewayConfig{BaseURL: srv.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("newGateway: %v", err)
	}
	return g
}

func TestGatewaySendText(t *testing.T) {
	t.Parallel()
	var gotAuth string
	var gotBody map[string]string
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))

	if err := g.SendText(context.Background(), "+201001", "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody["to"] != "+201001" || gotBody["text"] != "hello" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestGatewayServerErrorIsRetryable(t *testing.T) {
	t.Parallel()
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	err := g.SendText(context.Background(), "+1", "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if retry.IsNoRetry(err) {
		t.Fatal("5xx must stay retryable")
	}
}

func TestGatewayRejectionIsNoRetry(t *testing.T) {
	t.Parallel()
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	err := g.SendText(context.Background(), "+1", "x")
	if !retry.IsNoRetry(err) {
		t.Fatalf("err = %v, want no-retry", err)
	}
}

func TestGatewaySendAttachment(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	var gotKind, gotTo, gotFile string
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/media" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart: %v", err)
		}
		gotKind = r.FormValue("kind")
		gotTo = r.FormValue("to")
		if f, hdr, err := r.FormFile("file"); err == nil {
			gotFile = hdr.Filename
			_ = f.Close()
		}
		w.WriteHeader(http.StatusCreated)
	}))

	err := g.SendAttachment(context.Background(), "+201001", batch.FacetImage, path)
	if err != nil {
		t.Fatalf("SendAttachment: %v", err)
	}
	if gotKind != "image" || gotTo != "+201001" || gotFile != "pic.png" {
		t.Fatalf("kind=%q to=%q file=%q", gotKind, gotTo, gotFile)
	}
}

func TestGatewayMissingAttachmentIsNoRetry(t *testing.T) {
	t.Parallel()
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	err := g.SendAttachment(context.Background(), "+1", batch.FacetFile, "/does/not/exist")
	if !retry.IsNoRetry(err) {
		t.Fatalf("err = %v, want no-retry", err)
	}
}

func TestGatewaySession(t *testing.T) {
	t.Parallel()
	ready := false
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/session" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))

	err := g.EnsureSessionReady(context.Background())
	var se *SessionError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SessionError", err)
	}
	if !IsSession(err) {
		t.Fatal("IsSession = false")
	}

	ready = true
	if err := g.EnsureSessionReady(context.Background()); err != nil {
		t.Fatalf("EnsureSessionReady: %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Backend: "carrier-pigeon"}); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestScriptFailMatching(t *testing.T) {
	t.Parallel()
	ex := newScript(ScriptConfig{FailMatching: "666"})
	if err := ex.SendText(context.Background(), "+20100", "ok"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if err := ex.SendText(context.Background(), "+20666", "boom"); err == nil {
		t.Fatal("expected failure for matching recipient")
	}
	if err := ex.EnsureSessionReady(context.Background()); err != nil {
		t.Fatalf("EnsureSessionReady: %v", err)
	}
}
