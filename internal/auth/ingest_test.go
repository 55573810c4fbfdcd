package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func postSignedReading(secret []byte, body string, ts time.Time) *http.Request {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/readings", strings.NewReader(body))
	req.Header.Set("X-Ingest-Timestamp", timestamp)
	req.Header.Set("X-Ingest-Signature", SignReading(secret, timestamp, []byte(body)))
	return req
}

func TestIngestSignatureAccepted(t *testing.T) {
	secret := []byte("feed-secret")
	m := NewIngestAuthMiddleware(secret, 5*time.Minute)

	var seenBody string
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 128)
		n, _ := r.Body.Read(buf)
		seenBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"id":"dev-1","fireDetection":1}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postSignedReading(secret, body, time.Now()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if seenBody != body {
		t.Fatalf("handler saw body %q, want %q", seenBody, body)
	}
}

func TestIngestSignatureRejected(t *testing.T) {
	secret := []byte("feed-secret")
	m := NewIngestAuthMiddleware(secret, 5*time.Minute)
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := postSignedReading([]byte("wrong-secret"), `{"id":"dev-1"}`, time.Now())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIngestSignatureStaleTimestamp(t *testing.T) {
	secret := []byte("feed-secret")
	m := NewIngestAuthMiddleware(secret, time.Minute)
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := postSignedReading(secret, `{"id":"dev-1"}`, time.Now().Add(-10*time.Minute))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIngestMissingHeaders(t *testing.T) {
	m := NewIngestAuthMiddleware([]byte("feed-secret"), time.Minute)
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/readings", strings.NewReader("{}"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
