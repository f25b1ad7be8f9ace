package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusConflict, "busy")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"busy"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %s", ct)
	}
}

func TestRespondJSONNilPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusNoContent, nil)
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	var payload struct {
		Type string `json:"type"`
	}
	if err := DecodeJSON(req, &payload); err != nil {
		t.Fatalf("empty body must decode, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	if err := DecodeJSON(req, &payload); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)
	if err := SendSSEEvent(rec, rec, "snapshot", map[string]string{"phase": "idle"}); err != nil {
		t.Fatalf("SendSSEEvent err: %v", err)
	}
	if err := SendSSEComment(rec, rec, "ping"); err != nil {
		t.Fatalf("SendSSEComment err: %v", err)
	}

	want := "event: snapshot\ndata: {\"phase\":\"idle\"}\n\n: ping\n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected stream %q", rec.Body.String())
	}
	if !rec.Flushed {
		t.Fatal("expected flush")
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatal("missing sse content type")
	}
}
