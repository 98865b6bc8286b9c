package receiver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/testutil/testlog"
)

func serveAdmin(t *testing.T, a *Admin, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	return w
}

func TestAdminHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	a := NewAdmin(New(), AdminConfig{NodeID: "recv-test"})
	if w := serveAdmin(t, a, http.MethodGet, "/health", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "recv-test") {
		t.Fatalf("health code=%d body=%s", w.Code, w.Body.String())
	}
	if w := serveAdmin(t, a, http.MethodGet, "/ready", ""); w.Code != http.StatusOK {
		t.Fatalf("ready code=%d", w.Code)
	}
	w := serveAdmin(t, a, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "arqlink_http_requests_total") {
		t.Fatalf("metrics code=%d", w.Code)
	}
}

func TestAdminPeersAndStats(t *testing.T) {
	testlog.Start(t)
	r := New()
	r.Handle("127.0.0.1:4000", wire(protocol.Bit0, "Hola"))
	r.Handle("127.0.0.1:4000", wire(protocol.Bit0, "Hola"))
	a := NewAdmin(r, AdminConfig{})

	w := serveAdmin(t, a, http.MethodGet, "/peers", "")
	var body struct {
		Peers []PeerCursor `json:"peers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode peers: %v", err)
	}
	if len(body.Peers) != 1 || body.Peers[0].Expected != protocol.Bit1 || body.Peers[0].Duplicates != 1 {
		t.Fatalf("unexpected peers: %+v", body.Peers)
	}

	w = serveAdmin(t, a, http.MethodGet, "/peers/127.0.0.1:4000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("peer lookup code=%d", w.Code)
	}
	if w = serveAdmin(t, a, http.MethodGet, "/peers/10.0.0.1:1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown peer code=%d", w.Code)
	}

	var stats Stats
	w = serveAdmin(t, a, http.MethodGet, "/stats", "")
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Accepted != 1 || stats.Duplicates != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAdminResetRequiresToken(t *testing.T) {
	testlog.Start(t)
	r := New()
	r.Handle("127.0.0.1:4000", wire(protocol.Bit0, "Hola"))

	closed := NewAdmin(r, AdminConfig{})
	if w := serveAdmin(t, closed, http.MethodDelete, "/peers/127.0.0.1:4000", "anything"); w.Code != http.StatusForbidden {
		t.Fatalf("reset without configured token code=%d", w.Code)
	}

	a := NewAdmin(r, AdminConfig{Token: "s3cret"})
	if w := serveAdmin(t, a, http.MethodDelete, "/peers/127.0.0.1:4000", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("reset with wrong token code=%d", w.Code)
	}
	if w := serveAdmin(t, a, http.MethodDelete, "/peers/127.0.0.1:4000", "s3cret"); w.Code != http.StatusOK {
		t.Fatalf("reset code=%d body=%s", w.Code, w.Body.String())
	}
	if r.Cursors().Expected("127.0.0.1:4000") != protocol.Bit0 {
		t.Fatalf("cursor not reset")
	}
	if w := serveAdmin(t, a, http.MethodDelete, "/peers/127.0.0.1:4000", "s3cret"); w.Code != http.StatusNotFound {
		t.Fatalf("second reset code=%d", w.Code)
	}
}
