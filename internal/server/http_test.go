package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PayLedger/internal/engine"
	"PayLedger/internal/event"
	"PayLedger/internal/money"
	"PayLedger/internal/observability"
	"PayLedger/internal/server"

	"github.com/rs/zerolog"
)

// newTestAPI starts an engine plus HTTP server and returns the test server.
func newTestAPI(t *testing.T) (*httptest.Server, *engine.Handle) {
	t.Helper()

	h := engine.New(engine.Options{Logger: zerolog.Nop()}).Start(context.Background())

	hc := observability.NewHealthChecker()
	hc.SetReady(true)

	srv := server.NewHTTPServer(":0", &server.HTTPDeps{
		Handle:        h,
		HealthChecker: hc,
		Logger:        zerolog.Nop(),
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Shutdown(ctx)
	})
	return ts, h
}

func submit(t *testing.T, h *engine.Handle, evt event.Event) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Submit(ctx, evt); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

type accountBody struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// ============================================================================
// Test: account queries
// ============================================================================

func TestHTTP_GetAccount(t *testing.T) {
	ts, h := newTestAPI(t)

	submit(t, h, &event.Deposit{Client: 1, Tx: 1, Amount: money.MustParse("1.5")})

	resp, err := http.Get(ts.URL + "/v1/accounts/1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	var body accountBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Client != 1 || body.Available != "1.5000" || body.Total != "1.5000" || body.Locked {
		t.Errorf("got %+v", body)
	}
}

func TestHTTP_GetAccount_NotFound(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, err := http.Get(ts.URL + "/v1/accounts/999")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestHTTP_GetAccount_BadClientID(t *testing.T) {
	ts, _ := newTestAPI(t)

	for _, path := range []string{"/v1/accounts/abc", "/v1/accounts/70000"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestHTTP_ListAccounts(t *testing.T) {
	ts, h := newTestAPI(t)

	submit(t, h, &event.Deposit{Client: 2, Tx: 1, Amount: money.MustParse("2.0")})
	submit(t, h, &event.Deposit{Client: 1, Tx: 2, Amount: money.MustParse("1.0")})

	resp, err := http.Get(ts.URL + "/v1/accounts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Accounts []accountBody `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Accounts) != 2 {
		t.Fatalf("accounts: got %d, want 2", len(body.Accounts))
	}
	// Sorted by client id.
	if body.Accounts[0].Client != 1 || body.Accounts[1].Client != 2 {
		t.Errorf("order: got %d, %d", body.Accounts[0].Client, body.Accounts[1].Client)
	}
}

// ============================================================================
// Test: event injection
// ============================================================================

func TestHTTP_InjectEvent(t *testing.T) {
	ts, h := newTestAPI(t)

	resp, err := http.Post(ts.URL+"/v1/events", "application/json",
		strings.NewReader(`{"type":"deposit","client":3,"tx":7,"amount":"4.0"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", resp.StatusCode)
	}

	// The query travels through the same engine loop, so it observes the
	// injected event.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, found, err := h.QueryAccount(ctx, 3)
	if err != nil || !found {
		t.Fatalf("query: found=%v err=%v", found, err)
	}
	if snap.Available != money.MustParse("4.0") {
		t.Errorf("got %s, want 4.0000", snap.Available)
	}
}

func TestHTTP_InjectEvent_IdempotencyKey(t *testing.T) {
	ts, h := newTestAPI(t)

	body := `{"type":"deposit","client":1,"tx":1,"amount":"1.0"}`
	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/events", strings.NewReader(body))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		req.Header.Set("Idempotency-Key", "retry-1")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("post %d: got %d, want 202", i, resp.StatusCode)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, _, err := h.QueryAccount(ctx, 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if snap.Available != money.MustParse("1.0") {
		t.Errorf("retried request must not double-apply, got %s", snap.Available)
	}
}

func TestHTTP_InjectEvent_BadBody(t *testing.T) {
	ts, _ := newTestAPI(t)

	for _, body := range []string{
		`not json`,
		`{"type":"transfer","client":1,"tx":1}`,
		`{"type":"deposit","client":1,"tx":1,"amount":"1.00001"}`,
	} {
		resp, err := http.Post(ts.URL+"/v1/events", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want 400", body, resp.StatusCode)
		}
	}
}

// ============================================================================
// Test: probes
// ============================================================================

func TestHTTP_Probes(t *testing.T) {
	ts, _ := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: got %d, want 200", path, resp.StatusCode)
		}
	}
}
