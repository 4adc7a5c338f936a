package tablestore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	interfaces "github.com/FacuFre/SHD/internal/domain/interfaces"
)

func TestInsertEmptyBatchMakesNoCalls(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	if err := c.Insert(context.Background(), "quotes", nil); err != nil {
		t.Fatalf("Insert(empty) = %v, want nil", err)
	}
	if err := c.Upsert(context.Background(), "quotes", "symbol", nil); err != nil {
		t.Fatalf("Upsert(empty) = %v, want nil", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("network calls = %d, want 0", got)
	}
}

func TestInsertBatchesAllRowsInOnePost(t *testing.T) {
	var calls atomic.Int64
	var gotPath, gotAPIKey, gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	stamp := time.Date(2025, 3, 10, 14, 30, 0, 0, time.FixedZone("ART", -3*3600))
	c := NewClient(server.URL, "secret")
	c.now = func() time.Time { return stamp }

	rows := []interfaces.Row{
		{"symbol": "AL30", "last_price": 805.5, "timestamp": time.Date(2025, 3, 10, 14, 29, 0, 0, time.UTC)},
		{"symbol": "GD30", "last_price": 910.0},
	}
	if err := c.Insert(context.Background(), "intraday_quotes", rows); err != nil {
		t.Fatalf("Insert() = %v", err)
	}

	if calls.Load() != 1 {
		t.Fatalf("network calls = %d, want 1", calls.Load())
	}
	if gotPath != "/rest/v1/intraday_quotes" {
		t.Errorf("path = %q, want /rest/v1/intraday_quotes", gotPath)
	}
	if gotAPIKey != "secret" || gotAuth != "Bearer secret" {
		t.Errorf("auth headers = %q / %q", gotAPIKey, gotAuth)
	}

	var sent []map[string]any
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("body is not a JSON array: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("rows sent = %d, want 2", len(sent))
	}
	for i, row := range sent {
		raw, ok := row["updated_at"].(string)
		if !ok {
			t.Fatalf("row %d has no updated_at string", i)
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			t.Fatalf("updated_at %q is not RFC3339: %v", raw, err)
		}
		if !parsed.Equal(stamp) {
			t.Errorf("updated_at = %v, want %v", parsed, stamp)
		}
		if parsed.Location() != time.UTC && raw[len(raw)-1] != 'Z' {
			t.Errorf("updated_at %q is not UTC", raw)
		}
	}
	if ts, ok := sent[0]["timestamp"].(string); !ok || ts != "2025-03-10T14:29:00Z" {
		t.Errorf("timestamp serialized as %v, want ISO-8601 string", sent[0]["timestamp"])
	}
}

func TestInsertNon2xxReturnsStoreError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`duplicate key`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	err := c.Insert(context.Background(), "quotes", []interfaces.Row{{"symbol": "AL30"}})
	var storeErr *interfaces.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Insert() error = %v, want *StoreError", err)
	}
	if storeErr.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", storeErr.StatusCode)
	}
	if storeErr.Body != "duplicate key" {
		t.Errorf("body = %q", storeErr.Body)
	}
}

func TestUpsertContinuesPastRowFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("on_conflict") != "symbol" {
			t.Errorf("on_conflict = %q, want symbol", r.URL.Query().Get("on_conflict"))
		}
		if r.Header.Get("Prefer") != "resolution=merge-duplicates" {
			t.Errorf("Prefer header = %q", r.Header.Get("Prefer"))
		}
		body, _ := io.ReadAll(r.Body)
		var row map[string]any
		_ = json.Unmarshal(body, &row)
		if row["symbol"] == "CAUCI1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	rows := []interfaces.Row{
		{"symbol": "AL30"},
		{"symbol": "CAUCI1"},
		{"symbol": "GD30"},
	}
	err := c.Upsert(context.Background(), "intraday_quotes", "symbol", rows)
	if err == nil {
		t.Fatal("Upsert() = nil, want aggregated row error")
	}
	if calls.Load() != 3 {
		t.Errorf("network calls = %d, want 3 (failed row must not abort the rest)", calls.Load())
	}
}

func TestDeleteAll(t *testing.T) {
	var gotMethod, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	if err := c.DeleteAll(context.Background(), "lecaps", "symbol"); err != nil {
		t.Fatalf("DeleteAll() = %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", gotMethod)
	}
	if gotQuery != "symbol=neq." {
		t.Errorf("query = %q, want symbol=neq.", gotQuery)
	}
}

func TestSelect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5000" {
			t.Errorf("limit = %q, want 5000", r.URL.Query().Get("limit"))
		}
		_, _ = w.Write([]byte(`[{"symbol":"AL30","last_price":805.5}]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	rows, err := c.Select(context.Background(), "intraday_quotes", 5000)
	if err != nil {
		t.Fatalf("Select() = %v", err)
	}
	if len(rows) != 1 || rows[0]["symbol"] != "AL30" {
		t.Errorf("rows = %v", rows)
	}
}
