package homebroker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	instruments "github.com/FacuFre/SHD/internal/domain/entity/instruments"
)

func TestSubscribeForwardsPushedBatches(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pushPath {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("category") != "sovereign" {
			t.Errorf("category = %q, want sovereign", r.URL.Query().Get("category"))
		}
		if r.Header.Get("X-Connection-Id") == "" {
			t.Error("missing connection id header")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		payload := pushPayload{
			Category: "sovereign",
			Quotes: []pushQuote{
				{Symbol: "AL30", Last: 805.5, Datetime: "2025-03-10T11:05:00Z"},
				{Symbol: "", Last: 1}, // no symbol, must be dropped
			},
		}
		if err := conn.WriteJSON(payload); err != nil {
			return
		}
		// Keep the connection open until the client's window closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	s := &Session{client: NewClient(server.URL), token: "tok"}
	sub, err := s.Subscribe(context.Background(), instruments.CategorySovereign, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	defer sub.Close()

	select {
	case batch, ok := <-sub.Batches():
		if !ok {
			t.Fatal("batches channel closed before first batch")
		}
		if len(batch) != 1 {
			t.Fatalf("batch size = %d, want 1 (empty symbol dropped)", len(batch))
		}
		if batch[0].Symbol != "AL30" || batch[0].LastPrice != 805.5 {
			t.Errorf("batch[0] = %+v", batch[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no batch received")
	}

	// The window elapses and the channel must close.
	select {
	case _, ok := <-sub.Batches():
		if ok {
			t.Error("unexpected second batch")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batches channel never closed after window")
	}
}
