package bcra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const catalogJSON = `[
	{"id_variable": 30, "nombre": "Indice CER (Base 2.2.2002=1)"},
	{"id_variable": 44, "nombre": "Tasa TAMAR de plazos fijos"},
	{"id_variable": 1, "nombre": "Reservas Internacionales"}
]`

func newTestServer(t *testing.T, catalogCalls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/estadisticas/v3.0/monetarias":
			if catalogCalls != nil {
				catalogCalls.Add(1)
			}
			_, _ = w.Write([]byte(catalogJSON))
		case strings.HasPrefix(r.URL.Path, "/estadisticas/v3.0/monetarias/"):
			if r.URL.Query().Get("limit") != "3000" {
				t.Errorf("limit = %q, want 3000", r.URL.Query().Get("limit"))
			}
			if r.URL.Query().Get("desde") != "2003-01-01" {
				t.Errorf("desde = %q, want 2003-01-01", r.URL.Query().Get("desde"))
			}
			_, _ = w.Write([]byte(`[{"d":"2024-01-02","v":1.5},{"d":"2024-01-03","v":1.6},{"d":"bogus","v":9}]`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestSeriesResolvesByCaseInsensitiveSubstring(t *testing.T) {
	var catalogCalls atomic.Int64
	server := newTestServer(t, &catalogCalls)
	defer server.Close()

	c := NewClient(server.URL, "")
	from := time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC)

	points, err := c.Series(context.Background(), "cer", from)
	if err != nil {
		t.Fatalf("Series(cer) = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2 (malformed date dropped)", len(points))
	}
	if points[0].Series != "cer" {
		t.Errorf("series label = %q", points[0].Series)
	}
	if !points[0].Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) || points[0].Value != 1.5 {
		t.Errorf("first point = %+v", points[0])
	}

	// The catalog must be fetched once, then cached.
	if _, err := c.Series(context.Background(), "TAMAR", from); err != nil {
		t.Fatalf("Series(TAMAR) = %v", err)
	}
	if got := catalogCalls.Load(); got != 1 {
		t.Errorf("catalog fetches = %d, want 1", got)
	}
}

func TestSeriesUnknownName(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	c := NewClient(server.URL, "")
	if _, err := c.Series(context.Background(), "UVA", time.Now()); err == nil {
		t.Fatal("Series(UVA) = nil error, want not-found error")
	}
}
