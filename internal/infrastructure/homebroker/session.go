package homebroker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	quotes "github.com/FacuFre/SHD/internal/domain/entity/quotes"
)

const (
	intradayPath = "/prices/intraday/"
	logoutPath   = "/auth/account/logout"
)

// Session is an authenticated broker session. All market data calls hang
// off it; it is valid until Close.
type Session struct {
	client *Client
	token  string
}

type bar struct {
	Datetime string  `json:"datetime"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Last     float64 `json:"last"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	Volume   int64   `json:"volume"`
}

// barTimeLayouts covers the timestamp shapes the feed is known to emit.
var barTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// FetchLastBar returns the most recent intraday bar for the symbol.
// ok is false when the feed has no history for the symbol.
func (s *Session) FetchLastBar(ctx context.Context, symbol string) (quotes.Quote, bool, error) {
	target := s.client.endpoint + intradayPath + url.PathEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return quotes.Quote{}, false, fmt.Errorf("create intraday request: %w", err)
	}
	s.setAuth(req)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return quotes.Quote{}, false, fmt.Errorf("fetch intraday %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return quotes.Quote{}, false, fmt.Errorf("read intraday %s: %w", symbol, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return quotes.Quote{}, false, fmt.Errorf("intraday %s: status %d: %s", symbol, resp.StatusCode, string(body))
	}

	var bars []bar
	if err := json.Unmarshal(body, &bars); err != nil {
		return quotes.Quote{}, false, fmt.Errorf("decode intraday %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return quotes.Quote{}, false, nil
	}

	return barToQuote(symbol, bars[len(bars)-1]), true, nil
}

// Close releases the broker session. Logout failures are not reported:
// the session expires server-side anyway.
func (s *Session) Close() {
	req, err := http.NewRequest(http.MethodPost, s.client.endpoint+logoutPath, nil)
	if err != nil {
		return
	}
	s.setAuth(req)
	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		s.client.logger.WithError(err).Debug("broker logout failed")
		return
	}
	resp.Body.Close()
	s.client.httpClient.CloseIdleConnections()
}

func (s *Session) setAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token)
}

func barToQuote(symbol string, b bar) quotes.Quote {
	last := b.Last
	if last == 0 {
		last = b.Close
	}
	return quotes.Quote{
		Symbol:    symbol,
		LastPrice: last,
		BidPrice:  b.Bid,
		AskPrice:  b.Ask,
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
		Timestamp: parseBarTime(b.Datetime),
	}
}

func parseBarTime(raw string) time.Time {
	for _, layout := range barTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
