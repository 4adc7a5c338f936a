package homebroker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	instruments "github.com/FacuFre/SHD/internal/domain/entity/instruments"
	quotes "github.com/FacuFre/SHD/internal/domain/entity/quotes"
)

const pushPath = "/push/quotes"

// Subscription is a bounded-lifetime handle on the broker's push feed.
// Batches yields pushed quote batches until the window elapses or Close
// is called; the channel is then closed. Ordering across batches is not
// guaranteed by the upstream.
type Subscription struct {
	conn    *websocket.Conn
	batches chan []quotes.Quote
	logger  *logrus.Entry

	closeOnce sync.Once
	done      chan struct{}
}

type pushQuote struct {
	Symbol   string  `json:"symbol"`
	Last     float64 `json:"last"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	Datetime string  `json:"datetime"`
}

type pushPayload struct {
	Category string      `json:"category"`
	Quotes   []pushQuote `json:"quotes"`
}

// Subscribe opens the push feed for one catalog category and listens for
// the given window. The caller drains Batches and then Closes the handle.
func (s *Session) Subscribe(ctx context.Context, category instruments.Category, window time.Duration) (*Subscription, error) {
	wsURL, err := pushURL(s.client.endpoint, category)
	if err != nil {
		return nil, err
	}

	connID := uuid.New()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)
	header.Set("X-Connection-Id", connID.String())

	dialer := websocket.Dialer{HandshakeTimeout: s.client.httpClient.Timeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial push feed: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial push feed: %w", err)
	}

	sub := &Subscription{
		conn:    conn,
		batches: make(chan []quotes.Quote),
		logger: s.client.logger.WithFields(logrus.Fields{
			"category":      category.String(),
			"connection_id": connID.String(),
		}),
		done: make(chan struct{}),
	}

	deadline := time.Now().Add(window)
	_ = conn.SetReadDeadline(deadline)

	// Hard stop when the window elapses even if no frame ever arrives.
	timer := time.AfterFunc(window, func() { _ = sub.Close() })

	go func() {
		defer timer.Stop()
		sub.readLoop(ctx)
	}()

	sub.logger.WithField("window", window.String()).Info("push subscription opened")
	return sub, nil
}

// Batches yields quote batches as the upstream pushes them. The channel
// is closed when the subscription ends.
func (s *Subscription) Batches() <-chan []quotes.Quote {
	return s.batches
}

// Close shuts the connection down. Safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Subscription) readLoop(ctx context.Context) {
	defer close(s.batches)
	defer func() { _ = s.Close() }()

	for {
		var payload pushPayload
		if err := s.conn.ReadJSON(&payload); err != nil {
			select {
			case <-s.done:
			default:
				s.logger.WithError(err).Debug("push feed closed")
			}
			return
		}
		batch := make([]quotes.Quote, 0, len(payload.Quotes))
		for _, q := range payload.Quotes {
			if q.Symbol == "" {
				continue
			}
			batch = append(batch, quotes.Quote{
				Symbol:    q.Symbol,
				LastPrice: q.Last,
				BidPrice:  q.Bid,
				AskPrice:  q.Ask,
				Open:      q.Open,
				High:      q.High,
				Low:       q.Low,
				Close:     q.Close,
				Volume:    q.Volume,
				Timestamp: parseBarTime(q.Datetime),
			})
		}
		if len(batch) == 0 {
			continue
		}
		select {
		case s.batches <- batch:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func pushURL(endpoint string, category instruments.Category) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse broker endpoint: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported broker endpoint scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + pushPath
	parsed.RawQuery = url.Values{"category": {category.String()}}.Encode()
	return parsed.String(), nil
}
