// Package ingest pulls the latest observation for every catalog symbol
// from the broker session and pushes the rows to the remote table store.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	quotes "github.com/FacuFre/SHD/internal/domain/entity/quotes"
	interfaces "github.com/FacuFre/SHD/internal/domain/interfaces"
)

// Macro rate series refreshed by the daily side job.
var rateSeries = []string{"CER", "TAMAR"}

// Options fixes the destination tables and the upload mode.
type Options struct {
	QuotesTable string
	RatesTable  string
	UploadMode  string // "insert" or "upsert"
	UpsertKey   string // conflict key for upsert mode, default symbol
}

// Service wires the quote source, the rate source and the table store.
type Service struct {
	source interfaces.QuoteSource
	store  interfaces.TableStore
	rates  interfaces.RateSource
	opts   Options
	logger *logrus.Entry
}

// NewService builds an ingest service.
func NewService(source interfaces.QuoteSource, store interfaces.TableStore, rates interfaces.RateSource, opts Options, logger *logrus.Entry) *Service {
	if opts.UpsertKey == "" {
		opts.UpsertKey = "symbol"
	}
	return &Service{
		source: source,
		store:  store,
		rates:  rates,
		opts:   opts,
		logger: logger,
	}
}

// FetchLatest pulls the most recent bar for each symbol, sequentially.
// A per-symbol failure is logged and skipped; it never aborts the batch
// and FetchLatest never returns an error. Symbols with no data are
// dropped silently. At most len(symbols) quotes come back.
func (s *Service) FetchLatest(ctx context.Context, symbols []string) []quotes.Quote {
	batch := make([]quotes.Quote, 0, len(symbols))
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		q, ok, err := s.source.FetchLastBar(ctx, symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("skip symbol")
			continue
		}
		if !ok {
			continue
		}
		if q.Symbol == "" {
			q.Symbol = symbol
		}
		batch = append(batch, q)
	}
	return batch
}

// UploadQuotes sends a quote batch to the quotes table using the
// configured mode.
func (s *Service) UploadQuotes(ctx context.Context, batch []quotes.Quote) error {
	if len(batch) == 0 {
		return nil
	}
	rows := make([]interfaces.Row, 0, len(batch))
	for _, q := range batch {
		rows = append(rows, quoteRow(q))
	}
	if s.opts.UploadMode == "insert" {
		return s.store.Insert(ctx, s.opts.QuotesTable, rows)
	}
	return s.store.Upsert(ctx, s.opts.QuotesTable, s.opts.UpsertKey, rows)
}

// RefreshRates pulls each macro series from the given date and uploads
// the points to the rates table in one batched insert per series.
func (s *Service) RefreshRates(ctx context.Context, from time.Time) error {
	for _, name := range rateSeries {
		points, err := s.rates.Series(ctx, name, from)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", name, err)
		}
		rows := make([]interfaces.Row, 0, len(points))
		for _, p := range points {
			rows = append(rows, interfaces.Row{
				"serie": p.Series,
				"date":  p.Date,
				"value": p.Value,
			})
		}
		if err := s.store.Insert(ctx, s.opts.RatesTable, rows); err != nil {
			return fmt.Errorf("upload %s points: %w", name, err)
		}
		s.logger.WithFields(logrus.Fields{
			"series": name,
			"points": len(points),
		}).Info("rate series refreshed")
	}
	return nil
}

func quoteRow(q quotes.Quote) interfaces.Row {
	return interfaces.Row{
		"symbol":     q.Symbol,
		"last_price": q.LastPrice,
		"bid":        q.BidPrice,
		"ask":        q.AskPrice,
		"open":       q.Open,
		"high":       q.High,
		"low":        q.Low,
		"close":      q.Close,
		"volume":     q.Volume,
		"timestamp":  q.Timestamp,
	}
}
