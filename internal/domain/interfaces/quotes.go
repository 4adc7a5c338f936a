package interfaces

import (
	"context"
	"time"

	quotes "github.com/FacuFre/SHD/internal/domain/entity/quotes"
	rates "github.com/FacuFre/SHD/internal/domain/entity/rates"
)

// QuoteSource serves the most recent observation per symbol. A history
// behind the call is reduced to its last bar; ok is false when the
// source has nothing for the symbol.
type QuoteSource interface {
	FetchLastBar(ctx context.Context, symbol string) (quote quotes.Quote, ok bool, err error)
}

// RateSource serves macro rate series points by series name.
type RateSource interface {
	Series(ctx context.Context, name string, from time.Time) ([]rates.Point, error)
}
