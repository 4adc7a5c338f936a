package quotes

import "time"

// Quote is one observation for one symbol at one point in time.
// The field set varies by source call: intraday bars fill OHLC and volume,
// push updates usually carry only last/bid/ask.
type Quote struct {
	Symbol    string
	LastPrice float64
	BidPrice  float64
	AskPrice  float64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	Timestamp time.Time
}
