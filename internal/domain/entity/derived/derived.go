package derived

import "time"

// BondKind tags how a sovereign bond trades: the peso leg directly or the
// dollar leg used to build a synthetic exchange rate.
type BondKind string

const (
	BondKindDirect    BondKind = "direct"
	BondKindSynthetic BondKind = "synthetic"
)

// NoteYield is the annualized discount yield of a fixed-rate note.
type NoteYield struct {
	Symbol   string
	Maturity time.Time
	Days     int
	Yield    float64
}

// RepoRate is the quoted rate of a repo (caucion) instrument.
type RepoRate struct {
	Symbol string
	Rate   float64
}

// DollarFuture is a currency future quote; maturity is nil when the
// symbol carries no recognized maturity code.
type DollarFuture struct {
	Symbol   string
	Price    float64
	Maturity *time.Time
}

// SovereignBond carries the settlement price alongside the estimated
// screen price for the same symbol.
type SovereignBond struct {
	Symbol          string
	Kind            BondKind
	Yield           float64
	SettlementPrice float64
	ScreenPrice     float64
}
