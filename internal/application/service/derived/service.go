// Package derived recomputes the derived tables (note yields, repo
// rates, dollar futures, sovereign bonds) from the stored quote rows and
// replaces them wholesale in the remote store.
package derived

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	entity "github.com/FacuFre/SHD/internal/domain/entity/derived"
	interfaces "github.com/FacuFre/SHD/internal/domain/interfaces"
)

const (
	sourceLimit = 5000

	// noteFaceValue is the face value the discount yield is computed
	// against.
	noteFaceValue = 1000.0

	// screenPriceRatio estimates the screen price from the settlement
	// price while the feed carries only one of the two.
	screenPriceRatio = 0.985

	// bondPlaceholderYield stands in until coupon schedules are stored.
	// TODO: derive sovereign yields from the cashflow schedule.
	bondPlaceholderYield = 0.12
)

var sovereignPattern = regexp.MustCompile(`^(AL|GD)[0-9]{2}D?$`)

// Tables names the derived destination tables.
type Tables struct {
	Notes   string
	Repos   string
	Futures string
	Bonds   string
}

// DefaultTables returns the destination tables of the production store.
func DefaultTables() Tables {
	return Tables{
		Notes:   "lecaps",
		Repos:   "cauciones",
		Futures: "futuros_dolar",
		Bonds:   "bonos_soberanos",
	}
}

// Service recomputes and replaces the derived tables.
type Service struct {
	store       interfaces.TableStore
	sourceTable string
	tables      Tables
	logger      *logrus.Entry

	now func() time.Time
}

// NewService builds the derived-metrics job over the given store.
func NewService(store interfaces.TableStore, sourceTable string, tables Tables, logger *logrus.Entry) *Service {
	return &Service{
		store:       store,
		sourceTable: sourceTable,
		tables:      tables,
		logger:      logger,
		now:         time.Now,
	}
}

// sourceQuote is the slice of a stored row the job works from.
type sourceQuote struct {
	Symbol    string
	LastPrice float64
}

// Run recomputes every derived table from the most recent stored rows.
// Each table is fully replaced: delete all rows, then one batched insert.
func (s *Service) Run(ctx context.Context) error {
	runID := uuid.New()
	log := s.logger.WithField("run_id", runID.String())

	rows, err := s.store.Select(ctx, s.sourceTable, sourceLimit)
	if err != nil {
		return fmt.Errorf("load source rows: %w", err)
	}
	source := parseSource(rows)
	log.WithField("rows", len(source)).Info("source rows loaded")

	now := s.now()

	if err := s.replace(ctx, s.tables.Notes, noteRows(buildNoteYields(source, now)), log); err != nil {
		return err
	}
	if err := s.replace(ctx, s.tables.Repos, repoRows(buildRepoRates(source)), log); err != nil {
		return err
	}
	if err := s.replace(ctx, s.tables.Futures, futureRows(buildDollarFutures(source)), log); err != nil {
		return err
	}
	if err := s.replace(ctx, s.tables.Bonds, bondRows(buildSovereignBonds(source)), log); err != nil {
		return err
	}
	return nil
}

// replace swaps the table content: delete everything, reinsert the new
// rows in one batch.
func (s *Service) replace(ctx context.Context, table string, rows []interfaces.Row, log *logrus.Entry) error {
	if err := s.store.DeleteAll(ctx, table, "symbol"); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := s.store.Insert(ctx, table, rows); err != nil {
		return fmt.Errorf("reinsert %s: %w", table, err)
	}
	log.WithFields(logrus.Fields{
		"table": table,
		"rows":  len(rows),
	}).Info("derived table replaced")
	return nil
}

// buildNoteYields derives the fixed-rate note table: symbols prefixed S,
// with an inferable maturity still in the future and a defined yield.
func buildNoteYields(source []sourceQuote, now time.Time) []entity.NoteYield {
	var out []entity.NoteYield
	for _, q := range source {
		if !strings.HasPrefix(q.Symbol, "S") {
			continue
		}
		maturity, ok := InferMaturity(q.Symbol)
		if !ok {
			continue
		}
		days := int(maturity.Sub(now).Hours() / 24)
		if days <= 0 {
			continue
		}
		y, ok := ComputeYield(q.LastPrice, days, noteFaceValue)
		if !ok {
			continue
		}
		out = append(out, entity.NoteYield{
			Symbol:   q.Symbol,
			Maturity: maturity,
			Days:     days,
			Yield:    y,
		})
	}
	return out
}

// buildRepoRates derives the repo table: CAUCI-prefixed symbols quoted
// as a percentage.
func buildRepoRates(source []sourceQuote) []entity.RepoRate {
	var out []entity.RepoRate
	for _, q := range source {
		if !strings.HasPrefix(q.Symbol, "CAUCI") {
			continue
		}
		out = append(out, entity.RepoRate{
			Symbol: q.Symbol,
			Rate:   q.LastPrice / 100,
		})
	}
	return out
}

// buildDollarFutures derives the currency futures table. Maturity stays
// nil when the symbol carries no recognized code; the row is kept.
func buildDollarFutures(source []sourceQuote) []entity.DollarFuture {
	var out []entity.DollarFuture
	for _, q := range source {
		if !strings.HasPrefix(q.Symbol, "DOFUT") {
			continue
		}
		f := entity.DollarFuture{
			Symbol: q.Symbol,
			Price:  q.LastPrice,
		}
		if maturity, ok := InferMaturity(q.Symbol); ok {
			f.Maturity = &maturity
		}
		out = append(out, f)
	}
	return out
}

// buildSovereignBonds derives the sovereign table: AL/GD symbols, tagged
// synthetic when the dollar leg (trailing D) is quoted.
func buildSovereignBonds(source []sourceQuote) []entity.SovereignBond {
	var out []entity.SovereignBond
	for _, q := range source {
		if !sovereignPattern.MatchString(q.Symbol) {
			continue
		}
		kind := entity.BondKindDirect
		if strings.HasSuffix(q.Symbol, "D") {
			kind = entity.BondKindSynthetic
		}
		out = append(out, entity.SovereignBond{
			Symbol:          q.Symbol,
			Kind:            kind,
			Yield:           bondPlaceholderYield,
			SettlementPrice: q.LastPrice,
			ScreenPrice:     q.LastPrice * screenPriceRatio,
		})
	}
	return out
}

func parseSource(rows []interfaces.Row) []sourceQuote {
	out := make([]sourceQuote, 0, len(rows))
	for _, row := range rows {
		symbol, _ := row["symbol"].(string)
		if symbol == "" {
			continue
		}
		price, _ := row["last_price"].(float64)
		out = append(out, sourceQuote{Symbol: symbol, LastPrice: price})
	}
	return out
}

func noteRows(notes []entity.NoteYield) []interfaces.Row {
	rows := make([]interfaces.Row, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, interfaces.Row{
			"symbol":      n.Symbol,
			"vencimiento": n.Maturity,
			"dias":        n.Days,
			"tir":         n.Yield,
		})
	}
	return rows
}

func repoRows(repos []entity.RepoRate) []interfaces.Row {
	rows := make([]interfaces.Row, 0, len(repos))
	for _, r := range repos {
		rows = append(rows, interfaces.Row{
			"symbol": r.Symbol,
			"tasa":   r.Rate,
		})
	}
	return rows
}

func futureRows(futures []entity.DollarFuture) []interfaces.Row {
	rows := make([]interfaces.Row, 0, len(futures))
	for _, f := range futures {
		rows = append(rows, interfaces.Row{
			"symbol":      f.Symbol,
			"precio":      f.Price,
			"vencimiento": f.Maturity,
		})
	}
	return rows
}

func bondRows(bonds []entity.SovereignBond) []interfaces.Row {
	rows := make([]interfaces.Row, 0, len(bonds))
	for _, b := range bonds {
		rows = append(rows, interfaces.Row{
			"symbol":          b.Symbol,
			"tipo":            string(b.Kind),
			"tir":             b.Yield,
			"precio_senebi":   b.SettlementPrice,
			"precio_pantalla": b.ScreenPrice,
		})
	}
	return rows
}
