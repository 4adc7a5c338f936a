// Command deriver is a one-shot batch job: it reads the recent stored
// quote rows, recomputes the derived tables (note yields, repo rates,
// dollar futures, sovereign bonds) and replaces them in the store.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	derived "github.com/FacuFre/SHD/internal/application/service/derived"
	"github.com/FacuFre/SHD/internal/infrastructure/tablestore"
)

const (
	defaultQuotesTable = "intraday_quotes"
	defaultHTTPTimeout = 30 * time.Second
)

// deriverConfig is the slice of the environment this job needs: the
// store only, no broker credentials.
type deriverConfig struct {
	StoreURL    string
	StoreAPIKey string
	QuotesTable string
	HTTPTimeout time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	store := tablestore.NewClient(cfg.StoreURL, cfg.StoreAPIKey,
		tablestore.WithTimeout(cfg.HTTPTimeout),
		tablestore.WithLogger(logger.WithField("component", "tablestore")),
	)

	job := derived.NewService(store, cfg.QuotesTable, derived.DefaultTables(),
		logger.WithField("component", "derived"))

	if err := job.Run(ctx); err != nil {
		logger.Fatalf("derived metrics job: %v", err)
	}
	logger.Info("derived metrics job finished")
}

func loadConfig() (*deriverConfig, error) {
	storeURL := os.Getenv("SUPABASE_URL")
	if storeURL == "" {
		return nil, errors.New("SUPABASE_URL is required")
	}
	apiKey := os.Getenv("SUPABASE_API_KEY")
	if apiKey == "" {
		return nil, errors.New("SUPABASE_API_KEY is required")
	}

	quotesTable := os.Getenv("QUOTES_TABLE")
	if quotesTable == "" {
		quotesTable = defaultQuotesTable
	}

	timeout := defaultHTTPTimeout
	if raw := os.Getenv("HTTP_TIMEOUT"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		timeout = parsed
	}

	return &deriverConfig{
		StoreURL:    storeURL,
		StoreAPIKey: apiKey,
		QuotesTable: quotesTable,
		HTTPTimeout: timeout,
	}, nil
}
