// Command poller logs into the broker once, then alternates forever
// between pulling the catalog's latest quotes and pushing them to the
// remote table store, with a daily macro rates refresh layered into the
// same loop.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	ingest "github.com/FacuFre/SHD/internal/application/service/ingest"
	"github.com/FacuFre/SHD/internal/config"
	instruments "github.com/FacuFre/SHD/internal/domain/entity/instruments"
	"github.com/FacuFre/SHD/internal/infrastructure/bcra"
	"github.com/FacuFre/SHD/internal/infrastructure/homebroker"
	"github.com/FacuFre/SHD/internal/infrastructure/tablestore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	broker := homebroker.NewClient(cfg.Broker.Endpoint,
		homebroker.WithTimeout(cfg.HTTPTimeout),
		homebroker.WithLogger(logger.WithField("component", "homebroker")),
	)
	session, err := broker.Login(ctx, homebroker.Credentials{
		BrokerID: cfg.Broker.ID,
		DNI:      cfg.Broker.DNI,
		User:     cfg.Broker.User,
		Password: cfg.Broker.Password,
	})
	if err != nil {
		logger.Fatalf("broker login: %v", err)
	}
	defer session.Close()

	store := tablestore.NewClient(cfg.Store.URL, cfg.Store.APIKey,
		tablestore.WithTimeout(cfg.HTTPTimeout),
		tablestore.WithLogger(logger.WithField("component", "tablestore")),
	)

	rates := bcra.NewClient(cfg.BCRA.BaseURL, cfg.BCRA.Token,
		bcra.WithTimeout(cfg.HTTPTimeout),
		bcra.WithLogger(logger.WithField("component", "bcra")),
	)

	service := ingest.NewService(session, store, rates, ingest.Options{
		QuotesTable: cfg.Store.QuotesTable,
		RatesTable:  cfg.Store.RatesTable,
		UploadMode:  cfg.Store.UploadMode,
		UpsertKey:   cfg.Store.UpsertKey,
	}, logger.WithField("component", "ingest"))

	loop := ingest.NewLoop(service, instruments.Symbols(), ingest.LoopConfig{
		Interval:        cfg.Poll.Interval,
		ErrorInterval:   cfg.Poll.ErrorInterval,
		RefreshHour:     cfg.Poll.RefreshHour,
		RatesFrom:       cfg.Poll.RatesFrom,
		ActiveStartHour: cfg.Poll.ActiveStartHour,
		ActiveEndHour:   cfg.Poll.ActiveEndHour,
	}, logger.WithField("component", "loop"))

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("poll loop stopped with error: %v", err)
	}
	logger.Info("poller stopped")
}
