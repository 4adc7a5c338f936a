// Command subscriber listens to the broker's live push feed for one
// catalog category during a bounded window and uploads every pushed
// batch. It is the mutually-exclusive alternative to the poller.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	ingest "github.com/FacuFre/SHD/internal/application/service/ingest"
	"github.com/FacuFre/SHD/internal/config"
	instruments "github.com/FacuFre/SHD/internal/domain/entity/instruments"
	"github.com/FacuFre/SHD/internal/infrastructure/homebroker"
	"github.com/FacuFre/SHD/internal/infrastructure/tablestore"
)

const defaultCategory = instruments.CategorySovereign

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	category := defaultCategory
	if raw := os.Getenv("SUBSCRIBE_CATEGORY"); raw != "" {
		category = instruments.Category(raw)
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

	service := ingest.NewService(session, store, nil, ingest.Options{
		QuotesTable: cfg.Store.QuotesTable,
		UploadMode:  cfg.Store.UploadMode,
		UpsertKey:   cfg.Store.UpsertKey,
	}, logger.WithField("component", "ingest"))

	sub, err := session.Subscribe(ctx, category, cfg.Broker.SubscribeWindow)
	if err != nil {
		logger.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	var batches, rows int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for batch := range sub.Batches() {
			batches++
			rows += len(batch)
			if err := service.UploadQuotes(gctx, batch); err != nil {
				logger.WithError(err).Error("upload pushed batch")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("subscriber stopped with error: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"category": category.String(),
		"batches":  batches,
		"rows":     rows,
	}).Info("subscription window closed")
}
