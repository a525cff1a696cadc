package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Professor833/order-matching-engine/api/marketdata"
	"github.com/Professor833/order-matching-engine/config"
	"github.com/Professor833/order-matching-engine/domain/orderbook"
	"github.com/Professor833/order-matching-engine/infra/kafka"
	"github.com/Professor833/order-matching-engine/infra/memory"
	"github.com/Professor833/order-matching-engine/infra/sequence"
	entrywal "github.com/Professor833/order-matching-engine/infra/wal/entry"
	exitwal "github.com/Professor833/order-matching-engine/infra/wal/exit"
	"github.com/Professor833/order-matching-engine/jobs/broadcaster"
	"github.com/Professor833/order-matching-engine/jobs/quotes"
	"github.com/Professor833/order-matching-engine/logging"
	"github.com/Professor833/order-matching-engine/service"
	"github.com/Professor833/order-matching-engine/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.Setup(cfg.LogLevel)
	log.Info("starting", "config", cfg.String())

	// ---------------- Durable state ----------------

	journal, err := entrywal.Open(entrywal.Config{
		Dir:         cfg.Durable.JournalDir,
		SegmentSize: cfg.Durable.JournalSegment,
	})
	if err != nil {
		log.Error("journal init failed", "err", err)
		os.Exit(1)
	}
	defer journal.Close()

	outbox, err := exitwal.Open(cfg.Durable.OutboxDir)
	if err != nil {
		log.Error("outbox init failed", "err", err)
		os.Exit(1)
	}
	defer outbox.Close()

	// ---------------- Memory ----------------

	pool := memory.NewPool(func() *orderbook.Order {
		return &orderbook.Order{}
	})
	ring := memory.NewRetireRing(cfg.Memory.RetireRingSize)
	reader := snapshot.NewReader()

	// ---------------- Domain ----------------

	book := orderbook.New(orderbook.WithRetireHook(func(o *orderbook.Order) {
		ring.Enqueue(o)
	}))

	// ---------------- Restore: snapshot, then journal ----------------

	snapSeq, err := snapshot.Load(cfg.Durable.SnapshotDir, book, pool)
	if err != nil {
		log.Error("snapshot load failed", "err", err)
		os.Exit(1)
	}

	seqGen := sequence.New(0)
	if err := service.ReplayFromJournal(
		log, cfg.Durable.JournalDir, snapSeq, book, pool, seqGen,
	); err != nil {
		log.Error("journal replay failed", "err", err)
		os.Exit(1)
	}

	// Trade sequencing resumes above anything already staged.
	maxTradeSeq, err := outbox.MaxSeq()
	if err != nil {
		log.Error("outbox scan failed", "err", err)
		os.Exit(1)
	}
	tradeSeq := sequence.New(maxTradeSeq)

	// ---------------- Service ----------------

	svc := service.NewOrderService(
		log, book, pool, ring, reader, seqGen, tradeSeq, journal, outbox,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------- Background jobs ----------------

	go func() {
		ticker := time.NewTicker(cfg.Durable.EpochInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				svc.AdvanceEpoch()
			}
		}
	}()

	svc.StartSnapshotJob(ctx, cfg.Durable.SnapshotDir, cfg.Durable.SnapshotInterval)

	if cfg.Kafka.Enabled {
		bc, err := broadcaster.New(
			log, outbox, cfg.Kafka.Brokers, cfg.Kafka.TradeTopic,
			cfg.Kafka.BroadcastInterval,
		)
		if err != nil {
			log.Error("broadcaster init failed", "err", err)
			os.Exit(1)
		}
		defer bc.Close()
		go bc.Run(ctx)

		quoteProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.QuoteTopic)
		defer quoteProducer.Close()
		go quotes.New(log, svc, quoteProducer, cfg.Kafka.QuoteInterval).Run(ctx)
	}

	// ---------------- HTTP / websocket ----------------

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: marketdata.NewServer(log, svc).Start(ctx),
	}

	go func() {
		log.Info("listening", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exited", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", "err", err)
	}
	if err := journal.Sync(); err != nil {
		log.Warn("final journal sync failed", "err", err)
	}
}
