package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	httpapi "matchbook/api/http"
	"matchbook/domain/orderbook"
	"matchbook/engine"
	"matchbook/infra/kafka"
	"matchbook/infra/memory"
	"matchbook/infra/sequence"
	entrywal "matchbook/infra/wal/entry"
	exitwal "matchbook/infra/wal/exit"
	"matchbook/jobs/broadcaster"
	"matchbook/jobs/quotes"
	"matchbook/snapshot"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "HTTP listen address")
		entryDir     = flag.String("entry-wal", "./data/wal_entry", "entry WAL directory")
		exitDir      = flag.String("exit-wal", "./data/wal_exit", "exit WAL (outbox) directory")
		snapDir      = flag.String("snapshots", "./data/snapshots", "snapshot directory")
		brokers      = flag.String("brokers", "", "comma-separated Kafka brokers (empty disables publishing)")
		fillTopic    = flag.String("fill-topic", "matchbook.fills", "Kafka topic for execution reports")
		quoteTopic   = flag.String("quote-topic", "matchbook.quotes", "Kafka topic for top-of-book quotes")
		snapInterval = flag.Duration("snapshot-interval", time.Minute, "snapshot interval")
		rejectMarket = flag.Bool("reject-market-remainder", false, "reject market orders that cannot fully fill")
	)
	flag.Parse()

	// ---------------- Durability ----------------

	entryWAL, err := entrywal.Open(entrywal.Config{Dir: *entryDir})
	if err != nil {
		log.Fatalf("entry WAL init failed: %v", err)
	}
	defer entryWAL.Close()

	exitWAL, err := exitwal.Open(*exitDir)
	if err != nil {
		log.Fatalf("exit WAL init failed: %v", err)
	}
	defer exitWAL.Close()

	// ---------------- Memory ----------------

	pool := memory.NewPool[orderbook.Order]()
	ring := memory.NewRetireRing[orderbook.Order](1 << 18)
	reader := snapshot.NewReader()

	// ---------------- Domain ----------------

	var opts []orderbook.Option
	if *rejectMarket {
		opts = append(opts, orderbook.WithMarketPolicy(orderbook.RejectRemainder))
	}
	book := orderbook.New(pool, func(o *orderbook.Order) {
		if !memory.Retire(ring, o) {
			log.Fatal("retire ring full; reclamation cannot keep up")
		}
	}, opts...)

	// ---------------- Recovery ----------------

	seqGen := sequence.New(0)
	if err := engine.Recover(*snapDir, *entryDir, book, seqGen); err != nil {
		log.Fatalf("recovery failed: %v", err)
	}

	// ---------------- Service ----------------

	svc := engine.NewOrderService(
		book,
		pool,
		ring,
		reader,
		seqGen,
		entryWAL,
		exitWAL,
		&snapshot.Writer{Dir: *snapDir},
	)
	svc.Start()
	defer svc.Stop()

	// ---------------- Background jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
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

	go engine.NewSnapshotJob(svc, *snapInterval).Run(ctx)

	if *brokers != "" {
		brokerList := strings.Split(*brokers, ",")

		bc, err := broadcaster.New(exitWAL, brokerList, *fillTopic, 2*time.Second)
		if err != nil {
			log.Fatalf("broadcaster init failed: %v", err)
		}
		defer bc.Close()
		go bc.Run(ctx)

		qp := kafka.NewProducer(brokerList, *quoteTopic)
		defer qp.Close()
		go quotes.NewPublisher(svc, qp, time.Second).Run(ctx)
	}

	// ---------------- HTTP ----------------

	router := gin.New()
	router.Use(gin.Recovery(), httpapi.PrometheusMiddleware())
	httpapi.NewHandler(svc).RegisterRoutes(router)

	go func() {
		log.Printf("matchbook engine listening on %s", *addr)
		if err := router.Run(*addr); err != nil {
			log.Fatalf("http server exited: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")
}
