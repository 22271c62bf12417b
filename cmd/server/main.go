// Command server runs one symbol's matching core behind a TCP
// gateway: a BookActor owns the order book, a Router fans its
// ExecutionResults out, and a FileStore snapshots it periodically.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fenrir-labs/matcher/internal/gateway"
	"github.com/fenrir-labs/matcher/internal/matcher"
	"github.com/fenrir-labs/matcher/internal/matcher/snapshot"
)

func main() {
	address := flag.String("address", "0.0.0.0", "gateway bind address")
	port := flag.Int("port", 9001, "gateway TCP port")
	tickSize := flag.Int64("tick-size", 100, "price granularity, integer ticks per unit")
	lotSize := flag.Int64("lot-size", 1000, "quantity granularity, integer lots per unit")
	snapshotDir := flag.String("snapshot-dir", "./snapshots", "snapshot directory")
	snapshotPrefix := flag.String("snapshot-prefix", "book", "snapshot file-name prefix")
	snapshotKeep := flag.Int("snapshot-keep", 10, "snapshot files to retain")
	heartbeatMs := flag.Int64("heartbeat-ms", 100, "actor heartbeat period in milliseconds")
	depthTopN := flag.Int("depth-top-n", 20, "depth broadcast width per side")
	deltaThreshold := flag.Int("delta-threshold", 50, "level changes before a forced delta flush")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scales := matcher.NewScales(*tickSize, *lotSize)
	store := snapshot.NewFileStore(*snapshotDir, *snapshotPrefix, *snapshotKeep, time.Duration(*heartbeatMs)*time.Millisecond)

	book, loaded, err := store.LoadLatestSnapshot(func() *matcher.OrderBook { return matcher.NewOrderBook(nil) })
	if err != nil {
		log.Error().Err(err).Msg("server: snapshot load failed, starting from an empty book")
	}
	if book == nil {
		book = matcher.NewOrderBook(nil)
	}
	log.Info().Bool("loadedSnapshot", loaded).Msg("server: book ready")

	router := matcher.NewRouter(256, 256)
	publisher := matcher.NewOrderBookPublisher(*depthTopN, *deltaThreshold)
	publisher.Subscribe()

	actorCfg := matcher.ActorConfig{HeartbeatMs: *heartbeatMs}
	actor := matcher.NewBookActor(book, router, store, actorCfg)

	go actor.Run(ctx)
	go pumpDepth(ctx, router, publisher)
	go pumpTrades(ctx, router)

	srv := gateway.New(*address, *port, scales, actor.Handle())
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server: gateway exited")
	}
}

// pumpTrades drains the router's trade-event stream; a real
// deployment would fan TradeBatch out to subscribers instead of logging.
func pumpTrades(ctx context.Context, router *matcher.Router) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-router.TradeEvents():
			for _, ev := range batch.Events {
				log.Debug().Int("kind", int(ev.Kind)).Uint64("orderId", ev.OrderID).Msg("trade event")
			}
		}
	}
}

// pumpDepth drains the router's level-change stream into the
// publisher and logs whatever it decides to flush; a real deployment
// would fan DepthMessage out to WebSocket subscribers instead.
func pumpDepth(ctx context.Context, router *matcher.Router, publisher *matcher.OrderBookPublisher) {
	for {
		select {
		case <-ctx.Done():
			return
		case updates := <-router.LevelChanges():
			publisher.Ingest(updates)
			if msg := publisher.Flush(); msg != nil {
				switch {
				case msg.Snapshot != nil:
					log.Debug().Uint64("lastUpdateId", msg.Snapshot.LastUpdateID).Msg("depth: snapshot")
				case msg.Delta != nil:
					log.Debug().Uint64("startId", msg.Delta.StartID).Uint64("endId", msg.Delta.EndID).Msg("depth: delta")
				}
			}
		}
	}
}
