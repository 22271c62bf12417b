package matcher

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultDrainMax bounds how many further commands a single loop iteration
// drains without yielding back to the heartbeat/select, amortizing the
// per-iteration bookkeeping cost.
const defaultDrainMax = 256

// PlaceCommand asks the actor to run the engine against order and
// report the outcome on RespondTo. Dropping RespondTo is not an
// error: the actor always completes the mutation and only attempts a
// best-effort send.
type PlaceCommand struct {
	Order     Order
	RespondTo chan<- ExecutionResult
}

// CancelCommand asks the actor to cancel id and report whether an
// order was actually removed.
type CancelCommand struct {
	ID        uint64
	RespondTo chan<- bool
}

// EventSink receives the outcome of every handled command, in
// handling order, for fan-out to subscribers. Implementations must
// not block the actor for long; Router satisfies this.
type EventSink interface {
	Publish(ExecutionResult)
}

// SnapshotStore is the persistence capability the actor's heartbeat
// consults. Due reports whether enough time has passed since the last
// successful save to attempt another one; SaveSnapshot does the work.
// SaveSnapshot returns storage errors rather than logging them; the
// actor logs a non-nil error and tries again on a later tick.
type SnapshotStore interface {
	Due(now time.Time) bool
	SaveSnapshot(book *OrderBook) error
}

// ActorConfig carries the per-symbol options spec.md §6 names for the
// actor's own loop; book construction (tick/lot size) is a separate
// concern handled by the caller building the OrderBook.
type ActorConfig struct {
	CommandCapacity int
	DrainMax        int
	HeartbeatMs     int64
}

// DefaultActorConfig returns the spec-mandated defaults.
func DefaultActorConfig() ActorConfig {
	return ActorConfig{CommandCapacity: 1024, DrainMax: defaultDrainMax, HeartbeatMs: 100}
}

// BookActor is the single-threaded owner of one OrderBook. It is the
// only mutator of its book: there is no lock around book state, only
// the serialization the command channel provides.
type BookActor struct {
	book   *OrderBook
	engine Engine
	sink   EventSink
	store  SnapshotStore
	cfg    ActorConfig

	placeCh  chan PlaceCommand
	cancelCh chan CancelCommand

	nowFunc func() time.Time
}

// NewBookActor wires book, sink and store into an actor ready to Run.
// sink and store may be nil: a nil sink drops events, a nil store
// never snapshots.
func NewBookActor(book *OrderBook, sink EventSink, store SnapshotStore, cfg ActorConfig) *BookActor {
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = DefaultActorConfig().CommandCapacity
	}
	if cfg.DrainMax <= 0 {
		cfg.DrainMax = DefaultActorConfig().DrainMax
	}
	if cfg.HeartbeatMs <= 0 {
		cfg.HeartbeatMs = DefaultActorConfig().HeartbeatMs
	}
	return &BookActor{
		book:     book,
		engine:   NewEngine(),
		sink:     sink,
		store:    store,
		cfg:      cfg,
		placeCh:  make(chan PlaceCommand, cfg.CommandCapacity),
		cancelCh: make(chan CancelCommand, cfg.CommandCapacity),
		nowFunc:  time.Now,
	}
}

// BookHandle is the narrow, goroutine-safe surface an external
// collaborator holds: it can submit commands, never reach the book.
type BookHandle struct {
	actor *BookActor
}

// Handle returns a's command-submission surface.
func (a *BookActor) Handle() BookHandle { return BookHandle{actor: a} }

// PlaceOrder submits order and blocks until the actor has processed
// it (or ctx is cancelled first).
func (h BookHandle) PlaceOrder(ctx context.Context, o Order) (ExecutionResult, error) {
	respond := make(chan ExecutionResult, 1)
	select {
	case h.actor.placeCh <- PlaceCommand{Order: o, RespondTo: respond}:
	case <-ctx.Done():
		return ExecutionResult{}, ctx.Err()
	}
	select {
	case res := <-respond:
		return res, nil
	case <-ctx.Done():
		return ExecutionResult{}, ctx.Err()
	}
}

// CancelOrder submits a cancel for id and blocks for the result.
func (h BookHandle) CancelOrder(ctx context.Context, id uint64) (bool, error) {
	respond := make(chan bool, 1)
	select {
	case h.actor.cancelCh <- CancelCommand{ID: id, RespondTo: respond}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-respond:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Run is the actor's main loop. Each iteration: heartbeat (GTT purge +
// snapshot check), one command, then up to DrainMax more commands
// without yielding. Run returns when ctx is cancelled or either command
// channel is closed.
func (a *BookActor) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(a.cfg.HeartbeatMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		// The tick takes priority over queued commands: select alone
		// picks randomly among ready cases, so check it first.
		select {
		case <-ticker.C:
			a.heartbeat()
		default:
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("book actor stopping: context cancelled")
			return
		case <-ticker.C:
			a.heartbeat()
		case cmd, ok := <-a.placeCh:
			if !ok {
				return
			}
			a.handlePlace(cmd)
			a.drain()
		case cmd, ok := <-a.cancelCh:
			if !ok {
				return
			}
			a.handleCancel(cmd)
			a.drain()
		}
	}
}

// drain handles up to DrainMax additional queued commands without
// returning to the outer select, amortizing heartbeat overhead under load.
func (a *BookActor) drain() {
	for i := 0; i < a.cfg.DrainMax; i++ {
		select {
		case cmd, ok := <-a.placeCh:
			if !ok {
				return
			}
			a.handlePlace(cmd)
		case cmd, ok := <-a.cancelCh:
			if !ok {
				return
			}
			a.handleCancel(cmd)
		default:
			return
		}
	}
}

func (a *BookActor) handlePlace(cmd PlaceCommand) {
	res := a.engine.Execute(cmd.Order, a.book)
	a.publish(res)
	if cmd.RespondTo != nil {
		select {
		case cmd.RespondTo <- res:
		default:
		}
	}
}

func (a *BookActor) handleCancel(cmd CancelCommand) {
	side, price, _ := a.book.Location(cmd.ID)
	qty, _ := a.book.OrderQty(cmd.ID)
	ok := a.book.Cancel(cmd.ID)
	if ok {
		res := ExecutionResult{
			Events: []ExecutionEvent{{
				Kind:           EventCancelled,
				OrderID:        cmd.ID,
				CancelledQty:   qty,
				FullyCancelled: true,
			}},
			LevelChangeBatch: []LevelChange{{
				Side:     side,
				Price:    price,
				NewQty:   a.book.Total(side, price),
				UpdateID: a.book.NextUpdateID(),
			}},
		}
		a.publish(res)
	}
	if cmd.RespondTo != nil {
		select {
		case cmd.RespondTo <- ok:
		default:
		}
	}
}

// heartbeat purges expired GTT orders and asks the snapshot store
// whether it is due to persist.
func (a *BookActor) heartbeat() {
	now := a.nowFunc()
	nowMs := now.UnixMilli()
	for _, exp := range a.book.ExpiredOrderIDs(nowMs) {
		side, price, ok := a.book.Location(exp.ID)
		if !ok || !a.book.Cancel(exp.ID) {
			continue
		}
		a.publish(ExecutionResult{
			Events: []ExecutionEvent{{
				Kind:           EventCancelled,
				OrderID:        exp.ID,
				CancelledQty:   exp.Qty,
				FullyCancelled: true,
			}},
			LevelChangeBatch: []LevelChange{{
				Side:     side,
				Price:    price,
				NewQty:   a.book.Total(side, price),
				UpdateID: a.book.NextUpdateID(),
			}},
		})
	}

	if a.store == nil {
		return
	}
	if !a.store.Due(now) {
		return
	}
	if err := a.store.SaveSnapshot(a.book); err != nil {
		log.Error().Err(err).Msg("snapshot save failed, keeping in-memory state authoritative")
	}
}

func (a *BookActor) publish(res ExecutionResult) {
	if a.sink == nil {
		return
	}
	if len(res.Events) == 0 && len(res.LevelChangeBatch) == 0 {
		return
	}
	a.sink.Publish(res)
}
