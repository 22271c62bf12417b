// Package gateway is the one concrete external collaborator spec.md
// §6 describes: a thin TCP protocol adapter converting wire frames
// into matcher.Order values and serializing ExecutionResults back. It
// owns no book state and performs no matching.
package gateway

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/fenrir-labs/matcher/internal/matcher"
	"github.com/fenrir-labs/matcher/internal/wpool"
)

const (
	maxRecvSize      = 4 * 1024
	defaultNWorkers  = 10
	defaultReadSpace = time.Second
)

// BookClient is the command-boundary surface the gateway calls
// through; matcher.BookHandle satisfies it.
type BookClient interface {
	PlaceOrder(ctx context.Context, o matcher.Order) (matcher.ExecutionResult, error)
	CancelOrder(ctx context.Context, id uint64) (bool, error)
}

// Server accepts TCP connections, decodes wire frames into matcher
// commands, and writes back execution/error reports.
type Server struct {
	address string
	port    int
	scales  matcher.Scales
	client  BookClient
	pool    *wpool.Pool

	mu    sync.Mutex
	conns map[string]net.Conn
}

// New builds a Server listening on address:port, converting wire
// decimals through scales before handing orders to client.
func New(address string, port int, scales matcher.Scales, client BookClient) *Server {
	return &Server{
		address: address,
		port:    port,
		scales:  scales,
		client:  client,
		pool:    wpool.New(defaultNWorkers),
		conns:   make(map[string]net.Conn),
	}
}

// Run listens until ctx is cancelled, dispatching each accepted
// connection to the worker pool.
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}
	defer listener.Close()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	log.Info().Str("addr", listener.Addr().String()).Msg("gateway: listening")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return nil
				default:
					log.Error().Err(err).Msg("gateway: accept error")
					continue
				}
			}
			s.trackConn(conn)
			s.pool.AddTask(conn)
		}
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.RemoteAddr().String()] = conn
}

func (s *Server) untrackConn(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, addr)
}

// handleConnection reads one frame, handles it, and — if the
// connection is still alive — re-queues it so the worker pool keeps
// servicing further frames without dedicating one goroutine per
// connection for its whole lifetime.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return fmt.Errorf("gateway: unexpected task type %T", task)
	}
	addr := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(defaultReadSpace)); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("gateway: set deadline failed")
		return nil
	}

	select {
	case <-t.Dying():
		return nil
	default:
	}

	buf := make([]byte, maxRecvSize)
	n, err := conn.Read(buf)
	if err != nil {
		s.untrackConn(addr)
		conn.Close()
		return nil
	}

	traceID := uuid.New().String()
	if err := s.dispatch(conn, buf[:n], traceID); err != nil {
		log.Error().Err(err).Str("addr", addr).Str("trace", traceID).Msg("gateway: error handling frame")
		s.writeReport(conn, Report{Type: ErrorReport, Err: err.Error()})
	}

	s.pool.AddTask(conn)
	return nil
}

func (s *Server) dispatch(conn net.Conn, raw []byte, traceID string) error {
	typ, msg, err := ParseMessage(raw)
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch typ {
	case NewOrder:
		m := msg.(NewOrderMsg)
		order, err := s.toOrder(m)
		if err != nil {
			return err
		}
		log.Debug().Uint64("orderId", order.ID).Str("trace", traceID).Msg("gateway: new order")
		res, err := s.client.PlaceOrder(ctx, order)
		if err != nil {
			return err
		}
		s.writeExecutionReports(conn, res)
	case CancelOrder:
		m := msg.(CancelOrderMsg)
		log.Debug().Uint64("orderId", m.OrderID).Str("trace", traceID).Msg("gateway: cancel order")
		_, err := s.client.CancelOrder(ctx, m.OrderID)
		if err != nil {
			return err
		}
	case LogBook:
		log.Info().Str("trace", traceID).Msg("gateway: log-book request received")
	default:
		return ErrInvalidMessageType
	}
	return nil
}

func (s *Server) toOrder(m NewOrderMsg) (matcher.Order, error) {
	price, err := s.scales.ToTicksStrict(m.Price)
	if err != nil && m.OrderType == matcher.Limit {
		return matcher.Order{}, err
	}
	qty, err := s.scales.ToLotsStrict(m.Qty)
	if err != nil {
		return matcher.Order{}, err
	}
	return matcher.Order{
		ID:    m.OrderID,
		Side:  m.Side,
		Price: price,
		Qty:   qty,
		Type:  m.OrderType,
		Tif:   matcher.TimeInForce{Kind: m.TifKind, ExpiresAt: m.ExpiresAtMs},
	}, nil
}

// writeExecutionReports turns every ExecutionEvent in res into one
// Report frame each, in emission order.
func (s *Server) writeExecutionReports(conn net.Conn, res matcher.ExecutionResult) {
	for _, ev := range res.Events {
		r := Report{
			Type:           ExecutionReport,
			EventKind:      ev.Kind,
			OrderID:        ev.OrderID,
			TakerOrderID:   ev.TakerOrderID,
			MakerOrderID:   ev.MakerOrderID,
			TakerCompleted: ev.TakerCompleted,
			MakerCompleted: ev.MakerCompleted,
			FullyCancelled: ev.FullyCancelled,
			Qty:            s.scales.LotsToFloat64(pickQty(ev)),
			Price:          s.scales.TicksToFloat64(ev.Price),
		}
		if ev.Kind == matcher.EventRejected {
			r.Err = ev.Reason.String()
		}
		s.writeReport(conn, r)
	}
}

// pickQty returns the event's most relevant quantity field for wire
// reporting, since ExecutionEvent's quantity field varies by Kind.
func pickQty(ev matcher.ExecutionEvent) matcher.QtyLots {
	switch ev.Kind {
	case matcher.EventTraded:
		return ev.Qty
	case matcher.EventPlaced:
		return ev.Qty
	case matcher.EventCancelled:
		return ev.CancelledQty
	default:
		return 0
	}
}

func (s *Server) writeReport(conn net.Conn, r Report) {
	if _, err := conn.Write(r.Serialize()); err != nil {
		log.Error().Err(err).Msg("gateway: failed writing report")
	}
}
