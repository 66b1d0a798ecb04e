package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchcore/internal/common"
	"matchcore/internal/engine"
	"matchcore/internal/workerpool"
)

const (
	maxFrameSize       = 4 * 1024
	defaultWorkerCount = 10
	defaultReadTimeout = time.Second
)

// Engine is the subset of *engine.Engine the transport layer needs; kept
// narrow so the core's public API stays the only contract this package
// depends on.
type Engine interface {
	Submit(in engine.SubmitOrderInput) (engine.SubmissionResult, error)
	Cancel(symbol string, orderID common.OrderId) (*common.Order, error)
}

// Server is a minimal TCP front-end that decodes the binary protocol in
// protocol.go and forwards submissions to an Engine, adapted from the
// exchange's original connection-per-worker TCP server.
type Server struct {
	address string
	port    int
	engine  Engine
	pool    *workerpool.Pool[net.Conn]

	cancel context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]net.Conn
}

// New constructs a server bound to address:port, forwarding decoded
// submissions to eng.
func New(address string, port int, eng Engine) *Server {
	return &Server{
		address:  address,
		port:     port,
		engine:   eng,
		pool:     workerpool.New[net.Conn](defaultWorkerCount),
		sessions: make(map[string]net.Conn),
	}
}

// Run accepts connections until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("transport: listen: %w", err)
	}
	defer listener.Close()

	// Closing the listener unblocks a pending Accept once ctx is done.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	log.Info().Str("address", listener.Addr().String()).Msg("transport server listening")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("accept failed")
				continue
			}
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// Shutdown stops the accept loop and all workers.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Server) handleConnection(t *tomb.Tomb, conn net.Conn) error {
	closeConn := func() {
		conn.Close()
		s.removeSession(conn)
	}

	if err := conn.SetDeadline(time.Now().Add(defaultReadTimeout)); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("failed to set read deadline")
		closeConn()
		return nil
	}

	select {
	case <-t.Dying():
		closeConn()
		return nil
	default:
		buf := make([]byte, maxFrameSize)
		n, err := conn.Read(buf)
		if err != nil {
			log.Debug().Err(err).Str("address", conn.RemoteAddr().String()).Msg("connection closed")
			closeConn()
			return nil
		}
		s.handleFrame(conn, buf[:n])
		s.pool.AddTask(conn) // keep serving this connection
	}
	return nil
}

func (s *Server) handleFrame(conn net.Conn, frame []byte) {
	typ, newOrder, cancelOrder, err := DecodeMessage(frame)
	if err != nil {
		s.writeError(conn, err)
		return
	}

	switch typ {
	case Heartbeat:
		return
	case NewOrder:
		s.handleNewOrder(conn, newOrder)
	case CancelOrder:
		s.handleCancelOrder(conn, cancelOrder)
	}
}

func (s *Server) handleNewOrder(conn net.Conn, req *NewOrderRequest) {
	result, err := s.engine.Submit(engine.SubmitOrderInput{
		Symbol:    req.Symbol,
		OrderType: req.OrderType,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Price:     req.Price,
		OrderID:   req.OrderID,
	})
	if err != nil {
		log.Warn().Err(err).Str("symbol", req.Symbol).Msg("order rejected")
		s.writeError(conn, err)
		return
	}

	s.write(conn, Report{
		Type:    ExecutionReport,
		OrderID: string(result.OrderID),
		Status:  result.Status.String(),
		Symbol:  req.Symbol,
	})
	for _, trade := range result.Trades {
		s.write(conn, Report{
			Type:     ExecutionReport,
			OrderID:  string(result.OrderID),
			Status:   result.Status.String(),
			Symbol:   trade.Symbol,
			Price:    trade.Price.String(),
			Quantity: trade.Quantity.String(),
		})
	}
}

func (s *Server) handleCancelOrder(conn net.Conn, req *CancelOrderRequest) {
	order, err := s.engine.Cancel(req.Symbol, common.OrderId(req.OrderID))
	if err != nil {
		s.writeError(conn, err)
		return
	}
	s.write(conn, Report{
		Type:    ExecutionReport,
		OrderID: string(order.ID),
		Status:  order.Status.String(),
		Symbol:  order.Symbol,
	})
}

func (s *Server) write(conn net.Conn, r Report) {
	if _, err := conn.Write(r.Encode()); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("failed to write report")
	}
}

func (s *Server) writeError(conn net.Conn, err error) {
	s.write(conn, Report{Type: ErrorReport, Err: err.Error()})
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[conn.RemoteAddr().String()] = conn
}

func (s *Server) removeSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, conn.RemoteAddr().String())
}
